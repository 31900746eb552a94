package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)

	RoomHandler(w http.ResponseWriter, r *http.Request)
	MatchHandler(w http.ResponseWriter, r *http.Request)
	SeriesHandler(w http.ResponseWriter, r *http.Request)
	SeriesMatchesHandler(w http.ResponseWriter, r *http.Request)
}

type roomReader interface {
	Snapshot(ctx context.Context, roomID string) (*entity.RoomSnapshot, error)
}

type matchReader interface {
	GetByID(ctx context.Context, id string) (*entity.MatchRecord, error)
	ListBySeries(ctx context.Context, seriesID string) ([]*entity.MatchRecord, error)
}

type seriesReader interface {
	GetSeries(ctx context.Context, seriesID string) (*entity.Series, error)
}

type handlers struct {
	logger  *slog.Logger
	rooms   roomReader
	matches matchReader
	series  seriesReader
}

func NewHandlers(logger *slog.Logger, rooms roomReader, matches matchReader, series seriesReader) Handlers {
	return &handlers{
		logger:  logger.With("component", "rest"),
		rooms:   rooms,
		matches: matches,
		series:  series,
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// RoomHandler - live state of a room, readable until its retention window passes.
func (that *handlers) RoomHandler(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.rooms.Snapshot(r.Context(), chi.URLParam(r, "id"))
	that.respond(w, "RoomHandler", snapshot, err)
}

// MatchHandler - archived record of one game, for replays fetched after the room is gone.
func (that *handlers) MatchHandler(w http.ResponseWriter, r *http.Request) {
	record, err := that.matches.GetByID(r.Context(), chi.URLParam(r, "id"))
	that.respond(w, "MatchHandler", record, err)
}

func (that *handlers) SeriesHandler(w http.ResponseWriter, r *http.Request) {
	series, err := that.series.GetSeries(r.Context(), chi.URLParam(r, "id"))
	that.respond(w, "SeriesHandler", series, err)
}

func (that *handlers) SeriesMatchesHandler(w http.ResponseWriter, r *http.Request) {
	records, err := that.matches.ListBySeries(r.Context(), chi.URLParam(r, "id"))
	that.respond(w, "SeriesMatchesHandler", records, err)
}

func (that *handlers) respond(w http.ResponseWriter, method string, body any, err error) {
	if err != nil {
		status := statusOf(err)
		if status == http.StatusInternalServerError {
			that.logger.Error("failed to handle request", "method", method, "error", err)
		}

		http.Error(w, err.Error(), status)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err = json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to encode response", "method", method, "error", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound),
		errors.Is(err, apperror.ErrMatchNotFound),
		errors.Is(err, apperror.ErrSeriesNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
