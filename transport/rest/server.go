package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 5 * time.Second

// NewRouter - routes of the HTTP API.
func NewRouter(handlers Handlers) http.Handler {
	router := chi.NewRouter()

	router.Get("/ping", handlers.PingHandler)
	router.Get("/rooms/{id}", handlers.RoomHandler)
	router.Get("/matches/{id}", handlers.MatchHandler)
	router.Get("/series/{id}", handlers.SeriesHandler)
	router.Get("/series/{id}/matches", handlers.SeriesMatchesHandler)

	return router
}

// Start - serves the HTTP API until ctx is done.
func Start(ctx context.Context, logger *slog.Logger, port string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
