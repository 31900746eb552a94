package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const resolveTimeout = 30 * time.Second

type disconnectResolver interface {
	ResolveTimeout(ctx context.Context, roomID, departedID string) error
	ResolveBothGone(ctx context.Context, roomID string) error
}

type watch struct {
	record entity.DisconnectRecord
	timer  *time.Timer
	token  uint64
}

// DisconnectMonitor runs one grace countdown per room. A countdown either ends with the departed
// participant returning, with a forfeit on expiry, or with a draw when the other participant leaves too.
type DisconnectMonitor struct {
	logger   *slog.Logger
	resolver disconnectResolver
	notifier Notifier
	grace    time.Duration
	now      func() time.Time

	mu      sync.Mutex
	watches map[string]*watch
	tokens  uint64
}

func NewDisconnectMonitor(logger *slog.Logger, resolver disconnectResolver, notifier Notifier, grace time.Duration) *DisconnectMonitor {
	return &DisconnectMonitor{
		logger:   logger.With("component", "disconnect_monitor"),
		resolver: resolver,
		notifier: notifier,
		grace:    grace,
		now:      time.Now,
		watches:  make(map[string]*watch),
	}
}

// Departed - starts watching record.RoomID, or resolves the room as both gone when the other participant
// is already being watched.
func (that *DisconnectMonitor) Departed(record entity.DisconnectRecord) {
	log := that.logger.With("method", "Departed", "room_id", record.RoomID)

	that.mu.Lock()

	if existing, ok := that.watches[record.RoomID]; ok {
		if existing.record.DepartedParticipantID == record.DepartedParticipantID {
			that.mu.Unlock()
			return
		}

		existing.timer.Stop()
		delete(that.watches, record.RoomID)
		that.mu.Unlock()

		log.Info("both participants left")
		go that.resolveBothGone(record)

		return
	}

	record.DepartedAt = that.now()
	record.GraceDeadline = record.DepartedAt.Add(that.grace)

	that.tokens++
	token := that.tokens
	w := &watch{record: record, token: token}
	w.timer = time.AfterFunc(that.grace, func() {
		that.expire(record.RoomID, token)
	})
	that.watches[record.RoomID] = w

	that.mu.Unlock()

	log.Info("participant left, grace countdown started",
		"participant_id", record.DepartedParticipantID, "deadline", record.GraceDeadline)

	that.notify(record.RemainingParticipantID, entity.Event{
		Type:    entity.EventOpponentLeft,
		RoomID:  record.RoomID,
		Payload: record,
	})
}

// Returned - cancels the countdown when participantID is the one being waited for.
func (that *DisconnectMonitor) Returned(roomID, participantID string) bool {
	that.mu.Lock()

	w, ok := that.watches[roomID]
	if !ok || w.record.DepartedParticipantID != participantID {
		that.mu.Unlock()
		return false
	}

	w.timer.Stop()
	delete(that.watches, roomID)

	that.mu.Unlock()

	that.logger.Info("participant returned", "room_id", roomID, "participant_id", participantID)

	event := entity.Event{Type: entity.EventGameResumed, RoomID: roomID, Payload: w.record}
	that.notify(w.record.DepartedParticipantID, event)
	that.notify(w.record.RemainingParticipantID, event)

	return true
}

// CancelRoom - drops the countdown of a room that is going away.
func (that *DisconnectMonitor) CancelRoom(roomID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if w, ok := that.watches[roomID]; ok {
		w.timer.Stop()
		delete(that.watches, roomID)
	}
}

func (that *DisconnectMonitor) Pending(roomID string) (entity.DisconnectRecord, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	w, ok := that.watches[roomID]
	if !ok {
		return entity.DisconnectRecord{}, false
	}

	return w.record, true
}

// expire - timer callback. A watch replaced or cancelled since the timer was armed carries another token.
func (that *DisconnectMonitor) expire(roomID string, token uint64) {
	log := that.logger.With("method", "expire", "room_id", roomID)

	that.mu.Lock()

	w, ok := that.watches[roomID]
	if !ok || w.token != token {
		that.mu.Unlock()
		return
	}

	delete(that.watches, roomID)

	that.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	err := that.resolver.ResolveTimeout(ctx, roomID, w.record.DepartedParticipantID)
	if err == nil {
		log.Info("departed participant forfeited", "participant_id", w.record.DepartedParticipantID)
		return
	}

	if errors.Is(err, apperror.ErrParticipantOnline) {
		log.Info("departed participant is back", "participant_id", w.record.DepartedParticipantID)

		event := entity.Event{Type: entity.EventGameResumed, RoomID: roomID, Payload: w.record}
		that.notify(w.record.DepartedParticipantID, event)
		that.notify(w.record.RemainingParticipantID, event)

		return
	}

	log.Error("failed to resolve disconnect", "error", err)

	if !errors.Is(err, apperror.ErrPersistenceUnavailable) {
		return
	}

	that.notify(w.record.RemainingParticipantID, entity.Event{
		Type:   entity.EventResolutionError,
		RoomID: roomID,
		Payload: entity.ErrorPayload{
			Reason:  "persistence_unavailable",
			Message: err.Error(),
		},
	})
}

// resolveBothGone - record is the later departure. When the room still sees someone connected,
// the countdown restarts for that later departure and the room settles it on expiry.
func (that *DisconnectMonitor) resolveBothGone(record entity.DisconnectRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	err := that.resolver.ResolveBothGone(ctx, record.RoomID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrParticipantOnline):
		that.logger.Info("room is not empty, restarting countdown", "room_id", record.RoomID)
		that.Departed(record)
	default:
		that.logger.Error("failed to resolve both gone", "room_id", record.RoomID, "error", err)
	}
}

func (that *DisconnectMonitor) notify(participantID string, event entity.Event) {
	if that.notifier == nil || participantID == "" {
		return
	}

	that.notifier.Notify(participantID, event)
}
