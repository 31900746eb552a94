package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

type matchStarter interface {
	InRoom(participantID string) bool
	StartMatch(
		ctx context.Context,
		participantA, participantB string,
		mode entity.Mode,
		useOpening bool,
		series *entity.Series,
	) (*entity.RoomSnapshot, error)
}

type seriesCreator interface {
	CreateSeries(ctx context.Context, participantA, participantB string) (*entity.Series, error)
	Abandon(ctx context.Context, seriesID, matchID string) (*entity.SeriesResult, error)
}

// QueueStatus answers a join: either the waiting position or the room the pairing produced.
type QueueStatus struct {
	Mode     entity.Mode          `json:"mode"`
	Position int                  `json:"position,omitempty"`
	Room     *entity.RoomSnapshot `json:"room,omitempty"`
}

// Queue keeps one strict FIFO bucket per mode and pairs the two oldest entries.
// Entries taken out for a pairing stay in pairing until the room exists or the pairing is rolled back.
type Queue struct {
	logger   *slog.Logger
	rooms    matchStarter
	series   seriesCreator
	notifier Notifier
	now      func() time.Time

	mu      sync.Mutex
	buckets map[entity.Mode][]entity.QueueEntry
	pairing map[string]entity.QueueEntry
}

func NewQueue(logger *slog.Logger, rooms matchStarter, series seriesCreator, notifier Notifier) *Queue {
	return &Queue{
		logger:   logger.With("component", "queue"),
		rooms:    rooms,
		series:   series,
		notifier: notifier,
		now:      time.Now,
		buckets:  make(map[entity.Mode][]entity.QueueEntry),
		pairing:  make(map[string]entity.QueueEntry),
	}
}

// Enqueue - appends the participant to the mode bucket and pairs when two are waiting.
// Ranked pairings get a series first; when that fails both entries go back to the front.
func (that *Queue) Enqueue(ctx context.Context, participantID string, mode entity.Mode, useOpening bool) (*QueueStatus, error) {
	log := that.logger.With("method", "Enqueue", "participant_id", participantID, "mode", mode)

	mode, err := entity.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	if that.rooms.InRoom(participantID) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, participantID)
	}

	that.mu.Lock()

	if queued, ok := that.queuedMode(participantID); ok {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: %s queue", apperror.ErrAlreadyQueued, queued)
	}

	that.buckets[mode] = append(that.buckets[mode], entity.QueueEntry{
		ParticipantID:    participantID,
		Mode:             mode,
		OpeningRequested: useOpening,
		JoinedAt:         that.now(),
	})

	bucket := that.buckets[mode]
	if len(bucket) < 2 {
		position := len(bucket)
		that.mu.Unlock()

		log.Info("participant is waiting", "position", position)

		return &QueueStatus{Mode: mode, Position: position}, nil
	}

	first, second := bucket[0], bucket[1]
	that.buckets[mode] = append([]entity.QueueEntry(nil), bucket[2:]...)
	that.pairing[first.ParticipantID] = first
	that.pairing[second.ParticipantID] = second

	that.mu.Unlock()

	return that.pair(ctx, first, second)
}

// Dequeue - idempotent.
func (that *Queue) Dequeue(participantID string, mode entity.Mode) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.remove(participantID, mode)

	if entry, ok := that.pairing[participantID]; ok && entry.Mode == mode {
		delete(that.pairing, participantID)
	}
}

// Leave - removes the participant from every bucket. A pairing in flight will not put them back.
func (that *Queue) Leave(participantID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, mode := range entity.Modes {
		that.remove(participantID, mode)
	}

	delete(that.pairing, participantID)
}

// Waiting - the number of entries in the mode bucket.
func (that *Queue) Waiting(mode entity.Mode) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.buckets[mode])
}

func (that *Queue) pair(ctx context.Context, first, second entity.QueueEntry) (*QueueStatus, error) {
	log := that.logger.With("method", "pair", "mode", first.Mode)

	mode := first.Mode
	useOpening := mode == entity.ModeRanked || (first.OpeningRequested && second.OpeningRequested)

	participantA, participantB := first.ParticipantID, second.ParticipantID
	if rand.IntN(2) == 1 {
		participantA, participantB = participantB, participantA
	}

	var series *entity.Series
	if mode == entity.ModeRanked {
		created, err := that.series.CreateSeries(ctx, participantA, participantB)
		if err != nil {
			log.Error("failed to create series, pairing rolled back", "error", err)

			return that.rollback(err, second, first, second), nil
		}

		series = created
	}

	snapshot, err := that.rooms.StartMatch(ctx, participantA, participantB, mode, useOpening, series)
	if err != nil {
		log.Error("failed to start match, pairing rolled back", "error", err)

		if series != nil {
			that.discardSeries(series)
		}

		status := that.rollback(err, second, first, second)
		if status.Position == 0 {
			return nil, fmt.Errorf("failed to start match: %w", err)
		}

		return status, nil
	}

	that.settle(first, second)

	log.Info("match found", "room_id", snapshot.ID, "participants", []string{participantA, participantB})

	event := entity.Event{Type: entity.EventMatchFound, RoomID: snapshot.ID, Payload: snapshot}
	that.notifier.Notify(first.ParticipantID, event)
	that.notifier.Notify(second.ParticipantID, event)

	return &QueueStatus{Mode: mode, Room: snapshot}, nil
}

// settle - the pairing is over for entries.
func (that *Queue) settle(entries ...entity.QueueEntry) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, entry := range entries {
		delete(that.pairing, entry.ParticipantID)
	}
}

// rollback - ends a failed pairing. Entries still waiting on it go back to the front in their original
// order and hear why; entries that left the queue or got a room meanwhile are dropped.
// The returned status carries the requester's new position, zero when it was dropped.
func (that *Queue) rollback(cause error, requester entity.QueueEntry, entries ...entity.QueueEntry) *QueueStatus {
	that.mu.Lock()

	requeued := make([]entity.QueueEntry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := that.pairing[entry.ParticipantID]; !ok {
			continue
		}

		delete(that.pairing, entry.ParticipantID)

		if that.rooms.InRoom(entry.ParticipantID) {
			continue
		}

		requeued = append(requeued, entry)
	}

	status := &QueueStatus{Mode: requester.Mode}
	for i, entry := range requeued {
		if entry.ParticipantID == requester.ParticipantID {
			status.Position = i + 1
		}
	}

	if len(requeued) > 0 {
		that.requeueFront(requeued...)
	}

	that.mu.Unlock()

	participants := make([]string, 0, len(requeued))
	for _, entry := range requeued {
		participants = append(participants, entry.ParticipantID)
	}

	that.notifyError(cause, participants...)

	return status
}

// discardSeries - closes a series whose room never started, so it is not left in progress.
func (that *Queue) discardSeries(series *entity.Series) {
	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if _, err := that.series.Abandon(ctx, series.ID, series.ID+"-unstarted"); err != nil {
		that.logger.Error("failed to close unstarted series", "series_id", series.ID, "error", err)
	}
}

// requeueFront - callers hold that.mu.
func (that *Queue) requeueFront(entries ...entity.QueueEntry) {
	mode := entries[0].Mode
	that.buckets[mode] = append(append([]entity.QueueEntry(nil), entries...), that.buckets[mode]...)
}

func (that *Queue) notifyError(err error, participants ...string) {
	reason := "match_failed"
	if errors.Is(err, apperror.ErrPersistenceUnavailable) {
		reason = "persistence_unavailable"
	}

	event := entity.Event{
		Type: entity.EventQueueError,
		Payload: entity.ErrorPayload{
			Reason:  reason,
			Message: err.Error(),
		},
	}

	for _, participantID := range participants {
		that.notifier.Notify(participantID, event)
	}
}

func (that *Queue) queuedMode(participantID string) (entity.Mode, bool) {
	if entry, ok := that.pairing[participantID]; ok {
		return entry.Mode, true
	}

	for mode, bucket := range that.buckets {
		for _, entry := range bucket {
			if entry.ParticipantID == participantID {
				return mode, true
			}
		}
	}

	return "", false
}

func (that *Queue) remove(participantID string, mode entity.Mode) {
	bucket := that.buckets[mode]
	for i, entry := range bucket {
		if entry.ParticipantID == participantID {
			that.buckets[mode] = append(bucket[:i:i], bucket[i+1:]...)
			return
		}
	}
}
