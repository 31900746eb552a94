package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

// RoomManager is the arena of live rooms keyed by id. Its lock only guards the indexes;
// room state is only touched by each room's own actor.
type RoomManager struct {
	logger   *slog.Logger
	settings Settings
	series   seriesService
	archive  matchArchive
	notifier Notifier
	monitor  *DisconnectMonitor

	mu        sync.Mutex
	rooms     map[string]*Room
	seats     map[string]string
	teardowns map[string]*time.Timer
}

func NewRoomManager(
	logger *slog.Logger,
	settings Settings,
	series seriesService,
	archive matchArchive,
	notifier Notifier,
) *RoomManager {
	manager := &RoomManager{
		logger:   logger.With("component", "room_manager"),
		settings: settings,
		series:   series,
		archive:  archive,
		notifier: notifier,

		rooms:     make(map[string]*Room),
		seats:     make(map[string]string),
		teardowns: make(map[string]*time.Timer),
	}

	manager.monitor = NewDisconnectMonitor(logger, manager, notifier, settings.GracePeriod)

	return manager
}

func (that *RoomManager) Monitor() *DisconnectMonitor {
	return that.monitor
}

// CreateRoom - opens a private casual room that waits for a second participant.
func (that *RoomManager) CreateRoom(ctx context.Context, creatorID string, useOpening bool) (*entity.RoomSnapshot, error) {
	room, err := that.register(roomParams{
		ID:           uuid.NewString(),
		Mode:         entity.ModeCasual,
		Participants: []string{creatorID},
		UseOpening:   useOpening,
	})
	if err != nil {
		return nil, err
	}

	return room.Snapshot(ctx)
}

// JoinRoom - seats participantID in a waiting room; joining a room one already sits in returns its state.
func (that *RoomManager) JoinRoom(ctx context.Context, roomID, participantID string) (*entity.RoomSnapshot, error) {
	room, err := that.Room(roomID)
	if err != nil {
		return nil, err
	}

	that.mu.Lock()
	if seated, ok := that.seats[participantID]; ok && seated != roomID {
		that.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, seated)
	}
	that.seats[participantID] = roomID
	that.mu.Unlock()

	if err = room.Join(ctx, participantID); err != nil {
		that.release(roomID, participantID)
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	return room.Snapshot(ctx)
}

// StartMatch - seats a queue pairing in a new room that starts right away.
func (that *RoomManager) StartMatch(
	ctx context.Context,
	participantA, participantB string,
	mode entity.Mode,
	useOpening bool,
	series *entity.Series,
) (*entity.RoomSnapshot, error) {
	room, err := that.register(roomParams{
		ID:           uuid.NewString(),
		Mode:         mode,
		Participants: []string{participantA, participantB},
		UseOpening:   useOpening,
		Series:       series,
	})
	if err != nil {
		return nil, err
	}

	return room.Snapshot(ctx)
}

func (that *RoomManager) Room(roomID string) (*Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	room, ok := that.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	return room, nil
}

// RoomOf - the live room participantID is seated in.
func (that *RoomManager) RoomOf(participantID string) (*Room, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	roomID, ok := that.seats[participantID]
	if !ok {
		return nil, false
	}

	room, ok := that.rooms[roomID]

	return room, ok
}

func (that *RoomManager) InRoom(participantID string) bool {
	_, ok := that.RoomOf(participantID)
	return ok
}

func (that *RoomManager) Snapshot(ctx context.Context, roomID string) (*entity.RoomSnapshot, error) {
	room, err := that.Room(roomID)
	if err != nil {
		return nil, err
	}

	return room.Snapshot(ctx)
}

// Disconnected - a participant's link dropped. Live rooms start the grace countdown, waiting rooms close.
func (that *RoomManager) Disconnected(ctx context.Context, participantID string) {
	log := that.logger.With("method", "Disconnected", "participant_id", participantID)

	room, ok := that.RoomOf(participantID)
	if !ok {
		return
	}

	if err := room.SetConnected(ctx, participantID, false); err != nil {
		log.Warn("failed to mark participant offline", "error", err)
		return
	}

	snapshot, err := room.Snapshot(ctx)
	if err != nil {
		log.Warn("failed to get room snapshot", "error", err)
		return
	}

	for _, participant := range snapshot.Participants {
		if participant.ID == participantID && participant.Connected {
			log.Info("participant is already back")
			return
		}
	}

	switch snapshot.Status {
	case entity.RoomWaiting:
		that.closeRoom(room.ID())
	case entity.RoomPlaying:
		record := entity.DisconnectRecord{
			RoomID:                room.ID(),
			DepartedParticipantID: participantID,
		}

		for _, participant := range snapshot.Participants {
			if participant.ID != participantID {
				record.RemainingParticipantID = participant.ID
			}
		}

		if snapshot.Series != nil {
			record.SeriesID = snapshot.Series.ID
		}

		that.monitor.Departed(record)
	}
}

// Reconnected - a participant came back; returns the state of its room, nil when it has none.
func (that *RoomManager) Reconnected(ctx context.Context, participantID string) (*entity.RoomSnapshot, error) {
	room, ok := that.RoomOf(participantID)
	if !ok {
		return nil, nil
	}

	if err := room.SetConnected(ctx, participantID, true); err != nil {
		return nil, fmt.Errorf("failed to mark participant online: %w", err)
	}

	that.monitor.Returned(room.ID(), participantID)

	return room.Snapshot(ctx)
}

// ResolveTimeout - the departed participant did not come back in time and forfeits.
// The room decides on its own presence state, so a participant already back is never forfeited.
func (that *RoomManager) ResolveTimeout(ctx context.Context, roomID, departedID string) error {
	room, err := that.Room(roomID)
	if err != nil {
		return err
	}

	return room.ForfeitAbsent(ctx, departedID)
}

// ResolveBothGone - nobody is left: the room closes as a draw.
func (that *RoomManager) ResolveBothGone(ctx context.Context, roomID string) error {
	room, err := that.Room(roomID)
	if err != nil {
		return err
	}

	return room.AbandonAbsent(ctx)
}

// Shutdown - closes every room and stops pending timers.
func (that *RoomManager) Shutdown() {
	that.mu.Lock()
	ids := make([]string, 0, len(that.rooms))
	for id := range that.rooms {
		ids = append(ids, id)
	}
	that.mu.Unlock()

	for _, id := range ids {
		that.closeRoom(id)
	}
}

func (that *RoomManager) register(params roomParams) (*Room, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, participantID := range params.Participants {
		if roomID, ok := that.seats[participantID]; ok {
			return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, roomID)
		}
	}

	room := newRoom(that.logger, params, that.settings, that.series, that.archive, that.notifier, that.roomFinished)

	that.rooms[room.ID()] = room
	for _, participantID := range params.Participants {
		that.seats[participantID] = room.ID()
	}

	that.logger.Info("room created", "room_id", room.ID(), "mode", params.Mode, "participants", params.Participants)

	return room, nil
}

// roomFinished - runs on the room's actor. Participants are free to queue again; the room stays
// readable until the retention window passes.
func (that *RoomManager) roomFinished(roomID string, participants []string) {
	that.monitor.CancelRoom(roomID)
	that.release(roomID, participants...)

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.teardowns[roomID]; ok {
		return
	}

	that.teardowns[roomID] = time.AfterFunc(that.settings.Retention, func() {
		that.closeRoom(roomID)
	})
}

func (that *RoomManager) release(roomID string, participants ...string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, participantID := range participants {
		if that.seats[participantID] == roomID {
			delete(that.seats, participantID)
		}
	}
}

func (that *RoomManager) closeRoom(roomID string) {
	that.monitor.CancelRoom(roomID)

	that.mu.Lock()
	room, ok := that.rooms[roomID]
	delete(that.rooms, roomID)

	if timer, found := that.teardowns[roomID]; found {
		timer.Stop()
		delete(that.teardowns, roomID)
	}

	for participantID, seated := range that.seats {
		if seated == roomID {
			delete(that.seats, participantID)
		}
	}
	that.mu.Unlock()

	if !ok {
		return
	}

	room.Close()
	that.logger.Info("room closed", "room_id", roomID)
}
