package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/usecase"
)

var (
	errNotConnected    = errors.New("connect first")
	errMissingPosition = errors.New("position is required")
)

type ack struct {
	OK bool `json:"ok"`
}

func (that *Server) handleConnect(ctx context.Context, c *client, action string, payload *Payload) error {
	log := that.logger.With("method", "handleConnect")

	player, err := that.players.GetOrCreatePlayer(ctx, payload.PlayerID)
	if err != nil {
		return fmt.Errorf("failed to get or create player: %w", err)
	}

	that.register(player.ID, c)

	room, err := that.rooms.Reconnected(ctx, player.ID)
	if err != nil {
		return fmt.Errorf("failed to reconnect: %w", err)
	}

	c.reply(action, ConnectPayload{Player: player, Room: room})

	log.Info("successfully connected player", "participant_id", player.ID, "in_room", room != nil)

	return nil
}

func (that *Server) handlePing(_ context.Context, c *client, _ string, _ *Payload) error {
	c.reply("pong", nil)
	return nil
}

func (that *Server) handleQueueJoin(ctx context.Context, c *client, action string, payload *Payload) error {
	status, err := that.queue.Enqueue(ctx, c.ParticipantID(), entity.Mode(payload.Mode), payload.Opening)
	if err != nil {
		return err
	}

	// a pairing is announced with match_found to both participants
	if status.Room == nil {
		c.reply(entity.EventQueueWaiting, entity.QueuePayload{Mode: status.Mode, Position: status.Position})
	}

	return nil
}

func (that *Server) handleQueueLeave(_ context.Context, c *client, action string, payload *Payload) error {
	if payload.Mode == "" {
		that.queue.Leave(c.ParticipantID())
	} else {
		mode, err := entity.ParseMode(payload.Mode)
		if err != nil {
			return err
		}

		that.queue.Dequeue(c.ParticipantID(), mode)
	}

	c.reply(action, ack{OK: true})

	return nil
}

func (that *Server) handleRoomCreate(ctx context.Context, c *client, _ string, payload *Payload) error {
	snapshot, err := that.rooms.CreateRoom(ctx, c.ParticipantID(), payload.Opening)
	if err != nil {
		return err
	}

	c.write(Response{Action: entity.EventRoomState, RoomID: snapshot.ID, Payload: snapshot})

	return nil
}

func (that *Server) handleRoomJoin(ctx context.Context, c *client, _ string, payload *Payload) error {
	// the room broadcasts its state to both participants once the game starts
	if _, err := that.rooms.JoinRoom(ctx, payload.RoomID, c.ParticipantID()); err != nil {
		return err
	}

	return nil
}

func (that *Server) handleRoomState(ctx context.Context, c *client, _ string, payload *Payload) error {
	roomID := payload.RoomID
	if roomID == "" {
		room, ok := that.rooms.RoomOf(c.ParticipantID())
		if !ok {
			return apperror.ErrRoomNotFound
		}

		roomID = room.ID()
	}

	snapshot, err := that.rooms.Snapshot(ctx, roomID)
	if err != nil {
		return err
	}

	c.write(Response{Action: entity.EventRoomState, RoomID: snapshot.ID, Payload: snapshot})

	return nil
}

func (that *Server) handleOpeningPlace(ctx context.Context, c *client, _ string, payload *Payload) error {
	if payload.Position == nil {
		return errMissingPosition
	}

	room, err := that.currentRoom(c)
	if err != nil {
		return err
	}

	return room.PlaceStone(ctx, c.ParticipantID(), *payload.Position)
}

func (that *Server) handleOpeningChoice(ctx context.Context, c *client, _ string, payload *Payload) error {
	choice, err := entity.ParseOpeningChoice(payload.Choice)
	if err != nil {
		return err
	}

	room, err := that.currentRoom(c)
	if err != nil {
		return err
	}

	return room.MakeChoice(ctx, c.ParticipantID(), choice)
}

func (that *Server) handleGameMove(ctx context.Context, c *client, _ string, payload *Payload) error {
	if payload.Position == nil {
		return errMissingPosition
	}

	room, err := that.currentRoom(c)
	if err != nil {
		return err
	}

	mark, err := entity.ParseMark(payload.Mark)
	if err != nil {
		return err
	}

	// clients may leave the mark out and play the side they hold
	if mark == entity.MarkNone {
		snapshot, err := room.Snapshot(ctx)
		if err != nil {
			return err
		}

		participant, ok := snapshot.Participant(c.ParticipantID())
		if !ok {
			return apperror.ErrNotParticipant
		}

		mark = participant.Mark
	}

	return room.Move(ctx, c.ParticipantID(), *payload.Position, mark)
}

func (that *Server) handleSeriesForfeit(ctx context.Context, c *client, action string, _ *Payload) error {
	room, err := that.currentRoom(c)
	if err != nil {
		return err
	}

	if err = room.Forfeit(ctx, c.ParticipantID(), entity.FinishReasonForfeit); err != nil {
		return err
	}

	c.reply(action, ack{OK: true})

	return nil
}

func (that *Server) currentRoom(c *client) (*usecase.Room, error) {
	room, ok := that.rooms.RoomOf(c.ParticipantID())
	if !ok {
		return nil, fmt.Errorf("%w: not seated in a room", apperror.ErrRoomNotFound)
	}

	return room, nil
}
