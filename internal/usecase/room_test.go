package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

func TestRoom_CasualGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Five in a row finishes the room", func(t *testing.T) {
		// Given: a casual room without opening
		env := newTestEnv(t)
		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeCasual, false, nil)
		require.NoError(t, err)
		require.Equal(t, entity.RoomPlaying, snapshot.Status)
		require.Equal(t, entity.MarkFirst, snapshot.Turn)

		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)
		first, second := marks(t, snapshot)

		// When: the first side completes five
		playFive(ctx, t, room, first, second, 3)

		// Then: the room is finished with the winner and the game is archived
		finished, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomFinished, finished.Status)
		require.Equal(t, first, finished.WinnerID)
		require.NotNil(t, finished.Win)
		require.Len(t, finished.Win.Line, 5)
		require.Equal(t, uint64(9), finished.Sequence)

		require.Eventually(t, func() bool {
			record, ok := env.archive.Get(snapshot.ID + "-g1")
			return ok && record.WinnerID == first && len(record.Moves) == 9
		}, time.Second, 10*time.Millisecond)

		require.Equal(t, 1, env.notifier.Count(second, entity.EventGameOver))
		require.False(t, env.manager.InRoom(first))

		err = room.Move(ctx, second, pos(10, 10), entity.MarkSecond)
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})

	t.Run("Rejected moves leave the room untouched", func(t *testing.T) {
		env := newTestEnv(t)
		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeCasual, false, nil)
		require.NoError(t, err)

		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)
		first, second := marks(t, snapshot)

		// second cannot open the game
		require.ErrorIs(t, room.Move(ctx, second, pos(7, 7), entity.MarkSecond), apperror.ErrNotYourTurn)
		// nobody plays the other side's mark
		require.ErrorIs(t, room.Move(ctx, second, pos(7, 7), entity.MarkFirst), apperror.ErrNotYourTurn)
		require.ErrorIs(t, room.Move(ctx, "mallory", pos(7, 7), entity.MarkFirst), apperror.ErrNotParticipant)
		require.ErrorIs(t, room.Move(ctx, first, pos(15, 7), entity.MarkFirst), apperror.ErrOutOfBounds)

		require.NoError(t, room.Move(ctx, first, pos(7, 7), entity.MarkFirst))
		require.ErrorIs(t, room.Move(ctx, second, pos(7, 7), entity.MarkSecond), apperror.ErrOccupied)
		require.ErrorIs(t, room.PlaceStone(ctx, second, pos(1, 1)), apperror.ErrInvalidPhase)

		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), state.Sequence)
		assert.Equal(t, 1, state.Board.Len())
		assert.Equal(t, entity.MarkSecond, state.Turn)
	})

	t.Run("Forbidden move of the first side", func(t *testing.T) {
		env := newTestEnv(t)
		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeCasual, false, nil)
		require.NoError(t, err)

		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)
		first, second := marks(t, snapshot)

		// Given: the first side has two twos pointing at (7,7)
		black := []entity.Position{pos(5, 7), pos(6, 7), pos(7, 5), pos(7, 6)}
		white := []entity.Position{pos(0, 0), pos(0, 2), pos(0, 4), pos(0, 6)}
		for i := range black {
			require.NoError(t, room.Move(ctx, first, black[i], entity.MarkFirst))
			require.NoError(t, room.Move(ctx, second, white[i], entity.MarkSecond))
		}

		// When: the first side plays the double three
		err = room.Move(ctx, first, pos(7, 7), entity.MarkFirst)

		// Then: it is rejected and the second side could play there
		require.ErrorIs(t, err, apperror.ErrForbiddenMove)
		require.NoError(t, room.Move(ctx, first, pos(12, 12), entity.MarkFirst))
		require.NoError(t, room.Move(ctx, second, pos(7, 7), entity.MarkSecond))
	})
}

func TestRoom_Opening(t *testing.T) {
	ctx := context.Background()

	// Given: a casual room that uses the balanced opening
	env := newTestEnv(t)
	snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeCasual, true, nil)
	require.NoError(t, err)
	require.NotNil(t, snapshot.Opening)
	require.Equal(t, entity.MarkNone, snapshot.Turn)

	room, err := env.manager.Room(snapshot.ID)
	require.NoError(t, err)

	opener := snapshot.Opening.ActiveParticipantID
	chooser := snapshot.Opening.SecondParticipantID

	// moves are refused until the opening is done
	require.ErrorIs(t, room.Move(ctx, opener, pos(1, 1), entity.MarkFirst), apperror.ErrInvalidPhase)

	// When: the opener places three stones and the other participant takes white
	require.ErrorIs(t, room.PlaceStone(ctx, chooser, pos(7, 7)), apperror.ErrNotYourTurn)
	require.NoError(t, room.PlaceStone(ctx, opener, pos(7, 7)))
	require.NoError(t, room.PlaceStone(ctx, opener, pos(8, 7)))
	require.NoError(t, room.PlaceStone(ctx, opener, pos(7, 8)))
	require.ErrorIs(t, room.MakeChoice(ctx, chooser, entity.ChoiceNone), apperror.ErrInvalidChoice)
	require.NoError(t, room.MakeChoice(ctx, chooser, entity.ChoiceTakeWhite))

	// Then: the stones are committed and white, the chooser, moves next
	state, err := room.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, state.Board.Len())
	require.Len(t, state.Moves, 3)
	require.Equal(t, entity.MarkSecond, state.Turn)

	participant, ok := state.Participant(chooser)
	require.True(t, ok)
	require.Equal(t, entity.MarkSecond, participant.Mark)

	require.NoError(t, room.Move(ctx, chooser, pos(9, 9), entity.MarkSecond))
	require.Equal(t, 1, env.notifier.Count(opener, entity.EventOpeningComplete))
	require.Equal(t, 3, env.notifier.Count(chooser, entity.EventStonePlaced))
}

func TestRoom_Series(t *testing.T) {
	ctx := context.Background()

	t.Run("Sides swap and the series ends after two wins", func(t *testing.T) {
		// Given: a ranked room with a series
		env := newTestEnv(t)
		series, err := env.series.CreateSeries(ctx, "alice", "bob")
		require.NoError(t, err)

		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeRanked, false, series)
		require.NoError(t, err)
		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)

		first, second := marks(t, snapshot)
		require.Equal(t, "alice", first)

		// When: alice wins game one
		playFive(ctx, t, room, first, second, 3)

		// Then: game two starts with bob on the first side
		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomPlaying, state.Status)
		require.Equal(t, 2, state.GameNumber)
		require.Equal(t, 0, state.Board.Len())

		first, second = marks(t, state)
		require.Equal(t, "bob", first)

		// When: alice wins game two from the second side
		for x := 0; x < 5; x++ {
			require.NoError(t, room.Move(ctx, first, pos(2*x, 10), entity.MarkFirst))
			require.NoError(t, room.Move(ctx, second, pos(x, 5), entity.MarkSecond))
		}

		// Then: the series is over and the room finished
		state, err = room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomFinished, state.Status)
		require.True(t, state.Series.IsComplete())
		require.Equal(t, "alice", state.Series.Winner())
		require.Equal(t, 2, env.series.Calls("EndGame"))
		require.Equal(t, 1, env.notifier.Count("bob", entity.EventSeriesComplete))
	})

	t.Run("Unavailable persistence freezes the room", func(t *testing.T) {
		env := newTestEnv(t)
		series, err := env.series.CreateSeries(ctx, "alice", "bob")
		require.NoError(t, err)

		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeRanked, false, series)
		require.NoError(t, err)
		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)
		first, second := marks(t, snapshot)

		// Given: every attempt to record the result fails
		env.series.FailNext(3)

		// When: the game is won
		playFive(ctx, t, room, first, second, 3)

		// Then: the room is frozen and keeps its participants
		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomFrozen, state.Status)
		require.Equal(t, 3, env.series.Calls("EndGame"))
		require.True(t, env.manager.InRoom(first))
		require.Equal(t, 1, env.notifier.Count(second, entity.EventRoomFrozen))
		require.ErrorIs(t, room.Move(ctx, second, pos(14, 14), entity.MarkSecond), apperror.ErrRoomFrozen)
	})

	t.Run("A retry that finds the result applied is a success", func(t *testing.T) {
		env := newTestEnv(t)
		series, err := env.series.CreateSeries(ctx, "alice", "bob")
		require.NoError(t, err)

		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeRanked, false, series)
		require.NoError(t, err)
		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)

		// Given: the result was stored by an earlier delivery
		_, err = env.series.EndGame(ctx, series.ID, snapshot.ID+"-g1", "alice", 0)
		require.NoError(t, err)

		// When: the room reports the same game
		first, second := marks(t, snapshot)
		playFive(ctx, t, room, first, second, 3)

		// Then: the room moves on without counting it twice
		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomPlaying, state.Status)
		require.Equal(t, 1, state.Series.WinsA)
		require.Equal(t, 2, state.GameNumber)
	})

	t.Run("Voluntary forfeit closes the series", func(t *testing.T) {
		env := newTestEnv(t)
		series, err := env.series.CreateSeries(ctx, "alice", "bob")
		require.NoError(t, err)

		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeRanked, false, series)
		require.NoError(t, err)
		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)

		require.NoError(t, room.Forfeit(ctx, "bob", entity.FinishReasonForfeit))

		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomFinished, state.Status)
		require.Equal(t, "alice", state.Series.Winner())
		require.Equal(t, "alice", state.WinnerID)
		require.Equal(t, 1, env.notifier.Count("alice", entity.EventSeriesForfeited))
	})
}

func TestRoom_LostResult(t *testing.T) {
	ctx := context.Background()

	start := func(t *testing.T, env *testEnv) (*Room, *entity.Series) {
		t.Helper()

		series, err := env.series.CreateSeries(ctx, "alice", "bob")
		require.NoError(t, err)

		snapshot, err := env.manager.StartMatch(ctx, "alice", "bob", entity.ModeRanked, false, series)
		require.NoError(t, err)

		room, err := env.manager.Room(snapshot.ID)
		require.NoError(t, err)

		return room, series
	}

	t.Run("Forfeit lands the stored game before closing the series", func(t *testing.T) {
		env, lost := newLostReplyEnv(t, testSettings())
		room, series := start(t, env)

		// Given: alice wins game one, the series stores it but every reply is lost
		lost.LoseNext(3)
		playFive(ctx, t, room, "alice", "bob", 3)

		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomFrozen, state.Status)

		stored, err := env.series.GetSeries(ctx, series.ID)
		require.NoError(t, err)
		require.Equal(t, 1, stored.WinsA)

		// When: alice forfeits the frozen room
		require.NoError(t, room.Forfeit(ctx, "alice", entity.FinishReasonForfeit))

		// Then: game one counts once and the stored series is closed in bob's favor
		stored, err = env.series.GetSeries(ctx, series.ID)
		require.NoError(t, err)
		require.True(t, stored.IsComplete())
		require.Equal(t, "bob", stored.Winner())
		require.Equal(t, 1, stored.WinsA)

		state, err = room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomFinished, state.Status)
		require.Equal(t, 2, state.GameNumber)
		require.Equal(t, "bob", state.WinnerID)
		require.Equal(t, 1, env.notifier.Count("bob", entity.EventSeriesForfeited))
	})

	t.Run("Forfeit fails while the stored game cannot be confirmed", func(t *testing.T) {
		env, lost := newLostReplyEnv(t, testSettings())
		room, series := start(t, env)

		// Given: no reply ever reaches the room
		lost.LoseNext(100)
		playFive(ctx, t, room, "alice", "bob", 3)

		// When: alice forfeits
		err := room.Forfeit(ctx, "alice", entity.FinishReasonForfeit)

		// Then: the room stays frozen and nothing claims the series is over
		require.ErrorIs(t, err, apperror.ErrPersistenceUnavailable)

		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomFrozen, state.Status)

		stored, err := env.series.GetSeries(ctx, series.ID)
		require.NoError(t, err)
		require.Equal(t, entity.SeriesInProgress, stored.Status)
		require.Zero(t, env.series.Calls("Forfeit"))
		require.Zero(t, env.notifier.Count("bob", entity.EventSeriesForfeited))
	})

	t.Run("Frozen room reports the game again on its own", func(t *testing.T) {
		settings := testSettings()
		settings.ResumeInterval = 5 * time.Millisecond

		env, lost := newLostReplyEnv(t, settings)
		room, series := start(t, env)

		// Given: the first report of game one is lost
		lost.LoseNext(3)
		playFive(ctx, t, room, "alice", "bob", 3)
		require.Equal(t, 1, env.notifier.Count("bob", entity.EventRoomFrozen))

		// Then: the room picks up game two without anyone acting
		require.Eventually(t, func() bool {
			state, err := room.Snapshot(ctx)
			return err == nil && state.Status == entity.RoomPlaying && state.GameNumber == 2
		}, time.Second, 5*time.Millisecond)

		stored, err := env.series.GetSeries(ctx, series.ID)
		require.NoError(t, err)
		require.Equal(t, 1, stored.WinsA)
		require.Equal(t, 2, stored.CurrentGameNumber)
		require.Equal(t, 1, env.notifier.Count("bob", entity.EventNextGame))
	})

	t.Run("Manual resume of a room that is not frozen does nothing", func(t *testing.T) {
		env, _ := newLostReplyEnv(t, testSettings())
		room, _ := start(t, env)

		require.NoError(t, room.Resume(ctx))

		state, err := room.Snapshot(ctx)
		require.NoError(t, err)
		require.Equal(t, entity.RoomPlaying, state.Status)
		require.Equal(t, 1, state.GameNumber)
	})
}

func TestRoomManager_PrivateRoom(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// Given: alice opens a room
	snapshot, err := env.manager.CreateRoom(ctx, "alice", false)
	require.NoError(t, err)
	require.Equal(t, entity.RoomWaiting, snapshot.Status)

	// When: bob joins it
	joined, err := env.manager.JoinRoom(ctx, snapshot.ID, "bob")

	// Then: the game starts
	require.NoError(t, err)
	require.Equal(t, entity.RoomPlaying, joined.Status)
	require.Len(t, joined.Participants, 2)

	_, err = env.manager.JoinRoom(ctx, snapshot.ID, "carol")
	require.ErrorIs(t, err, apperror.ErrRoomFull)
	require.False(t, env.manager.InRoom("carol"))

	_, err = env.manager.JoinRoom(ctx, "missing", "carol")
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)

	_, err = env.manager.CreateRoom(ctx, "alice", false)
	require.ErrorIs(t, err, apperror.ErrAlreadyInRoom)
}
