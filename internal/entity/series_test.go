package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
)

func newTestSeries() *Series {
	return NewSeries("s1", "alice", "bob", MarkFirst, time.Unix(0, 0))
}

func TestSeries_RecordGameResult(t *testing.T) {
	t.Run("Sides alternate and the series ends at two wins", func(t *testing.T) {
		// Given: a new series with alice on black
		series := newTestSeries()
		require.Equal(t, MarkFirst, series.SideOf("alice"))

		// When: alice wins game one
		next, err := series.RecordGameResult(1, "alice", time.Now())

		// Then: the next game is ready with swapped sides
		require.NoError(t, err)
		require.True(t, next)
		require.Equal(t, 2, series.CurrentGameNumber)
		require.Equal(t, MarkSecond, series.SideOf("alice"))
		require.Equal(t, "bob", series.ParticipantWithSide(MarkFirst))

		// When: alice wins game two
		next, err = series.RecordGameResult(2, "alice", time.Now())

		// Then: the series is complete
		require.NoError(t, err)
		require.False(t, next)
		require.True(t, series.IsComplete())
		require.Equal(t, "alice", series.Winner())
		require.Equal(t, 2, series.GamesPlayed)
	})

	t.Run("Three games at most", func(t *testing.T) {
		series := newTestSeries()

		_, err := series.RecordGameResult(1, "alice", time.Now())
		require.NoError(t, err)
		_, err = series.RecordGameResult(2, "", time.Now())
		require.NoError(t, err)
		next, err := series.RecordGameResult(3, "bob", time.Now())
		require.NoError(t, err)

		require.False(t, next)
		require.True(t, series.IsComplete())
		require.Empty(t, series.Winner())
		require.Equal(t, 3, series.GamesPlayed)
	})

	t.Run("Duplicate result", func(t *testing.T) {
		series := newTestSeries()
		_, err := series.RecordGameResult(1, "bob", time.Now())
		require.NoError(t, err)

		_, err = series.RecordGameResult(1, "bob", time.Now())

		require.ErrorIs(t, err, apperror.ErrDuplicateResult)
		require.Equal(t, 1, series.WinsB)
	})

	t.Run("Unknown winner", func(t *testing.T) {
		series := newTestSeries()

		_, err := series.RecordGameResult(1, "mallory", time.Now())

		require.ErrorIs(t, err, apperror.ErrNotParticipant)
		require.Equal(t, 0, series.GamesPlayed)
	})

	t.Run("Result after completion", func(t *testing.T) {
		series := newTestSeries()
		require.NoError(t, series.Forfeit("bob", time.Now()))

		_, err := series.RecordGameResult(series.GamesPlayed+1, "bob", time.Now())

		require.ErrorIs(t, err, apperror.ErrSeriesComplete)
	})
}

func TestSeries_Forfeit(t *testing.T) {
	// Given: bob leads one to nothing
	series := newTestSeries()
	_, err := series.RecordGameResult(1, "bob", time.Now())
	require.NoError(t, err)

	// When: bob forfeits
	require.NoError(t, series.Forfeit("bob", time.Now()))

	// Then: alice takes the remaining games and the series
	require.True(t, series.IsComplete())
	require.Equal(t, "alice", series.Winner())
	require.Equal(t, 2, series.WinsA)
	require.Equal(t, 3, series.GamesPlayed)

	require.ErrorIs(t, series.Forfeit("alice", time.Now()), apperror.ErrSeriesComplete)
}

func TestSeries_Abandon(t *testing.T) {
	series := newTestSeries()

	require.NoError(t, series.Abandon(time.Now()))

	require.True(t, series.IsComplete())
	require.Empty(t, series.Winner())
	require.Equal(t, 1, series.GamesPlayed)
	require.ErrorIs(t, series.Abandon(time.Now()), apperror.ErrSeriesComplete)
}
