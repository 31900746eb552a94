package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/testing/suite"
)

func TestPlayerRepository_CreateOrUpdate(t *testing.T) {
	ctx, st := suite.New(t)

	playerRepo := NewPlayerRepository(st.Storage)

	// Given: a player with a rating
	player := &entity.Player{
		ID:        "123",
		Rating:    50,
		CreatedAt: time.Unix(100, 0).UTC(),
	}

	// When: CreateOrUpdate is called
	err := playerRepo.CreateOrUpdate(ctx, player)

	// Then: no error should be returned, and the player is stored
	require.NoError(t, err)

	stored, err := playerRepo.GetByID(ctx, player.ID)
	require.NoError(t, err)
	require.Equal(t, player.Rating, stored.Rating)
	require.True(t, player.CreatedAt.Equal(stored.CreatedAt))
}

func TestPlayerRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		playerRepo := NewPlayerRepository(st.Storage)

		// When: GetByID is called with a missing id
		_, err := playerRepo.GetByID(ctx, "9999999")

		// Then: ErrPlayerNotFound is returned
		require.ErrorIs(t, err, ErrPlayerNotFound)
	})
}
