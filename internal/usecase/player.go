package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
	"github.com/rocketscienceinc/gomoku-backend/internal/repository"
)

type playerRepo interface {
	CreateOrUpdate(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
}

type ratingSource interface {
	GetRating(ctx context.Context, participantID string) (int, error)
}

type PlayerUseCase struct {
	repo    playerRepo
	ratings ratingSource
	now     func() time.Time
}

func NewPlayerUseCase(repo playerRepo, ratings ratingSource) *PlayerUseCase {
	return &PlayerUseCase{
		repo:    repo,
		ratings: ratings,
		now:     time.Now,
	}
}

// GetOrCreatePlayer - registers a new identity when playerID is empty or unknown, refreshes it otherwise.
func (that *PlayerUseCase) GetOrCreatePlayer(ctx context.Context, playerID string) (*entity.Player, error) {
	now := that.now()

	if playerID == "" {
		playerID = uuid.NewString()
	}

	player, err := that.repo.GetByID(ctx, playerID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		player = &entity.Player{ID: playerID, CreatedAt: now}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	rating, err := that.ratings.GetRating(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	player.Rating = rating
	player.LastSeenAt = now

	if err = that.repo.CreateOrUpdate(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}

	return player, nil
}
