package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

const (
	ratingsKey   = "ratings"
	maxTxRetries = 5
)

// SeriesRepository is the persistence service for series results and ratings.
// Every result carries a match id; a match id already applied is answered with apperror.ErrDuplicateResult.
type SeriesRepository interface {
	CreateSeries(ctx context.Context, participantA, participantB string) (*entity.Series, error)
	EndGame(ctx context.Context, seriesID, matchID, winnerID string, duration time.Duration) (*entity.SeriesResult, error)
	Forfeit(ctx context.Context, seriesID, matchID, participantID string) (*entity.SeriesResult, error)
	Abandon(ctx context.Context, seriesID, matchID string) (*entity.SeriesResult, error)
	GetSeries(ctx context.Context, seriesID string) (*entity.Series, error)
	GetRating(ctx context.Context, participantID string) (int, error)
}

type dbSeries struct {
	client      *redis.Client
	ratingDelta int
	now         func() time.Time
}

func NewSeriesRepository(client *redis.Client, ratingDelta int) SeriesRepository {
	return &dbSeries{
		client:      client,
		ratingDelta: ratingDelta,
		now:         time.Now,
	}
}

func seriesKey(id string) string {
	return "series:" + id
}

func seriesMatchesKey(id string) string {
	return "series:" + id + ":matches"
}

// CreateSeries - starts a best-of-three with participantA on the first side.
func (that *dbSeries) CreateSeries(ctx context.Context, participantA, participantB string) (*entity.Series, error) {
	series := entity.NewSeries(uuid.NewString(), participantA, participantB, entity.MarkFirst, that.now())

	seriesJSON, err := json.Marshal(series)
	if err != nil {
		return nil, fmt.Errorf("could not marshal series: %w", err)
	}

	if err = that.client.Set(ctx, seriesKey(series.ID), seriesJSON, 0).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to set series: %w", apperror.ErrPersistenceUnavailable, err)
	}

	return series, nil
}

func (that *dbSeries) EndGame(ctx context.Context, seriesID, matchID, winnerID string, _ time.Duration) (*entity.SeriesResult, error) {
	return that.update(ctx, seriesID, matchID, func(series *entity.Series) (bool, error) {
		return series.RecordGameResult(series.CurrentGameNumber, winnerID, that.now())
	})
}

func (that *dbSeries) Forfeit(ctx context.Context, seriesID, matchID, participantID string) (*entity.SeriesResult, error) {
	return that.update(ctx, seriesID, matchID, func(series *entity.Series) (bool, error) {
		return false, series.Forfeit(participantID, that.now())
	})
}

func (that *dbSeries) Abandon(ctx context.Context, seriesID, matchID string) (*entity.SeriesResult, error) {
	return that.update(ctx, seriesID, matchID, func(series *entity.Series) (bool, error) {
		return false, series.Abandon(that.now())
	})
}

func (that *dbSeries) GetSeries(ctx context.Context, seriesID string) (*entity.Series, error) {
	response, err := that.client.Get(ctx, seriesKey(seriesID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", apperror.ErrSeriesNotFound, seriesID)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to get series: %w", apperror.ErrPersistenceUnavailable, err)
	}

	var series entity.Series
	if err = json.Unmarshal(response, &series); err != nil {
		return nil, fmt.Errorf("failed to unmarshal series: %w", err)
	}

	return &series, nil
}

func (that *dbSeries) GetRating(ctx context.Context, participantID string) (int, error) {
	rating, err := that.client.HGet(ctx, ratingsKey, participantID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("%w: failed to get rating: %w", apperror.ErrPersistenceUnavailable, err)
	}

	return rating, nil
}

// update - applies a result inside an optimistic transaction over the series and its applied match ids.
func (that *dbSeries) update(
	ctx context.Context,
	seriesID, matchID string,
	apply func(series *entity.Series) (bool, error),
) (*entity.SeriesResult, error) {
	key := seriesKey(seriesID)
	matchesKey := seriesMatchesKey(seriesID)

	var result *entity.SeriesResult

	txf := func(tx *redis.Tx) error {
		applied, err := tx.SIsMember(ctx, matchesKey, matchID).Result()
		if err != nil {
			return err
		}

		if applied {
			return fmt.Errorf("%w: match %s", apperror.ErrDuplicateResult, matchID)
		}

		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", apperror.ErrSeriesNotFound, seriesID)
		}

		if err != nil {
			return err
		}

		var series entity.Series
		if err = json.Unmarshal(response, &series); err != nil {
			return fmt.Errorf("failed to unmarshal series: %w", err)
		}

		wasComplete := series.IsComplete()

		nextGameReady, err := apply(&series)
		if err != nil {
			return err
		}

		changes := that.ratingChanges(&series, wasComplete)

		seriesJSON, err := json.Marshal(&series)
		if err != nil {
			return fmt.Errorf("could not marshal series: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, seriesJSON, 0)
			pipe.SAdd(ctx, matchesKey, matchID)

			for participantID, delta := range changes {
				pipe.HIncrBy(ctx, ratingsKey, participantID, int64(delta))
			}

			return nil
		})
		if err != nil {
			return err
		}

		result = &entity.SeriesResult{
			Series:        &series,
			NextGameReady: nextGameReady,
			RatingChanges: changes,
		}

		return nil
	}

	for range maxTxRetries {
		err := that.client.Watch(ctx, txf, key, matchesKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, classify(err)
		}

		return result, nil
	}

	return nil, fmt.Errorf("%w: series %s kept changing", apperror.ErrPersistenceUnavailable, seriesID)
}

// ratingChanges - a fixed delta for the winner and loser of a series that has just completed.
func (that *dbSeries) ratingChanges(series *entity.Series, wasComplete bool) map[string]int {
	if wasComplete || !series.IsComplete() {
		return nil
	}

	winner := series.Winner()
	if winner == "" {
		return nil
	}

	return map[string]int{
		winner:                  that.ratingDelta,
		series.Opponent(winner): -that.ratingDelta,
	}
}

var domainErrors = []error{
	apperror.ErrDuplicateResult,
	apperror.ErrSeriesNotFound,
	apperror.ErrSeriesComplete,
	apperror.ErrNotParticipant,
	apperror.ErrInvalidPhase,
}

// classify - keeps domain errors as they are, anything else means the store is unavailable.
func classify(err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}

	return fmt.Errorf("%w: %w", apperror.ErrPersistenceUnavailable, err)
}
