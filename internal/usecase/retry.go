package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rocketscienceinc/gomoku-backend/internal/apperror"
	"github.com/rocketscienceinc/gomoku-backend/internal/entity"
)

type seriesCall func(ctx context.Context) (*entity.SeriesResult, error)

// retrySeriesCall - runs call with exponential backoff, attempts in total.
// Only ErrPersistenceUnavailable is retried; an already applied match id counts as success.
func retrySeriesCall(
	ctx context.Context,
	logger *slog.Logger,
	attempts uint64,
	interval time.Duration,
	seriesID string,
	getSeries func(ctx context.Context, seriesID string) (*entity.Series, error),
	call seriesCall,
) (*entity.SeriesResult, error) {
	if attempts == 0 {
		attempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = interval
	policy.MaxElapsedTime = 0

	var result *entity.SeriesResult

	operation := func() error {
		res, err := call(ctx)
		if errors.Is(err, apperror.ErrDuplicateResult) {
			series, getErr := getSeries(ctx, seriesID)
			if getErr != nil {
				return getErr
			}

			result = &entity.SeriesResult{Series: series, NextGameReady: !series.IsComplete()}

			return nil
		}

		if err != nil && !errors.Is(err, apperror.ErrPersistenceUnavailable) {
			return backoff.Permanent(err)
		}

		result = res

		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("persistence call failed, retrying", "series_id", seriesID, "wait", wait, "error", err)
	}

	policyWithLimit := backoff.WithContext(backoff.WithMaxRetries(policy, attempts-1), ctx)
	if err := backoff.RetryNotify(operation, policyWithLimit, notify); err != nil {
		return nil, fmt.Errorf("failed to record series result: %w", err)
	}

	return result, nil
}
