package activity

import (
	"context"
	"errors"

	"github.com/mira-amm/pointsx/pkg/analytics"
	"github.com/mira-amm/pointsx/pkg/epochs"
	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/mira-amm/pointsx/pkg/points"
	"github.com/mira-amm/pointsx/pkg/temporal/reporter"
	sdkactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

// Error types reported to Temporal.
const (
	ErrTypeConfig  = "epoch_config_error"
	ErrTypeTrigger = "analytics_trigger_error"
	ErrTypeTimeout = "analytics_timeout_error"
	ErrTypeRefresh = "points_refresh_error"
)

// RefreshPoints recomputes the leaderboard and writes it to the cache.
func (c *Context) RefreshPoints(ctx context.Context, in reporter.RefreshPointsInput) (reporter.RefreshPointsResult, error) {
	logger := c.Logger
	if info := sdkactivity.GetInfo(ctx); info.WorkflowExecution.ID != "" {
		logger = logger.With(
			zap.String("workflow_id", info.WorkflowExecution.ID),
			zap.Int32("attempt", info.Attempt))
	}

	var (
		entries []models.Entry
		err     error
	)
	if in.Force {
		entries, err = c.Refresher.UpdateLatestPoints(ctx)
	} else {
		entries, err = c.Refresher.Refresh(ctx, points.TriggerScheduled)
	}
	if err != nil {
		logger.Warn("Scheduled points refresh failed", zap.Bool("force", in.Force), zap.Error(err))
		return reporter.RefreshPointsResult{}, applicationError(err)
	}

	res := reporter.RefreshPointsResult{Wallets: len(entries)}
	if len(entries) > 0 {
		res.Top = entries[0].Address
		res.TopPts = entries[0].Points
	}
	logger.Info("Scheduled points refresh done", zap.Int("wallets", res.Wallets))
	return res, nil
}

func applicationError(err error) error {
	var (
		loadErr    *epochs.LoadError
		triggerErr *analytics.TriggerError
		timeoutErr *analytics.TimeoutError
	)
	switch {
	case errors.As(err, &loadErr):
		// A broken campaigns file does not heal by retrying.
		return temporal.NewNonRetryableApplicationError("unable to load epoch config", ErrTypeConfig, err)
	case errors.As(err, &triggerErr):
		return temporal.NewApplicationErrorWithCause("unable to trigger analytics job", ErrTypeTrigger, err)
	case errors.As(err, &timeoutErr):
		return temporal.NewApplicationErrorWithCause("analytics job did not finish", ErrTypeTimeout, err)
	default:
		return temporal.NewApplicationErrorWithCause("unable to refresh points", ErrTypeRefresh, err)
	}
}
