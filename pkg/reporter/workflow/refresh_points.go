package workflow

import (
	"time"

	"github.com/mira-amm/pointsx/pkg/temporal/reporter"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RefreshPointsWorkflow runs the RefreshPoints activity with retries.
func (c *Context) RefreshPointsWorkflow(ctx workflow.Context, in reporter.RefreshPointsInput) (reporter.RefreshPointsResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 12 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
		TaskQueue: c.TaskQueue,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var res reporter.RefreshPointsResult
	err := workflow.ExecuteActivity(ctx, reporter.RefreshPointsActivityName, in).Get(ctx, &res)
	if err != nil {
		workflow.GetLogger(ctx).Error("Points refresh workflow failed", "error", err)
		return reporter.RefreshPointsResult{}, err
	}
	workflow.GetLogger(ctx).Info("Points refresh workflow done", "wallets", res.Wallets)
	return res, nil
}
