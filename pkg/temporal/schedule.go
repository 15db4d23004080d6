package temporal

import (
	"context"
	"errors"
	"time"

	"github.com/mira-amm/pointsx/pkg/temporal/reporter"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// EnsureSchedule creates the schedule unless one with the same ID already exists.
func (c *Client) EnsureSchedule(ctx context.Context, opts client.ScheduleOptions) error {
	h := c.TSClient.GetHandle(ctx, opts.ID)
	_, err := h.Describe(ctx)
	if err == nil {
		c.logger.Info("Schedule already exists",
			zap.String("id", opts.ID),
			zap.String("namespace", c.Namespace))
		return nil
	}

	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		c.logger.Info("Creating schedule",
			zap.String("id", opts.ID),
			zap.String("namespace", c.Namespace))
		_, scheduleErr := c.TSClient.Create(ctx, opts)
		return scheduleErr
	}
	return err
}

// EnsureRefreshSchedule makes sure RefreshPointsWorkflow runs on the refresh queue every interval.
func (c *Client) EnsureRefreshSchedule(ctx context.Context, interval time.Duration) error {
	return c.EnsureSchedule(ctx, RefreshScheduleOptions(c.RefreshScheduleID, c.RefreshQueue, interval))
}

// RefreshScheduleOptions builds the schedule that triggers the periodic points refresh.
// A tick that fires while the previous run is still going is skipped.
func RefreshScheduleOptions(id, queue string, interval time.Duration) client.ScheduleOptions {
	return client.ScheduleOptions{
		ID:      id,
		Spec:    GetScheduleSpec(interval),
		Overlap: enums.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &client.ScheduleWorkflowAction{
			ID:                       id,
			Workflow:                 reporter.RefreshPointsWorkflowName,
			Args:                     []interface{}{reporter.RefreshPointsInput{}},
			TaskQueue:                queue,
			WorkflowExecutionTimeout: 15 * time.Minute,
			WorkflowTaskTimeout:      time.Minute,
		},
	}
}
