package workflow

import (
	"github.com/mira-amm/pointsx/pkg/temporal/reporter"
	sdkactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"
)

// Registry is implemented by worker.Worker and the SDK test environment.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options sdkactivity.RegisterOptions)
}

// Register binds the reporter workflow and activity under their schedule-facing names.
func (c *Context) Register(r Registry) {
	r.RegisterWorkflowWithOptions(c.RefreshPointsWorkflow, workflow.RegisterOptions{Name: reporter.RefreshPointsWorkflowName})
	r.RegisterActivityWithOptions(c.ActivityContext.RefreshPoints, sdkactivity.RegisterOptions{Name: reporter.RefreshPointsActivityName})
}
