package workflow

import (
	"github.com/mira-amm/pointsx/pkg/reporter/activity"
)

type Context struct {
	ActivityContext *activity.Context
	// TaskQueue is the queue activities are dispatched to. Empty means the workflow's own queue.
	TaskQueue string
}
