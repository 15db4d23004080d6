package temporal

import (
	"time"

	"go.temporal.io/sdk/client"
)

const DefaultNamespace = "pointsx"

// Queue names
const (
	QueueRefresh = "points"
)

// Schedule IDs
const (
	ScheduleRefresh = "points:refresh"
)

// GetScheduleSpec returns a schedule spec for the given interval.
func GetScheduleSpec(interval time.Duration) client.ScheduleSpec {
	return client.ScheduleSpec{Intervals: []client.ScheduleIntervalSpec{{Every: interval}}}
}
