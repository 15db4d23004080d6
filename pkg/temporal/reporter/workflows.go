package reporter

// Reporter workflow and activity names. Schedules refer to workflows by name so
// the query app never imports the worker code.
const (
	RefreshPointsWorkflowName = "RefreshPointsWorkflow"
	RefreshPointsActivityName = "RefreshPoints"
)

// RefreshPointsInput is the argument of RefreshPointsWorkflow.
type RefreshPointsInput struct {
	// Force skips reuse of unexpired per-epoch results.
	Force bool `json:"force"`
}

// RefreshPointsResult summarises a finished refresh.
type RefreshPointsResult struct {
	Wallets int     `json:"wallets"`
	Top     string  `json:"top,omitempty"`
	TopPts  float64 `json:"topPoints,omitempty"`
}
