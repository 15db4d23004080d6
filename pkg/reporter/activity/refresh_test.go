package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/mira-amm/pointsx/pkg/analytics"
	"github.com/mira-amm/pointsx/pkg/epochs"
	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/mira-amm/pointsx/pkg/points"
	"github.com/mira-amm/pointsx/pkg/temporal/reporter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap/zaptest"
)

type fakeRefresher struct {
	entries  []models.Entry
	err      error
	triggers []points.Trigger
	forced   int
}

func (f *fakeRefresher) Refresh(_ context.Context, trigger points.Trigger) ([]models.Entry, error) {
	f.triggers = append(f.triggers, trigger)
	return f.entries, f.err
}

func (f *fakeRefresher) UpdateLatestPoints(context.Context) ([]models.Entry, error) {
	f.forced++
	return f.entries, f.err
}

func newEnv(t *testing.T, ctx *Context) *testsuite.TestActivityEnvironment {
	suite := testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()
	env.RegisterActivity(ctx.RefreshPoints)
	return env
}

func TestRefreshPointsUsesScheduledTrigger(t *testing.T) {
	refresher := &fakeRefresher{entries: []models.Entry{
		{Address: "addr3", Points: 220, Rank: 1},
		{Address: "addr1", Points: 120, Rank: 2},
	}}
	ctx := &Context{Logger: zaptest.NewLogger(t), Refresher: refresher}
	env := newEnv(t, ctx)

	val, err := env.ExecuteActivity(ctx.RefreshPoints, reporter.RefreshPointsInput{})
	require.NoError(t, err)

	var res reporter.RefreshPointsResult
	require.NoError(t, val.Get(&res))
	assert.Equal(t, reporter.RefreshPointsResult{Wallets: 2, Top: "addr3", TopPts: 220}, res)
	assert.Equal(t, []points.Trigger{points.TriggerScheduled}, refresher.triggers)
	assert.Zero(t, refresher.forced)
}

func TestRefreshPointsForce(t *testing.T) {
	refresher := &fakeRefresher{}
	ctx := &Context{Logger: zaptest.NewLogger(t), Refresher: refresher}
	env := newEnv(t, ctx)

	val, err := env.ExecuteActivity(ctx.RefreshPoints, reporter.RefreshPointsInput{Force: true})
	require.NoError(t, err)

	var res reporter.RefreshPointsResult
	require.NoError(t, val.Get(&res))
	assert.Zero(t, res.Wallets)
	assert.Equal(t, 1, refresher.forced)
	assert.Empty(t, refresher.triggers)
}

func TestRefreshPointsErrorTypes(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantType     string
		nonRetryable bool
	}{
		{
			name:         "config",
			err:          &epochs.LoadError{Path: "config/campaigns.json", Err: errors.New("no epochs")},
			wantType:     ErrTypeConfig,
			nonRetryable: true,
		},
		{
			name:     "trigger",
			err:      &analytics.TriggerError{Epoch: 1, StatusCode: 502, Err: errors.New("bad gateway")},
			wantType: ErrTypeTrigger,
		},
		{
			name:     "timeout",
			err:      &analytics.TimeoutError{ResultURL: "http://sentio/result", Attempts: 20},
			wantType: ErrTypeTimeout,
		},
		{
			name:     "other",
			err:      errors.New("write snapshot to redis: connection refused"),
			wantType: ErrTypeRefresh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &Context{Logger: zaptest.NewLogger(t), Refresher: &fakeRefresher{err: tt.err}}
			env := newEnv(t, ctx)

			_, err := env.ExecuteActivity(ctx.RefreshPoints, reporter.RefreshPointsInput{})
			require.Error(t, err)

			var appErr *temporal.ApplicationError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.Equal(t, tt.nonRetryable, appErr.NonRetryable())
		})
	}
}
