package reporter

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mira-amm/pointsx/pkg/analytics"
	"github.com/mira-amm/pointsx/pkg/cache"
	"github.com/mira-amm/pointsx/pkg/epochs"
	"github.com/mira-amm/pointsx/pkg/logging"
	"github.com/mira-amm/pointsx/pkg/points"
	"github.com/mira-amm/pointsx/pkg/reporter/activity"
	"github.com/mira-amm/pointsx/pkg/reporter/workflow"
	"github.com/mira-amm/pointsx/pkg/temporal"
	"github.com/mira-amm/pointsx/pkg/utils"
	"go.temporal.io/sdk/worker"
)

type App struct {
	Worker         worker.Worker
	TemporalClient *temporal.Client
	Service        *points.Service
	StoreCloser    io.Closer
	Logger         *zap.Logger
}

// Start starts the worker and blocks until the context is canceled.
func (a *App) Start(ctx context.Context) {
	err := a.Worker.Start()
	if err != nil {
		a.Logger.Fatal("Unable to start worker", zap.Error(err))
	}
	<-ctx.Done()
	a.Stop()
}

// Stop stops the worker and releases the cache backend.
func (a *App) Stop() {
	a.Worker.Stop()
	a.Service.Close()
	if err := a.StoreCloser.Close(); err != nil {
		a.Logger.Error("Failed to close points cache", zap.Error(err))
	}
	a.TemporalClient.Close()
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New("reporter")
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	analyticsCfg, err := analytics.ConfigFromEnv()
	if err != nil {
		logger.Fatal("Invalid analytics configuration", zap.Error(err))
	}

	store, storeCloser, err := cache.NewFromEnv(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize points cache", zap.Error(err))
	}

	temporalClient, err := temporal.NewClient(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to establish temporal connection", zap.Error(err))
	}

	retention := utils.EnvDuration("TEMPORAL_NAMESPACE_RETENTION", 72*time.Hour)
	if err := temporalClient.EnsureNamespace(ctx, retention); err != nil {
		logger.Fatal("Unable to ensure temporal namespace", zap.Error(err))
	}

	interval := utils.EnvDuration("POINTS_REFRESH_INTERVAL", 10*time.Minute)
	if err := temporalClient.EnsureRefreshSchedule(ctx, interval); err != nil {
		logger.Fatal("Unable to ensure refresh schedule", zap.Error(err))
	}

	svc := points.NewService(
		store,
		analytics.NewClient(analyticsCfg, logger),
		epochs.NewFileProviderFromEnv(),
		logger.Named("points"),
		points.ConfigFromEnv(),
	)

	activityContext := &activity.Context{
		Logger:    logger,
		Refresher: svc,
	}
	workflowContext := &workflow.Context{
		ActivityContext: activityContext,
		TaskQueue:       temporalClient.RefreshQueue,
	}

	wkr := worker.New(
		temporalClient.TClient,
		temporalClient.RefreshQueue,
		worker.Options{MaxConcurrentActivityExecutionSize: 1},
	)
	workflowContext.Register(wkr)

	logger.Info("Reporter worker ready",
		zap.String("queue", temporalClient.RefreshQueue),
		zap.String("schedule", temporalClient.RefreshScheduleID),
		zap.Duration("interval", interval))

	return &App{
		Worker:         wkr,
		TemporalClient: temporalClient,
		Service:        svc,
		StoreCloser:    storeCloser,
		Logger:         logger,
	}
}
