package query

import (
	"context"
	"io"

	"github.com/mira-amm/pointsx/app/query/types"
	"github.com/mira-amm/pointsx/pkg/analytics"
	"github.com/mira-amm/pointsx/pkg/cache"
	"github.com/mira-amm/pointsx/pkg/epochs"
	"github.com/mira-amm/pointsx/pkg/logging"
	"github.com/mira-amm/pointsx/pkg/points"
	"github.com/mira-amm/pointsx/pkg/utils"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New("query")
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

	svc := points.NewService(
		store,
		analytics.NewClient(analyticsCfg, logger),
		epochs.NewFileProviderFromEnv(),
		logger.Named("points"),
		points.ConfigFromEnv(),
	)

	app := &types.App{
		Points:  svc,
		Closers: []io.Closer{closerFunc(svc.Close), storeCloser},
		Logger:  logger,
	}

	if hc, ok := storeCloser.(interface{ Health(context.Context) error }); ok {
		app.HealthCheck = hc.Health
	}

	if spec := utils.Env("POINTS_WARM_CRON", ""); spec != "" {
		app.Cron, err = newWarmer(spec, svc, logger)
		if err != nil {
			logger.Fatal("Invalid POINTS_WARM_CRON", zap.String("spec", spec), zap.Error(err))
		}
	}

	return app
}

// newWarmer reads the leaderboard on spec so a cold or stale cache is refreshed
// before a client asks for it. Specs take a leading seconds field.
func newWarmer(spec string, svc types.PointsService, logger *zap.Logger) (*cron.Cron, error) {
	cronLogger := logging.NewCronLogger(logger)
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	limit := 0
	_, err := c.AddFunc(spec, func() {
		if _, err := svc.GetPoints(context.Background(), points.Query{Limit: &limit}); err != nil {
			logger.Warn("Cache warm-up failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Cache warmer enabled", zap.String("spec", spec))
	return c, nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
