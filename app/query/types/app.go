package types

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/mira-amm/pointsx/pkg/points"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PointsService is what the HTTP layer needs from points.Service.
type PointsService interface {
	GetPoints(ctx context.Context, q points.Query) (models.Page, error)
	UpdateLatestPoints(ctx context.Context) ([]models.Entry, error)
}

type App struct {
	Points PointsService
	// Cron warms the cache on POINTS_WARM_CRON. Nil when disabled.
	Cron *cron.Cron
	// HealthCheck pings the cache backend. Nil for backends without a connection.
	HealthCheck func(ctx context.Context) error
	// Closers release the service and the cache backend, in order.
	Closers []io.Closer
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start serves HTTP until ctx is cancelled, then shuts everything down.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	if a.Cron != nil {
		a.Cron.Start()
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	if a.Cron != nil {
		select {
		case <-a.Cron.Stop().Done():
		case <-shutdownCtx.Done():
			a.Logger.Warn("Cache warmer still running at shutdown")
		}
	}
	for _, c := range a.Closers {
		if err := c.Close(); err != nil {
			a.Logger.Error("Failed to close resource", zap.Error(err))
		}
	}
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
