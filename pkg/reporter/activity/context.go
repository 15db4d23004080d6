package activity

import (
	"context"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/mira-amm/pointsx/pkg/points"
	"go.uber.org/zap"
)

// Refresher is the part of points.Service the reporter drives.
type Refresher interface {
	Refresh(ctx context.Context, trigger points.Trigger) ([]models.Entry, error)
	UpdateLatestPoints(ctx context.Context) ([]models.Entry, error)
}

type Context struct {
	Logger    *zap.Logger
	Refresher Refresher
}
