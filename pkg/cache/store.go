package cache

import (
	"context"
	"errors"

	"github.com/mira-amm/pointsx/pkg/models"
)

var (
	// ErrCacheMiss means no snapshot has been written yet.
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheCorrupt means the stored payload does not decode into a snapshot.
	ErrCacheCorrupt = errors.New("cache corrupt")
)

// Store persists the leaderboard snapshot. Write replaces the previous snapshot
// without passing through an empty state.
type Store interface {
	Read(ctx context.Context) (models.Snapshot, error)
	Write(ctx context.Context, snapshot models.Snapshot) error
	Name() string
}
