package points

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/mira-amm/pointsx/pkg/cache"
	"github.com/mira-amm/pointsx/pkg/metrics"
	"github.com/mira-amm/pointsx/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// JobRunner computes the points of one epoch.
type JobRunner interface {
	Run(ctx context.Context, epoch models.Epoch) ([]models.Entry, error)
}

// EpochSource provides the epoch definitions to aggregate.
type EpochSource interface {
	GetEpochs(numbers ...int) ([]models.Epoch, error)
	GetEpochsByRewardAsset(assetID string) ([]models.Epoch, error)
}

// Trigger records why a refresh ran.
type Trigger string

const (
	TriggerSync       Trigger = "sync"
	TriggerBackground Trigger = "background"
	TriggerManual     Trigger = "manual"
	TriggerScheduled  Trigger = "scheduled"
)

// Service serves the leaderboard from the cache and refreshes it ahead of expiry.
// At most one refresh runs at a time; concurrent callers share its result.
type Service struct {
	store  cache.Store
	jobs   JobRunner
	epochs EpochSource
	logger *zap.Logger
	cfg    Config
	now    func() time.Time

	group    singleflight.Group
	runs     chan struct{}
	inFlight atomic.Bool
	closed   atomic.Bool
	pool     pond.Pool

	// Refreshes run under this context so they outlive the request that started them.
	baseCtx context.Context
	cancel  context.CancelFunc
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store cache.Store, jobs JobRunner, epochs EpochSource, logger *zap.Logger, cfg Config, opts ...Option) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		store:   store,
		jobs:    jobs,
		epochs:  epochs,
		logger:  logger,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		runs:    make(chan struct{}, 1),
		pool:    pond.NewPool(1, pond.WithQueueSize(1)),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close cancels running refreshes and waits for the background worker to exit.
func (s *Service) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	s.pool.StopAndWait()
}

// GetPoints returns a page of the current leaderboard. Stale data is served as is
// while a background refresh runs. With nothing usable cached, it refreshes first.
func (s *Service) GetPoints(ctx context.Context, q Query) (models.Page, error) {
	if err := q.Validate(); err != nil {
		return models.Page{}, err
	}
	entries, err := s.current(ctx)
	if err != nil {
		return models.Page{}, err
	}
	return Paginate(entries, q), nil
}

// UpdateLatestPoints recomputes every epoch and writes a new snapshot.
func (s *Service) UpdateLatestPoints(ctx context.Context) ([]models.Entry, error) {
	return s.Refresh(ctx, TriggerManual)
}

// Refresh joins the running refresh of the same kind or starts one, and waits
// for its result. Manual refreshes never join a run that may reuse epoch results.
// Cancelling ctx stops the wait, not the refresh.
func (s *Service) Refresh(ctx context.Context, trigger Trigger) ([]models.Entry, error) {
	key := string(models.TotalKey)
	if trigger == TriggerManual {
		key += ":manual"
	}
	ch := s.group.DoChan(key, func() (any, error) {
		return s.run(trigger)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.Entry), nil
	}
}

func (s *Service) current(ctx context.Context) ([]models.Entry, error) {
	backend := s.store.Name()

	snapshot, err := s.store.Read(ctx)
	if err != nil {
		switch {
		case errors.Is(err, cache.ErrCacheMiss):
			metrics.RecordCacheRead(backend, "miss")
			s.logger.Info("No cached points, refreshing", zap.String("backend", backend))
		case errors.Is(err, cache.ErrCacheCorrupt):
			metrics.RecordCacheRead(backend, "corrupt")
			s.logger.Warn("Cached points unreadable, refreshing", zap.String("backend", backend), zap.Error(err))
		default:
			metrics.RecordCacheRead(backend, "error")
			s.logger.Warn("Cache read failed, refreshing", zap.String("backend", backend), zap.Error(err))
		}
		return s.Refresh(ctx, TriggerSync)
	}

	total, ok := snapshot.Total()
	if !ok {
		metrics.RecordCacheRead(backend, "miss")
		s.logger.Info("Cached snapshot has no TOTAL, refreshing", zap.String("backend", backend))
		return s.Refresh(ctx, TriggerSync)
	}

	if total.Stale(s.now()) {
		metrics.RecordCacheRead(backend, "stale")
		s.scheduleRefresh(total.ExpiresAt)
	} else {
		metrics.RecordCacheRead(backend, "hit")
	}
	return total.Points, nil
}

// scheduleRefresh queues a background refresh unless one is already pending or running.
func (s *Service) scheduleRefresh(expiredAt time.Time) {
	if s.closed.Load() {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		metrics.RecordRefreshSkipped()
		return
	}

	s.logger.Debug("Scheduling background refresh", zap.Time("expired_at", expiredAt))
	s.pool.Submit(func() {
		defer s.inFlight.Store(false)
		if _, err := s.Refresh(s.baseCtx, TriggerBackground); err != nil {
			s.logger.Warn("Background refresh failed, serving stale points", zap.Error(err))
		}
	})
}

func (s *Service) run(trigger Trigger) ([]models.Entry, error) {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RefreshTimeout)
	defer cancel()

	// One run writes at a time.
	select {
	case s.runs <- struct{}{}:
		defer func() { <-s.runs }()
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for running refresh: %w", ctx.Err())
	}

	start := time.Now()
	entries, err := s.update(ctx, trigger == TriggerManual)
	duration := time.Since(start)
	metrics.RecordRefresh(string(trigger), err, duration)

	if err != nil {
		s.logger.Error("Points refresh failed",
			zap.String("trigger", string(trigger)),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, err
	}
	s.logger.Info("Points refreshed",
		zap.String("trigger", string(trigger)),
		zap.Int("wallets", len(entries)),
		zap.Duration("duration", duration))
	return entries, nil
}

// update runs the job of every selected epoch, in order, and writes one snapshot.
// Unexpired per-epoch results are reused unless force is set.
func (s *Service) update(ctx context.Context, force bool) ([]models.Entry, error) {
	epochs, err := s.selectEpochs()
	if err != nil {
		return nil, err
	}
	if len(epochs) == 0 {
		s.logger.Warn("No epochs selected, writing an empty leaderboard",
			zap.Ints("epochs", s.cfg.Epochs),
			zap.String("reward_asset", s.cfg.RewardAssetID))
	}

	var previous models.Snapshot
	if !force {
		// Best effort: a failed read only means every epoch is recomputed.
		previous, _ = s.store.Read(ctx)
	}

	snapshot := make(models.Snapshot, len(epochs)+1)
	lists := make([][]models.Entry, 0, len(epochs))
	for _, epoch := range epochs {
		key := models.EpochKey(epoch.Number)
		if prev, ok := previous[key]; ok && !prev.Stale(s.now()) {
			s.logger.Debug("Reusing cached epoch points", zap.Int("epoch", epoch.Number))
			snapshot[key] = prev
			lists = append(lists, prev.Points)
			continue
		}

		entries, err := s.jobs.Run(ctx, epoch)
		if err != nil {
			return nil, fmt.Errorf("refresh epoch %d: %w", epoch.Number, err)
		}
		ranked := ComputeTotal([][]models.Entry{entries})
		snapshot[key] = models.SnapshotEntry{ExpiresAt: s.now().Add(s.cfg.EpochTTL), Points: ranked}
		lists = append(lists, ranked)
	}

	total := ComputeTotal(lists)
	snapshot[models.TotalKey] = models.SnapshotEntry{ExpiresAt: s.now().Add(s.cfg.TotalTTL), Points: total}

	if err := s.store.Write(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("write snapshot to %s: %w", s.store.Name(), err)
	}
	return total, nil
}

func (s *Service) selectEpochs() ([]models.Epoch, error) {
	if len(s.cfg.Epochs) > 0 {
		return s.epochs.GetEpochs(s.cfg.Epochs...)
	}
	return s.epochs.GetEpochsByRewardAsset(s.cfg.RewardAssetID)
}
