package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mira-amm/pointsx/pkg/metrics"
	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/mira-amm/pointsx/pkg/retry"
	"github.com/mira-amm/pointsx/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the analytics endpoint and the job/poll budget.
type Config struct {
	BaseURL string
	APIKey  string

	// CacheTTL and RefreshTTL are forwarded to the backend's result cache.
	CacheTTL   time.Duration
	RefreshTTL time.Duration
	// Size is the row budget hint sent with each job.
	Size int

	PollRetries  int
	PollInterval time.Duration

	Timeout time.Duration
	RPS     float64
	Burst   int

	Mapping RowMapping
}

// DefaultConfig returns the job settings without endpoint credentials.
func DefaultConfig() Config {
	return Config{
		CacheTTL:     20 * time.Minute,
		RefreshTTL:   time.Hour,
		Size:         100000,
		PollRetries:  20,
		PollInterval: 5 * time.Second,
		Timeout:      30 * time.Second,
		RPS:          5,
		Burst:        5,
		Mapping:      DefaultRowMapping,
	}
}

// ConfigFromEnv reads SENTIO_API_URL, SENTIO_API_KEY and the ANALYTICS_* overrides.
func ConfigFromEnv() (Config, error) {
	def := DefaultConfig()
	cfg := Config{
		BaseURL:      utils.Env("SENTIO_API_URL", ""),
		APIKey:       utils.Env("SENTIO_API_KEY", ""),
		CacheTTL:     utils.EnvDuration("ANALYTICS_CACHE_TTL", def.CacheTTL),
		RefreshTTL:   utils.EnvDuration("ANALYTICS_REFRESH_TTL", def.RefreshTTL),
		Size:         utils.EnvInt("ANALYTICS_SIZE", def.Size),
		PollRetries:  utils.EnvInt("ANALYTICS_POLL_RETRIES", def.PollRetries),
		PollInterval: utils.EnvDuration("ANALYTICS_POLL_INTERVAL", def.PollInterval),
		Timeout:      utils.EnvDuration("ANALYTICS_TIMEOUT", def.Timeout),
		RPS:          utils.EnvFloat("ANALYTICS_RPS", def.RPS),
		Burst:        utils.EnvInt("ANALYTICS_BURST", def.Burst),
		Mapping: RowMapping{
			AddressColumn: utils.Env("ANALYTICS_ADDRESS_COLUMN", def.Mapping.AddressColumn),
			PointsColumn:  utils.Env("ANALYTICS_POINTS_COLUMN", def.Mapping.PointsColumn),
		},
	}
	if cfg.BaseURL == "" {
		return cfg, errors.New("SENTIO_API_URL is required")
	}
	if cfg.APIKey == "" {
		return cfg, errors.New("SENTIO_API_KEY is required")
	}
	return cfg, nil
}

// Client triggers points query jobs and polls them to completion.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	wait    func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPollWait replaces the sleep between poll attempts.
func WithPollWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.wait = wait }
}

func NewClient(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = def.RPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.PollRetries <= 0 {
		cfg.PollRetries = def.PollRetries
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Mapping.AddressColumn == "" || cfg.Mapping.PointsColumn == "" {
		cfg.Mapping = def.Mapping
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		logger:  logger,
		wait:    retry.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// JobParams derives the query parameters of an epoch: each campaign's LP token and
// the daily amount of its first reward.
func JobParams(epoch models.Epoch) ([]string, []float64) {
	lpTokens := make([]string, 0, len(epoch.Campaigns))
	rates := make([]float64, 0, len(epoch.Campaigns))
	for _, c := range epoch.Campaigns {
		if len(c.Rewards) == 0 {
			continue
		}
		lpTokens = append(lpTokens, c.Pool.LPToken)
		rates = append(rates, c.Rewards[0].DailyAmount)
	}
	return lpTokens, rates
}

// Run triggers the job for epoch and waits for its rows using the configured poll budget.
func (c *Client) Run(ctx context.Context, epoch models.Epoch) ([]models.Entry, error) {
	lpTokens, rates := JobParams(epoch)
	resultURL, err := c.TriggerJob(ctx, epoch, lpTokens, rates)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Analytics job triggered",
		zap.Int("epoch", epoch.Number),
		zap.String("result_url", resultURL))

	entries, err := c.PollForResult(ctx, resultURL, c.cfg.PollRetries, c.cfg.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("epoch %d: %w", epoch.Number, err)
	}
	c.logger.Info("Analytics job finished",
		zap.Int("epoch", epoch.Number),
		zap.Int("rows", len(entries)))
	return entries, nil
}

// TriggerJob submits the points query for one epoch and returns the URL of its result.
func (c *Client) TriggerJob(ctx context.Context, epoch models.Epoch, lpTokens []string, rewardRates []float64) (string, error) {
	q := url.Values{}
	q.Set("version", "0")
	q.Set("cache_policy.ttl_secs", strconv.Itoa(int(c.cfg.CacheTTL.Seconds())))
	q.Set("cache_policy.refresh_ttl_secs", strconv.Itoa(int(c.cfg.RefreshTTL.Seconds())))
	q.Set("size", strconv.Itoa(c.cfg.Size))

	body := jobRequest{
		EpochStart:  epoch.StartDate.UTC().Format(time.RFC3339),
		EpochEnd:    epoch.EndDate.UTC().Format(time.RFC3339),
		LPTokens:    sqlStringList(lpTokens),
		RewardRates: sqlNumberList(rewardRates),
	}

	var resp triggerResponse
	status, err := c.doJSON(ctx, http.MethodPost, c.cfg.BaseURL+"?"+q.Encode(), body, &resp)
	if err != nil {
		metrics.RecordAnalyticsRequest("trigger", "error")
		return "", &TriggerError{Epoch: epoch.Number, StatusCode: status, Err: err}
	}
	if resp.AsyncResponse == nil || resp.AsyncResponse.ResultURL == "" {
		metrics.RecordAnalyticsRequest("trigger", "error")
		return "", &TriggerError{Epoch: epoch.Number, StatusCode: status, Err: errors.New("response carries no resultUrl")}
	}
	metrics.RecordAnalyticsRequest("trigger", "ok")
	return resp.AsyncResponse.ResultURL, nil
}

// PollForResult fetches resultURL every interval until the job finishes. Pending
// statuses and undecodable responses each use one of maxRetries attempts.
func (c *Client) PollForResult(ctx context.Context, resultURL string, maxRetries int, interval time.Duration) ([]models.Entry, error) {
	var entries []models.Entry
	cfg := retry.PollConfig{MaxAttempts: maxRetries, Interval: interval, Wait: c.wait}

	err := retry.Poll(ctx, cfg, c.logger, "analytics poll", func(ctx context.Context, attempt int) (bool, error) {
		got, err := c.fetchResult(ctx, resultURL)
		if err != nil {
			var pending *PendingError
			if errors.As(err, &pending) {
				metrics.RecordAnalyticsRequest("poll", "pending")
			} else {
				metrics.RecordAnalyticsRequest("poll", "error")
			}
			return false, err
		}
		metrics.RecordAnalyticsRequest("poll", "ok")
		entries = got
		return true, nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, &TimeoutError{ResultURL: resultURL, Attempts: exhausted.Attempts, LastErr: exhausted.LastErr}
		}
		return nil, err
	}
	return entries, nil
}

func (c *Client) fetchResult(ctx context.Context, resultURL string) ([]models.Entry, error) {
	var resp pollResponse
	if _, err := c.doJSON(ctx, http.MethodGet, resultURL, nil, &resp); err != nil {
		return nil, err
	}
	status, rs, err := resp.outcome()
	if err != nil {
		return nil, err
	}
	if status != StatusFinished {
		return nil, &PendingError{Status: status}
	}
	return mapRows(rs, c.cfg.Mapping)
}

// doJSON sends payload (if any) and decodes a 2xx body into out. The returned status is
// zero when no response was received. Decode failures are *DecodeError.
func (c *Client) doJSON(ctx context.Context, method, target string, payload any, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = utils.DrainAndClose(resp.Body) }()

	if !utils.IsSuccess(resp.StatusCode) {
		return resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, &DecodeError{Reason: "invalid json", Err: err}
	}
	return resp.StatusCode, nil
}

// sqlStringList renders ['a', 'b'].
func sqlStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// sqlNumberList renders [1, 2.5].
func sqlNumberList(items []float64) string {
	parts := make([]string, len(items))
	for i, f := range items {
		parts[i] = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
