package analytics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func noWait(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.RPS = 1000
	cfg.Burst = 1000
	return NewClient(cfg, zaptest.NewLogger(t), WithPollWait(noWait))
}

func testEpoch() models.Epoch {
	return models.Epoch{
		Number:    4,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Campaigns: []models.Campaign{
			{Pool: models.Pool{ID: "a", LPToken: "0x01"}, Rewards: []models.Reward{{AssetID: "Points", DailyAmount: 1000}}},
			{Pool: models.Pool{ID: "b", LPToken: "0x02"}, Rewards: []models.Reward{{AssetID: "Points", DailyAmount: 2.5}, {AssetID: "FUEL", DailyAmount: 9}}},
		},
	}
}

func TestJobParams(t *testing.T) {
	lp, rates := JobParams(testEpoch())
	assert.Equal(t, []string{"0x01", "0x02"}, lp)
	assert.Equal(t, []float64{1000, 2.5}, rates)

	assert.Equal(t, "['0x01', '0x02']", sqlStringList(lp))
	assert.Equal(t, "[1000, 2.5]", sqlNumberList(rates))
}

func TestTriggerJobSendsJobRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		q := r.URL.Query()
		assert.Equal(t, "0", q.Get("version"))
		assert.Equal(t, "1200", q.Get("cache_policy.ttl_secs"))
		assert.Equal(t, "3600", q.Get("cache_policy.refresh_ttl_secs"))
		assert.Equal(t, "100000", q.Get("size"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "2025-01-01T00:00:00Z", body["epochStart"])
		assert.Equal(t, "2025-01-15T00:00:00Z", body["epochEnd"])
		assert.Equal(t, "['0x01', '0x02']", body["lpTokens"])
		assert.Equal(t, "[1000, 2.5]", body["rewardRates"])

		_, _ = io.WriteString(w, `{"asyncResponse":{"resultUrl":"https://results/job-1"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	lp, rates := JobParams(testEpoch())
	got, err := c.TriggerJob(context.Background(), testEpoch(), lp, rates)
	require.NoError(t, err)
	assert.Equal(t, "https://results/job-1", got)
}

func TestTriggerJobErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantDecode bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, wantStatus: 500},
		{name: "rejected", status: http.StatusUnauthorized, body: `{}`, wantStatus: 401},
		{name: "missing result url", status: http.StatusOK, body: `{"asyncResponse":{}}`, wantStatus: 200},
		{name: "no async response", status: http.StatusOK, body: `{"other":1}`, wantStatus: 200},
		{name: "invalid json", status: http.StatusOK, body: `{"asyncResponse":`, wantStatus: 200, wantDecode: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(t, srv.URL).TriggerJob(context.Background(), testEpoch(), nil, nil)
			var trigErr *TriggerError
			require.ErrorAs(t, err, &trigErr)
			assert.Equal(t, tt.wantStatus, trigErr.StatusCode)
			assert.Equal(t, 4, trigErr.Epoch)
			if tt.wantDecode {
				var decErr *DecodeError
				assert.ErrorAs(t, err, &decErr)
			}
		})
	}
}

// scriptedServer answers successive requests with the given bodies, repeating the last one.
func scriptedServer(t *testing.T, bodies ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		n := int(hits.Add(1)) - 1
		if n >= len(bodies) {
			n = len(bodies) - 1
		}
		_, _ = io.WriteString(w, bodies[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

const (
	running  = `{"sqlQueryResult":{"executionInfo":{"status":"RUNNING"}}}`
	finished = `{"sqlQueryResult":{"executionInfo":{"status":"FINISHED","result":{
		"columns":["address","points","rank"],
		"rows":[{"address":"0xaaa","points":120.5,"rank":1},{"address":"0xbbb","points":"99","rank":2}]}}}}`
)

func TestPollForResultFinishesAfterPending(t *testing.T) {
	srv, hits := scriptedServer(t, running, running, finished)

	got, err := newTestClient(t, srv.URL).PollForResult(context.Background(), srv.URL, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []models.Entry{
		{Address: "0xaaa", Points: 120.5},
		{Address: "0xbbb", Points: 99},
	}, got)
}

func TestPollForResultStatuslessShape(t *testing.T) {
	body := `{"result":{"columns":["rank","address","points"],"rows":[[1,"0xccc",10],[2,"0xddd","5.25"]]}}`
	srv, _ := scriptedServer(t, body)

	got, err := newTestClient(t, srv.URL).PollForResult(context.Background(), srv.URL, 1, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{
		{Address: "0xccc", Points: 10},
		{Address: "0xddd", Points: 5.25},
	}, got)
}

func TestPollForResultFinishedWithoutRows(t *testing.T) {
	srv, _ := scriptedServer(t, `{"sqlQueryResult":{"executionInfo":{"status":"FINISHED","result":{"columns":["address","points"],"rows":[]}}}}`)

	got, err := newTestClient(t, srv.URL).PollForResult(context.Background(), srv.URL, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPollForResultDecodeErrorsCountAsRetries(t *testing.T) {
	srv, hits := scriptedServer(t, `not json`, `{"unexpected":true}`, finished)

	got, err := newTestClient(t, srv.URL).PollForResult(context.Background(), srv.URL, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(3), hits.Load())
}

func TestPollForResultTimeout(t *testing.T) {
	srv, hits := scriptedServer(t, running)

	_, err := newTestClient(t, srv.URL).PollForResult(context.Background(), srv.URL, 4, time.Millisecond)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 4, timeoutErr.Attempts)
	assert.Equal(t, int32(4), hits.Load())

	var pending *PendingError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, "RUNNING", pending.Status)
}

func TestPollForResultTimeoutOnBadRows(t *testing.T) {
	srv, _ := scriptedServer(t, `{"result":{"columns":["address","points"],"rows":[["0xaaa","lots"]]}}`)

	_, err := newTestClient(t, srv.URL).PollForResult(context.Background(), srv.URL, 2, time.Millisecond)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)
}

func TestPollForResultHonoursCancellation(t *testing.T) {
	srv, hits := scriptedServer(t, running)
	ctx, cancel := context.WithCancel(context.Background())

	c := newTestClient(t, srv.URL)
	c.wait = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := c.PollForResult(ctx, srv.URL, 10, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	var timeoutErr *TimeoutError
	assert.NotErrorAs(t, err, &timeoutErr)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRunTriggersThenPolls(t *testing.T) {
	var resultURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"asyncResponse":{"resultUrl":"`+resultURL+`"}}`)
	})
	var polls atomic.Int32
	mux.HandleFunc("/result", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) == 1 {
			_, _ = io.WriteString(w, running)
			return
		}
		_, _ = io.WriteString(w, finished)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	resultURL = srv.URL + "/result"

	got, err := newTestClient(t, srv.URL+"/query").Run(context.Background(), testEpoch())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), polls.Load())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SENTIO_API_URL", "")
	t.Setenv("SENTIO_API_KEY", "")
	_, err := ConfigFromEnv()
	require.Error(t, err)

	t.Setenv("SENTIO_API_URL", "https://sentio/api")
	t.Setenv("SENTIO_API_KEY", "k")
	t.Setenv("ANALYTICS_POLL_RETRIES", "7")
	t.Setenv("ANALYTICS_POLL_INTERVAL", "250ms")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.PollRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 20*time.Minute, cfg.CacheTTL)
	assert.Equal(t, DefaultRowMapping, cfg.Mapping)
}
