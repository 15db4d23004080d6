package cache

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mira-amm/pointsx/pkg/clickhouse"
	"github.com/mira-amm/pointsx/pkg/redis"
	"github.com/mira-amm/pointsx/pkg/utils"
	"go.uber.org/zap"
)

const (
	BackendFile       = "file"
	BackendRedis      = "redis"
	BackendClickHouse = "clickhouse"
	BackendMemory     = "memory"
)

// DefaultBlobID names the snapshot inside a remote backend.
const DefaultBlobID = "latestPoints"

// IsLocalEnv reports whether env is a local or development deployment.
func IsLocalEnv(env string) bool {
	switch strings.ToLower(env) {
	case "", "development", "local":
		return true
	default:
		return false
	}
}

// Namespace prefixes blobID with the deployment environment so preview and
// production deployments never share a snapshot.
func Namespace(env, blobID string) string {
	if env == "" {
		env = "development"
	}
	return env + "-" + blobID
}

// BackendFromEnv returns CACHE_BACKEND, or file for local deployments and redis otherwise.
func BackendFromEnv() string {
	if b := strings.ToLower(utils.Env("CACHE_BACKEND", "")); b != "" {
		return b
	}
	if IsLocalEnv(utils.Env("DEPLOY_ENV", "")) {
		return BackendFile
	}
	return BackendRedis
}

// NewFromEnv builds the configured store. The returned closer releases the
// backend connection and is never nil.
func NewFromEnv(ctx context.Context, logger *zap.Logger) (Store, io.Closer, error) {
	backend := BackendFromEnv()
	ns := Namespace(utils.Env("DEPLOY_ENV", "development"), utils.Env("CACHE_BLOB_ID", DefaultBlobID))

	logger.Info("Selecting cache backend",
		zap.String("backend", backend),
		zap.String("namespace", ns))

	switch backend {
	case BackendFile:
		return NewFileStore(utils.Env("CACHE_FILE_PATH", DefaultFilePath)), nopCloser{}, nil
	case BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case BackendRedis:
		client, err := redis.NewClient(ctx, logger)
		if err != nil {
			return nil, nil, err
		}
		grace := utils.EnvDuration("CACHE_GRACE_PERIOD", DefaultGracePeriod)
		return NewRedisStore(client.GetClient(), ns, grace, logger), client, nil
	case BackendClickHouse:
		client, err := clickhouse.New(ctx, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewClickHouseStore(ctx, client, ns)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client, nil
	default:
		return nil, nil, fmt.Errorf("unknown CACHE_BACKEND %q", backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
