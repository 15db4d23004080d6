package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/mira-amm/pointsx/pkg/clickhouse"
	"github.com/mira-amm/pointsx/pkg/models"
)

// SnapshotTableName holds one row per written snapshot version.
const SnapshotTableName = "points_cache_snapshots"

type snapshotConn interface {
	Exec(ctx context.Context, query string, args ...any) error
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
}

// ClickHouseStore appends each snapshot as a new version row. ReplacingMergeTree
// collapses older versions; reads use FINAL and take the highest version.
type ClickHouseStore struct {
	conn      snapshotConn
	table     string
	namespace string
	now       func() time.Time
}

// NewClickHouseStore creates the snapshot table if needed.
func NewClickHouseStore(ctx context.Context, client *clickhouse.Client, namespace string) (*ClickHouseStore, error) {
	table := client.Table(SnapshotTableName)
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s %s (
		namespace String,
		version UInt64,
		payload String CODEC(ZSTD(3)),
		updated_at DateTime64(3, 'UTC')
	) ENGINE = %s ORDER BY namespace`,
		table, client.OnCluster(), client.Engine(clickhouse.ReplacingMergeTree, "version"))

	if err := client.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return newClickHouseStore(client, table, namespace), nil
}

func newClickHouseStore(conn snapshotConn, table, namespace string) *ClickHouseStore {
	return &ClickHouseStore{conn: conn, table: table, namespace: namespace, now: time.Now}
}

func (s *ClickHouseStore) Name() string { return "clickhouse" }

func (s *ClickHouseStore) Read(ctx context.Context) (models.Snapshot, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s FINAL WHERE namespace = ? ORDER BY version DESC LIMIT 1`, s.table)

	var payload string
	if err := s.conn.QueryRow(ctx, query, s.namespace).Scan(&payload); err != nil {
		if clickhouse.IsNoRows(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return Decode([]byte(payload))
}

func (s *ClickHouseStore) Write(ctx context.Context, snapshot models.Snapshot) error {
	payload, err := Encode(snapshot)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	query := fmt.Sprintf(`INSERT INTO %s (namespace, version, payload, updated_at) VALUES (?, ?, ?, ?)`, s.table)
	if err := s.conn.Exec(ctx, query, s.namespace, uint64(now.UnixNano()), string(payload), now); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
