package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mira-amm/pointsx/pkg/models"
)

type wireEntry struct {
	ExpiresAt string          `json:"expiresAt"`
	Points    json.RawMessage `json:"points"`
}

// Encode renders the multi-key form {"<key>": {"expiresAt": ..., "points": [...]}}.
func Encode(snapshot models.Snapshot) ([]byte, error) {
	out := make(map[models.Key]models.SnapshotEntry, len(snapshot))
	for k, e := range snapshot {
		if !k.Valid() {
			return nil, fmt.Errorf("encode snapshot: invalid key %q", k)
		}
		if e.ExpiresAt.IsZero() {
			return nil, fmt.Errorf("encode snapshot: key %s has no expiry", k)
		}
		if e.Points == nil {
			e.Points = []models.Entry{}
		}
		e.ExpiresAt = e.ExpiresAt.UTC()
		out[k] = e
	}
	return json.Marshal(out)
}

// Decode parses either the multi-key form or a bare {expiresAt, points} object,
// which is read as the TOTAL entry. Every failure wraps ErrCacheCorrupt.
func Decode(raw []byte) (models.Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null payload", ErrCacheCorrupt)
	}

	_, hasExpiry := fields["expiresAt"]
	_, hasPoints := fields["points"]
	if hasExpiry || hasPoints {
		entry, err := decodeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
		}
		return models.Snapshot{models.TotalKey: entry}, nil
	}

	snapshot := make(models.Snapshot, len(fields))
	for k, v := range fields {
		key := models.Key(k)
		if !key.Valid() {
			return nil, fmt.Errorf("%w: unexpected key %q", ErrCacheCorrupt, k)
		}
		entry, err := decodeEntry(v)
		if err != nil {
			return nil, fmt.Errorf("%w: key %s: %v", ErrCacheCorrupt, k, err)
		}
		snapshot[key] = entry
	}
	return snapshot, nil
}

func decodeEntry(raw []byte) (models.SnapshotEntry, error) {
	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.SnapshotEntry{}, err
	}
	if w.ExpiresAt == "" {
		return models.SnapshotEntry{}, fmt.Errorf("missing expiresAt")
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, w.ExpiresAt)
	if err != nil {
		return models.SnapshotEntry{}, fmt.Errorf("expiresAt: %w", err)
	}
	if expiresAt.IsZero() {
		return models.SnapshotEntry{}, fmt.Errorf("zero expiresAt")
	}

	trimmed := bytes.TrimSpace(w.Points)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return models.SnapshotEntry{}, fmt.Errorf("points is not a list")
	}
	var points []models.Entry
	if err := json.Unmarshal(trimmed, &points); err != nil {
		return models.SnapshotEntry{}, fmt.Errorf("points: %w", err)
	}
	return models.SnapshotEntry{ExpiresAt: expiresAt, Points: points}, nil
}
