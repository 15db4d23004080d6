package models

import (
	"strconv"
	"time"
)

// Entry is one wallet's position on a leaderboard.
type Entry struct {
	Address string  `json:"address"`
	Points  float64 `json:"points"`
	Rank    int     `json:"rank"`
}

// Key identifies a snapshot entry: an epoch number or TotalKey.
type Key string

// TotalKey holds the merged leaderboard across all epochs.
const TotalKey Key = "TOTAL"

// EpochKey returns the snapshot key of epoch n.
func EpochKey(n int) Key { return Key(strconv.Itoa(n)) }

// Epoch returns the epoch number encoded in k.
func (k Key) Epoch() (int, bool) {
	if k == TotalKey {
		return 0, false
	}
	n, err := strconv.Atoi(string(k))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Valid reports whether k is TotalKey or a non-negative epoch number.
func (k Key) Valid() bool {
	if k == TotalKey {
		return true
	}
	_, ok := k.Epoch()
	return ok
}

// SnapshotEntry is a ranked list together with its expiry.
type SnapshotEntry struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Points    []Entry   `json:"points"`
}

// Stale reports whether the entry expired before now.
func (e SnapshotEntry) Stale(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Snapshot is the full persisted cache content, replaced wholesale on refresh.
type Snapshot map[Key]SnapshotEntry

// Total returns the TOTAL entry.
func (s Snapshot) Total() (SnapshotEntry, bool) {
	e, ok := s[TotalKey]
	return e, ok
}

// Page is the result of a leaderboard query.
type Page struct {
	Data       []Entry `json:"data"`
	TotalCount int     `json:"totalCount"`
}
