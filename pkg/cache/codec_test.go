package cache

import (
	"testing"
	"time"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expiry = time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)

func sampleSnapshot() models.Snapshot {
	return models.Snapshot{
		models.EpochKey(1): {ExpiresAt: expiry, Points: []models.Entry{{Address: "0xa", Points: 100, Rank: 1}}},
		models.TotalKey: {ExpiresAt: expiry.Add(10 * time.Minute), Points: []models.Entry{
			{Address: "0xa", Points: 100, Rank: 1},
			{Address: "0xb", Points: 7.5, Rank: 2},
		}},
	}
}

func TestEncodeDecode(t *testing.T) {
	raw, err := Encode(sampleSnapshot())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"TOTAL":{"expiresAt":"2025-03-01T12:40:00Z"`)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), got)
}

func TestEncodeNormalisesEmptyPoints(t *testing.T) {
	raw, err := Encode(models.Snapshot{models.TotalKey: {ExpiresAt: expiry}})
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.NotNil(t, got[models.TotalKey].Points)
	assert.Empty(t, got[models.TotalKey].Points)
}

func TestEncodeRejectsInvalidSnapshots(t *testing.T) {
	_, err := Encode(models.Snapshot{"latest": {ExpiresAt: expiry}})
	assert.Error(t, err)

	_, err = Encode(models.Snapshot{models.TotalKey: {}})
	assert.Error(t, err)
}

func TestDecodeSingleEntryShape(t *testing.T) {
	raw := []byte(`{"expiresAt":"2025-03-01T12:30:00.000Z","points":[{"address":"0xa","points":3,"rank":1}]}`)

	got, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	total, ok := got.Total()
	require.True(t, ok)
	assert.True(t, total.ExpiresAt.Equal(expiry))
	assert.Equal(t, []models.Entry{{Address: "0xa", Points: 3, Rank: 1}}, total.Points)
}

func TestDecodeCorruptPayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "invalid json", raw: `{"TOTAL":`},
		{name: "null", raw: `null`},
		{name: "array", raw: `[]`},
		{name: "missing expiresAt", raw: `{"TOTAL":{"points":[]}}`},
		{name: "unparseable expiresAt", raw: `{"TOTAL":{"expiresAt":"tomorrow","points":[]}}`},
		{name: "zero expiresAt", raw: `{"TOTAL":{"expiresAt":"0001-01-01T00:00:00Z","points":[]}}`},
		{name: "points not a list", raw: `{"TOTAL":{"expiresAt":"2025-03-01T12:30:00Z","points":{"0xa":1}}}`},
		{name: "points null", raw: `{"TOTAL":{"expiresAt":"2025-03-01T12:30:00Z","points":null}}`},
		{name: "points missing", raw: `{"TOTAL":{"expiresAt":"2025-03-01T12:30:00Z"}}`},
		{name: "bad entry", raw: `{"TOTAL":{"expiresAt":"2025-03-01T12:30:00Z","points":[{"points":"x"}]}}`},
		{name: "unknown key", raw: `{"latest":{"expiresAt":"2025-03-01T12:30:00Z","points":[]}}`},
		{name: "negative epoch key", raw: `{"-1":{"expiresAt":"2025-03-01T12:30:00Z","points":[]}}`},
		{name: "entry not an object", raw: `{"TOTAL":5}`},
		{name: "single shape without points", raw: `{"expiresAt":"2025-03-01T12:30:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			require.ErrorIs(t, err, ErrCacheCorrupt)
		})
	}
}
