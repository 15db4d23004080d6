package analytics

import (
	"encoding/json"
	"testing"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(t *testing.T, raw string) []json.RawMessage {
	t.Helper()
	var out []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestMapRowsPositionalFallsBackToFirstColumns(t *testing.T) {
	rs := &resultSet{Rows: rows(t, `[["0xaaa", 3], ["0xbbb", "4.5"]]`)}

	got, err := mapRows(rs, DefaultRowMapping)
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{{Address: "0xaaa", Points: 3}, {Address: "0xbbb", Points: 4.5}}, got)
}

func TestMapRowsCustomMapping(t *testing.T) {
	m := RowMapping{AddressColumn: "wallet", PointsColumn: "total"}

	positional := &resultSet{Columns: []string{"total", "wallet"}, Rows: rows(t, `[[8, "0xaaa"]]`)}
	got, err := mapRows(positional, m)
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{{Address: "0xaaa", Points: 8}}, got)

	keyed := &resultSet{Rows: rows(t, `[{"wallet": "0xbbb", "total": 2}]`)}
	got, err = mapRows(keyed, m)
	require.NoError(t, err)
	assert.Equal(t, []models.Entry{{Address: "0xbbb", Points: 2}}, got)
}

func TestMapRowsRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		rows string
	}{
		{name: "short positional row", rows: `[["0xaaa"]]`},
		{name: "empty address", rows: `[["", 1]]`},
		{name: "null address", rows: `[[null, 1]]`},
		{name: "null points", rows: `[["0xaaa", null]]`},
		{name: "non numeric points", rows: `[["0xaaa", "many"]]`},
		{name: "nan points", rows: `[["0xaaa", "NaN"]]`},
		{name: "missing keyed column", rows: `[{"address": "0xaaa"}]`},
		{name: "scalar row", rows: `[42]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapRows(&resultSet{Rows: rows(t, tt.rows)}, DefaultRowMapping)
			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
		})
	}
}

func TestPollResponseOutcome(t *testing.T) {
	decode := func(raw string) pollResponse {
		var r pollResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &r))
		return r
	}

	status, _, err := decode(`{"sqlQueryResult":{"executionInfo":{"status":"QUEUED"}}}`).outcome()
	require.NoError(t, err)
	assert.Equal(t, "QUEUED", status)

	_, _, err = decode(`{"sqlQueryResult":{"executionInfo":{"status":"FINISHED"}}}`).outcome()
	var decErr *DecodeError
	assert.ErrorAs(t, err, &decErr)

	_, _, err = decode(`{"sqlQueryResult":{}}`).outcome()
	assert.ErrorAs(t, err, &decErr)

	_, _, err = decode(`{}`).outcome()
	assert.ErrorAs(t, err, &decErr)

	status, rs, err := decode(`{"result":{"columns":["address","points"],"rows":[]}}`).outcome()
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, status)
	assert.Empty(t, rs.Rows)
}
