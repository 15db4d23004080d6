package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/mira-amm/pointsx/pkg/models"
)

// RowMapping names the result columns holding the wallet address and its points.
// Positional rows fall back to columns 0 and 1 when the names are not declared.
type RowMapping struct {
	AddressColumn string
	PointsColumn  string
}

// DefaultRowMapping matches the columns produced by the points query.
var DefaultRowMapping = RowMapping{AddressColumn: "address", PointsColumn: "points"}

func mapRows(rs *resultSet, m RowMapping) ([]models.Entry, error) {
	addrIdx, pointsIdx := 0, 1
	if i := slices.Index(rs.Columns, m.AddressColumn); i >= 0 {
		addrIdx = i
	}
	if i := slices.Index(rs.Columns, m.PointsColumn); i >= 0 {
		pointsIdx = i
	}

	out := make([]models.Entry, 0, len(rs.Rows))
	for i, raw := range rs.Rows {
		var (
			addrRaw, pointsRaw json.RawMessage
			err                error
		)
		switch firstByte(raw) {
		case '[':
			addrRaw, pointsRaw, err = positional(raw, addrIdx, pointsIdx)
		case '{':
			addrRaw, pointsRaw, err = keyed(raw, m)
		default:
			err = fmt.Errorf("unexpected row %s", truncate(raw))
		}
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("row %d", i), Err: err}
		}

		entry, err := toEntry(addrRaw, pointsRaw)
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("row %d", i), Err: err}
		}
		out = append(out, entry)
	}
	return out, nil
}

func positional(raw json.RawMessage, addrIdx, pointsIdx int) (json.RawMessage, json.RawMessage, error) {
	var cells []json.RawMessage
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, nil, err
	}
	if addrIdx >= len(cells) || pointsIdx >= len(cells) {
		return nil, nil, fmt.Errorf("row has %d columns", len(cells))
	}
	return cells[addrIdx], cells[pointsIdx], nil
}

func keyed(raw json.RawMessage, m RowMapping) (json.RawMessage, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, err
	}
	addr, ok := fields[m.AddressColumn]
	if !ok {
		return nil, nil, fmt.Errorf("missing column %q", m.AddressColumn)
	}
	points, ok := fields[m.PointsColumn]
	if !ok {
		return nil, nil, fmt.Errorf("missing column %q", m.PointsColumn)
	}
	return addr, points, nil
}

func toEntry(addrRaw, pointsRaw json.RawMessage) (models.Entry, error) {
	var addr string
	if err := json.Unmarshal(addrRaw, &addr); err != nil {
		return models.Entry{}, fmt.Errorf("address: %w", err)
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return models.Entry{}, fmt.Errorf("empty address")
	}

	points, err := parsePoints(pointsRaw)
	if err != nil {
		return models.Entry{}, fmt.Errorf("points for %s: %w", addr, err)
	}
	return models.Entry{Address: addr, Points: points}, nil
}

// parsePoints accepts a JSON number or a numeric string; large sums come back as strings.
func parsePoints(raw json.RawMessage) (float64, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, fmt.Errorf("null")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", truncate(raw))
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %s", s)
	}
	return f, nil
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func truncate(raw []byte) string {
	const limit = 64
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}
