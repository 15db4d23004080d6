package points

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mira-amm/pointsx/pkg/models"
)

// ErrInvalidQuery is returned for malformed leaderboard queries.
var ErrInvalidQuery = errors.New("invalid query")

// Query selects a page of the leaderboard. Nil Offset means 0; nil Limit means no limit.
type Query struct {
	Address string
	Offset  *int
	Limit   *int
}

func (q Query) Validate() error {
	if q.Offset != nil && *q.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative, got %d", ErrInvalidQuery, *q.Offset)
	}
	if q.Limit != nil && *q.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative, got %d", ErrInvalidQuery, *q.Limit)
	}
	return nil
}

// Paginate applies the address filter, then offset, then limit. TotalCount is
// the number of entries left after filtering.
func Paginate(entries []models.Entry, q Query) models.Page {
	filtered := entries
	if q.Address != "" {
		filtered = nil
		for _, e := range entries {
			if strings.EqualFold(e.Address, q.Address) {
				filtered = append(filtered, e)
			}
		}
	}

	start := 0
	if q.Offset != nil {
		start = min(*q.Offset, len(filtered))
	}
	end := len(filtered)
	if q.Limit != nil && *q.Limit < end-start {
		end = start + *q.Limit
	}

	data := make([]models.Entry, end-start)
	copy(data, filtered[start:end])
	return models.Page{Data: data, TotalCount: len(filtered)}
}
