package controller

import (
	"net/http"
	"strconv"

	"github.com/mira-amm/pointsx/pkg/points"
)

var (
	errInvalidOffset = &parseError{msg: "invalid offset, must be a non-negative integer"}
	errInvalidLimit  = &parseError{msg: "invalid limit, must be a non-negative integer"}
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// parsePointsQuery reads address, offset and limit. Absent values stay unset.
func parsePointsQuery(r *http.Request) (points.Query, error) {
	qs := r.URL.Query()
	q := points.Query{Address: qs.Get("address")}

	if v := qs.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return points.Query{}, errInvalidOffset
		}
		q.Offset = &n
	}
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return points.Query{}, errInvalidLimit
		}
		q.Limit = &n
	}
	return q, nil
}
