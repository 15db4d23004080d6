package controller

import (
	"errors"
	"net/http"

	"github.com/mira-amm/pointsx/pkg/models"
	"github.com/mira-amm/pointsx/pkg/points"
	"go.uber.org/zap"
)

const pointsCacheControl = "public, max-age=3600, stale-while-revalidate=1800"

// HandleGetPoints returns a page of the leaderboard.
// GET /points?address=<addr>&offset=<n>&limit=<n>
func (c *Controller) HandleGetPoints(w http.ResponseWriter, r *http.Request) {
	q, err := parsePointsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := c.App.Points.GetPoints(r.Context(), q)
	if err != nil {
		if errors.Is(err, points.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c.App.Logger.Error("Failed to load points", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load points")
		return
	}

	w.Header().Set("Cache-Control", pointsCacheControl)
	writeJSON(w, http.StatusOK, page)
}

// HandleUpdatePoints recomputes every epoch and returns the new leaderboard.
// POST /points
func (c *Controller) HandleUpdatePoints(w http.ResponseWriter, r *http.Request) {
	entries, err := c.App.Points.UpdateLatestPoints(r.Context())
	if err != nil {
		c.App.Logger.Error("Failed to update points", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update points")
		return
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
