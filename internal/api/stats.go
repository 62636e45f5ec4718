package api

import "net/http"

// StatsOverview handles GET /api/stats
func (h *Handler) StatsOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Overview(r.Context()))
}

// StatsHistogram handles GET /api/stats/points. One bucket per trailing local
// calendar day, oldest first, quiet days included at zero.
func (h *Handler) StatsHistogram(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.PointHistogram(r.Context()))
}

// UserStats handles GET /api/users/{id}/stats
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, h.stats.UserStats(r.Context(), id))
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
