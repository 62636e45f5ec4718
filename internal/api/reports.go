package api

import (
	"encoding/json"
	"net/http"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

type CreateReportRequest struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason,omitempty"`
}

type ListReportsResponse struct {
	Reports []*store.Report `json:"reports"`
	Total   int             `json:"total"`
}

// CreateReport handles POST /api/reports
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	allowed, retryAfter := h.checkRateLimit(r, "post", h.cfg.PostRateLimit)
	if !allowed {
		writeRateLimited(w, retryAfter)
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	kind := store.PostKind(req.Type)
	if kind != store.KindTopic && kind != store.KindPoint && kind != store.KindComment {
		writeError(w, http.StatusBadRequest, "type must be 'topic', 'point' or 'comment'")
		return
	}
	if req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "target_id is required")
		return
	}

	report := &store.Report{
		Type:       kind,
		TargetID:   req.TargetID,
		ReporterID: ActorFromContext(r.Context()).Key(),
		Reason:     h.clean(req.Reason),
		Status:     store.ReportOpen,
	}
	if err := h.store.CreateReport(r.Context(), report); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create report")
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// ListReports handles GET /api/reports. An optional status query parameter
// narrows the listing.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	status := store.ReportStatus(r.URL.Query().Get("status"))
	reports, total, err := h.store.ListReports(r.Context(), status, listOptions(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, ListReportsResponse{Reports: reports, Total: total})
}

// ResolveReport handles POST /api/reports/{id}/resolve
func (h *Handler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}

	report.Status = store.ReportResolved
	if err := h.store.UpdateReport(r.Context(), report); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DeleteReport handles DELETE /api/reports/{id}
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteReport(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete report")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
