package api

import (
	"encoding/json"
	"net/http"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

type CreatePointRequest struct {
	Description string `json:"description"`
	Position    string `json:"position,omitempty"`
}

type ListPointsResponse struct {
	Points []*store.Point `json:"points"`
	Total  int            `json:"total"`
}

// ListPoints handles GET /api/topics/{id}/points
func (h *Handler) ListPoints(w http.ResponseWriter, r *http.Request) {
	topicID := r.PathValue("id")
	topic, err := h.store.GetTopic(r.Context(), topicID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if topic == nil {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}

	points, total, err := h.store.ListPoints(r.Context(), topicID, listOptions(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, ListPointsResponse{Points: points, Total: total})
}

// GetPoint handles GET /api/points/{id}
func (h *Handler) GetPoint(w http.ResponseWriter, r *http.Request) {
	point, err := h.store.GetPoint(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if point == nil {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// CreatePoint handles POST /api/topics/{id}/points. The author's name and
// role are snapshotted onto the point at creation time.
func (h *Handler) CreatePoint(w http.ResponseWriter, r *http.Request) {
	allowed, retryAfter := h.checkRateLimit(r, "post", h.cfg.PostRateLimit)
	if !allowed {
		writeRateLimited(w, retryAfter)
		return
	}

	topicID := r.PathValue("id")
	topic, err := h.store.GetTopic(r.Context(), topicID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if topic == nil {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}

	var req CreatePointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	description := h.clean(req.Description)
	if description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	position := store.Position(req.Position)
	switch position {
	case "":
		position = store.PositionNone
	case store.PositionAgree, store.PositionOthers, store.PositionNone:
	default:
		writeError(w, http.StatusBadRequest, "position must be 'agree', 'others' or 'none'")
		return
	}
	if topic.Mode == store.ModeDuel && position == store.PositionNone {
		writeError(w, http.StatusBadRequest, "duel topics require a position")
		return
	}

	actor := ActorFromContext(r.Context())
	point := &store.Point{
		TopicID:     topicID,
		Description: description,
		Position:    position,
	}
	if actor.UserID != "" {
		point.UserID = actor.UserID
		point.AuthorName = actor.Name
		point.AuthorRole = actor.Role
	} else {
		point.GuestID = actor.GuestID
		point.AuthorName = actor.Name
		point.AuthorRole = store.RoleGuest
	}
	if point.AuthorName == "" {
		point.AuthorName = store.AnonymousName
	}

	if err := h.store.CreatePoint(r.Context(), point); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create point")
		return
	}
	if actor.GuestID != "" {
		h.identity.RecordGuestPost(r.Context(), actor.GuestID, store.KindPoint)
	}
	writeJSON(w, http.StatusCreated, point)
}

// UpdatePoint handles PUT /api/points/{id}
func (h *Handler) UpdatePoint(w http.ResponseWriter, r *http.Request) {
	point, err := h.store.GetPoint(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if point == nil {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}

	var req CreatePointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Description != "" {
		point.Description = h.clean(req.Description)
	}
	if err := h.store.UpdatePoint(r.Context(), point); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update point")
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// DeletePoint handles DELETE /api/points/{id}
func (h *Handler) DeletePoint(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePoint(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete point")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VotePoint handles POST /api/points/{id}/vote
func (h *Handler) VotePoint(w http.ResponseWriter, r *http.Request) {
	h.votePoint(w, r, voteDelta(r))
}

// DownvotePoint handles POST /api/points/{id}/vote/down
func (h *Handler) DownvotePoint(w http.ResponseWriter, r *http.Request) {
	delta := voteDelta(r)
	if !isFinite(delta) {
		delta = -1
	}
	h.votePoint(w, r, delta)
}

func (h *Handler) votePoint(w http.ResponseWriter, r *http.Request, delta float64) {
	allowed, retryAfter := h.checkRateLimit(r, "vote", h.cfg.VoteRateLimit)
	if !allowed {
		writeRateLimited(w, retryAfter)
		return
	}

	point, err := h.store.VotePoint(r.Context(), r.PathValue("id"), delta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if point == nil {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}
	writeJSON(w, http.StatusOK, point)
}

// SharePoint handles POST /api/points/{id}/share
func (h *Handler) SharePoint(w http.ResponseWriter, r *http.Request) {
	point, err := h.store.SharePoint(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if point == nil {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}
	writeJSON(w, http.StatusOK, point)
}
