package api

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

type CreateTopicRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

type ListTopicsResponse struct {
	Topics []*store.Topic `json:"topics"`
	Total  int            `json:"total"`
}

// ListTopics handles GET /api/topics
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, total, err := h.store.ListTopics(r.Context(), listOptions(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, ListTopicsResponse{Topics: topics, Total: total})
}

// GetTopic handles GET /api/topics/{id}
func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.store.GetTopic(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if topic == nil {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// CreateTopic handles POST /api/topics
func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	allowed, retryAfter := h.checkRateLimit(r, "post", h.cfg.PostRateLimit)
	if !allowed {
		writeRateLimited(w, retryAfter)
		return
	}

	var req CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := h.clean(req.Name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 120 {
		writeError(w, http.StatusBadRequest, "name must be 1-120 characters")
		return
	}

	mode := store.TopicMode(req.Mode)
	if mode != "" && mode != store.ModeOpen && mode != store.ModeDuel {
		writeError(w, http.StatusBadRequest, "mode must be 'open' or 'duel'")
		return
	}

	actor := ActorFromContext(r.Context())
	topic := &store.Topic{
		Name:           name,
		Description:    h.clean(req.Description),
		Mode:           mode,
		CreatedBy:      actor.UserID,
		CreatedByGuest: actor.GuestID,
	}
	if err := h.store.CreateTopic(r.Context(), topic); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create topic")
		return
	}

	if actor.GuestID != "" {
		h.identity.RecordGuestPost(r.Context(), actor.GuestID, store.KindTopic)
	}
	writeJSON(w, http.StatusCreated, topic)
}

// UpdateTopic handles PUT /api/topics/{id}
func (h *Handler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.store.GetTopic(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if topic == nil {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}

	var req CreateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Name != "" {
		topic.Name = h.clean(req.Name)
	}
	if req.Description != "" {
		topic.Description = h.clean(req.Description)
	}
	if err := h.store.UpdateTopic(r.Context(), topic); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update topic")
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// DeleteTopic handles DELETE /api/topics/{id}. Every point under the topic
// and every comment on those points goes with it.
func (h *Handler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTopic(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete topic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VoteTopic handles POST /api/topics/{id}/vote
func (h *Handler) VoteTopic(w http.ResponseWriter, r *http.Request) {
	h.voteTopic(w, r, voteDelta(r))
}

// DownvoteTopic handles POST /api/topics/{id}/vote/down. A request without a
// usable delta still means -1 here.
func (h *Handler) DownvoteTopic(w http.ResponseWriter, r *http.Request) {
	delta := voteDelta(r)
	if !isFinite(delta) {
		delta = -1
	}
	h.voteTopic(w, r, delta)
}

func (h *Handler) voteTopic(w http.ResponseWriter, r *http.Request, delta float64) {
	allowed, retryAfter := h.checkRateLimit(r, "vote", h.cfg.VoteRateLimit)
	if !allowed {
		writeRateLimited(w, retryAfter)
		return
	}

	topic, err := h.store.VoteTopic(r.Context(), r.PathValue("id"), delta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if topic == nil {
		writeError(w, http.StatusNotFound, "topic not found")
		return
	}
	writeJSON(w, http.StatusOK, topic)
}
