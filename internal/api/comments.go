package api

import (
	"encoding/json"
	"net/http"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

type CreateCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

type ListCommentsResponse struct {
	Comments []*store.Comment `json:"comments"`
	Total    int              `json:"total"`
}

// ListComments handles GET /api/points/{id}/comments. Without a parent_id
// query parameter it returns top-level comments with live reply counts; with
// one it returns that thread's direct replies.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	pointID := r.PathValue("id")
	point, err := h.store.GetPoint(r.Context(), pointID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if point == nil {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}

	parentID := r.URL.Query().Get("parent_id")
	comments, total, err := h.store.ListComments(r.Context(), pointID, parentID, listOptions(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, ListCommentsResponse{Comments: comments, Total: total})
}

// CreateComment handles POST /api/points/{id}/comments. Replies nest one
// level deep: a reply to a reply is rejected.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	allowed, retryAfter := h.checkRateLimit(r, "post", h.cfg.PostRateLimit)
	if !allowed {
		writeRateLimited(w, retryAfter)
		return
	}

	pointID := r.PathValue("id")
	point, err := h.store.GetPoint(r.Context(), pointID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if point == nil {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	content := h.clean(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if req.ParentID != "" {
		parent, err := h.store.GetComment(r.Context(), req.ParentID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		if parent == nil || parent.PointID != pointID {
			writeError(w, http.StatusBadRequest, "parent comment not found")
			return
		}
		if parent.ParentID != "" {
			writeError(w, http.StatusBadRequest, "replies cannot be nested further")
			return
		}
	}

	actor := ActorFromContext(r.Context())
	comment := &store.Comment{
		PointID:  pointID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if actor.UserID != "" {
		comment.UserID = actor.UserID
		comment.AuthorName = actor.Name
		comment.AuthorRole = actor.Role
	} else {
		comment.GuestID = actor.GuestID
		comment.AuthorName = actor.Name
		comment.AuthorRole = store.RoleGuest
	}
	if comment.AuthorName == "" {
		comment.AuthorName = store.AnonymousName
	}

	if err := h.store.CreateComment(r.Context(), comment); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}
	if actor.GuestID != "" {
		h.identity.RecordGuestPost(r.Context(), actor.GuestID, store.KindComment)
	}
	writeJSON(w, http.StatusCreated, comment)
}

// UpdateComment handles PUT /api/comments/{id}
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.store.GetComment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Content != "" {
		comment.Content = h.clean(req.Content)
	}
	if err := h.store.UpdateComment(r.Context(), comment); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update comment")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// DeleteComment handles DELETE /api/comments/{id}. Direct replies go with the
// comment.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteComment(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VoteComment handles POST /api/comments/{id}/vote
func (h *Handler) VoteComment(w http.ResponseWriter, r *http.Request) {
	h.voteComment(w, r, voteDelta(r))
}

// DownvoteComment handles POST /api/comments/{id}/vote/down
func (h *Handler) DownvoteComment(w http.ResponseWriter, r *http.Request) {
	delta := voteDelta(r)
	if !isFinite(delta) {
		delta = -1
	}
	h.voteComment(w, r, delta)
}

func (h *Handler) voteComment(w http.ResponseWriter, r *http.Request, delta float64) {
	allowed, retryAfter := h.checkRateLimit(r, "vote", h.cfg.VoteRateLimit)
	if !allowed {
		writeRateLimited(w, retryAfter)
		return
	}

	comment, err := h.store.VoteComment(r.Context(), r.PathValue("id"), delta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	writeJSON(w, http.StatusOK, comment)
}
