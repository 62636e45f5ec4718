package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/chaoting1995/point-lab-sub000/internal/config"
	"github.com/chaoting1995/point-lab-sub000/internal/identity"
	"github.com/chaoting1995/point-lab-sub000/internal/ratelimit"
	"github.com/chaoting1995/point-lab-sub000/internal/stats"
	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

// Handler holds dependencies for the API handlers. Handlers only ever talk
// to the repository contract and the services built on it; no backend leaks
// through.
type Handler struct {
	store    store.Store
	identity *identity.Service
	stats    *stats.Service
	limiter  ratelimit.Limiter
	cfg      *config.Config
	sanitize *bluemonday.Policy
}

func NewHandler(s store.Store, idSvc *identity.Service, statsSvc *stats.Service, limiter ratelimit.Limiter, cfg *config.Config) *Handler {
	return &Handler{
		store:    s,
		identity: idSvc,
		stats:    statsSvc,
		limiter:  limiter,
		cfg:      cfg,
		sanitize: bluemonday.UGCPolicy(),
	}
}

// Response helpers

type ErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:      "rate limit exceeded",
		RetryAfter: retryAfter,
	})
}

// Request helpers

// listOptions reads page/size/sort query parameters. The store clamps the
// values; this only parses.
func listOptions(r *http.Request) store.ListOptions {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	return store.ListOptions{
		Sort: store.SortOrder(q.Get("sort")),
		Page: page,
		Size: size,
	}
}

// voteDelta reads the raw delta of a vote request. Anything unparseable
// comes back as NaN so the repository's clamping decides what it means.
func voteDelta(r *http.Request) float64 {
	raw := r.URL.Query().Get("delta")
	if raw == "" {
		var body struct {
			Delta *float64 `json:"delta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Delta != nil {
			return *body.Delta
		}
		return math.NaN()
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return d
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (h *Handler) getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// checkRateLimit throttles per actor, falling back to the client address for
// anonymous requests.
func (h *Handler) checkRateLimit(r *http.Request, action string, limit int) (bool, int) {
	actor := ActorFromContext(r.Context())
	key := actor.Key()
	if key == "" {
		key = h.getClientIP(r)
	}

	if h.limiter.Allow(key, action, limit, h.cfg.RateLimitWindow) {
		return true, 0
	}
	retryAfter := int(h.limiter.RetryAfter(key, action, h.cfg.RateLimitWindow).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter
}

// clean strips markup from user-supplied text.
func (h *Handler) clean(s string) string {
	return strings.TrimSpace(h.sanitize.Sanitize(s))
}
