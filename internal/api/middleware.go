package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

type contextKey string

const contextKeyActor contextKey = "actor"

// Actor is the caller's resolved identity: a registered user, a guest
// pseudo-id, or nobody. At most one of UserID/GuestID is set.
type Actor struct {
	UserID  string
	GuestID string
	Name    string
	Role    store.Role
}

// Key returns the actor's stable identity key, or "" for anonymous callers.
func (a Actor) Key() string {
	if a.UserID != "" {
		return a.UserID
	}
	return a.GuestID
}

// WithActor resolves the caller before the handler runs. A bearer session
// token wins; otherwise an X-Guest-Id header registers a guest sighting
// through the reconciliation service.
func (h *Handler) WithActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor := Actor{}

		if token := bearerToken(r); token != "" {
			user, err := h.identity.ValidateSession(ctx, token)
			if err == nil && user != nil {
				actor = Actor{UserID: user.ID, Name: user.Name, Role: user.Role}
			}
		}

		if actor.UserID == "" {
			if guestID := r.Header.Get("X-Guest-Id"); guestID != "" {
				guest, err := h.identity.TouchGuest(ctx, guestID, r.Header.Get("X-Guest-Name"))
				if err == nil && guest != nil {
					actor = Actor{GuestID: guest.ID, Name: guest.Name, Role: store.RoleGuest}
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, contextKeyActor, actor)))
	}
}

// RequireUser rejects requests without a valid user session.
func (h *Handler) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return h.WithActor(func(w http.ResponseWriter, r *http.Request) {
		if ActorFromContext(r.Context()).UserID == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorFromContext extracts the resolved actor, zero for anonymous callers.
func ActorFromContext(ctx context.Context) Actor {
	if v := ctx.Value(contextKeyActor); v != nil {
		return v.(Actor)
	}
	return Actor{}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// LogRequests logs method, path and remote address for every request.
func LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
