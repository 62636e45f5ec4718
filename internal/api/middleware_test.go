package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

func TestWithActorResolvesGuest(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	var got Actor
	handler := ts.handler.WithActor(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Guest-Id", "guest-mw")
	req.Header.Set("X-Guest-Name", "Middle")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.GuestID != "guest-mw" {
		t.Errorf("guest id = %q, want guest-mw", got.GuestID)
	}
	if got.UserID != "" {
		t.Errorf("user id = %q, want empty", got.UserID)
	}
	if got.Role != store.RoleGuest {
		t.Errorf("role = %q, want guest", got.Role)
	}
	if got.Key() != "guest-mw" {
		t.Errorf("key = %q, want guest-mw", got.Key())
	}
}

func TestWithActorBearerWinsOverGuestHeader(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rec := ts.do(t, http.MethodPost, "/api/auth/signup", map[string]any{
		"email":    "mw@example.com",
		"name":     "MW",
		"password": "long enough",
	}, nil)
	session := decode[SessionResponse](t, rec)

	var got Actor
	handler := ts.handler.WithActor(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	req.Header.Set("X-Guest-Id", "ignored-guest")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.UserID == "" {
		t.Fatal("expected a user actor")
	}
	if got.GuestID != "" {
		t.Errorf("guest id = %q, want empty when a session is present", got.GuestID)
	}

	// The shadowed guest header must not register a sighting.
	if guest, _ := ts.store.GetGuest(context.Background(), "ignored-guest"); guest != nil {
		t.Error("guest header should be ignored when a session wins")
	}
}

func TestWithActorInvalidTokenFallsThrough(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	var got Actor
	handler := ts.handler.WithActor(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus-token")
	req.Header.Set("X-Guest-Id", "fallback-guest")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.UserID != "" {
		t.Errorf("user id = %q, want empty for a bogus token", got.UserID)
	}
	if got.GuestID != "fallback-guest" {
		t.Errorf("guest id = %q, want fallback-guest", got.GuestID)
	}
}

func TestActorFromContextZero(t *testing.T) {
	actor := ActorFromContext(context.Background())
	if actor.UserID != "" || actor.GuestID != "" {
		t.Errorf("zero actor = %+v, want empty", actor)
	}
	if actor.Key() != "" {
		t.Errorf("zero actor key = %q, want empty", actor.Key())
	}
}

func TestGetClientIP(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for first hop",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"},
			remote:  "192.168.1.1:1234",
			want:    "10.0.0.1",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "10.0.0.3"},
			remote:  "192.168.1.1:1234",
			want:    "10.0.0.3",
		},
		{
			name:   "remote addr",
			remote: "192.168.1.1:1234",
			want:   "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ts.handler.getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
