package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/chaoting1995/point-lab-sub000/internal/config"
	"github.com/chaoting1995/point-lab-sub000/internal/identity"
	"github.com/chaoting1995/point-lab-sub000/internal/ratelimit"
	"github.com/chaoting1995/point-lab-sub000/internal/stats"
	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

type testServer struct {
	mux     *http.ServeMux
	handler *Handler
	store   *store.SQLiteStore
	cleanup func()
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "pointlab-api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	sqliteStore, err := store.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	cfg := &config.Config{
		SessionTTL:      24 * time.Hour,
		PostRateLimit:   100,
		VoteRateLimit:   100,
		RateLimitWindow: time.Hour,
	}

	limiter := ratelimit.NewMemoryLimiter()
	identityService := identity.NewService(sqliteStore, cfg.SessionTTL)
	statsService := stats.NewService(sqliteStore)
	handler := NewHandler(sqliteStore, identityService, statsService, limiter, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/topics", handler.ListTopics)
	mux.HandleFunc("POST /api/topics", handler.WithActor(handler.CreateTopic))
	mux.HandleFunc("GET /api/topics/{id}", handler.GetTopic)
	mux.HandleFunc("DELETE /api/topics/{id}", handler.WithActor(handler.DeleteTopic))
	mux.HandleFunc("POST /api/topics/{id}/vote", handler.WithActor(handler.VoteTopic))
	mux.HandleFunc("POST /api/topics/{id}/vote/down", handler.WithActor(handler.DownvoteTopic))
	mux.HandleFunc("GET /api/topics/{id}/points", handler.ListPoints)
	mux.HandleFunc("POST /api/topics/{id}/points", handler.WithActor(handler.CreatePoint))
	mux.HandleFunc("GET /api/points/{id}", handler.GetPoint)
	mux.HandleFunc("POST /api/points/{id}/vote", handler.WithActor(handler.VotePoint))
	mux.HandleFunc("POST /api/points/{id}/vote/down", handler.WithActor(handler.DownvotePoint))
	mux.HandleFunc("POST /api/points/{id}/share", handler.SharePoint)
	mux.HandleFunc("GET /api/points/{id}/comments", handler.ListComments)
	mux.HandleFunc("POST /api/points/{id}/comments", handler.WithActor(handler.CreateComment))
	mux.HandleFunc("POST /api/auth/signup", handler.Signup)
	mux.HandleFunc("POST /api/auth/login", handler.Login)
	mux.HandleFunc("GET /api/auth/me", handler.RequireUser(handler.Me))
	mux.HandleFunc("GET /api/stats", handler.StatsOverview)
	mux.HandleFunc("GET /api/stats/points", handler.StatsHistogram)

	cleanup := func() {
		sqliteStore.Close()
		os.Remove(tmpFile.Name())
	}

	return &testServer{
		mux:     mux,
		handler: handler,
		store:   sqliteStore,
		cleanup: cleanup,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreateTopicAPI(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantError  bool
	}{
		{
			name:       "valid open topic",
			body:       map[string]any{"name": "Remote work"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "valid duel topic",
			body:       map[string]any{"name": "Tabs vs spaces", "mode": "duel"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing name",
			body:       map[string]any{"description": "no name"},
			wantStatus: http.StatusBadRequest,
			wantError:  true,
		},
		{
			name:       "invalid mode",
			body:       map[string]any{"name": "Bad mode", "mode": "battle"},
			wantStatus: http.StatusBadRequest,
			wantError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/topics", tt.body, nil)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var resp map[string]any
			json.Unmarshal(rec.Body.Bytes(), &resp)
			if tt.wantError {
				if _, ok := resp["error"]; !ok {
					t.Error("expected error in response")
				}
			} else {
				if _, ok := resp["id"]; !ok {
					t.Error("expected id in response")
				}
			}
		})
	}
}

func TestCreateTopicSanitizesMarkup(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	rec := ts.do(t, http.MethodPost, "/api/topics", map[string]any{
		"name": "Safe <script>alert('x')</script>",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rec.Code, rec.Body.String())
	}

	topic := decode[store.Topic](t, rec)
	if topic.Name != "Safe" {
		t.Errorf("name = %q, want script stripped", topic.Name)
	}
}

func TestVoteEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	created := decode[store.Topic](t, ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Voted"}, nil))

	// Plain upvote via query parameter
	rec := ts.do(t, http.MethodPost, "/api/topics/"+created.ID+"/vote?delta=1", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rec.Code, rec.Body.String())
	}
	if topic := decode[store.Topic](t, rec); topic.Score != 1 {
		t.Errorf("score = %d, want 1", topic.Score)
	}

	// Out-of-range delta clamps to +2
	rec = ts.do(t, http.MethodPost, "/api/topics/"+created.ID+"/vote?delta=50", nil, nil)
	if topic := decode[store.Topic](t, rec); topic.Score != 3 {
		t.Errorf("score = %d, want 3 after clamped vote", topic.Score)
	}

	// Garbage delta on the plain vote route counts as +1
	rec = ts.do(t, http.MethodPost, "/api/topics/"+created.ID+"/vote?delta=banana", nil, nil)
	if topic := decode[store.Topic](t, rec); topic.Score != 4 {
		t.Errorf("score = %d, want 4 after garbage delta", topic.Score)
	}

	// The downvote route without a usable delta means -1
	rec = ts.do(t, http.MethodPost, "/api/topics/"+created.ID+"/vote/down", nil, nil)
	if topic := decode[store.Topic](t, rec); topic.Score != 3 {
		t.Errorf("score = %d, want 3 after downvote", topic.Score)
	}

	// Voting on a missing topic is a 404
	rec = ts.do(t, http.MethodPost, "/api/topics/no-such-id/vote?delta=1", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGuestAttribution(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	headers := map[string]string{
		"X-Guest-Id":   "guest-xyz",
		"X-Guest-Name": "Visitor",
	}

	topic := decode[store.Topic](t, ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "By guest"}, headers))
	if topic.CreatedByGuest != "guest-xyz" {
		t.Errorf("created_by_guest = %q, want guest-xyz", topic.CreatedByGuest)
	}

	rec := ts.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/points", map[string]any{"description": "their point"}, headers)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rec.Code, rec.Body.String())
	}
	point := decode[store.Point](t, rec)
	if point.GuestID != "guest-xyz" {
		t.Errorf("guest_id = %q, want guest-xyz", point.GuestID)
	}
	if point.AuthorName != "Visitor" {
		t.Errorf("author_name = %q, want Visitor", point.AuthorName)
	}
	if point.AuthorRole != store.RoleGuest {
		t.Errorf("author_role = %q, want guest", point.AuthorRole)
	}

	// The sighting registered the guest and counted their posts.
	guest, err := ts.store.GetGuest(context.Background(), "guest-xyz")
	if err != nil || guest == nil {
		t.Fatalf("guest not registered: %v", err)
	}
	if guest.TopicCount != 1 || guest.PointCount != 1 {
		t.Errorf("guest counters = %d topics, %d points; want 1 and 1", guest.TopicCount, guest.PointCount)
	}
}

func TestDuelTopicRequiresPosition(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	topic := decode[store.Topic](t, ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Duel", "mode": "duel"}, nil))

	rec := ts.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/points", map[string]any{"description": "no side"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing position", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/points", map[string]any{"description": "agreed", "position": "agree"}, nil)
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201; body = %s", rec.Code, rec.Body.String())
	}
}

func TestCommentDepthLimit(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	topic := decode[store.Topic](t, ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Threaded"}, nil))
	point := decode[store.Point](t, ts.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/points", map[string]any{"description": "p"}, nil))

	parent := decode[store.Comment](t, ts.do(t, http.MethodPost, "/api/points/"+point.ID+"/comments", map[string]any{"content": "top"}, nil))
	reply := decode[store.Comment](t, ts.do(t, http.MethodPost, "/api/points/"+point.ID+"/comments", map[string]any{"content": "reply", "parent_id": parent.ID}, nil))

	// A reply to a reply is rejected.
	rec := ts.do(t, http.MethodPost, "/api/points/"+point.ID+"/comments", map[string]any{"content": "too deep", "parent_id": reply.ID}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for nested reply", rec.Code)
	}

	// Top-level listing carries the live reply count.
	list := decode[ListCommentsResponse](t, ts.do(t, http.MethodGet, "/api/points/"+point.ID+"/comments", nil, nil))
	if len(list.Comments) != 1 {
		t.Fatalf("got %d top-level comments, want 1", len(list.Comments))
	}
	if list.Comments[0].ChildCount != 1 {
		t.Errorf("child_count = %d, want 1", list.Comments[0].ChildCount)
	}
}

func TestSharePointAPI(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	topic := decode[store.Topic](t, ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Shared"}, nil))
	point := decode[store.Point](t, ts.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/points", map[string]any{"description": "p"}, nil))

	rec := ts.do(t, http.MethodPost, "/api/points/"+point.ID+"/share", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if shared := decode[store.Point](t, rec); shared.Shares != 1 {
		t.Errorf("shares = %d, want 1", shared.Shares)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	// Signup issues a session
	rec := ts.do(t, http.MethodPost, "/api/auth/signup", map[string]any{
		"email":    "flow@example.com",
		"name":     "Flow",
		"password": "long enough",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signup status = %d; body = %s", rec.Code, rec.Body.String())
	}
	session := decode[SessionResponse](t, rec)
	if session.Token == "" {
		t.Fatal("expected a session token")
	}

	// The token authenticates /me
	rec = ts.do(t, http.MethodGet, "/api/auth/me", nil, map[string]string{
		"Authorization": "Bearer " + session.Token,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d; body = %s", rec.Code, rec.Body.String())
	}
	me := decode[store.User](t, rec)
	if me.Email != "flow@example.com" {
		t.Errorf("email = %q, want flow@example.com", me.Email)
	}

	// Without a token /me is unauthorized
	rec = ts.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me status = %d, want 401", rec.Code)
	}

	// Duplicate signup conflicts
	rec = ts.do(t, http.MethodPost, "/api/auth/signup", map[string]any{
		"email":    "flow@example.com",
		"name":     "Other",
		"password": "long enough",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}

	// Login with the right password works, wrong one does not
	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "flow@example.com",
		"password": "long enough",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("login status = %d, want 200", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "flow@example.com",
		"password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}
}

func TestPostRateLimit(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	ts.handler.cfg.PostRateLimit = 2

	headers := map[string]string{"X-Guest-Id": "limited-guest"}
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Allowed"}, headers)
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d status = %d, want 201", i+1, rec.Code)
		}
	}

	rec := ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Denied"}, headers)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// A different actor is not affected.
	rec = ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Other actor"}, map[string]string{"X-Guest-Id": "other-guest"})
	if rec.Code != http.StatusCreated {
		t.Errorf("other actor status = %d, want 201", rec.Code)
	}
}

func TestStatsEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.cleanup()

	topic := decode[store.Topic](t, ts.do(t, http.MethodPost, "/api/topics", map[string]any{"name": "Counted"}, nil))
	ts.do(t, http.MethodPost, "/api/topics/"+topic.ID+"/points", map[string]any{"description": "p"}, nil)

	overview := decode[stats.Overview](t, ts.do(t, http.MethodGet, "/api/stats", nil, nil))
	if overview.Topics != 1 {
		t.Errorf("topics = %d, want 1", overview.Topics)
	}
	if overview.Points != 1 {
		t.Errorf("points = %d, want 1", overview.Points)
	}

	hist := decode[[]stats.DayCount](t, ts.do(t, http.MethodGet, "/api/stats/points", nil, nil))
	if len(hist) != 28 {
		t.Fatalf("histogram has %d buckets, want 28", len(hist))
	}
	if hist[len(hist)-1].Count != 1 {
		t.Errorf("today's bucket = %d, want 1", hist[len(hist)-1].Count)
	}
}
