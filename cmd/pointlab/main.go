package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chaoting1995/point-lab-sub000/internal/api"
	"github.com/chaoting1995/point-lab-sub000/internal/config"
	"github.com/chaoting1995/point-lab-sub000/internal/identity"
	"github.com/chaoting1995/point-lab-sub000/internal/ratelimit"
	"github.com/chaoting1995/point-lab-sub000/internal/stats"
	"github.com/chaoting1995/point-lab-sub000/internal/store"
)

func main() {
	// Local .env is optional; real deployments set the environment directly.
	godotenv.Load()

	cfg := config.Load()

	// Initialize store: SQLite first, flat-file fallback unless forbidden
	st, err := store.Open(cfg.DataDir, cfg.RequireSQLite)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// Initialize services
	limiter := ratelimit.NewMemoryLimiter()
	limiter.StartCleanup(5 * time.Minute)

	identityService := identity.NewService(st, cfg.SessionTTL)
	statsService := stats.NewService(st)

	// Initialize handlers
	h := api.NewHandler(st, identityService, statsService, limiter, cfg)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /api/health", h.Health)

	// Topics
	mux.HandleFunc("GET /api/topics", h.ListTopics)
	mux.HandleFunc("POST /api/topics", h.WithActor(h.CreateTopic))
	mux.HandleFunc("GET /api/topics/{id}", h.GetTopic)
	mux.HandleFunc("PUT /api/topics/{id}", h.WithActor(h.UpdateTopic))
	mux.HandleFunc("DELETE /api/topics/{id}", h.WithActor(h.DeleteTopic))
	mux.HandleFunc("POST /api/topics/{id}/vote", h.WithActor(h.VoteTopic))
	mux.HandleFunc("POST /api/topics/{id}/vote/down", h.WithActor(h.DownvoteTopic))

	// Points
	mux.HandleFunc("GET /api/topics/{id}/points", h.ListPoints)
	mux.HandleFunc("POST /api/topics/{id}/points", h.WithActor(h.CreatePoint))
	mux.HandleFunc("GET /api/points/{id}", h.GetPoint)
	mux.HandleFunc("PUT /api/points/{id}", h.WithActor(h.UpdatePoint))
	mux.HandleFunc("DELETE /api/points/{id}", h.WithActor(h.DeletePoint))
	mux.HandleFunc("POST /api/points/{id}/vote", h.WithActor(h.VotePoint))
	mux.HandleFunc("POST /api/points/{id}/vote/down", h.WithActor(h.DownvotePoint))
	mux.HandleFunc("POST /api/points/{id}/share", h.SharePoint)

	// Comments
	mux.HandleFunc("GET /api/points/{id}/comments", h.ListComments)
	mux.HandleFunc("POST /api/points/{id}/comments", h.WithActor(h.CreateComment))
	mux.HandleFunc("PUT /api/comments/{id}", h.WithActor(h.UpdateComment))
	mux.HandleFunc("DELETE /api/comments/{id}", h.WithActor(h.DeleteComment))
	mux.HandleFunc("POST /api/comments/{id}/vote", h.WithActor(h.VoteComment))
	mux.HandleFunc("POST /api/comments/{id}/vote/down", h.WithActor(h.DownvoteComment))

	// Auth and accounts
	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.RequireUser(h.Me))
	mux.HandleFunc("PUT /api/auth/me", h.RequireUser(h.UpdateMe))
	mux.HandleFunc("DELETE /api/auth/me", h.RequireUser(h.DeleteMe))
	mux.HandleFunc("GET /api/users", h.ListUsers)
	mux.HandleFunc("GET /api/users/{id}", h.GetUser)
	mux.HandleFunc("GET /api/users/{id}/stats", h.UserStats)

	// Reports
	mux.HandleFunc("POST /api/reports", h.WithActor(h.CreateReport))
	mux.HandleFunc("GET /api/reports", h.ListReports)
	mux.HandleFunc("POST /api/reports/{id}/resolve", h.RequireUser(h.ResolveReport))
	mux.HandleFunc("DELETE /api/reports/{id}", h.RequireUser(h.DeleteReport))

	// Stats
	mux.HandleFunc("GET /api/stats", h.StatsOverview)
	mux.HandleFunc("GET /api/stats/points", h.StatsHistogram)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Printf("Starting Point Lab on %s", addr)

	// Wrap with logging middleware
	handler := api.LogRequests(mux)

	// Create server with timeouts
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
