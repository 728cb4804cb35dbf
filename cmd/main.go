// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/evently/scheduling-engine/internal/database"
	"github.com/evently/scheduling-engine/internal/handler"
	"github.com/evently/scheduling-engine/internal/repository"
	"github.com/evently/scheduling-engine/internal/service"
)

func main() {
	ctx := context.Background()

	// ── 1. Connect to PostgreSQL ──────────────────────────────────────────
	pool, err := database.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	log.Println("✓ Connected to PostgreSQL")

	// ── 2. Wire up layers ────────────────────────────────────────────────
	sessionRepo := repository.NewSessionRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)
	capacityRepo := repository.NewCapacityRepository(pool)
	conflictRepo := repository.NewConflictRepository(pool)
	prerequisiteRepo := repository.NewPrerequisiteRepository(pool)

	detector := service.NewConflictDetector(sessionRepo, sessionRepo, registrationRepo, capacityRepo, conflictRepo)
	resolver := service.NewConflictResolver(conflictRepo, sessionRepo, registrationRepo)
	prereqSvc := service.NewPrerequisiteService(sessionRepo, registrationRepo, sessionRepo, prerequisiteRepo, prerequisiteRepo)
	capacitySvc := service.NewCapacityService(capacityRepo, registrationRepo, sessionRepo, prereqSvc)

	conflictHandler := handler.NewConflictHandler(detector, resolver)
	capacityHandler := handler.NewCapacityHandler(capacitySvc)
	prereqHandler := handler.NewPrerequisiteHandler(prereqSvc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS)            // permissive CORS for internal callers

	// Health
	r.Get("/health", handler.HealthCheck)

	// API routes
	r.Route("/events/{eventID}", func(r chi.Router) {
		r.Post("/conflicts/detect", conflictHandler.DetectAll)
		r.Post("/conflicts/detect/time", conflictHandler.DetectTimeOverlaps)
		r.Post("/conflicts/detect/resources", conflictHandler.DetectResources)
		r.Post("/conflicts/detect/capacity", conflictHandler.DetectCapacity)
		r.Post("/conflicts/detect/users", conflictHandler.DetectUsers)
		r.Get("/capacity/suggestions", capacityHandler.Suggestions)
		r.Get("/dependencies/cycles", prereqHandler.DetectCycles)
		r.Get("/dependencies/analysis", prereqHandler.Analyze)
	})

	r.Route("/conflicts", func(r chi.Router) {
		r.Post("/{id}/resolve", conflictHandler.Resolve)
		r.Post("/auto-resolve", conflictHandler.AutoResolve)
	})

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Post("/capacity", capacityHandler.CreateCapacity)
		r.Patch("/capacity", capacityHandler.UpdateCapacity)
		r.Post("/capacity/recount", capacityHandler.Recount)
		r.Get("/availability", capacityHandler.CheckAvailability)
		r.Post("/registrations", capacityHandler.Admit)
		r.Get("/prerequisites/validate", prereqHandler.Validate)
		r.Get("/dependencies/validate", prereqHandler.ValidateDependencies)
	})

	r.Delete("/registrations/{id}", capacityHandler.Cancel)
	r.Post("/capacity/auto-promote", capacityHandler.AutoPromote)
	r.Post("/prerequisites", prereqHandler.CreatePrerequisite)
	r.Delete("/prerequisites/{id}", prereqHandler.DeletePrerequisite)
	r.Post("/dependencies", prereqHandler.CreateDependency)
	r.Delete("/dependencies/{id}", prereqHandler.DeleteDependency)
	r.Get("/dependencies/path", prereqHandler.DependencyPath)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
