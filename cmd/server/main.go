package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pressmesh/reconcile/internal/admin"
	"github.com/pressmesh/reconcile/internal/config"
	"github.com/pressmesh/reconcile/internal/db"
	"github.com/pressmesh/reconcile/internal/export"
	"github.com/pressmesh/reconcile/internal/middleware"
	"github.com/pressmesh/reconcile/internal/repository"
	"github.com/pressmesh/reconcile/internal/resolution"

	"github.com/rs/cors"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	dbConfig, srvConfig, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, conn.Pool, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	orgRepo := repository.NewOrganizationRepository(conn.Pool)
	entityRepo := repository.NewEntityRepository(conn.Pool)
	reviewRepo := repository.NewReviewRepository(conn.Pool)
	auditRepo := repository.NewAuditLogRepository(conn.Pool)

	// Create the resolution engine and supporting services
	engine := resolution.NewEngine(entityRepo, reviewRepo, auditRepo, orgRepo, resolution.DefaultThresholds())
	exportService := export.NewService(reviewRepo)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   srvConfig.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	wrap := func(h http.Handler) http.Handler {
		return corsHandler.Handler(middleware.LoggingMiddleware(middleware.ReviewerMiddleware(h)))
	}

	resolutionHandler := resolution.NewHTTPHandler(engine)
	adminHandler := admin.NewHTTPHandler(entityRepo, orgRepo, auditRepo)

	mux := http.NewServeMux()
	mux.Handle("/api/resolve", wrap(resolutionHandler))
	mux.Handle("/api/resolve/batch", wrap(resolutionHandler))
	mux.Handle("/api/conflicts", wrap(resolutionHandler))
	mux.Handle("/api/conflicts/export", wrap(export.NewHTTPHandler(exportService)))
	mux.Handle("/api/conflicts/", wrap(resolutionHandler))
	mux.Handle("/api/organizations", wrap(adminHandler))
	mux.Handle("/api/entities", wrap(adminHandler))
	mux.Handle("/api/entities/", wrap(adminHandler))

	// Create HTTP server
	server := &http.Server{
		Addr:         srvConfig.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting conflict resolution server on %s", srvConfig.Addr)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
