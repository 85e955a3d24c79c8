package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dwelora/api/internal/activity"
	"github.com/dwelora/api/internal/config"
	"github.com/dwelora/api/internal/database"
	"github.com/dwelora/api/internal/external"
	"github.com/dwelora/api/internal/handlers"
	"github.com/dwelora/api/internal/logger"
	"github.com/dwelora/api/internal/middleware"
	"github.com/dwelora/api/internal/notify"
	"github.com/dwelora/api/internal/repository"
	"github.com/dwelora/api/internal/services"
	"github.com/dwelora/api/internal/workers"
	"github.com/gin-gonic/gin"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting Dwelora API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal("Failed to run schema migration", err, nil)
	}

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	viewingRepo := repository.NewViewingRepository(db)
	agreementRepo := repository.NewAgreementRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Event hub and write-behind activity ledger
	hub := notify.NewHub(log.WithComponent("hub"), cfg.Stream.SubscriberBuffer)
	ledger := activity.NewLedger(activityRepo, log.WithComponent("activity"), cfg.Stream.ActivityBuffer)

	// External collaborators. Each is optional: an unset URL leaves the
	// collaborator out and the workflows degrade as designed.
	var verifier external.IdentityVerifier
	if cfg.External.VerifierURL != "" {
		verifier = external.NewHTTPVerifier(cfg.External.VerifierURL, cfg.External.VerifierKey)
	}
	var extractor external.Extractor
	if cfg.External.ExtractorURL != "" {
		extractor = external.NewHTTPExtractor(cfg.External.ExtractorURL)
	}
	var renderer external.Renderer
	var blobs external.BlobStore
	if cfg.External.RendererURL != "" {
		renderer = external.NewHTTPRenderer(cfg.External.RendererURL)
		store, err := external.NewFileBlobStore(cfg.External.BlobDir)
		if err != nil {
			log.Fatal("Failed to open blob store", err, map[string]interface{}{
				"dir": cfg.External.BlobDir,
			})
		}
		blobs = store
	}

	// Initialize service layer
	userService := services.NewUserService(userRepo, log)
	leadService := services.NewLeadService(leadRepo, propertyRepo, userRepo, nil, ledger, hub, log)
	propertyService := services.NewPropertyService(propertyRepo, leadRepo, userRepo, leadService, extractor, ledger, hub, log)
	viewingService := services.NewViewingService(viewingRepo, propertyRepo, agreementRepo, ledger, hub, log)
	agreementService := services.NewAgreementService(agreementRepo, propertyRepo, viewingRepo, renderer, blobs, ledger, hub, log)

	// Background lead reconciliation
	reconciler := workers.NewLeadReconciler(leadService, log.WithComponent("lead_rescan"))
	if cfg.Workers.LeadRescanEnabled {
		if err := reconciler.Start(cfg.Workers.LeadRescanSchedule); err != nil {
			log.Fatal("Failed to start lead reconciler", err, map[string]interface{}{
				"schedule": cfg.Workers.LeadRescanSchedule,
			})
		}
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	leadHandler := handlers.NewLeadHandler(leadService)
	viewingHandler := handlers.NewViewingHandler(viewingService)
	agreementHandler := handlers.NewAgreementHandler(agreementService)
	activityHandler := handlers.NewActivityHandler(propertyService, activityRepo)
	streamHandler := handlers.NewStreamHandler(hub, cfg.Stream.AllowedOrigins)

	// Register API v1 routes. Everything below requires a resolved actor.
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Actor(userRepo))
	{
		users := v1.Group("/users")
		{
			users.POST("", userHandler.Register)
			users.GET("/:id", userHandler.Get)
		}

		properties := v1.Group("/properties")
		{
			properties.POST("", propertyHandler.Create)
			properties.GET("", propertyHandler.List)
			properties.GET("/:id", propertyHandler.Get)
			properties.PATCH("/:id/status", propertyHandler.UpdateStatus)
			properties.PUT("/:id/agent", propertyHandler.ReassignAgent)
			properties.DELETE("/:id", propertyHandler.Delete)
			properties.GET("/:id/viewings", viewingHandler.ListForProperty)
			properties.GET("/:id/activity", activityHandler.ListForProperty)
		}

		leads := v1.Group("/leads")
		{
			leads.GET("", leadHandler.List)
			leads.POST("/:id/claim", leadHandler.Claim)
		}

		viewings := v1.Group("/viewings")
		{
			viewings.POST("", viewingHandler.Create)
			viewings.POST("/:id/decision", viewingHandler.Decide)
			viewings.POST("/:id/approval", viewingHandler.Approve)
			viewings.POST("/:id/cancel", viewingHandler.Cancel)
		}

		agreements := v1.Group("/agreements")
		{
			agreements.GET("", agreementHandler.List)
			agreements.GET("/:id", agreementHandler.Get)
			agreements.POST("/disclosure/sign", agreementHandler.SignDisclosure)
			agreements.POST("/standard", agreementHandler.CreateStandard)
			agreements.POST("/:id/sign", agreementHandler.SignStandard)
			agreements.POST("/brbc/sign", agreementHandler.SignGlobalBRBC)
			agreements.POST("/referral", agreementHandler.CreateReferral)
			agreements.PUT("/:id/status", agreementHandler.OverrideStatus)
		}

		if verifier != nil {
			verificationService := services.NewVerificationService(userRepo, verifier, leadService, log)
			verificationHandler := handlers.NewVerificationHandler(verificationService)
			verification := v1.Group("/verification")
			{
				verification.POST("/start", verificationHandler.Start)
				verification.POST("/sync", verificationHandler.Sync)
			}
		} else {
			log.Warn("Identity verification disabled, VERIFIER_URL is not set", nil)
		}

		v1.GET("/stream", streamHandler.Stream)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	reconciler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	// Drain queued activity writes before the pool closes.
	ledger.Close()

	log.Info("Server exited", nil)
}
