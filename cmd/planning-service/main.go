package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/consumers"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/events"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/handler"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/repository"
	"github.com/Kinterofoto/bakery-management-system-sub008/internal/planning/service"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/config"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/database"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/httputil"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/logger"
	"github.com/Kinterofoto/bakery-management-system-sub008/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("planning-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("planning-service", cfg.Server.Environment)
	log.Info().Msg("starting Planning Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewPlanningEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	runRepo := repository.NewRunRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	trackingRepo := repository.NewTrackingRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)

	// Initialize services
	calendarService := service.NewCalendarService(db, runRepo, publisher, log)
	recipeService := service.NewRecipeService(db, recipeRepo, log)
	explosionService := service.NewExplosionService(
		runRepo, recipeRepo, inventoryRepo,
		cfg.Planning.DefaultLeadTimeDays, cfg.Planning.DeliveryCutoffHour,
		cfg.Planning.CentralWarehouseCode,
		log,
	)
	trackerService := service.NewTrackerService(db, trackingRepo, publisher, log)
	ledgerService := service.NewLedgerService(db, inventoryRepo, publisher, cfg.Planning.CentralWarehouseCode, log)

	// Initialize handlers
	runHandler := handler.NewRunHandler(calendarService, log)
	recipeHandler := handler.NewRecipeHandler(recipeService, log)
	requirementHandler := handler.NewRequirementHandler(explosionService, trackerService, log)
	inventoryHandler := handler.NewInventoryHandler(ledgerService, log)

	// Start purchasing event consumer
	purchasingConsumer, err := consumers.NewPurchasingEventConsumer(rmq, trackerService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create purchasing event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := purchasingConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start purchasing event consumer")
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.ActorContext)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-Actor-ID", "X-Actor-Name", "X-Actor-Email", "X-Actor-Role"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "planning-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/planning", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runHandler.List)
			r.Post("/", runHandler.Create)
			r.Get("/latest-end", runHandler.LatestEnd)
			r.Patch("/{id}", runHandler.Update)
			r.Delete("/{id}", runHandler.Delete)
		})

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/{productId}/lines", recipeHandler.ListLines)
			r.Post("/{productId}/lines", recipeHandler.CreateLine)
			r.Put("/lines/{id}", recipeHandler.UpdateLine)
			r.Delete("/lines/{id}", recipeHandler.DeleteLine)
		})

		r.Route("/requirements", func(r chi.Router) {
			r.Get("/", requirementHandler.Explode)
			r.Get("/semi-finished", requirementHandler.ExplodeSemiFinished)
			r.Get("/delivery-list", requirementHandler.DeliveryList)
		})

		r.Route("/tracking", func(r chi.Router) {
			r.Get("/", requirementHandler.ListTracking)
			r.Get("/{materialId}/{date}", requirementHandler.GetTracking)
			r.Post("/orders", requirementHandler.RecordOrder)
			r.Post("/receipts", requirementHandler.RecordReceipt)
		})
	})

	r.Route("/api/v1/inventory", func(r chi.Router) {
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", inventoryHandler.ListLocations)
			r.Post("/", inventoryHandler.CreateLocation)
			r.Put("/{id}", inventoryHandler.UpdateLocation)
		})

		r.Get("/balances", inventoryHandler.ListBalances)

		r.Post("/transfers", inventoryHandler.CreateTransfer)
		r.Post("/returns", inventoryHandler.CreateReturn)

		r.Route("/movements", func(r chi.Router) {
			r.Get("/", inventoryHandler.ListMovements)
			r.Get("/{id}", inventoryHandler.GetMovement)
			r.Post("/{id}/confirm", inventoryHandler.Confirm)
		})

		r.Post("/deliveries/consolidated", inventoryHandler.CreateConsolidatedDelivery)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
