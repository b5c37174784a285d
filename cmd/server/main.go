package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"rental-car-dashboard/internal/accounting"
	httpapi "rental-car-dashboard/internal/api/http"
	"rental-car-dashboard/internal/board"
	"rental-car-dashboard/internal/config"
	"rental-car-dashboard/internal/events"
	"rental-car-dashboard/internal/logger"
	"rental-car-dashboard/internal/notifier"
	"rental-car-dashboard/internal/repository"
	"rental-car-dashboard/internal/repository/memory"
	"rental-car-dashboard/internal/repository/postgres"
	"rental-car-dashboard/internal/security"
	"rental-car-dashboard/internal/service"

	_ "github.com/lib/pq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rental Car Dashboard...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize store
	var store repository.Store
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		store = memory.NewStore()
	default:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		store = postgres.NewStore(db)
	}

	// Event bus and side-effect handlers
	bus := events.NewBus(logger.WithService("events"))

	senders := []notifier.Sender{notifier.NewLogSender(logger.WithHandler("notification"))}
	if cfg.SendGrid.APIKey != "" {
		logger.Info("SendGrid notifications enabled", "ops_email", cfg.SendGrid.OpsEmail)
		senders = append(senders, notifier.NewSendGridSender(cfg.SendGrid.APIKey, cfg.SendGrid.From, cfg.SendGrid.FromName, cfg.SendGrid.OpsEmail))
	}
	if cfg.Push.Enabled {
		push, err := notifier.NewFirebasePushSender(ctx, cfg.Push.ProjectID, cfg.Push.CredentialsFile, cfg.Push.Topic)
		if err != nil {
			logger.Error("Failed to initialize push notifications", "error", err)
			log.Fatalf("Failed to initialize push notifications: %v", err)
		}
		logger.Info("Push notifications enabled", "project_id", cfg.Push.ProjectID, "topic", cfg.Push.Topic)
		senders = append(senders, push)
	}
	notifier.NewHandler(senders...).Register(bus)

	if cfg.Accounting.Enabled {
		publisher, err := accounting.NewSQSPublisher(ctx, cfg.Accounting.Region, cfg.Accounting.QueueURL)
		if err != nil {
			logger.Error("Failed to initialize accounting publisher", "error", err)
			log.Fatalf("Failed to initialize accounting publisher: %v", err)
		}
		logger.Info("Accounting sync enabled", "queue_url", cfg.Accounting.QueueURL)
		accounting.NewSyncHandler(publisher, cfg.Accounting.MaxAttempts, cfg.AccountingBackoff()).Register(bus)
	}

	hub := board.NewHub(cfg.Board.AllowedOrigins...)
	hub.Register(bus)
	go hub.Run(ctx)

	logger.Info("Event handlers registered", "settled_handlers", bus.HandlerCount(events.KindReservationSettled))

	// Initialize services
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())
	reservationSvc := service.NewReservationService(store, bus, service.WithAsyncDispatch(cfg.Events.AsyncDispatch))

	// HTTP API
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(reservationSvc, tokenManager, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// gRPC health and reflection for health checks and grpcurl
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		return nil, err
	}

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		db.Close()
		return nil, err
	}
	logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("Failed to apply schema", "error", err)
			db.Close()
			return nil, err
		}
		logger.Info("Database schema applied")
	}
	return db, nil
}
