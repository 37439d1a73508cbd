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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	grpcapi "equipment-rental-backend/internal/api/grpc"
	httpapi "equipment-rental-backend/internal/api/http"
	"equipment-rental-backend/internal/config"
	"equipment-rental-backend/internal/logger"
	"equipment-rental-backend/internal/repository/memory"
	"equipment-rental-backend/internal/repository/postgres"
	"equipment-rental-backend/internal/security"
	"equipment-rental-backend/internal/service"
)

// store is what main needs from either backend.
type store interface {
	service.Store
	grpcapi.Pinger
	Close() error
}

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
	logger.Info("Starting equipment rental backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress(), "store", cfg.Store.Type)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Initialize Services
	equipmentSvc := service.NewEquipmentService(st)
	reservationSvc := service.NewReservationService(st)

	// Initialize HTTP API
	verifier := security.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	router := httpapi.NewRouter(
		httpapi.NewEquipmentHandler(equipmentSvc, reservationSvc),
		httpapi.NewReservationHandler(reservationSvc, equipmentSvc, nil),
		verifier,
	)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var health *grpcapi.HealthServer
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		health = grpcapi.NewHealthServer(st, 15*time.Second)

		g.Go(func() error {
			logger.Info("gRPC health server listening", "address", addr)
			return health.Serve(lis)
		})
		g.Go(func() error {
			health.Watch(gctx)
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
		defer cancel()
		if health != nil {
			health.GracefulStop()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped. Goodbye!")
}

// openStore connects to the configured backend, running migrations on
// Postgres when enabled.
func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	if cfg.Store.Type == config.StoreTypeMemory {
		logger.Warn("Using in-memory store, data is lost on exit")
		return memory.NewStore(), nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("Database migrations applied")
	}
	return postgres.NewStore(db), nil
}
