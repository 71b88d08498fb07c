// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	_ "servo-service/docs"
	"servo-service/internal/config"
	"servo-service/internal/database"
	"servo-service/internal/handler"
	"servo-service/internal/metrics"
	"servo-service/internal/protocol"
	"servo-service/internal/repository"
	"servo-service/internal/routes"
	"servo-service/internal/service"
	"servo-service/internal/utils"
)

const (
	connectOnStartTimeout = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
)

// Application represents the main application
type Application struct {
	config        *config.Config
	logger        *zap.Logger
	serviceLogger *utils.ServiceLogger
	server        *http.Server
	database      *database.DB
	registry      *prometheus.Registry

	operationRepo    repository.OperationRepository
	servoService     *service.ServoService
	discoveryService *service.DiscoveryService
	eventBus         *handler.EventBus
	wsHandler        *handler.WebSocketHandler

	stop chan struct{}
	wg   sync.WaitGroup
}

// @title Servo Service API
// @version 1.0.0
// @description HTTP daemon for LSC servo bus controller boards

// @contact.name Servo Service API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8086
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version,
		zap.String("environment", cfg.App.Environment),
		zap.String("transport", cfg.Controller.Transport),
		zap.Bool("database", cfg.Database.Enabled),
	)

	app := &Application{
		config:        cfg,
		logger:        logger,
		serviceLogger: serviceLogger,
		stop:          make(chan struct{}),
	}

	if err := app.initializeDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.initializeRepositories()

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initializeServer()
	return app, nil
}

// initializeDatabase connects and migrates the journal database when enabled
func (app *Application) initializeDatabase() error {
	if !app.config.Database.Enabled {
		app.logger.Info("Database disabled, operations journaled in memory")
		return nil
	}

	db, err := database.Connect(context.Background(), app.config, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger, app.config.Database.MigrationsPath)
	if err := migrator.Up(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.logger.Info("Database initialized successfully")
	return nil
}

func (app *Application) initializeRepositories() {
	if app.database != nil {
		app.operationRepo = repository.NewOperationRepository(app.database, app.logger)
	} else {
		app.operationRepo = repository.NewMemoryOperationRepository()
	}
	app.logger.Info("Repositories initialized successfully")
}

func (app *Application) initializeServices() error {
	var servoMetrics *metrics.ServoMetrics
	if app.config.Metrics.Enabled {
		app.registry = metrics.NewRegistry()
		servoMetrics = metrics.NewServoMetrics(app.registry)
	}

	conn, err := protocol.CreateConnection(&app.config.Controller, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create controller transport: %w", err)
	}

	app.eventBus = handler.NewEventBus(app.logger.With(zap.String("component", "event-bus")))

	app.servoService = service.NewServoService(
		conn,
		app.operationRepo,
		app.eventBus,
		servoMetrics,
		&app.config.Controller,
		app.logger,
	)

	vendorID, productID, err := app.config.Controller.USB.IDs()
	if err != nil {
		return fmt.Errorf("failed to parse controller USB IDs: %w", err)
	}
	app.discoveryService = service.NewDiscoveryService(vendorID, productID, app.logger)

	app.wsHandler = handler.NewWebSocketHandler(
		app.servoService,
		app.eventBus,
		app.config.Security.AllowedOrigins,
		app.logger,
	)

	app.logger.Info("Services initialized successfully")
	return nil
}

func (app *Application) initializeServer() {
	router := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.servoService,
		app.discoveryService,
		app.wsHandler,
		app.registry,
	).SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}
}

// Start serves HTTP and blocks until SIGINT or SIGTERM
func (app *Application) Start() error {
	go app.eventBus.Start()
	go app.wsHandler.Run()

	go func() {
		app.logger.Info("Starting HTTP server", zap.String("address", app.server.Addr))

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()
	app.waitForShutdown()
	return nil
}

func (app *Application) startBackgroundServices() {
	if app.config.Controller.ConnectOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), connectOnStartTimeout)
		// The board may be plugged in later; POST /controller/connect retries
		if _, err := app.servoService.Connect(ctx); err != nil {
			app.logger.Warn("Controller not reachable at startup", zap.Error(err))
		}
		cancel()
	}

	if app.config.Database.CleanupInterval > 0 && app.config.Database.RetentionPeriod > 0 {
		app.wg.Add(1)
		go app.runCleanup()
	}
}

// runCleanup trims the operation journal every cleanup interval
func (app *Application) runCleanup() {
	defer app.wg.Done()

	ticker := time.NewTicker(app.config.Database.CleanupInterval)
	defer ticker.Stop()

	app.logger.Info("Cleanup service started",
		zap.Duration("interval", app.config.Database.CleanupInterval),
		zap.Duration("retention", app.config.Database.RetentionPeriod),
	)

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := app.servoService.CleanupOperations(ctx, app.config.Database.RetentionPeriod); err != nil {
				app.logger.Error("Failed to cleanup old operations", zap.Error(err))
			}
			cancel()
		case <-app.stop:
			return
		}
	}
}

func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown(sig.String())
}

// shutdown stops HTTP first so no command races the controller disconnect
func (app *Application) shutdown(reason string) {
	app.serviceLogger.LogServiceStop(reason)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	close(app.stop)
	app.wg.Wait()

	if err := app.servoService.Shutdown(ctx); err != nil {
		app.logger.Error("Controller shutdown error", zap.Error(err))
	}

	app.wsHandler.Stop()
	app.eventBus.Stop()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		}
	}

	app.logger.Info("Application shutdown completed")
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}
