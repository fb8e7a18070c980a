package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sivaSai9177/Healthcare-sub008/pkg/alerting"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/api"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/config"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/models"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/notify"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/roster"
	"github.com/sivaSai9177/Healthcare-sub008/pkg/store"
)

// @title Hospital Alerting API
// @version 1.0
// @description API for raising, acknowledging and escalating hospital staff alerts
// @BasePath /api

func main() {
	// Configure Log Level from Environment Variable
	logLevelStr := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(logLevelStr) {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel) // Default to Info
	}
	logrus.Infof("Log level set to: %s", logrus.GetLevel().String())

	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Set up the alert store: PostgreSQL when a DSN is configured, otherwise
	// in-memory (single-node operation, state lost on restart)
	var alertStore store.AlertStore
	if cfg.Database.DSN != "" {
		db, err := store.OpenPostgres(cfg.Database.DSN)
		if err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		pg := store.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logrus.Fatalf("Failed to ensure alert schema: %v", err)
		}
		alertStore = pg
		logrus.Info("Using PostgreSQL alert store")
	} else {
		alertStore = store.NewMemoryStore()
		logrus.Warn("No database DSN configured; using in-memory alert store")
	}

	// Seed the roster from configuration
	responders := make([]models.Responder, 0, len(cfg.Roster))
	for _, rc := range cfg.Roster {
		responders = append(responders, models.Responder{
			ID:     rc.ID,
			Role:   models.ResponderRole(rc.Role),
			OnDuty: rc.OnDuty,
		})
	}
	if len(responders) == 0 {
		logrus.Warn("Roster is empty; auto-assignment will fail until responders are configured")
	}
	staffRoster := roster.NewStaticRoster(responders)

	// Initialize the alerting core
	calc := alerting.NewPriorityCalculator(cfg.Policy)
	engine := alerting.NewAssignmentEngine(staffRoster, cfg.Policy)
	sink := notify.NewLogSink()
	alertService := alerting.NewAlertService(alertStore, engine, calc, sink, staffRoster, cfg.Policy)
	scheduler := alerting.NewEscalationScheduler(alertService, alertStore, calc, sink, cfg.Policy)
	alertService.SetScheduler(scheduler)

	// Rebuild escalation timers from persisted alert state
	if err := scheduler.Recover(ctx); err != nil {
		logrus.Errorf("Escalation timer recovery failed: %v", err)
	}

	// Set up the Echo server
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// API routes
	apiHandler := api.NewAPIHandler(alertService)
	apiHandler.SetupRoutes(e)

	// Scheduler visibility for operators
	e.GET("/debug/timers", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"activeTimers": scheduler.ActiveTimers()})
	})

	// Swagger documentation
	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler()))

	// Create HTTP server
	// Use PORT environment variable if available, otherwise use config
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Starting server on port %s", port)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Stop escalation timers; they are rebuilt from the store on next boot
	scheduler.Stop()

	// Create a deadline for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Shutdown the server
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}
