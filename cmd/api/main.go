package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firstcall/internal/api"
	"firstcall/internal/config"
	"firstcall/internal/modules/dispatch"
	"firstcall/internal/modules/fleet"
	"firstcall/internal/modules/tracking"
	"firstcall/pkg/email"
	"firstcall/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

func main() {
	// 1. --- Configuration ---
	// Load config.yaml from the working directory (optional) and apply
	// environment overrides.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	newLogger := func(prefix string) *log.Logger {
		l := log.New(prefix)
		l.SetLevel(cfg.Level())
		return l
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger = newLogger("echo")
	e.Validator = utils.GetValidator()

	// 2. --- Middleware ---
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// 3. --- Fleet Roster ---
	// PostgreSQL when a database is configured, the static roster otherwise.
	var fleetRepo fleet.RepositoryInterface
	if cfg.DatabaseURL != "" {
		dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to parse database configuration: %v", err)
		}
		dbPool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
		if err != nil {
			log.Fatalf("Unable to create connection pool: %v", err)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(context.Background()); err != nil {
			log.Fatalf("Unable to ping database: %v", err)
		}
		e.Logger.Info("Successfully connected to the database!")
		fleetRepo = fleet.NewRepository(dbPool)
	} else {
		e.Logger.Infof("No database configured, using %d ambulances from config", len(cfg.Fleet.Vehicles))
		fleetRepo = fleet.NewStaticRepository(cfg.Fleet.Vehicles)
	}

	// 4. --- Vehicle Feed ---
	var feed tracking.VehicleFeed
	switch cfg.Feed.Mode {
	case "network":
		feed = tracking.NewNetworkFeed(cfg.Feed.URL, cfg.Feed.ReconnectBackoff, newLogger("feed"))
	default:
		feed = tracking.NewSimulatedFeed(cfg.Feed.Interval, cfg.Feed.JitterDegrees, cfg.Feed.DriftFraction, cfg.Feed.Seed)
	}

	// 5. --- Notifications ---
	var mailer email.ServiceInterface
	if cfg.Notify.Region != "" {
		mailer, err = email.NewSESV2Sender(context.Background(), cfg.Notify.Region, cfg.Notify.FromEmail, newLogger("email"))
		if err != nil {
			log.Fatalf("Unable to create SES sender: %v", err)
		}
	} else {
		mailer = email.NewLogSender(newLogger("email"))
	}
	templates, err := email.NewTemplateManager()
	if err != nil {
		log.Fatalf("Unable to parse email templates: %v", err)
	}

	// 6. --- Dependency Injection (Wiring everything up) ---
	// --- Fleet Module ---
	fleetService := fleet.NewService(fleetRepo, newLogger("fleet"))
	fleetHandler := fleet.NewHandler(fleetService)

	// --- Dispatch Module ---
	dispatchLogger := newLogger("dispatch")
	dispatchService := dispatch.NewService(
		dispatch.Config{
			Tracking: tracking.Config{
				StaleAfter:             cfg.Tracking.StaleAfter,
				HealthCheckInterval:    cfg.Tracking.HealthCheckInterval,
				ArrivalThresholdMeters: cfg.Tracking.ArrivalThresholdMeters,
				ArrivalConsecutive:     cfg.Tracking.ArrivalConsecutiveUpdates,
			},
			FixTimeout:        cfg.Tracking.FixTimeout,
			FacilityEmail:     cfg.Notify.FacilityEmail,
			RetainedSnapshots: cfg.Sessions.RetainedSnapshots,
		},
		fleetService,
		feed,
		tracking.NewEstimator(cfg.Tracking.DefaultETAMinutes, cfg.Tracking.AverageSpeedKmh),
		mailer,
		templates,
		dispatch.NewLogDialer(dispatchLogger),
		dispatchLogger,
	)
	dispatchHandler := dispatch.NewHandler(dispatchService, cfg.ClientOrigin)

	// 7. --- Initialize Router ---
	api.SetupRoutes(e, dispatchHandler, fleetHandler)

	// 8. --- Start Server with graceful shutdown logic ---
	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server an error occurred:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Error("Server forced to shutdown:", err)
	}
	dispatchService.Shutdown()
	e.Logger.Info("Server exiting")
}
