// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/cache"
	"github.com/olegiv/vcms-go/internal/config"
	"github.com/olegiv/vcms-go/internal/geoip"
	"github.com/olegiv/vcms-go/internal/handler"
	"github.com/olegiv/vcms-go/internal/handler/api"
	"github.com/olegiv/vcms-go/internal/linkpreview"
	"github.com/olegiv/vcms-go/internal/logging"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/scheduler"
	"github.com/olegiv/vcms-go/internal/service"
	"github.com/olegiv/vcms-go/internal/session"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/telemetry"
	"github.com/olegiv/vcms-go/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Rate limits for the public collector endpoint.
const (
	collectRPS   = 5
	collectBurst = 20
)

func buildInfo() version.Info {
	return version.Info{Version: appVersion, GitCommit: appGitCommit, BuildTime: appBuildTime}
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "vCMS - vereniging content management\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_SESSION_SECRET      Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_TOKEN_SECRET        Session token signing key (default: session secret)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_DB_PATH             SQLite database path (default: ./data/vcms.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_REDIS_URL           Redis URL for the link preview cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_GEOIP_DB_PATH       GeoLite2 country database (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_SITE_HOST           Public host of the site, for referrer classification (default: request Host)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_TELEMETRY_ENDPOINT  External telemetry collector URL (default: store locally)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VCMS_DO_SEED             Create the first developer account when no users exist\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(buildInfo())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db, store.SeedOptions{Email: cfg.AdminEmail, Password: cfg.AdminPassword}); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	cacheResult, err := cache.New(cache.Config{
		RedisURL:         cfg.RedisURL,
		Prefix:           cfg.CachePrefix,
		DefaultTTL:       time.Duration(cfg.CacheTTL) * time.Second,
		CleanupInterval:  time.Minute,
		FallbackToMemory: true,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = cacheResult.Cache.Close() }()

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip database unavailable, countries will not be resolved", "path", cfg.GeoIPDBPath, "error", err)
	} else if cfg.GeoIPEnabled() {
		slog.Info("geoip database loaded", "path", cfg.GeoIPDBPath)
	}
	defer func() { _ = geo.Close() }()

	events := service.NewEventService(db)
	analytics := service.NewAnalyticsService(db, geo)
	issuer := auth.NewTokenIssuer(cfg.SigningKey(), cfg.TokenTTL)

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	sched := scheduler.New(logger)
	if err := sched.AddAll(scheduler.MaintenanceJobs(scheduler.MaintenanceConfig{
		Telemetry:     analytics,
		RetentionDays: cfg.TelemetryRetentionDays,
		Events:        events,
		GeoIP:         geo,
	})); err != nil {
		return fmt.Errorf("registering scheduled jobs: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	transportCfg := telemetry.TransportConfig{Endpoint: cfg.TelemetryEndpoint, Logger: logger}
	if !cfg.RemoteTelemetry() {
		// Server-side page views skip the public collector and its per-IP limit.
		transportCfg.Deliver = analytics.RecordRelayed
	}
	transport := telemetry.SelectTransport(telemetry.Capabilities{Beacon: true}, transportCfg)
	tel := telemetry.NewClient(transport, telemetry.Options{
		PageViews:    cfg.TelemetryPageViews,
		Interactions: cfg.TelemetryInteractions,
		SiteHost:     cfg.SiteHost,
		Logger:       logger,
	})
	slog.Info("telemetry client ready", "transport", transport.Name(), "remote", cfg.RemoteTelemetry())

	apiHandler := api.NewHandler(api.Deps{
		DB:            db,
		Issuer:        issuer,
		Events:        events,
		Notices:       service.NewNoticeService(db),
		Media:         service.NewMediaService(db, cfg.UploadsDir, cfg.MaxUploadMB<<20),
		Analytics:     analytics,
		Login:         loginProtection,
		Previews:      linkpreview.New(linkpreview.Options{Cache: cacheResult.Cache}),
		Jobs:          sched,
		SecureCookies: !cfg.IsDevelopment(),
	})
	healthHandler := handler.NewHealthHandler(db, issuer, cfg.UploadsDir)
	healthHandler.SetBuildInfo(buildInfo())

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.Gate(issuer, events))
	visitorStore := telemetry.NewSessionManagerStore(sessionManager)
	r.Use(tel.TrackingMiddleware(telemetry.TrackingConfig{
		Store: func(*http.Request) telemetry.SessionStore {
			return visitorStore
		},
		UserID: func(r *http.Request) string {
			if id := middleware.SessionUserID(r); id > 0 {
				return strconv.FormatInt(id, 10)
			}
			return ""
		},
		Country: func(r *http.Request) string {
			return geo.Country(middleware.ClientIP(r))
		},
	}))
	// The collector is called by beacons and other servers, not forms.
	r.Use(middleware.SkipCSRF("/api/analytics"))
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerAddr())))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	apiHandler.Mount(r, api.RouteOptions{
		CollectLimiter: middleware.NewIPRateLimiter(collectRPS, collectBurst),
		UploadsDir:     cfg.UploadsDir,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // uploads
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", appVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	// Flush queued page views before the database closes.
	if err := tel.Close(shutdownCtx); err != nil {
		slog.Warn("telemetry flush incomplete", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
