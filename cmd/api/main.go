package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/advisor-match/cmd/mainconfig"
	"github.com/wolfman30/advisor-match/internal/api/router"
	"github.com/wolfman30/advisor-match/internal/app/bootstrap"
	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/availability"
	"github.com/wolfman30/advisor-match/internal/booking"
	"github.com/wolfman30/advisor-match/internal/chat"
	appconfig "github.com/wolfman30/advisor-match/internal/config"
	"github.com/wolfman30/advisor-match/internal/dashboard"
	"github.com/wolfman30/advisor-match/internal/events"
	httpmiddleware "github.com/wolfman30/advisor-match/internal/http/middleware"
	"github.com/wolfman30/advisor-match/internal/leads"
	"github.com/wolfman30/advisor-match/internal/notify"
	"github.com/wolfman30/advisor-match/internal/observability/metrics"
	"github.com/wolfman30/advisor-match/internal/profiles"
	"github.com/wolfman30/advisor-match/internal/realtime"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting advisor-match API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.close()

	go a.deliverer.Start(ctx)
	go a.limiter.RunEviction(ctx, time.Minute, 10*time.Minute)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     a.handler,
		ReadTimeout: 15 * time.Second,
		// Websocket connections outlive any write timeout; the hub sets
		// per-message deadlines instead.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	a.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

type app struct {
	handler   http.Handler
	deliverer *events.Deliverer
	hub       *realtime.Hub
	limiter   *httpmiddleware.RateLimiter
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setupMetrics() (http.Handler, *metrics.SchedulingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewSchedulingMetrics(reg)
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}

	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
	}
	var sqlDB *sql.DB
	if pool != nil {
		if sqlDB, err = bootstrap.OpenSQL(cfg); err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	metricsHandler, schedMetrics := setupMetrics()
	stores := bootstrap.BuildStores(pool, redisClient, logger)
	a.hub = realtime.NewHub(logger.Component("realtime"), cfg.CORSOrigins)
	a.limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	handlers := wireServices(cfg, loc, stores, sqlDB, a.hub, schedMetrics, logger)

	emailAWS := aws.Config{}
	if awsCfg != nil {
		emailAWS = *awsCfg
	}
	email, err := bootstrap.BuildEmailSender(cfg, emailAWS, logger.Component("email"))
	if err != nil {
		a.close()
		return nil, err
	}
	notifier := notify.NewService(email, handlers.profiles, logger.Component("notify"),
		notify.WithBroadcaster(a.hub),
		notify.WithMetrics(schedMetrics),
	)
	a.deliverer = bootstrap.BuildDeliverer(cfg, stores, notifier, a.hub, awsCfg, schedMetrics, logger.Component("outbox"))

	a.handler = router.New(&router.Config{
		Logger:             logger,
		AuthSecret:         cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSOrigins,
		RateLimiter:        a.limiter,
		MetricsHandler:     metricsHandler,
		Realtime:           http.HandlerFunc(a.hub.ServeWS),
		Profiles:           handlers.router.Profiles,
		Availability:       handlers.router.Availability,
		Appointments:       handlers.router.Appointments,
		Booking:            handlers.router.Booking,
		Chat:               handlers.router.Chat,
		Leads:              handlers.router.Leads,
		Dashboard:          handlers.router.Dashboard,
	})
	return a, nil
}

type wired struct {
	profiles *profiles.Service
	router   router.Config
}

func wireServices(cfg *appconfig.Config, loc *time.Location, stores bootstrap.Stores, sqlDB *sql.DB, hub *realtime.Hub, m *metrics.SchedulingMetrics, logger *logging.Logger) wired {
	profileSvc := profiles.NewService(stores.Profiles, logger.Component("profiles"))

	policy := availability.OverlapInclusive
	if cfg.AllowAdjacentSlots {
		policy = availability.OverlapHalfOpen
	}
	slots := availability.NewService(stores.Slots, availability.NewEditor(availability.WithOverlapPolicy(policy)), logger.Component("availability"),
		availability.WithMetrics(m),
		availability.WithLocation(loc),
		availability.WithLookaheadWeeks(cfg.BookingLookaheadWeeks),
	)

	apptSvc := appointments.NewService(stores.Appointments, logger.Component("appointments"),
		appointments.WithFirmLookup(profileSvc),
		appointments.WithMetrics(m),
	)
	categories := appointments.NewCategories(stores.Categories)

	chatSvc := chat.NewService(stores.Chats, logger.Component("chat"),
		chat.WithBroadcaster(hub),
		chat.WithLeads(stores.Leads),
	)
	bookingSvc := booking.NewService(profileSvc, slots, apptSvc, logger.Component("booking"),
		booking.WithChats(chatSvc),
		booking.WithLeads(stores.Leads),
		booking.WithMetrics(m),
		booking.WithLocation(loc),
		booking.WithLookaheadWeeks(cfg.BookingLookaheadWeeks),
	)

	var source dashboard.Source = dashboard.NewStoreSource(apptSvc, stores.Leads, slots)
	if sqlDB != nil {
		source = dashboard.NewSQLSource(sqlDB)
	}
	dashSvc := dashboard.NewService(source, profileSvc, loc, logger.Component("dashboard"))

	return wired{
		profiles: profileSvc,
		router: router.Config{
			Profiles:     profiles.NewHandler(profileSvc, logger),
			Availability: availability.NewHandler(slots, profileSvc, logger),
			Appointments: appointments.NewHandler(apptSvc, categories, loc, logger),
			Booking:      booking.NewHandler(bookingSvc, logger),
			Chat:         chat.NewHandler(chatSvc, logger),
			Leads:        leads.NewHandler(stores.Leads, profileSvc, logger),
			Dashboard:    dashboard.NewHandler(dashSvc, logger),
		},
	}
}
