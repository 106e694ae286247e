// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/incident-relay/internal/config"
	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/incidents"
	incidentsmemory "github.com/bissquit/incident-relay/internal/incidents/memory"
	incidentspostgres "github.com/bissquit/incident-relay/internal/incidents/postgres"
	"github.com/bissquit/incident-relay/internal/notifications"
	"github.com/bissquit/incident-relay/internal/notifications/discord"
	"github.com/bissquit/incident-relay/internal/notifications/email"
	"github.com/bissquit/incident-relay/internal/notifications/slack"
	"github.com/bissquit/incident-relay/internal/notifications/sms"
	"github.com/bissquit/incident-relay/internal/notifications/warroom"
	"github.com/bissquit/incident-relay/internal/oncall"
	"github.com/bissquit/incident-relay/internal/pkg/ctxlog"
	"github.com/bissquit/incident-relay/internal/pkg/httputil"
	"github.com/bissquit/incident-relay/internal/pkg/metrics"
	"github.com/bissquit/incident-relay/internal/pkg/postgres"
	"github.com/bissquit/incident-relay/internal/timeline"
	timelinememory "github.com/bissquit/incident-relay/internal/timeline/memory"
	timelinepostgres "github.com/bissquit/incident-relay/internal/timeline/postgres"
	"github.com/bissquit/incident-relay/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool // nil when running on the in-memory repositories
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
}

// New creates a new application instance. An empty database URL selects the
// in-memory repositories, which serve single-instance deployments and tests.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
		defer connectCancel()

		pool, err := postgres.Connect(connectCtx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnectAttempts: cfg.Database.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		db = pool
	} else {
		logger.Warn("no database configured, using in-memory storage")
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	if db != nil {
		go app.collectDBMetrics(metricsCtx)
	}

	router, err := app.setupRouter()
	if err != nil {
		if db != nil {
			db.Close()
		}
		metricsCancel()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	// Collect immediately on start
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter() (*chi.Mux, error) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	var incidentsRepo incidents.Repository
	var timelineRepo timeline.Repository
	if a.db != nil {
		incidentsRepo = incidentspostgres.NewRepository(a.db)
		timelineRepo = timelinepostgres.NewRepository(a.db)
	} else {
		incidentsRepo = incidentsmemory.NewRepository()
		timelineRepo = timelinememory.NewRepository()
	}

	directory := oncall.NewDirectory(buildRoster(a.config.Oncall))

	router, err := a.buildNotificationRouter()
	if err != nil {
		return nil, err
	}
	alerter := notifications.NewAlerter(directory, router, a.config.Notifications.WarRoom.BaseURL)

	incidentsService := incidents.NewService(incidentsRepo, timelineRepo, alerter)
	incidentsHandler := incidents.NewHandler(incidentsService)
	notificationsHandler := notifications.NewHandler(router, alerter, directory)
	oncallHandler := oncall.NewHandler(directory)

	r.Route("/api/v1", func(r chi.Router) {
		incidentsHandler.RegisterPublicRoutes(r)
		oncallHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			if a.config.JWT.SecretKey != "" {
				r.Use(httputil.AuthMiddleware(a.config.JWT.SecretKey))
			} else {
				a.logger.Warn("jwt secret not set, mutating routes are unauthenticated")
			}

			incidentsHandler.RegisterRoutes(r)
			notificationsHandler.RegisterRoutes(r)
		})
	})

	return r, nil
}

// buildNotificationRouter wires one sender per channel. Senders with missing
// credentials still register; they fail per-send with a permanent error that
// shows up in dispatch results instead of breaking startup.
func (a *App) buildNotificationRouter() (*notifications.Router, error) {
	cfg := a.config.Notifications

	senders := []notifications.Sender{
		slack.NewSender(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Username:   cfg.Slack.Username,
			IconEmoji:  cfg.Slack.IconEmoji,
		}),
		discord.NewSender(discord.Config{
			WebhookURL: cfg.Discord.WebhookURL,
		}),
		sms.NewSender(sms.Config{
			AccountSID:    cfg.Twilio.AccountSID,
			AuthToken:     cfg.Twilio.AuthToken,
			FromNumber:    cfg.Twilio.FromNumber,
			APIBaseURL:    cfg.Twilio.APIBaseURL,
			RatePerSecond: cfg.Twilio.RatePerSecond,
		}),
		warroom.NewSender(),
	}

	if cfg.Email.Enabled {
		emailSender, err := email.NewSender(email.Config{
			SMTPHost:     cfg.Email.SMTPHost,
			SMTPPort:     cfg.Email.SMTPPort,
			SMTPUser:     cfg.Email.SMTPUser,
			SMTPPassword: cfg.Email.SMTPPassword,
			FromAddress:  cfg.Email.FromAddress,
		})
		if err != nil {
			return nil, fmt.Errorf("create email sender: %w", err)
		}
		senders = append(senders, emailSender)
	} else {
		a.logger.Warn("email sender is disabled: email alerts will fail per-send")
		senders = append(senders, disabledSender{channel: domain.ChannelTypeEmail})
	}

	return notifications.NewRouter(notifications.RouterConfig{
		MaxConcurrent: cfg.Dispatch.MaxConcurrent,
		SendTimeout:   cfg.Dispatch.SendTimeout,
		MaxRetries:    cfg.Dispatch.MaxRetries,
		RetryBackoff:  cfg.Dispatch.RetryBackoff,
	}, senders...), nil
}

// disabledSender stands in for a channel without credentials so dispatch
// results still report the channel instead of rejecting the whole batch.
type disabledSender struct {
	channel domain.ChannelType
}

func (s disabledSender) Type() domain.ChannelType { return s.channel }

func (s disabledSender) Send(context.Context, notifications.Notification) error {
	return &notifications.PermanentError{Message: fmt.Sprintf("%s channel is disabled", s.channel)}
}

func buildRoster(cfg config.OncallConfig) map[string]oncall.Team {
	roster := make(map[string]oncall.Team, len(cfg.Teams))
	for name, team := range cfg.Teams {
		roster[name] = oncall.Team{
			Engineer: domain.Engineer{
				Name:       team.Engineer.Name,
				Phone:      team.Engineer.Phone,
				Email:      team.Engineer.Email,
				ChatHandle: team.Engineer.ChatHandle,
			},
			Channels: domain.TeamChannels{
				Primary: team.Channels.Primary,
				General: team.Channels.General,
				Alerts:  team.Channels.Alerts,
			},
		}
	}
	return roster
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
