package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/teemow/tailortalk/internal/calendar"
	"github.com/teemow/tailortalk/internal/config"
	"github.com/teemow/tailortalk/internal/conversation"
	"github.com/teemow/tailortalk/internal/google"
	"github.com/teemow/tailortalk/internal/instrumentation"
	"github.com/teemow/tailortalk/internal/logging"
	"github.com/teemow/tailortalk/internal/session"
)

// demoDays is how far ahead the memory backend is seeded with meetings
const demoDays = 21

// appOptions carries the optional instrumentation handed to newApp
type appOptions struct {
	logOutput io.Writer
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLoggingConfig
	now       func() time.Time
}

// app holds everything a command needs to run conversation turns.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *conversation.Service

	// readiness checks keyed by dependency name
	checks  map[string]func(context.Context) error
	closers []func() error
}

// newApp loads the configuration and wires the calendar backend, the
// session store and the conversation service.
func newApp(ctx context.Context, flags *pflag.FlagSet, opts appOptions) (*app, error) {
	cfg, err := config.Load(flags, configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.logOutput == nil {
		opts.logOutput = os.Stderr
	}
	logger, err := logging.NewLogger(opts.logOutput, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	convCfg, err := cfg.Conversation()
	if err != nil {
		return nil, err
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		checks: make(map[string]func(context.Context) error),
	}

	backend, err := a.newCalendarBackend(ctx, convCfg.Location, opts)
	if err != nil {
		return nil, err
	}

	store, err := a.newSessionStore(opts.metrics)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	svcOpts := []conversation.Option{
		conversation.WithLogger(logger),
		conversation.WithMetrics(opts.metrics),
		conversation.WithClock(opts.now),
	}
	if opts.audit != nil {
		svcOpts = append(svcOpts, conversation.WithAuditLogger(
			instrumentation.NewAuditLoggerWithConfig(logger, *opts.audit)))
	}
	a.service = conversation.NewService(convCfg, backend, store, svcOpts...)

	logger.Debug("application configured",
		slog.String("calendar_backend", cfg.CalendarBackend),
		slog.String("session_store", cfg.SessionStore),
		slog.String("timezone", cfg.Timezone))
	return a, nil
}

func (a *app) newCalendarBackend(ctx context.Context, loc *time.Location, opts appOptions) (calendar.Backend, error) {
	var (
		backend    calendar.Backend
		calendarID = a.cfg.CalendarID
	)

	switch a.cfg.CalendarBackend {
	case config.BackendGoogle:
		if err := google.CheckCredentials(); err != nil {
			return nil, err
		}
		provider, err := google.NewFileTokenProvider()
		if err != nil {
			return nil, err
		}
		if !provider.HasTokenForAccount(a.cfg.Account) {
			return nil, fmt.Errorf("no Google token for account %q, run 'tailortalk auth --account %s' first", a.cfg.Account, a.cfg.Account)
		}
		client, err := calendar.NewClient(ctx, a.cfg.Account, calendarID, provider)
		if err != nil {
			return nil, err
		}
		backend = client

	case config.BackendMemory:
		backend = calendar.NewDemo(opts.now(), loc, demoDays)
		calendarID = "demo"

	default:
		return nil, fmt.Errorf("unknown calendar backend %q", a.cfg.CalendarBackend)
	}

	backend = calendar.WithRateLimit(backend, a.cfg.CalendarRateLimit, 1)
	return calendar.Instrument(backend, a.cfg.CalendarBackend, calendarID, opts.metrics).WithLogger(a.logger), nil
}

func (a *app) newSessionStore(metrics *instrumentation.Metrics) (session.Store, error) {
	switch a.cfg.SessionStore {
	case config.StoreMemory:
		store := session.NewMemoryStore(
			session.WithTTL(a.cfg.SessionTTL),
			session.WithMetrics(metrics),
			session.WithLogger(a.logger),
		)
		store.Start()
		a.closers = append(a.closers, func() error {
			store.Stop()
			return nil
		})
		return store, nil

	case config.StoreValkey:
		store, err := session.NewValkeyStore(a.cfg.ValkeyStore())
		if err != nil {
			return nil, err
		}
		a.checks["valkey"] = store.Ping
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		return store, nil
	}
	return nil, fmt.Errorf("unknown session store %q", a.cfg.SessionStore)
}

// Close releases the session store.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
