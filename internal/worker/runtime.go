package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultShutdownTimeout = 30 * time.Second

// Hook runs during startup or shutdown.
type Hook func(ctx context.Context) error

// Service runs until ctx is cancelled.
type Service func(ctx context.Context) error

type config struct {
	logger          *slog.Logger
	shutdownTimeout time.Duration
	startupHooks    []Hook
	shutdownHooks   []Hook
	services        []Service
	signals         []os.Signal
}

// Option configures Run.
type Option func(*config)

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithStartupHook adds a hook run before services start. Hooks run in the
// order they were added.
func WithStartupHook(h Hook) Option {
	return func(c *config) { c.startupHooks = append(c.startupHooks, h) }
}

// WithShutdownHook adds a hook run after services stop, in the order added.
func WithShutdownHook(h Hook) Option {
	return func(c *config) { c.shutdownHooks = append(c.shutdownHooks, h) }
}

// WithService adds a long-running service such as the probe server.
func WithService(s Service) Option {
	return func(c *config) { c.services = append(c.services, s) }
}

// WithSignals replaces the signals that trigger shutdown. No signals means
// only ctx cancellation stops the worker.
func WithSignals(sig ...os.Signal) Option {
	return func(c *config) { c.signals = sig }
}

// Run starts the worker and blocks until ctx is cancelled, a shutdown
// signal arrives or a service fails. Shutdown hooks always run once
// startup has begun.
func Run(ctx context.Context, opts ...Option) error {
	cfg := &config{
		logger:          slog.New(slog.DiscardHandler),
		shutdownTimeout: defaultShutdownTimeout,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, cfg.signals...)
		defer cancel()
	}

	var errs []error
	if err := runStartup(ctx, cfg); err != nil {
		errs = append(errs, err)
	} else {
		cfg.logger.InfoContext(ctx, "worker started")
		g, gctx := errgroup.WithContext(ctx)
		for _, svc := range cfg.services {
			g.Go(func() error { return svc(gctx) })
		}
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			cfg.logger.ErrorContext(ctx, "service failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	cfg.logger.Info("shutting down worker")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.shutdownTimeout)
	defer shutdownCancel()

	for _, hook := range cfg.shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			cfg.logger.Error("shutdown hook failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	cfg.logger.Info("shutdown completed")
	return nil
}

func runStartup(ctx context.Context, cfg *config) error {
	for _, hook := range cfg.startupHooks {
		if err := hook(ctx); err != nil {
			cfg.logger.ErrorContext(ctx, "startup hook failed", slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}
