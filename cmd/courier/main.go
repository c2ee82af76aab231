package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/courier/internal/alert"
	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/config"
	"github.com/dmitrymomot/courier/internal/contentscan"
	"github.com/dmitrymomot/courier/internal/delivery"
	"github.com/dmitrymomot/courier/internal/failure"
	"github.com/dmitrymomot/courier/internal/notify"
	"github.com/dmitrymomot/courier/internal/preflight"
	"github.com/dmitrymomot/courier/internal/quota"
	"github.com/dmitrymomot/courier/internal/telemetry"
	"github.com/dmitrymomot/courier/internal/tenant"
	"github.com/dmitrymomot/courier/internal/transport"
	"github.com/dmitrymomot/courier/internal/worker"
	"github.com/dmitrymomot/courier/pkg/cache"
	"github.com/dmitrymomot/courier/pkg/db"
	"github.com/dmitrymomot/courier/pkg/health"
	"github.com/dmitrymomot/courier/pkg/job"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/mailer/dkim"
	"github.com/dmitrymomot/courier/pkg/mailer/postmark"
	"github.com/dmitrymomot/courier/pkg/mailer/resend"
	"github.com/dmitrymomot/courier/pkg/mailer/smtp"
	"github.com/dmitrymomot/courier/pkg/oauth"
	"github.com/dmitrymomot/courier/pkg/redis"
	"github.com/dmitrymomot/courier/pkg/storage"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.NewWithSentry(cfg.Log, cfg.Sentry, logger.Extractors()...)
	defer logger.FlushSentry(2 * time.Second)

	cluster, err := db.NewCluster(ctx, cfg.DB)
	if err != nil {
		return err
	}
	rdb, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		cluster.Close()
		return err
	}

	lookups := cache.NewLayered[tenant.Lookup](
		cache.NewMemory[tenant.Lookup](cache.MemoryConfig{
			DefaultTTL: cfg.Cache.LocalTTL,
			MaxEntries: cfg.Cache.MaxEntries,
		}),
		cache.NewRedis[tenant.Lookup](rdb, cfg.Cache.Prefix, cfg.Cache.LookupTTL),
		cfg.Cache.LocalTTL,
	)
	directory := tenant.NewDirectory(cluster, lookups, tenant.WithLookupTTL(cfg.Cache.LookupTTL))

	enqueuer, err := job.NewEnqueuer(cluster.Control(), job.WithEnqueuerLogger(log))
	if err != nil {
		return err
	}

	messages, err := failure.NewMessages()
	if err != nil {
		return err
	}

	providers, err := oauthProviders(cfg, log)
	if err != nil {
		return err
	}
	resolver := transport.NewResolver(cfg.Platform.From,
		transport.WithPlatformTransport(cfg.Platform.Transport),
		transport.WithTokenSource(oauth.NewRefresher(providers)),
		transport.WithCredentialNotifier(alert.New(rdb, enqueuer, messages.Catalog(),
			alert.WithInterval(cfg.AlertInterval),
			alert.WithLogger(log),
		)),
		transport.WithLogger(log),
	)

	platform, err := platformSender(cfg)
	if err != nil {
		return err
	}

	scanner := contentscan.New(cfg.Scanner, log)
	gate := preflight.New(
		preflight.WithPlaceholderDomains(cfg.PlaceholderDomains...),
		preflight.WithScanner(preflight.ScannerFunc(func(ctx context.Context, _ *tenant.Context, m preflight.Message) bool {
			return scanner.Block(ctx, contentscan.Content{Subject: m.Subject, HTML: m.HTML, Text: m.Text})
		})),
		preflight.WithLogger(log),
	)

	tracker := logger.NewSentryTracker(nil)
	counter := quota.NewCounter(rdb)

	jobOpts := []delivery.Option{
		delivery.WithExceptionTracker(tracker, cfg.Hosted),
		delivery.WithLogger(log),
	}
	if cfg.Storage.Enabled() {
		objects, err := storage.New(cfg.Storage)
		if err != nil {
			return err
		}
		jobOpts = append(jobOpts, delivery.WithAttachments(objects, cfg.MaxAttachmentBytes))
	}

	deliveryJob := delivery.NewJob(delivery.Deps{
		Directory: directory,
		Resolver:  resolver,
		Senders:   transport.NewFactory(platform),
		Gate:      gate,
		Quota:     counter,
		Telemetry: telemetry.NewStream(rdb, telemetry.WithStream(cfg.TelemetryStream), telemetry.WithLogger(log)),
		Audit:     audit.New(log),
		Notifier:  notify.Notifier{},
		Messages:  messages,
		Enqueuer:  enqueuer,
	}, jobOpts...)

	manager, err := job.NewManager(cluster.Control(),
		job.WithTask[delivery.Request](delivery.NewTask(deliveryJob)),
		job.WithScheduledTask(quota.NewResetTask(counter, log)),
		job.WithMaxWorkers(cfg.Worker.Concurrency),
		job.WithLogger(log),
		job.WithFailureHook(func(ctx context.Context, f job.Failure) {
			if cfg.Hosted && (f.Panic || f.Final()) {
				tracker.CaptureException(ctx, f.Err, map[string]string{"task": f.Task, "queue": f.Queue})
			}
		}),
	)
	if err != nil {
		return err
	}

	probe := health.NewServer(cfg.HealthAddr, health.Checks{
		"postgres": cluster.Healthcheck,
		"redis":    redis.Healthcheck(rdb),
		"jobs":     job.Healthcheck(manager),
	}, health.WithTimeout(cfg.HealthTimeout), health.WithLogger(log))

	migrations, err := fs.Sub(tenant.Migrations, "migrations")
	if err != nil {
		return err
	}

	return worker.Run(ctx,
		worker.WithLogger(log),
		worker.WithShutdownTimeout(cfg.Worker.ShutdownTimeout),
		worker.WithStartupHook(func(ctx context.Context) error {
			return db.Migrate(ctx, cluster.Control(), migrations, cfg.DB.MigrationsTable, log)
		}),
		worker.WithStartupHook(func(ctx context.Context) error {
			// River stops hard when its start context ends; shutdown goes through Stop.
			return manager.Start(context.WithoutCancel(ctx))
		}),
		worker.WithService(probe.Serve),
		worker.WithShutdownHook(manager.Shutdown()),
		worker.WithShutdownHook(func(context.Context) error { return lookups.Close() }),
		worker.WithShutdownHook(redis.Shutdown(rdb)),
		worker.WithShutdownHook(db.Shutdown(cluster)),
	)
}

func platformSender(cfg *config.Config) (mailer.Sender, error) {
	switch cfg.Platform.Transport {
	case config.PlatformResend:
		return resend.New(cfg.Resend), nil
	case config.PlatformPostmark:
		return postmark.New(cfg.Postmark), nil
	case config.PlatformSMTP:
		signer, err := dkim.New(cfg.DKIM)
		if err != nil {
			return nil, err
		}
		sender, err := smtp.New(cfg.SMTP, smtp.WithSigner(signer))
		if err != nil {
			return nil, err
		}
		return sender, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrPlatform, cfg.Platform.Transport)
	}
}

// oauthProviders builds the providers that have client credentials.
// Tenants using an unconfigured provider fall back to the default method.
func oauthProviders(cfg *config.Config, log *slog.Logger) ([]oauth.Provider, error) {
	var providers []oauth.Provider
	if cfg.Google.ClientID != "" {
		p, err := oauth.NewGoogleProvider(cfg.Google)
		if err != nil {
			return nil, fmt.Errorf("google oauth: %w", err)
		}
		providers = append(providers, p)
	}
	if cfg.Microsoft.ClientID != "" {
		p, err := oauth.NewMicrosoftProvider(cfg.Microsoft)
		if err != nil {
			return nil, fmt.Errorf("microsoft oauth: %w", err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		log.Warn("no oauth providers configured, gmail and office365 methods will fall back")
	}
	return providers, nil
}
