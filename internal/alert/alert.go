package alert

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/courier/internal/delivery"
	"github.com/dmitrymomot/courier/internal/tenant"
	"github.com/dmitrymomot/courier/internal/transport"
	"github.com/dmitrymomot/courier/pkg/i18n"
)

var (
	ErrThrottle = errors.New("alert: throttle check failed")
	ErrSend     = errors.New("alert: failed to enqueue alert")
)

const (
	keyPrefix       = "courier:alert:credentials:"
	namespace       = "failure"
	defaultInterval = 24 * time.Hour
)

var methodLabels = map[transport.Method]string{
	transport.MethodGmail:          "Gmail",
	transport.MethodOffice365:      "Microsoft 365",
	transport.MethodClientPostmark: "Postmark",
	transport.MethodClientMailgun:  "Mailgun",
}

type throttleClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// Notifier tells account owners that their own sending method stopped
// working. At most one alert per account is sent per interval.
type Notifier struct {
	client   throttleClient
	enqueuer delivery.Enqueuer
	catalog  *i18n.Catalog
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithInterval sets the minimum time between alerts for one account.
func WithInterval(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Notifier. The catalog must carry the failure namespace
// credentials keys.
func New(client redis.UniversalClient, e delivery.Enqueuer, catalog *i18n.Catalog, opts ...Option) *Notifier {
	return newNotifier(client, e, catalog, opts...)
}

func newNotifier(client throttleClient, e delivery.Enqueuer, catalog *i18n.Catalog, opts ...Option) *Notifier {
	n := &Notifier{
		client:   client,
		enqueuer: e,
		catalog:  catalog,
		interval: defaultInterval,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyCredentialProblem queues an alert to the account owner. Failures are
// logged; the delivery that triggered the alert goes on regardless.
func (n *Notifier) NotifyCredentialProblem(ctx context.Context, tc *tenant.Context, method transport.Method, cause error) {
	log := n.logger.With(
		slog.String("account_key", tc.Account.Key),
		slog.String("method", string(method)),
	)
	if cause != nil {
		log = log.With(slog.String("cause", cause.Error()))
	}

	if err := n.notify(ctx, tc, method); err != nil {
		log.ErrorContext(ctx, "credential alert not sent", slog.String("error", err.Error()))
	}
}

func (n *Notifier) notify(ctx context.Context, tc *tenant.Context, method transport.Method) error {
	if tc.Owner.Email == "" {
		return nil
	}

	first, err := n.client.SetNX(ctx, keyPrefix+tc.Account.Key, time.Now().Unix(), n.interval).Result()
	if err != nil {
		return errors.Join(ErrThrottle, err)
	}
	if !first {
		return nil
	}

	label, ok := methodLabels[method]
	if !ok {
		label = string(method)
	}
	body := n.catalog.T("", namespace, "credentials.body", i18n.M{"method": label})

	_, err = delivery.Enqueue(ctx, n.enqueuer, delivery.Request{
		TenantKey: tc.Company.Key,
		To:        tc.Owner.Email,
		ToName:    tc.Owner.Name(),
		Subject:   n.catalog.T("", namespace, "credentials.subject", nil),
		HTML:      "<p>" + html.EscapeString(body) + "</p>",
		Text:      body,
		Settings:  transport.Settings{Method: transport.MethodDefault},
		Override:  true,
	})
	if err != nil {
		return errors.Join(ErrSend, err)
	}
	n.logger.InfoContext(ctx, "credential alert queued", slog.String("account_key", tc.Account.Key))
	return nil
}
