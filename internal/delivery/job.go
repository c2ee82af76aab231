package delivery

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/failure"
	"github.com/dmitrymomot/courier/internal/notify"
	"github.com/dmitrymomot/courier/internal/preflight"
	"github.com/dmitrymomot/courier/internal/telemetry"
	"github.com/dmitrymomot/courier/internal/tenant"
	"github.com/dmitrymomot/courier/internal/transport"
	"github.com/dmitrymomot/courier/pkg/job"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/storage"
)

// TaskName is the job queue task that runs delivery attempts.
const TaskName = "send_email"

type (
	Directory interface {
		Open(ctx context.Context, companyKey string) (tenant.Store, error)
	}
	Resolver interface {
		Resolve(ctx context.Context, tc *tenant.Context, store transport.UserStore, s transport.Settings) *transport.Config
	}
	SenderFactory interface {
		Sender(cfg *transport.Config) (mailer.Sender, error)
	}
	Gate interface {
		ShouldBlock(ctx context.Context, tc *tenant.Context, m preflight.Message) bool
	}
	Quota interface {
		Count(ctx context.Context, accountKey string) (int, error)
		Increment(ctx context.Context, accountKey string) (int64, error)
	}
	AuditLog interface {
		RecordFailure(ctx context.Context, db audit.Execer, e audit.Entry) error
	}
	EntityNotifier interface {
		Notify(ctx context.Context, db notify.Execer, ref notify.EntityRef, message string) error
	}
	MessageRenderer interface {
		Message(v failure.Verdict, locale, recipient string) string
	}
	ExceptionTracker interface {
		CaptureException(ctx context.Context, err error, tags map[string]string)
	}
	Enqueuer interface {
		Enqueue(ctx context.Context, name string, payload any, opts ...job.EnqueueOption) error
	}
)

// Deps are the collaborators every attempt needs.
type Deps struct {
	Directory Directory
	Resolver  Resolver
	Senders   SenderFactory
	Gate      Gate
	Quota     Quota
	Telemetry telemetry.Sink
	Audit     AuditLog
	Notifier  EntityNotifier
	Messages  MessageRenderer
	Enqueuer  Enqueuer
}

// Job performs delivery attempts.
type Job struct {
	Deps

	attachments    storage.Reader
	maxAttachments int64
	tracker        ExceptionTracker
	hosted         bool
	logger         *slog.Logger
	randN          func(n int64) int64
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option configures a Job.
type Option func(*Job)

// WithAttachments enables attachment loading with a total size cap.
func WithAttachments(r storage.Reader, maxBytes int64) Option {
	return func(j *Job) {
		j.attachments = r
		if maxBytes > 0 {
			j.maxAttachments = maxBytes
		}
	}
}

// WithExceptionTracker reports exhausted deliveries. Reports are only sent
// when hosted is true.
func WithExceptionTracker(t ExceptionTracker, hosted bool) Option {
	return func(j *Job) {
		j.tracker = t
		j.hosted = hosted
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(j *Job) {
		if l != nil {
			j.logger = l
		}
	}
}

// WithRandom replaces the random source used for backoff and jitter.
func WithRandom(randN func(n int64) int64) Option {
	return func(j *Job) {
		if randN != nil {
			j.randN = randN
		}
	}
}

// WithSleep replaces the jitter sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(j *Job) {
		if sleep != nil {
			j.sleep = sleep
		}
	}
}

// NewJob creates a delivery Job.
func NewJob(deps Deps, opts ...Option) *Job {
	j := &Job{
		Deps:           deps,
		maxAttachments: 10 << 20,
		logger:         slog.New(slog.DiscardHandler),
		randN:          rand.Int64N,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Attempt runs one delivery attempt. Send failures are handled here and
// reported through the Outcome; the returned error is reserved for
// infrastructure failures the queue should log.
func (j *Job) Attempt(ctx context.Context, req Request) (Outcome, error) {
	attempt := max(req.Attempt, 1)
	ctx = logger.WithTenantKey(ctx, req.TenantKey)
	ctx = logger.WithMessageID(ctx, req.MessageID)
	log := j.logger.With(slog.Int("attempt", attempt))

	store, tc, err := j.loadTenant(ctx, req.TenantKey)
	if errors.Is(err, tenant.ErrCompanyNotFound) {
		log.InfoContext(ctx, "tenant no longer exists, dropping message")
		return Dropped(ReasonTenantMissing), nil
	}
	if err != nil {
		return Outcome{}, errors.Join(ErrTenantUnavailable, err)
	}

	if n, err := j.Quota.Count(ctx, tc.Account.Key); err != nil {
		log.WarnContext(ctx, "quota counter unavailable", slog.String("error", err.Error()))
	} else {
		tc.Account.SentToday = n
	}

	cfg := j.Resolver.Resolve(ctx, tc, store, req.Settings)
	defer cfg.Wipe()
	if cfg.FellBack {
		req.Settings.Method = transport.MethodDefault
	}

	if j.Gate.ShouldBlock(ctx, tc, preflight.Message{
		To:       req.To,
		Subject:  req.Subject,
		HTML:     req.HTML,
		Text:     req.Text,
		Method:   cfg.Method,
		Override: req.Override,
	}) {
		return Dropped(ReasonPreflight), nil
	}

	if err := j.send(ctx, tc, cfg, req); err != nil {
		return j.failed(ctx, log, tc, store, cfg, req, attempt, err)
	}

	j.succeeded(ctx, log, tc, cfg, req)
	return Sent(), nil
}

func (j *Job) loadTenant(ctx context.Context, key string) (tenant.Store, *tenant.Context, error) {
	store, err := j.Directory.Open(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	tc, err := store.LoadContext(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return store, tc, nil
}

func (j *Job) send(ctx context.Context, tc *tenant.Context, cfg *transport.Config, req Request) error {
	replyTo, replyToName := replyTo(tc, req)
	email := &mailer.Email{
		From:        cfg.FromAddress,
		FromName:    cfg.FromName,
		To:          req.To,
		ToName:      req.ToName,
		ReplyTo:     replyTo,
		ReplyToName: replyToName,
		Subject:     req.Subject,
		HTML:        req.HTML,
		Text:        req.Text,
		Tag:         tc.Company.Key,
		Metadata:    map[string]string{"company_key": tc.Company.Key},
	}
	if req.MessageID != "" {
		email.SetHeader(mailer.HeaderMessageID, req.MessageID)
		email.Metadata["message_id"] = req.MessageID
	}
	if req.InvitationKey != "" {
		email.SetHeader(mailer.HeaderInvitation, req.InvitationKey)
	}
	if req.Tag != "" {
		email.Metadata["tag"] = req.Tag
	}

	attachments, err := j.loadAttachments(ctx, req.Attachments)
	if err != nil {
		return err
	}
	email.Attachments = attachments

	sender, err := j.Senders.Sender(cfg)
	if err != nil {
		return err
	}
	return sender.Send(ctx, email)
}

// replyTo prefers the tenant's reply-to setting, then the request override,
// then the account owner.
func replyTo(tc *tenant.Context, req Request) (string, string) {
	s := req.Settings
	if len(s.ReplyToEmail) > 1 {
		if len(s.ReplyToName) > 3 {
			return s.ReplyToEmail, s.ReplyToName
		}
		return s.ReplyToEmail, s.ReplyToEmail
	}
	if req.ReplyTo != "" {
		return req.ReplyTo, req.ReplyToName
	}
	return tc.Owner.Email, tc.Owner.Name()
}

func (j *Job) succeeded(ctx context.Context, log *slog.Logger, tc *tenant.Context, cfg *transport.Config, req Request) {
	if _, err := j.Quota.Increment(ctx, tc.Account.Key); err != nil {
		log.WarnContext(ctx, "quota increment failed", slog.String("error", err.Error()))
	}
	if err := j.Telemetry.RecordSuccess(ctx, tc.Company.Key, req.Subject); err != nil {
		log.WarnContext(ctx, "success event not recorded", slog.String("error", err.Error()))
	}
	log.InfoContext(ctx, "email sent", slog.String("transport", cfg.Transport))
}

func (j *Job) failed(ctx context.Context, log *slog.Logger, tc *tenant.Context, store tenant.Store, cfg *transport.Config, req Request, attempt int, sendErr error) (Outcome, error) {
	v := failure.Classify(sendErr, attempt, MaxAttempts)
	log = log.With(
		slog.String("transport", cfg.Transport),
		slog.String("class", v.Class.String()),
		slog.String("error", sendErr.Error()),
	)

	if v.Class == failure.Recoverable {
		return j.retry(ctx, log, req, attempt)
	}

	message := j.Messages.Message(v, req.Settings.Locale, req.To)
	log.WarnContext(ctx, "email delivery failed permanently")

	if err := j.Audit.RecordFailure(ctx, store, audit.Entry{
		CompanyID: tc.Company.ID,
		UserID:    tc.Owner.ID,
		ClientID:  req.RecipientID,
		Message:   message,
		Context: map[string]any{
			"to":        req.To,
			"subject":   req.Subject,
			"attempt":   attempt,
			"transport": cfg.Transport,
		},
	}); err != nil {
		log.ErrorContext(ctx, "audit log write failed", slog.String("audit_error", err.Error()))
	}

	if err := j.Telemetry.RecordFailure(ctx, tc.Company.Key, message); err != nil {
		log.WarnContext(ctx, "failure event not recorded", slog.String("telemetry_error", err.Error()))
	}

	if req.Entity != nil {
		if err := j.Notifier.Notify(ctx, store, *req.Entity, message); err != nil {
			log.ErrorContext(ctx, "entity notification failed",
				slog.String("entity_type", req.Entity.Type),
				slog.String("notify_error", err.Error()),
			)
		}
	}

	if v.Class == failure.RecoverableExhausted && j.hosted && j.tracker != nil && !v.ClientSide {
		j.tracker.CaptureException(ctx, sendErr, map[string]string{
			"transport": cfg.Transport,
			"attempt":   strconv.Itoa(attempt),
		})
	}

	return PermanentFailure(message), nil
}

func (j *Job) retry(ctx context.Context, log *slog.Logger, req Request, attempt int) (Outcome, error) {
	delay := Backoff(attempt, j.randN)
	if err := j.sleep(ctx, jitter(j.randN)); err != nil {
		return Outcome{}, errors.Join(ErrRetryEnqueue, err)
	}

	next := req
	next.Attempt = attempt + 1
	if err := j.Enqueuer.Enqueue(ctx, TaskName, next,
		job.ScheduledIn(delay),
		job.MaxAttempts(1),
	); err != nil {
		return Outcome{}, errors.Join(ErrRetryEnqueue, err)
	}

	log.InfoContext(ctx, "email delivery failed, retry scheduled",
		slog.Duration("delay", delay),
		slog.Int("next_attempt", next.Attempt),
	)
	return RetryScheduled(delay), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
