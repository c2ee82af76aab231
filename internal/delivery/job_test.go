package delivery_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/courier/internal/audit"
	"github.com/dmitrymomot/courier/internal/delivery"
	"github.com/dmitrymomot/courier/internal/failure"
	"github.com/dmitrymomot/courier/internal/notify"
	"github.com/dmitrymomot/courier/internal/preflight"
	"github.com/dmitrymomot/courier/internal/tenant"
	"github.com/dmitrymomot/courier/internal/transport"
	"github.com/dmitrymomot/courier/pkg/job"
	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/storage"
)

const platformFrom = "mail@courier.example"

type fakeStore struct {
	tc      *tenant.Context
	loadErr error
}

func (s *fakeStore) LoadContext(context.Context, string) (*tenant.Context, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	tc := *s.tc
	return &tc, nil
}

func (s *fakeStore) User(context.Context, uuid.UUID) (*tenant.User, error) {
	return nil, tenant.ErrUserNotFound
}

func (s *fakeStore) SaveUserToken(context.Context, uuid.UUID, *oauth2.Token) error { return nil }

func (s *fakeStore) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

type fakeDirectory struct {
	store tenant.Store
	err   error
}

func (d *fakeDirectory) Open(context.Context, string) (tenant.Store, error) {
	return d.store, d.err
}

// recordingResolver keeps the configs it hands out so tests can check
// they were wiped.
type recordingResolver struct {
	*transport.Resolver
	mu      sync.Mutex
	configs []*transport.Config
}

func (r *recordingResolver) Resolve(ctx context.Context, tc *tenant.Context, store transport.UserStore, s transport.Settings) *transport.Config {
	cfg := r.Resolver.Resolve(ctx, tc, store, s)
	r.mu.Lock()
	r.configs = append(r.configs, cfg)
	r.mu.Unlock()
	return cfg
}

type fakeFactory struct {
	mu      sync.Mutex
	sendErr error
	emails  []*mailer.Email
	seen    []transport.Config
}

func (f *fakeFactory) Sender(cfg *transport.Config) (mailer.Sender, error) {
	f.mu.Lock()
	f.seen = append(f.seen, *cfg)
	f.mu.Unlock()
	return mailer.SenderFunc(func(_ context.Context, e *mailer.Email) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.emails = append(f.emails, e)
		return f.sendErr
	}), nil
}

type fakeQuota struct {
	count      int
	increments int
}

func (q *fakeQuota) Count(context.Context, string) (int, error) { return q.count, nil }

func (q *fakeQuota) Increment(context.Context, string) (int64, error) {
	q.increments++
	return int64(q.count + q.increments), nil
}

type fakeSink struct {
	successes []string
	failures  []string
}

func (s *fakeSink) RecordSuccess(_ context.Context, _, subject string) error {
	s.successes = append(s.successes, subject)
	return nil
}

func (s *fakeSink) RecordFailure(_ context.Context, _, message string) error {
	s.failures = append(s.failures, message)
	return nil
}

type fakeAudit struct{ entries []audit.Entry }

func (a *fakeAudit) RecordFailure(_ context.Context, _ audit.Execer, e audit.Entry) error {
	a.entries = append(a.entries, e)
	return nil
}

type fakeNotifier struct {
	refs     []notify.EntityRef
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ notify.Execer, ref notify.EntityRef, message string) error {
	n.refs = append(n.refs, ref)
	n.messages = append(n.messages, message)
	return nil
}

type fakeTracker struct{ errs []error }

func (t *fakeTracker) CaptureException(_ context.Context, err error, _ map[string]string) {
	t.errs = append(t.errs, err)
}

type enqueued struct {
	name    string
	payload any
	opts    int
}

type fakeEnqueuer struct {
	err  error
	jobs []enqueued
}

func (e *fakeEnqueuer) Enqueue(_ context.Context, name string, payload any, opts ...job.EnqueueOption) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, enqueued{name: name, payload: payload, opts: len(opts)})
	return nil
}

type fakeObjects map[string][]byte

func (o fakeObjects) Head(_ context.Context, key string) (*storage.Object, error) {
	data, ok := o[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.Object{Key: key, Size: int64(len(data))}, nil
}

func (o fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := o[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type harness struct {
	tc       *tenant.Context
	dir      *fakeDirectory
	resolver *recordingResolver
	factory  *fakeFactory
	quota    *fakeQuota
	sink     *fakeSink
	audit    *fakeAudit
	notifier *fakeNotifier
	tracker  *fakeTracker
	enqueuer *fakeEnqueuer
	sleeps   []time.Duration
}

func newTenant() *tenant.Context {
	accountID := uuid.New()
	owner := tenant.User{
		ID:        uuid.New(),
		AccountID: accountID,
		Email:     "owner@acme.io",
		FirstName: "Olive",
		LastName:  "Owner",
	}
	return &tenant.Context{
		Company: tenant.Company{
			ID:        uuid.New(),
			AccountID: accountID,
			OwnerID:   owner.ID,
			Key:       "acme",
			Name:      "Acme Ltd",
		},
		Account: tenant.Account{ID: accountID, Key: "acct", Verified: true},
		Owner:   owner,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tc := newTenant()
	return &harness{
		tc:       tc,
		dir:      &fakeDirectory{store: &fakeStore{tc: tc}},
		resolver: &recordingResolver{Resolver: transport.NewResolver(platformFrom)},
		factory:  &fakeFactory{},
		quota:    &fakeQuota{},
		sink:     &fakeSink{},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
		tracker:  &fakeTracker{},
		enqueuer: &fakeEnqueuer{},
	}
}

func (h *harness) job(t *testing.T, opts ...delivery.Option) *delivery.Job {
	t.Helper()
	messages, err := failure.NewMessages()
	require.NoError(t, err)

	base := []delivery.Option{
		delivery.WithExceptionTracker(h.tracker, true),
		// Always pick the top of the range.
		delivery.WithRandom(func(n int64) int64 { return n - 1 }),
		delivery.WithSleep(func(_ context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		}),
	}
	return delivery.NewJob(delivery.Deps{
		Directory: h.dir,
		Resolver:  h.resolver,
		Senders:   h.factory,
		Gate:      preflight.New(),
		Quota:     h.quota,
		Telemetry: h.sink,
		Audit:     h.audit,
		Notifier:  h.notifier,
		Messages:  messages,
		Enqueuer:  h.enqueuer,
	}, append(base, opts...)...)
}

func (h *harness) assertWiped(t *testing.T) {
	t.Helper()
	for _, cfg := range h.resolver.configs {
		assert.Empty(t, cfg.APIKey)
		assert.Empty(t, cfg.Domain)
		assert.Empty(t, cfg.Token)
	}
}

func newRequest() delivery.Request {
	return delivery.Request{
		MessageID:     "msg-1",
		TenantKey:     "acme",
		To:            "client@example.org",
		ToName:        "Carl Client",
		Subject:       "Invoice INV-42",
		HTML:          "<p>Your invoice</p>",
		Text:          "Your invoice",
		InvitationKey: "inv-key",
		RecipientID:   "client-7",
		Attempt:       1,
	}
}

func TestJob_Attempt_Sent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := h.job(t).Attempt(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusSent, out.Status)

	require.Len(t, h.factory.emails, 1)
	email := h.factory.emails[0]
	assert.Equal(t, platformFrom, email.From)
	assert.Equal(t, "Acme Ltd", email.FromName)
	assert.Equal(t, "client@example.org", email.To)
	assert.Equal(t, "acme", email.Tag)
	assert.Equal(t, "inv-key", email.Headers[mailer.HeaderInvitation])
	assert.Equal(t, "msg-1", email.Headers[mailer.HeaderMessageID])
	assert.Equal(t, "owner@acme.io", email.ReplyTo)
	assert.Equal(t, "Olive Owner", email.ReplyToName)

	assert.Equal(t, 1, h.quota.increments)
	assert.Equal(t, []string{"Invoice INV-42"}, h.sink.successes)
	assert.Empty(t, h.audit.entries)
	assert.Empty(t, h.enqueuer.jobs)
}

func TestJob_Attempt_ClientPostmark(t *testing.T) {
	t.Parallel()

	t.Run("credentials wiped after send", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.tc.Company.PostmarkSecret = "pm-server-token"
		req := newRequest()
		req.Settings.Method = transport.MethodClientPostmark

		out, err := h.job(t).Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusSent, out.Status)

		require.Len(t, h.factory.seen, 1)
		assert.Equal(t, transport.TransportPostmark, h.factory.seen[0].Transport)
		assert.Equal(t, "pm-server-token", h.factory.seen[0].APIKey)
		h.assertWiped(t)
	})

	t.Run("missing secret falls back to default with owner reply-to", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		req := newRequest()
		req.Settings.Method = transport.MethodClientPostmark

		out, err := h.job(t).Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusSent, out.Status)

		require.Len(t, h.factory.seen, 1)
		assert.Equal(t, transport.TransportSMTP, h.factory.seen[0].Transport)
		assert.True(t, h.factory.seen[0].FellBack)

		require.Len(t, h.factory.emails, 1)
		assert.Equal(t, platformFrom, h.factory.emails[0].From)
		assert.Equal(t, "owner@acme.io", h.factory.emails[0].ReplyTo)
	})
}

func TestJob_Attempt_ReplyTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings transport.Settings
		reqEmail string
		reqName  string
		wantAddr string
		wantName string
	}{
		{
			name:     "settings with name",
			settings: transport.Settings{ReplyToEmail: "billing@acme.io", ReplyToName: "Acme Billing"},
			wantAddr: "billing@acme.io",
			wantName: "Acme Billing",
		},
		{
			name:     "settings with short name uses address",
			settings: transport.Settings{ReplyToEmail: "billing@acme.io", ReplyToName: "AB"},
			wantAddr: "billing@acme.io",
			wantName: "billing@acme.io",
		},
		{
			name:     "request override",
			reqEmail: "sales@acme.io",
			reqName:  "Sales",
			wantAddr: "sales@acme.io",
			wantName: "Sales",
		},
		{
			name:     "owner",
			wantAddr: "owner@acme.io",
			wantName: "Olive Owner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			req := newRequest()
			req.Settings = tt.settings
			req.ReplyTo = tt.reqEmail
			req.ReplyToName = tt.reqName

			_, err := h.job(t).Attempt(context.Background(), req)
			require.NoError(t, err)
			require.Len(t, h.factory.emails, 1)
			assert.Equal(t, tt.wantAddr, h.factory.emails[0].ReplyTo)
			assert.Equal(t, tt.wantName, h.factory.emails[0].ReplyToName)
		})
	}
}

func TestJob_Attempt_Tenant(t *testing.T) {
	t.Parallel()

	t.Run("missing company drops", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.dir.err = tenant.ErrCompanyNotFound

		out, err := h.job(t).Attempt(context.Background(), newRequest())
		require.NoError(t, err)
		assert.Equal(t, delivery.Dropped(delivery.ReasonTenantMissing), out)
		assert.Empty(t, h.factory.emails)
	})

	t.Run("missing company in shard drops", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.dir.store = &fakeStore{loadErr: tenant.ErrCompanyNotFound}

		out, err := h.job(t).Attempt(context.Background(), newRequest())
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusDropped, out.Status)
	})

	t.Run("load failure is returned", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.dir.store = &fakeStore{loadErr: tenant.ErrLoadFailed}

		_, err := h.job(t).Attempt(context.Background(), newRequest())
		require.ErrorIs(t, err, delivery.ErrTenantUnavailable)
		assert.Empty(t, h.factory.emails)
	})
}

func TestJob_Attempt_Preflight(t *testing.T) {
	t.Parallel()

	t.Run("unverified account without @ in recipient", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.tc.Account.Verified = false
		req := newRequest()
		req.To = "client.example.org"

		out, err := h.job(t).Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, delivery.Dropped(delivery.ReasonPreflight), out)
		assert.Empty(t, h.factory.emails)
		assert.Empty(t, h.audit.entries)
		assert.Empty(t, h.sink.failures)
	})

	t.Run("quota counter feeds the gate", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.tc.Account.DailyQuota = 10
		h.quota.count = 10

		out, err := h.job(t).Attempt(context.Background(), newRequest())
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusDropped, out.Status)
		assert.Zero(t, h.quota.increments)
	})

	t.Run("override skips the gate", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		h.tc.Company.Disabled = true
		req := newRequest()
		req.Override = true

		out, err := h.job(t).Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusSent, out.Status)
	})
}

func TestJob_Attempt_Retry(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.factory.sendErr = errors.New("dial tcp: connection reset by peer")
	h.tc.Company.PostmarkSecret = "pm-server-token"
	req := newRequest()
	req.Settings.Method = transport.MethodClientPostmark

	out, err := h.job(t).Attempt(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusRetryScheduled, out.Status)
	assert.Equal(t, 10*time.Second, out.Delay)

	require.Len(t, h.enqueuer.jobs, 1)
	next := h.enqueuer.jobs[0]
	assert.Equal(t, delivery.TaskName, next.name)
	assert.Equal(t, 2, next.opts)
	payload, ok := next.payload.(delivery.Request)
	require.True(t, ok)
	assert.Equal(t, 2, payload.Attempt)
	assert.Equal(t, req.MessageID, payload.MessageID)

	assert.Equal(t, []time.Duration{3 * time.Second}, h.sleeps)
	assert.Empty(t, h.audit.entries)
	assert.Empty(t, h.notifier.refs)
	assert.Empty(t, h.tracker.errs)
	assert.Zero(t, h.quota.increments)
	h.assertWiped(t)
}

func TestJob_Attempt_RetryEnqueueFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.factory.sendErr = errors.New("timeout")
	h.enqueuer.err = errors.New("queue down")

	_, err := h.job(t).Attempt(context.Background(), newRequest())
	require.ErrorIs(t, err, delivery.ErrRetryEnqueue)
}

func TestJob_Attempt_Exhausted(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	sendErr := errors.New("451 temporary local problem")
	h.factory.sendErr = sendErr
	req := newRequest()
	req.Attempt = delivery.MaxAttempts
	req.Entity = &notify.EntityRef{Type: notify.TypeInvoice, ID: "inv-1", InvitationID: "invitation-1"}

	out, err := h.job(t).Attempt(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusPermanentFailure, out.Status)
	assert.Equal(t, sendErr.Error(), out.Reason)

	assert.Empty(t, h.enqueuer.jobs)
	require.Len(t, h.audit.entries, 1)
	entry := h.audit.entries[0]
	assert.Equal(t, h.tc.Company.ID, entry.CompanyID)
	assert.Equal(t, h.tc.Owner.ID, entry.UserID)
	assert.Equal(t, "client-7", entry.ClientID)
	assert.Equal(t, sendErr.Error(), entry.Message)

	require.Len(t, h.notifier.refs, 1)
	assert.Equal(t, *req.Entity, h.notifier.refs[0])
	assert.Equal(t, []string{sendErr.Error()}, h.sink.failures)
	assert.Equal(t, []error{sendErr}, h.tracker.errs)
}

func TestJob_Attempt_ExhaustedNotHosted(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.factory.sendErr = errors.New("timeout")
	req := newRequest()
	req.Attempt = delivery.MaxAttempts

	out, err := h.job(t, delivery.WithExceptionTracker(h.tracker, false)).Attempt(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusPermanentFailure, out.Status)
	assert.Empty(t, h.tracker.errs)
	assert.Empty(t, h.notifier.refs)
}

func TestJob_Attempt_PayloadTooLarge(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.factory.sendErr = &mailer.ProviderError{Provider: "postmark", Message: "request too large", Status: 413}
	req := newRequest()
	req.Entity = &notify.EntityRef{Type: notify.TypeQuote, ID: "q-1", InvitationID: "qi-1"}

	out, err := h.job(t).Attempt(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusPermanentFailure, out.Status)
	assert.Equal(t, "Either attachment too large, or recipient has been suppressed.", out.Reason)

	assert.Empty(t, h.enqueuer.jobs)
	require.Len(t, h.notifier.messages, 1)
	assert.Equal(t, out.Reason, h.notifier.messages[0])
	require.Len(t, h.audit.entries, 1)
	assert.Empty(t, h.tracker.errs)
	h.assertWiped(t)
}

func TestJob_Attempt_Suppressed(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.factory.sendErr = &mailer.ProviderError{Provider: "postmark", Message: "inactive recipient", Status: 422, Code: 406}

	out, err := h.job(t).Attempt(context.Background(), newRequest())
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusPermanentFailure, out.Status)
	assert.Contains(t, out.Reason, "client@example.org")
}

func TestJob_Attempt_Attachments(t *testing.T) {
	t.Parallel()
	objects := fakeObjects{
		"a/invoice.pdf": []byte("%PDF-1.7 invoice"),
		"a/big.bin":     bytes.Repeat([]byte("x"), 64),
	}

	t.Run("loaded", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		req := newRequest()
		req.Attachments = []delivery.Attachment{{Key: "a/invoice.pdf", Filename: "INV-42.pdf", ContentType: "application/pdf"}}

		out, err := h.job(t, delivery.WithAttachments(objects, 1024)).Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusSent, out.Status)
		require.Len(t, h.factory.emails, 1)
		require.Len(t, h.factory.emails[0].Attachments, 1)
		a := h.factory.emails[0].Attachments[0]
		assert.Equal(t, "INV-42.pdf", a.Filename)
		assert.Equal(t, "application/pdf", a.ContentType)
		assert.Equal(t, objects["a/invoice.pdf"], a.Content)
	})

	t.Run("over the cap fails permanently", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		req := newRequest()
		req.Attachments = []delivery.Attachment{{Key: "a/big.bin", Filename: "big.bin"}}

		out, err := h.job(t, delivery.WithAttachments(objects, 32)).Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusPermanentFailure, out.Status)
		assert.Empty(t, h.factory.emails)
		assert.Empty(t, h.enqueuer.jobs)
	})

	t.Run("storage not configured retries", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t)
		req := newRequest()
		req.Attachments = []delivery.Attachment{{Key: "a/invoice.pdf"}}

		out, err := h.job(t).Attempt(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusRetryScheduled, out.Status)
	})
}
