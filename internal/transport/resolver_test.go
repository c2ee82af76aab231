package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/courier/internal/tenant"
	"github.com/dmitrymomot/courier/internal/transport"
	"github.com/dmitrymomot/courier/pkg/oauth"
)

type mockStore struct{ mock.Mock }

func (m *mockStore) User(ctx context.Context, id uuid.UUID) (*tenant.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*tenant.User)
	return u, args.Error(1)
}

func (m *mockStore) SaveUserToken(ctx context.Context, id uuid.UUID, tok *oauth2.Token) error {
	return m.Called(ctx, id, tok).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) AccessToken(ctx context.Context, g oauth.Grant, save oauth.SaveFunc) (string, error) {
	args := m.Called(ctx, g, save)
	return args.String(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyCredentialProblem(ctx context.Context, tc *tenant.Context, method transport.Method, cause error) {
	m.Called(ctx, tc, method, cause)
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
		Company: tenant.Company{ID: uuid.New(), AccountID: accountID, OwnerID: owner.ID, Key: "acme", Name: "Acme Ltd"},
		Account: tenant.Account{ID: accountID, Key: "acct"},
		Owner:   owner,
	}
}

const platformFrom = "mail@courier.example"

func TestResolver_Default(t *testing.T) {
	t.Parallel()
	r := transport.NewResolver(platformFrom)

	t.Run("company name when from name is short", func(t *testing.T) {
		t.Parallel()
		cfg := r.Resolve(context.Background(), newTenant(), nil, transport.Settings{Method: transport.MethodDefault, EmailFromName: "AB"})
		assert.Equal(t, transport.TransportSMTP, cfg.Transport)
		assert.Equal(t, transport.MethodDefault, cfg.Method)
		assert.Equal(t, platformFrom, cfg.FromAddress)
		assert.Equal(t, "Acme Ltd", cfg.FromName)
		assert.False(t, cfg.FellBack)
	})

	t.Run("configured from name", func(t *testing.T) {
		t.Parallel()
		cfg := r.Resolve(context.Background(), newTenant(), nil, transport.Settings{EmailFromName: "Acme Billing"})
		assert.Equal(t, "Acme Billing", cfg.FromName)
		assert.False(t, cfg.FellBack)
	})

	t.Run("unknown method falls back", func(t *testing.T) {
		t.Parallel()
		cfg := r.Resolve(context.Background(), newTenant(), nil, transport.Settings{Method: "carrier_pigeon"})
		assert.Equal(t, transport.MethodDefault, cfg.Method)
		assert.True(t, cfg.FellBack)
	})

	t.Run("names the configured platform backend", func(t *testing.T) {
		t.Parallel()
		resend := transport.NewResolver(platformFrom, transport.WithPlatformTransport(transport.TransportResend))

		cfg := resend.Resolve(context.Background(), newTenant(), nil, transport.Settings{})
		assert.Equal(t, transport.TransportResend, cfg.Transport)

		tc := newTenant()
		tc.Company.PostmarkSecret = "abc"
		cfg = resend.Resolve(context.Background(), tc, nil, transport.Settings{Method: transport.MethodClientPostmark})
		assert.Equal(t, transport.TransportResend, cfg.Transport)
		assert.True(t, cfg.FellBack)
	})
}

func TestResolver_Postmark(t *testing.T) {
	t.Parallel()
	r := transport.NewResolver(platformFrom)

	t.Run("short secret falls back to default", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		tc.Company.PostmarkSecret = "abc"

		cfg := r.Resolve(context.Background(), tc, nil, transport.Settings{Method: transport.MethodClientPostmark})
		assert.Equal(t, transport.TransportSMTP, cfg.Transport)
		assert.True(t, cfg.FellBack)
		assert.Empty(t, cfg.APIKey)
	})

	t.Run("custom sending email and name", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		tc.Company.PostmarkSecret = "pm-server-token"

		cfg := r.Resolve(context.Background(), tc, nil, transport.Settings{
			Method:             transport.MethodClientPostmark,
			CustomSendingEmail: "billing@acme.io",
			EmailFromName:      "Acme Billing",
		})
		assert.Equal(t, transport.TransportPostmark, cfg.Transport)
		assert.Equal(t, "pm-server-token", cfg.APIKey)
		assert.Equal(t, "billing@acme.io", cfg.FromAddress)
		assert.Equal(t, "Acme Billing", cfg.FromName)
		assert.False(t, cfg.FellBack)
	})

	t.Run("invalid custom email uses the sending user", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		tc.Company.PostmarkSecret = "pm-server-token"

		cfg := r.Resolve(context.Background(), tc, nil, transport.Settings{
			Method:             transport.MethodClientPostmark,
			CustomSendingEmail: "@acme.io",
		})
		assert.Equal(t, "owner@acme.io", cfg.FromAddress)
		assert.Equal(t, "Olive Owner", cfg.FromName)
	})
}

func TestResolver_Mailgun(t *testing.T) {
	t.Parallel()
	r := transport.NewResolver(platformFrom)

	t.Run("requires domain", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		tc.Company.MailgunSecret = "key-123456"

		cfg := r.Resolve(context.Background(), tc, nil, transport.Settings{Method: transport.MethodClientMailgun})
		assert.Equal(t, transport.MethodDefault, cfg.Method)
		assert.True(t, cfg.FellBack)
	})

	t.Run("key and domain", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		tc.Company.MailgunSecret = "key-123456"
		tc.Company.MailgunDomain = "mg.acme.io"
		tc.Company.MailgunEU = true

		cfg := r.Resolve(context.Background(), tc, nil, transport.Settings{Method: transport.MethodClientMailgun})
		assert.Equal(t, transport.TransportMailgun, cfg.Transport)
		assert.Equal(t, "key-123456", cfg.APIKey)
		assert.Equal(t, "mg.acme.io", cfg.Domain)
		assert.True(t, cfg.EU)
	})
}

func TestResolver_OAuth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner token", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		tc.Owner.RefreshToken = "rt"
		tokens := &mockTokens{}
		tokens.On("AccessToken", mock.Anything, mock.MatchedBy(func(g oauth.Grant) bool {
			return g.Provider == transport.ProviderMicrosoft && g.UserID == tc.Owner.ID.String() && g.RefreshToken == "rt"
		}), mock.Anything).Return("bearer-1", nil).Once()

		r := transport.NewResolver(platformFrom, transport.WithTokenSource(tokens))
		cfg := r.Resolve(ctx, tc, &mockStore{}, transport.Settings{Method: transport.MethodOffice365})

		assert.Equal(t, transport.TransportOffice365, cfg.Transport)
		assert.Equal(t, "bearer-1", cfg.Token)
		assert.Equal(t, "owner@acme.io", cfg.FromAddress)
		assert.False(t, cfg.FellBack)
		tokens.AssertExpectations(t)
	})

	t.Run("refreshed token is persisted for the sending user", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		sender := &tenant.User{ID: uuid.New(), AccountID: tc.Account.ID, Email: "sam@acme.io", FirstName: "Sam"}
		store := &mockStore{}
		store.On("User", mock.Anything, sender.ID).Return(sender, nil)
		store.On("SaveUserToken", mock.Anything, sender.ID, mock.Anything).Return(nil).Once()

		tokens := &mockTokens{}
		tokens.On("AccessToken", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				save := args.Get(2).(oauth.SaveFunc)
				require.NoError(t, save(args.Get(0).(context.Context), &oauth2.Token{AccessToken: "fresh"}))
			}).
			Return("fresh", nil)

		r := transport.NewResolver(platformFrom, transport.WithTokenSource(tokens))
		cfg := r.Resolve(ctx, tc, store, transport.Settings{Method: transport.MethodGmail, SendingUserID: sender.ID.String()})

		assert.Equal(t, transport.TransportGmail, cfg.Transport)
		assert.Equal(t, "sam@acme.io", cfg.FromAddress)
		assert.Equal(t, "Sam", cfg.FromName)
		store.AssertExpectations(t)
	})

	t.Run("cross tenant sending user falls back without notification", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		stranger := &tenant.User{ID: uuid.New(), AccountID: uuid.New(), Email: "eve@evil.io"}
		store := &mockStore{}
		store.On("User", mock.Anything, stranger.ID).Return(stranger, nil)
		notifier := &mockNotifier{}

		r := transport.NewResolver(platformFrom, transport.WithTokenSource(&mockTokens{}), transport.WithCredentialNotifier(notifier))
		cfg := r.Resolve(ctx, tc, store, transport.Settings{Method: transport.MethodGmail, SendingUserID: stranger.ID.String()})

		assert.Equal(t, transport.MethodDefault, cfg.Method)
		assert.True(t, cfg.FellBack)
		assert.Empty(t, cfg.Token)
		notifier.AssertNotCalled(t, "NotifyCredentialProblem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired token without refresh token notifies once and falls back", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		tokens := &mockTokens{}
		tokens.On("AccessToken", mock.Anything, mock.Anything, mock.Anything).Return("", oauth.ErrNoRefreshToken)
		notifier := &mockNotifier{}
		notifier.On("NotifyCredentialProblem", mock.Anything, tc, transport.MethodOffice365, mock.MatchedBy(func(err error) bool {
			return errors.Is(err, oauth.ErrNoRefreshToken) && errors.Is(err, transport.ErrTokenUnavailable)
		})).Once()

		r := transport.NewResolver(platformFrom, transport.WithTokenSource(tokens), transport.WithCredentialNotifier(notifier))
		cfg := r.Resolve(ctx, tc, &mockStore{}, transport.Settings{Method: transport.MethodOffice365})

		assert.Equal(t, transport.TransportSMTP, cfg.Transport)
		assert.True(t, cfg.FellBack)
		notifier.AssertNumberOfCalls(t, "NotifyCredentialProblem", 1)
	})

	t.Run("unknown sending user falls back", func(t *testing.T) {
		t.Parallel()
		tc := newTenant()
		id := uuid.New()
		store := &mockStore{}
		store.On("User", mock.Anything, id).Return(nil, tenant.ErrUserNotFound)

		r := transport.NewResolver(platformFrom, transport.WithTokenSource(&mockTokens{}))
		cfg := r.Resolve(ctx, tc, store, transport.Settings{Method: transport.MethodGmail, SendingUserID: id.String()})
		assert.True(t, cfg.FellBack)
	})
}

func TestConfig_Wipe(t *testing.T) {
	t.Parallel()
	cfg := &transport.Config{Transport: transport.TransportMailgun, APIKey: "k", Domain: "d", Token: "t", FromAddress: "a@b.c"}
	cfg.Wipe()

	assert.Empty(t, cfg.APIKey)
	assert.Empty(t, cfg.Domain)
	assert.Empty(t, cfg.Token)
	assert.Equal(t, "a@b.c", cfg.FromAddress)

	var nilCfg *transport.Config
	assert.NotPanics(t, nilCfg.Wipe)
}

func TestMethod_Uncapped(t *testing.T) {
	t.Parallel()
	assert.False(t, transport.MethodDefault.Uncapped())
	for _, m := range []transport.Method{transport.MethodGmail, transport.MethodOffice365, transport.MethodClientPostmark, transport.MethodClientMailgun} {
		assert.True(t, m.Uncapped(), m)
	}
}
