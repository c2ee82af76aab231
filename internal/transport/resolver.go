package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/courier/internal/tenant"
	"github.com/dmitrymomot/courier/pkg/oauth"
)

// UserStore is the part of tenant.Store the resolver reads and writes.
type UserStore interface {
	User(ctx context.Context, id uuid.UUID) (*tenant.User, error)
	SaveUserToken(ctx context.Context, userID uuid.UUID, tok *oauth2.Token) error
}

// TokenSource hands out valid OAuth access tokens. oauth.Refresher implements it.
type TokenSource interface {
	AccessToken(ctx context.Context, g oauth.Grant, save oauth.SaveFunc) (string, error)
}

// CredentialNotifier tells an account its mail credentials stopped working.
type CredentialNotifier interface {
	NotifyCredentialProblem(ctx context.Context, tc *tenant.Context, method Method, cause error)
}

// OAuth provider names used by pkg/oauth.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
)

// Resolver turns a tenant's settings into a ready-to-use Config.
type Resolver struct {
	platformFrom      string
	platformTransport string
	tokens       TokenSource
	notifier     CredentialNotifier
	logger       *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTokenSource enables the OAuth methods.
func WithTokenSource(ts TokenSource) ResolverOption {
	return func(r *Resolver) {
		r.tokens = ts
	}
}

// WithCredentialNotifier sets who hears about broken OAuth grants.
func WithCredentialNotifier(n CredentialNotifier) ResolverOption {
	return func(r *Resolver) {
		r.notifier = n
	}
}

// WithPlatformTransport names the backend behind the default method.
// Defaults to smtp.
func WithPlatformTransport(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.platformTransport = name
		}
	}
}

// WithLogger sets the logger fallbacks are reported to.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver. platformFrom is the from address used by
// the default transport.
func NewResolver(platformFrom string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		platformFrom:      platformFrom,
		platformTransport: TransportSMTP,
		logger:            slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve never fails. When the configured method cannot be used it logs a
// warning and resolves the default method, which always succeeds, so at
// most one fallback happens.
func (r *Resolver) Resolve(ctx context.Context, tc *tenant.Context, store UserStore, s Settings) *Config {
	method := s.Method
	if method == "" {
		method = MethodDefault
	}

	if method != MethodDefault {
		cfg, err := r.resolve(ctx, tc, store, s, method)
		if err == nil {
			return cfg
		}
		r.logger.WarnContext(ctx, "sending method unavailable, falling back to default",
			slog.String("method", string(method)),
			slog.String("error", err.Error()),
		)
	}

	cfg := r.resolveDefault(tc, s)
	cfg.FellBack = method != MethodDefault
	return cfg
}

func (r *Resolver) resolve(ctx context.Context, tc *tenant.Context, store UserStore, s Settings, method Method) (*Config, error) {
	switch method {
	case MethodGmail:
		return r.resolveOAuth(ctx, tc, store, s, method, TransportGmail, ProviderGoogle)
	case MethodOffice365:
		return r.resolveOAuth(ctx, tc, store, s, method, TransportOffice365, ProviderMicrosoft)
	case MethodClientPostmark:
		return r.resolvePostmark(ctx, tc, store, s)
	case MethodClientMailgun:
		return r.resolveMailgun(ctx, tc, store, s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

func (r *Resolver) resolveDefault(tc *tenant.Context, s Settings) *Config {
	name := tc.Company.Name
	if len(s.EmailFromName) > 2 {
		name = s.EmailFromName
	}
	return &Config{
		Transport:   r.platformTransport,
		Method:      MethodDefault,
		FromAddress: r.platformFrom,
		FromName:    name,
	}
}

func (r *Resolver) resolveOAuth(ctx context.Context, tc *tenant.Context, store UserStore, s Settings, method Method, transport, provider string) (*Config, error) {
	user, err := r.sendingUser(ctx, tc, store, s)
	if err != nil {
		return nil, err
	}
	if r.tokens == nil {
		return nil, errors.Join(ErrTokenUnavailable, oauth.ErrUnknownProvider)
	}

	token, err := r.tokens.AccessToken(ctx, oauth.Grant{
		UserID:       user.ID.String(),
		Provider:     provider,
		AccessToken:  user.AccessToken,
		RefreshToken: user.RefreshToken,
		Expiry:       user.TokenExpiry,
	}, func(ctx context.Context, tok *oauth2.Token) error {
		return store.SaveUserToken(ctx, user.ID, tok)
	})
	if err != nil || token == "" {
		err = errors.Join(ErrTokenUnavailable, err)
		if r.notifier != nil {
			r.notifier.NotifyCredentialProblem(ctx, tc, method, err)
		}
		return nil, err
	}

	return &Config{
		Transport:   transport,
		Method:      method,
		FromAddress: user.Email,
		FromName:    user.Name(),
		Token:       token,
	}, nil
}

func (r *Resolver) resolvePostmark(ctx context.Context, tc *tenant.Context, store UserStore, s Settings) (*Config, error) {
	if len(tc.Company.PostmarkSecret) <= 3 {
		return nil, fmt.Errorf("%w: postmark server token", ErrCredentialsMissing)
	}
	cfg, err := r.customFrom(ctx, tc, store, s)
	if err != nil {
		return nil, err
	}
	cfg.Transport = TransportPostmark
	cfg.Method = MethodClientPostmark
	cfg.APIKey = tc.Company.PostmarkSecret
	return cfg, nil
}

func (r *Resolver) resolveMailgun(ctx context.Context, tc *tenant.Context, store UserStore, s Settings) (*Config, error) {
	if len(tc.Company.MailgunSecret) <= 3 || len(tc.Company.MailgunDomain) <= 3 {
		return nil, fmt.Errorf("%w: mailgun key and domain", ErrCredentialsMissing)
	}
	cfg, err := r.customFrom(ctx, tc, store, s)
	if err != nil {
		return nil, err
	}
	cfg.Transport = TransportMailgun
	cfg.Method = MethodClientMailgun
	cfg.APIKey = tc.Company.MailgunSecret
	cfg.Domain = tc.Company.MailgunDomain
	cfg.EU = tc.Company.MailgunEU
	return cfg, nil
}

// customFrom picks the from address for tenant-credential transports.
func (r *Resolver) customFrom(ctx context.Context, tc *tenant.Context, store UserStore, s Settings) (*Config, error) {
	user, err := r.sendingUser(ctx, tc, store, s)
	if err != nil {
		return nil, err
	}

	cfg := &Config{FromAddress: user.Email, FromName: user.Name()}
	if strings.Index(s.CustomSendingEmail, "@") > 0 {
		cfg.FromAddress = s.CustomSendingEmail
	}
	if len(s.EmailFromName) > 2 {
		cfg.FromName = s.EmailFromName
	}
	return cfg, nil
}

// sendingUser returns the configured sending user, or the owner. The user
// must belong to the company's account.
func (r *Resolver) sendingUser(ctx context.Context, tc *tenant.Context, store UserStore, s Settings) (*tenant.User, error) {
	user := &tc.Owner
	if s.SendingUserID != "" {
		id, err := uuid.Parse(s.SendingUserID)
		if err != nil {
			return nil, errors.Join(ErrSendingUser, err)
		}
		if id != tc.Owner.ID {
			if user, err = store.User(ctx, id); err != nil {
				return nil, errors.Join(ErrSendingUser, err)
			}
		}
	}
	if user.AccountID != tc.Account.ID {
		return nil, ErrCrossTenantSender
	}
	return user, nil
}
