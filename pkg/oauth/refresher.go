package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Grant is a user's persisted OAuth authorisation.
type Grant struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// SaveFunc persists a refreshed token for the grant's user.
type SaveFunc func(ctx context.Context, tok *oauth2.Token) error

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithClock overrides the time source.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		r.now = now
	}
}

// WithLeeway treats tokens expiring within d as already expired.
func WithLeeway(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d >= 0 {
			r.leeway = d
		}
	}
}

// WithRefreshTimeout bounds a single provider refresh plus save. The refresh
// is shared by every waiting caller, so it does not follow any one caller's
// context.
func WithRefreshTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Refresher hands out valid access tokens, refreshing expired ones.
// Concurrent refreshes for the same user collapse into one provider call.
type Refresher struct {
	providers map[string]Provider
	group     singleflight.Group
	now       func() time.Time
	leeway    time.Duration
	timeout   time.Duration
}

// NewRefresher creates a Refresher for the given providers.
func NewRefresher(providers []Provider, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		providers: make(map[string]Provider, len(providers)),
		now:       time.Now,
		leeway:    time.Minute,
		timeout:   30 * time.Second,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AccessToken returns a usable access token for g. When the stored token is
// expired it is refreshed and the result handed to save before returning.
func (r *Refresher) AccessToken(ctx context.Context, g Grant, save SaveFunc) (string, error) {
	if g.AccessToken != "" && (g.Expiry.IsZero() || r.now().Add(r.leeway).Before(g.Expiry)) {
		return g.AccessToken, nil
	}
	if g.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	p, ok := r.providers[g.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, g.Provider)
	}

	ch := r.group.DoChan(g.Provider+":"+g.UserID, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		tok, err := p.Refresh(ctx, g.RefreshToken)
		if err != nil {
			return nil, err
		}
		if tok.RefreshToken == "" {
			tok.RefreshToken = g.RefreshToken
		}
		if save != nil {
			if err := save(ctx, tok); err != nil {
				return nil, errors.Join(ErrSaveFailed, err)
			}
		}
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(*oauth2.Token).AccessToken, nil
	}
}
