package oauth_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/courier/pkg/oauth"
)

func newRefresher(t *testing.T, tokenURL string, now time.Time) *oauth.Refresher {
	t.Helper()

	p, err := oauth.NewGoogleProvider(
		oauth.GoogleConfig{ClientID: "id", ClientSecret: "secret"},
		oauth.WithEndpoint(oauth2.Endpoint{TokenURL: tokenURL}),
	)
	require.NoError(t, err)

	return oauth.NewRefresher([]oauth.Provider{p}, oauth.WithClock(func() time.Time { return now }))
}

func TestRefresher_AccessToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid token is returned as is", func(t *testing.T) {
		t.Parallel()
		ts, calls := tokenServer(t, http.StatusOK, `{}`)
		r := newRefresher(t, ts.URL, now)

		tok, err := r.AccessToken(context.Background(), oauth.Grant{
			UserID:       "u1",
			Provider:     oauth.GoogleProviderName,
			AccessToken:  "still-good",
			RefreshToken: "refresh",
			Expiry:       now.Add(time.Hour),
		}, nil)
		require.NoError(t, err)
		require.Equal(t, "still-good", tok)
		require.Zero(t, calls.Load())
	})

	t.Run("expired token is refreshed and saved", func(t *testing.T) {
		t.Parallel()
		ts, calls := tokenServer(t, http.StatusOK,
			`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
		r := newRefresher(t, ts.URL, now)

		var saved *oauth2.Token
		tok, err := r.AccessToken(context.Background(), oauth.Grant{
			UserID:       "u1",
			Provider:     oauth.GoogleProviderName,
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       now.Add(-time.Minute),
		}, func(_ context.Context, t *oauth2.Token) error {
			saved = t
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, "fresh", tok)
		require.EqualValues(t, 1, calls.Load())
		require.NotNil(t, saved)
		require.Equal(t, "refresh", saved.RefreshToken)
	})

	t.Run("token inside leeway is refreshed", func(t *testing.T) {
		t.Parallel()
		ts, calls := tokenServer(t, http.StatusOK,
			`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
		r := newRefresher(t, ts.URL, now)

		_, err := r.AccessToken(context.Background(), oauth.Grant{
			UserID:       "u1",
			Provider:     oauth.GoogleProviderName,
			AccessToken:  "about-to-expire",
			RefreshToken: "refresh",
			Expiry:       now.Add(10 * time.Second),
		}, nil)
		require.NoError(t, err)
		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("no refresh token", func(t *testing.T) {
		t.Parallel()
		r := oauth.NewRefresher(nil, oauth.WithClock(func() time.Time { return now }))

		_, err := r.AccessToken(context.Background(), oauth.Grant{
			UserID:      "u1",
			Provider:    oauth.GoogleProviderName,
			AccessToken: "stale",
			Expiry:      now.Add(-time.Hour),
		}, nil)
		require.ErrorIs(t, err, oauth.ErrNoRefreshToken)
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		r := oauth.NewRefresher(nil)

		_, err := r.AccessToken(context.Background(), oauth.Grant{
			UserID:       "u1",
			Provider:     "yahoo",
			RefreshToken: "refresh",
		}, nil)
		require.ErrorIs(t, err, oauth.ErrUnknownProvider)
	})

	t.Run("save failure", func(t *testing.T) {
		t.Parallel()
		ts, _ := tokenServer(t, http.StatusOK,
			`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)
		r := newRefresher(t, ts.URL, now)

		_, err := r.AccessToken(context.Background(), oauth.Grant{
			UserID:       "u1",
			Provider:     oauth.GoogleProviderName,
			RefreshToken: "refresh",
		}, func(context.Context, *oauth2.Token) error {
			return errors.New("db down")
		})
		require.ErrorIs(t, err, oauth.ErrSaveFailed)
	})
}

// blockingProvider holds every refresh until release is closed.
type blockingProvider struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (p *blockingProvider) Name() string { return oauth.GoogleProviderName }

func (p *blockingProvider) Refresh(ctx context.Context, _ string) (*oauth2.Token, error) {
	p.calls.Add(1)
	select {
	case p.started <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		return &oauth2.Token{AccessToken: "fresh", TokenType: "Bearer"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestRefresher_ConcurrentRefresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	grant := oauth.Grant{
		UserID:       "u1",
		Provider:     oauth.GoogleProviderName,
		AccessToken:  "stale",
		RefreshToken: "refresh",
		Expiry:       now.Add(-time.Minute),
	}

	t.Run("callers share one refresh and one save", func(t *testing.T) {
		t.Parallel()

		p := newBlockingProvider()
		r := oauth.NewRefresher([]oauth.Provider{p}, oauth.WithClock(func() time.Time { return now }))

		var saves atomic.Int32
		save := func(context.Context, *oauth2.Token) error {
			saves.Add(1)
			return nil
		}

		type result struct {
			tok string
			err error
		}
		first := make(chan result, 1)
		second := make(chan result, 1)

		go func() {
			tok, err := r.AccessToken(context.Background(), grant, save)
			first <- result{tok, err}
		}()
		<-p.started
		go func() {
			tok, err := r.AccessToken(context.Background(), grant, save)
			second <- result{tok, err}
		}()
		time.Sleep(20 * time.Millisecond)
		close(p.release)

		for _, ch := range []chan result{first, second} {
			res := <-ch
			require.NoError(t, res.err)
			require.Equal(t, "fresh", res.tok)
		}
		require.EqualValues(t, 1, p.calls.Load())
		require.EqualValues(t, 1, saves.Load())
	})

	t.Run("cancelled caller does not fail the others", func(t *testing.T) {
		t.Parallel()

		p := newBlockingProvider()
		r := oauth.NewRefresher([]oauth.Provider{p}, oauth.WithClock(func() time.Time { return now }))

		var saved atomic.Pointer[oauth2.Token]
		save := func(ctx context.Context, tok *oauth2.Token) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			saved.Store(tok)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := r.AccessToken(ctx, grant, save)
			firstErr <- err
		}()
		<-p.started

		type result struct {
			tok string
			err error
		}
		second := make(chan result, 1)
		go func() {
			tok, err := r.AccessToken(context.Background(), grant, save)
			second <- result{tok, err}
		}()
		time.Sleep(20 * time.Millisecond)

		cancel()
		require.ErrorIs(t, <-firstErr, context.Canceled)

		close(p.release)
		res := <-second
		require.NoError(t, res.err)
		require.Equal(t, "fresh", res.tok)
		require.EqualValues(t, 1, p.calls.Load())
		require.NotNil(t, saved.Load())
		require.Equal(t, "refresh", saved.Load().RefreshToken)
	})
}

func TestRefresher_Leeway(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts, calls := tokenServer(t, http.StatusOK,
		`{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`)

	p, err := oauth.NewGoogleProvider(
		oauth.GoogleConfig{ClientID: "id", ClientSecret: "secret"},
		oauth.WithEndpoint(oauth2.Endpoint{TokenURL: ts.URL}),
	)
	require.NoError(t, err)

	grant := oauth.Grant{
		UserID:       "u1",
		Provider:     oauth.GoogleProviderName,
		AccessToken:  "current",
		RefreshToken: "refresh",
		Expiry:       now.Add(3 * time.Minute),
	}

	relaxed := oauth.NewRefresher([]oauth.Provider{p}, oauth.WithClock(func() time.Time { return now }))
	tok, err := relaxed.AccessToken(context.Background(), grant, nil)
	require.NoError(t, err)
	require.Equal(t, "current", tok)
	require.Zero(t, calls.Load())

	strict := oauth.NewRefresher([]oauth.Provider{p},
		oauth.WithClock(func() time.Time { return now }),
		oauth.WithLeeway(5*time.Minute),
	)
	tok, err = strict.AccessToken(context.Background(), grant, nil)
	require.NoError(t, err)
	require.Equal(t, "fresh", tok)
	require.EqualValues(t, 1, calls.Load())
}

func TestRefresher_RefreshTimeout(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := newBlockingProvider()
	r := oauth.NewRefresher([]oauth.Provider{p},
		oauth.WithClock(func() time.Time { return now }),
		oauth.WithRefreshTimeout(20*time.Millisecond),
	)

	_, err := r.AccessToken(context.Background(), oauth.Grant{
		UserID:       "u1",
		Provider:     oauth.GoogleProviderName,
		RefreshToken: "refresh",
	}, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
