// Package oauth keeps OAuth access tokens of mailbox providers usable.
//
// Users connect a Gmail or Office 365 mailbox once; the stored grant carries
// an access token, its expiry and a refresh token. Before each send the
// Refresher checks the expiry and, when needed, exchanges the refresh token
// with the issuing Provider and persists the rotated token.
//
// # Usage
//
//	google, err := oauth.NewGoogleProvider(oauth.GoogleConfig{
//		ClientID:     cfg.Google.ClientID,
//		ClientSecret: cfg.Google.ClientSecret,
//	})
//	if err != nil {
//		return err
//	}
//	refresher := oauth.NewRefresher([]oauth.Provider{google})
//
//	token, err := refresher.AccessToken(ctx, grant, func(ctx context.Context, tok *oauth2.Token) error {
//		return store.SaveOAuthToken(ctx, grant.UserID, tok)
//	})
//	if errors.Is(err, oauth.ErrNoRefreshToken) {
//		// ask the user to reconnect the mailbox
//	}
//
// Concurrent refreshes for the same user are collapsed with singleflight,
// so a burst of jobs for one sender triggers a single token request.
package oauth
