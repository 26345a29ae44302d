package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/oe/sunrain-sub001/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultSpotifyTokenURL is the accounts endpoint for the client-credentials grant.
const DefaultSpotifyTokenURL = "https://accounts.spotify.com/api/token"

// ClientCredentialsProvider exchanges an OAuth client ID and secret for app-only access tokens.
type ClientCredentialsProvider struct {
	*cachedProvider

	config     *clientcredentials.Config
	httpClient *http.Client
}

var _ TokenProvider = (*ClientCredentialsProvider)(nil)

// NewClientCredentialsProvider creates a provider for the given credentials.
// An empty tokenURL uses [DefaultSpotifyTokenURL]; a nil httpClient uses [http.DefaultClient].
func NewClientCredentialsProvider(clientID, clientSecret, tokenURL string, httpClient *http.Client) (*ClientCredentialsProvider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if tokenURL == "" {
		tokenURL = DefaultSpotifyTokenURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	p := &ClientCredentialsProvider{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
	}
	p.cachedProvider = newCachedProvider(p.exchange, time.Now)
	return p, nil
}

// NewClientCredentialsProviderFromConfig builds a provider from the spotify config section.
func NewClientCredentialsProviderFromConfig(cfg shared.SpotifyConfig, httpClient *http.Client) (*ClientCredentialsProvider, error) {
	return NewClientCredentialsProvider(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, httpClient)
}

func (p *ClientCredentialsProvider) exchange(ctx context.Context) (string, time.Time, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.config.Token(ctx)
	if err != nil {
		if shared.IsCanceled(err) {
			return "", time.Time{}, err
		}
		return "", time.Time{}, fmt.Errorf("%w: client credentials exchange: %v", shared.ErrAuthFailed, err)
	}
	return tok.AccessToken, tok.Expiry, nil
}

// Validate reports whether token is the cached, unexpired access token.
// App-only tokens are opaque, so no local verification beyond that is possible.
func (p *ClientCredentialsProvider) Validate(token string) bool {
	current, ok := p.current()
	return ok && token != "" && token == current
}
