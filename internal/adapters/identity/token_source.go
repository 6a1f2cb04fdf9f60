// Package identity implements the core.TokenSource port against an OAuth2
// client-credentials identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Config holds configuration for the client-credentials token source.
// Either TokenURL or IssuerURL must be set; when only IssuerURL is given the
// token endpoint is resolved once via OIDC discovery.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	IssuerURL    string
	Scopes       []string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// TokenSource fetches and caches bearer tokens for upstream REST calls.
// Invalidate discards the cached token so the next Token call performs a
// fresh exchange; the upstream client calls it reactively after a 401.
type TokenSource struct {
	cfg        clientcredentials.Config
	httpClient *http.Client

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewTokenSource constructs a TokenSource, resolving the token endpoint via
// OIDC discovery when only an issuer URL is configured.
func NewTokenSource(ctx context.Context, cfg Config) (*TokenSource, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		if cfg.IssuerURL == "" {
			return nil, errors.New("token URL or issuer URL is required")
		}
		discoveryCtx := gooidc.ClientContext(ctx, httpClient)
		provider, err := gooidc.NewProvider(discoveryCtx, cfg.IssuerURL)
		if err != nil {
			return nil, fmt.Errorf("discover token endpoint from %s: %w", cfg.IssuerURL, err)
		}
		tokenURL = provider.Endpoint().TokenURL
	}

	return &TokenSource{
		cfg: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       cfg.Scopes,
		},
		httpClient: httpClient,
	}, nil
}

// Token returns a currently valid bearer token, exchanging credentials if
// none is cached or the cached one expired. The exchange uses the client
// bound at construction; ctx is accepted to satisfy the port but the
// underlying oauth2 source manages its own request lifetime.
func (ts *TokenSource) Token(_ context.Context) (string, error) {
	ts.mu.Lock()
	if ts.source == nil {
		exchangeCtx := context.WithValue(context.Background(), oauth2.HTTPClient, ts.httpClient)
		ts.source = ts.cfg.TokenSource(exchangeCtx)
	}
	source := ts.source
	ts.mu.Unlock()

	tok, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// Invalidate discards the cached token source so the next Token call
// performs a fresh client-credentials exchange.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	ts.source = nil
	ts.mu.Unlock()
}
