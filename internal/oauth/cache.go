// Package oauth provides a memoizing OAuth2 client-credentials token source
// shared by every check that authenticates with OAuth2.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// DefaultTTL is the token lifetime assumed when the provider reports none.
	DefaultTTL = time.Hour
	// DefaultMargin is subtracted from the lifetime before a token is reused.
	DefaultMargin = 5 * time.Minute
)

// ExchangeFunc performs one client-credentials token exchange.
type ExchangeFunc func(ctx context.Context, clientID, clientSecret, tokenURL string) (*oauth2.Token, error)

type cacheKey struct {
	clientID string
	tokenURL string
}

type entry struct {
	token     string
	fetchedAt time.Time
	lifetime  time.Duration
}

// Cache memoizes access tokens keyed by (client ID, token URL).
//
// The lock is never held during a token exchange. Concurrent callers that
// find the same entry stale may each refresh; the last write wins.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]entry

	ttl      time.Duration
	margin   time.Duration
	exchange ExchangeFunc
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.exchange = clientCredentialsExchange(client) }
}

// WithExchange replaces the token exchange.
func WithExchange(fn ExchangeFunc) Option {
	return func(c *Cache) { c.exchange = fn }
}

// WithTTL overrides the assumed lifetime and safety margin.
func WithTTL(ttl, margin time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
		c.margin = margin
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates an empty token cache.
func NewCache(logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[cacheKey]entry),
		ttl:      DefaultTTL,
		margin:   DefaultMargin,
		exchange: clientCredentialsExchange(&http.Client{Timeout: 30 * time.Second}),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a cached access token if it is still inside its lifetime
// minus the safety margin, otherwise exchanges client credentials for a new
// one and caches it.
func (c *Cache) Token(ctx context.Context, clientID, clientSecret, tokenURL string) (string, error) {
	key := cacheKey{clientID: clientID, tokenURL: tokenURL}

	c.mu.Lock()
	e, ok := c.entries[key]
	now := c.now()
	c.mu.Unlock()

	if ok && now.Sub(e.fetchedAt) < e.lifetime-c.margin {
		return e.token, nil
	}

	tok, err := c.exchange(ctx, clientID, clientSecret, tokenURL)
	if err != nil {
		return "", fmt.Errorf("token exchange with %s: %w", tokenURL, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", errors.New("token exchange returned an empty access token")
	}

	fetched := c.now()
	lifetime := c.lifetime(tok, fetched)

	c.mu.Lock()
	c.entries[key] = entry{token: tok.AccessToken, fetchedAt: fetched, lifetime: lifetime}
	c.mu.Unlock()

	c.logger.Debug("oauth2 token refreshed",
		zap.String("client_id", clientID),
		zap.String("token_url", tokenURL),
		zap.Duration("lifetime", lifetime),
	)
	return tok.AccessToken, nil
}

// Invalidate drops the cached token for one key.
func (c *Cache) Invalidate(clientID, tokenURL string) {
	c.mu.Lock()
	delete(c.entries, cacheKey{clientID: clientID, tokenURL: tokenURL})
	c.mu.Unlock()
}

// Len reports the number of cached tokens.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lifetime prefers the provider's expires_in, then a JWT exp claim, then
// the configured TTL.
func (c *Cache) lifetime(tok *oauth2.Token, fetched time.Time) time.Duration {
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(fetched)
	}
	if exp, ok := jwtExpiry(tok.AccessToken); ok {
		return exp.Sub(fetched)
	}
	return c.ttl
}

// jwtExpiry reads the exp claim without verifying the signature; the token
// is only inspected for scheduling, never trusted.
func jwtExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func clientCredentialsExchange(client *http.Client) ExchangeFunc {
	return func(ctx context.Context, clientID, clientSecret, tokenURL string) (*oauth2.Token, error) {
		cfg := clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		}
		return cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, client))
	}
}
