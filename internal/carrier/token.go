package carrier

import (
	"context"
	"sync"
	"time"
)

// TokenSource fetches a fresh carrier auth token.
type TokenSource interface {
	FetchToken(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// TokenCache is a time-bounded cache around a TokenSource. It is injected
// into the client rather than held as process-wide state, so tests can
// substitute a fake source and expiry is explicit. The mutex is held across
// the refresh, so concurrent callers share a single fetch.
type TokenCache struct {
	source TokenSource
	skew   time.Duration
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenCache creates a token cache. skew is subtracted from the token's
// expiry so a token is refreshed slightly before the carrier rejects it.
func NewTokenCache(source TokenSource, skew time.Duration) *TokenCache {
	return &TokenCache{
		source: source,
		skew:   skew,
		now:    time.Now,
	}
}

// Token returns a valid token, refreshing it through the source when the
// cached one is missing or expired.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt.Add(-c.skew)) {
		return c.token, nil
	}

	token, expiresAt, err := c.source.FetchToken(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiresAt = expiresAt
	return token, nil
}

// Invalidate drops the cached token so the next call refreshes. Used after
// the carrier rejects a token early.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
