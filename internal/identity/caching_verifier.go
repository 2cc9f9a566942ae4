package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// CachingVerifier memoizes successful lookups of the wrapped verifier, keyed
// by role, email and a digest of the forwarded token. A different token always
// reaches the identity service. Failures are never cached.
type CachingVerifier struct {
	next  Verifier
	cache *ttlcache.Cache[string, int64]
}

// NewCachingVerifier wraps next with a cache whose entries live for ttl.
func NewCachingVerifier(next Verifier, ttl time.Duration) *CachingVerifier {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, int64](ttl),
		ttlcache.WithDisableTouchOnHit[string, int64](),
	)
	go cache.Start()
	return &CachingVerifier{next: next, cache: cache}
}

func (c *CachingVerifier) VerifyClient(ctx context.Context, email, token string) (int64, error) {
	return c.resolve(ctx, RoleClient, email, token, c.next.VerifyClient)
}

func (c *CachingVerifier) VerifyAgent(ctx context.Context, email, token string) (int64, error) {
	return c.resolve(ctx, RoleAgent, email, token, c.next.VerifyAgent)
}

func (c *CachingVerifier) resolve(ctx context.Context, role Role, email, token string,
	fetch func(context.Context, string, string) (int64, error)) (int64, error) {
	key := cacheKey(role, email, token)
	if item := c.cache.Get(key); item != nil {
		return item.Value(), nil
	}
	id, err := fetch(ctx, email, token)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, id, ttlcache.DefaultTTL)
	return id, nil
}

// Stop halts the expiration loop.
func (c *CachingVerifier) Stop() {
	c.cache.Stop()
}

func cacheKey(role Role, email, token string) string {
	digest := sha256.Sum256([]byte(token))
	return string(role) + ":" + email + ":" + hex.EncodeToString(digest[:])
}
