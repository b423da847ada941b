package auth

import (
	"time"

	"github.com/dmitrijs2005/herdsync/internal/common"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = time.Minute
)

type cachedToken struct {
	userID  string
	expires time.Time
}

// Verifier checks bearer tokens and remembers recently verified ones, so
// the sync loop of a busy client does not re-verify the signature on every
// request. A cached entry never outlives the token itself.
type Verifier struct {
	secret []byte
	cache  *lru.LRU[string, cachedToken]
	now    func() time.Time
}

func NewVerifier(secret []byte, size int, ttl time.Duration) *Verifier {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Verifier{
		secret: secret,
		cache:  lru.NewLRU[string, cachedToken](size, nil, ttl),
		now:    time.Now,
	}
}

// Verify returns the user id the token was issued for.
func (v *Verifier) Verify(token string) (string, error) {
	if token == "" {
		return "", common.ErrInvalidToken
	}
	if c, ok := v.cache.Get(token); ok {
		if v.now().Before(c.expires) {
			return c.userID, nil
		}
		v.cache.Remove(token)
		return "", common.ErrTokenExpired
	}

	claims, err := parse(token, v.secret)
	if err != nil {
		return "", err
	}
	c := cachedToken{userID: claims.UserID}
	if claims.ExpiresAt != nil {
		c.expires = claims.ExpiresAt.Time
	} else {
		c.expires = v.now().Add(DefaultCacheTTL)
	}
	v.cache.Add(token, c)
	return c.userID, nil
}

// Len reports how many tokens are cached.
func (v *Verifier) Len() int {
	return v.cache.Len()
}
