package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Revocations remembers logged-out token ids until the tokens would have expired.
type Revocations struct {
	ids *cache.Cache
}

func NewRevocations() *Revocations {
	return &Revocations{ids: cache.New(cache.NoExpiration, 10*time.Minute)}
}

// Revoke marks a token id as unusable until expiresAt.
func (r *Revocations) Revoke(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	r.ids.Set(tokenID, struct{}{}, ttl)
}

// Revoked reports whether the token id was revoked.
func (r *Revocations) Revoked(tokenID string) bool {
	_, found := r.ids.Get(tokenID)
	return found
}
