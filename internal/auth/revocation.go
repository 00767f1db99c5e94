package auth

import (
	"context"
	"time"

	"branchops-backend/internal/cache"
)

const revokedTokenKeyPrefix = "revoked:token:"

// RevocationStore blacklists token IDs (jti) on sign-out until the token
// would have expired anyway, so a stolen token stops working immediately.
type RevocationStore struct {
	cache cache.Cache
}

func NewRevocationStore(c cache.Cache) *RevocationStore {
	return &RevocationStore{cache: c}
}

func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// already expired, nothing to revoke
		return nil
	}
	return s.cache.Set(ctx, revokedTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) bool {
	data, err := s.cache.Get(ctx, revokedTokenKeyPrefix+tokenID)
	if err != nil {
		// fail open: expiry still bounds the token's lifetime
		return false
	}
	return data != nil
}
