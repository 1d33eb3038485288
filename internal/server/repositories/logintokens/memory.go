package logintokens

import (
	"context"
	"sync"
	"time"

	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/server/models"
)

// MemoryStore is a concurrency-safe in-memory Store. The mutex is the
// serialization point making Redeem an atomic check-and-set. Suitable for
// single-process deployments and tests; expired entries are evicted lazily
// on access and opportunistically on Issue.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.LoginToken
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*models.LoginToken),
		now:    time.Now,
	}
}

func (s *MemoryStore) Issue(ctx context.Context, telegramID int64) (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(now)

	s.tokens[token] = &models.LoginToken{
		Token:      token,
		TelegramID: telegramID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(TokenTTL),
	}
	return token, nil
}

func (s *MemoryStore) Redeem(ctx context.Context, token string) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return 0, common.ErrTokenExpiredOrInvalid
	}

	if t.Consumed {
		// second chance for double-clicked links; hard expiry still wins
		if now.Sub(t.ConsumedAt) <= GraceWindow && !now.After(t.ExpiresAt) {
			return t.TelegramID, nil
		}
		delete(s.tokens, token)
		return 0, common.ErrTokenExpiredOrInvalid
	}

	if now.After(t.ExpiresAt) {
		delete(s.tokens, token)
		return 0, common.ErrTokenExpiredOrInvalid
	}

	t.Consumed = true
	t.ConsumedAt = now
	return t.TelegramID, nil
}

// evictLocked drops tokens that can never be redeemed again.
// Caller must hold s.mu.
func (s *MemoryStore) evictLocked(now time.Time) {
	for k, t := range s.tokens {
		if now.After(t.ExpiresAt) || (t.Consumed && now.Sub(t.ConsumedAt) > GraceWindow) {
			delete(s.tokens, k)
		}
	}
}
