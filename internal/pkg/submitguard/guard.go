// Package submitguard issues one-time form tokens so that a form submitted
// twice performs its action once.
package submitguard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// Guard issues and consumes one-time tokens.
type Guard interface {
	// Issue returns a fresh token valid for the guard's TTL.
	Issue(ctx context.Context) (string, error)
	// Consume reports whether token was live; it can succeed only once.
	Consume(ctx context.Context, token string) (bool, error)
}

// MemoryGuard keeps tokens in process memory. At most limit tokens are
// live; issuing past the limit drops the oldest one.
type MemoryGuard struct {
	mu     sync.Mutex
	ttl    time.Duration
	limit  int
	tokens map[string]time.Time
	now    func() time.Time
}

// NewMemoryGuard creates a MemoryGuard whose tokens expire after ttl.
// A limit of zero or less means no limit.
func NewMemoryGuard(ttl time.Duration, limit int) *MemoryGuard {
	return &MemoryGuard{
		ttl:    ttl,
		limit:  limit,
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (g *MemoryGuard) Issue(ctx context.Context) (string, error) {
	token := uuid.New().String()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.purgeLocked()
	if g.limit > 0 && len(g.tokens) >= g.limit {
		g.evictOldestLocked()
	}
	g.tokens[token] = g.now().Add(g.ttl)
	return token, nil
}

func (g *MemoryGuard) Consume(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	expires, ok := g.tokens[token]
	if !ok {
		return false, nil
	}
	delete(g.tokens, token)
	return g.now().Before(expires), nil
}

// Len returns the number of live tokens.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.purgeLocked()
	return len(g.tokens)
}

func (g *MemoryGuard) purgeLocked() {
	now := g.now()
	for token, expires := range g.tokens {
		if !now.Before(expires) {
			delete(g.tokens, token)
		}
	}
}

// evictOldestLocked drops the token closest to expiry.
func (g *MemoryGuard) evictOldestLocked() {
	var oldest string
	var oldestExp time.Time
	for token, expires := range g.tokens {
		if oldest == "" || expires.Before(oldestExp) {
			oldest, oldestExp = token, expires
		}
	}
	if oldest != "" {
		delete(g.tokens, oldest)
		logger.Warn().Int("limit", g.limit).Msg("Form token limit reached, dropped the oldest token")
	}
}
