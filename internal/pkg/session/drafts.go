package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/commandinlaw/academy/internal/app/models"
	"github.com/commandinlaw/academy/internal/pkg/logger"
)

// DraftStore keeps unsaved course edits on the server. Keys combine the
// session's draft id and the course id; each entry expires on its own.
type DraftStore interface {
	Get(ctx context.Context, key string) (models.CourseDraft, bool, error)
	Set(ctx context.Context, key string, d models.CourseDraft) error
	Delete(ctx context.Context, key string) error
}

type memoryDraft struct {
	draft   models.CourseDraft
	expires time.Time
}

// MemoryDraftStore keeps drafts in process memory. At most limit drafts are
// kept; storing past the limit drops the one closest to expiry.
type MemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	limit  int
	drafts map[string]memoryDraft
	now    func() time.Time
}

// NewMemoryDraftStore creates a MemoryDraftStore. A limit of zero or less
// means no limit.
func NewMemoryDraftStore(ttl time.Duration, limit int) *MemoryDraftStore {
	return &MemoryDraftStore{
		ttl:    ttl,
		limit:  limit,
		drafts: make(map[string]memoryDraft),
		now:    time.Now,
	}
}

func (s *MemoryDraftStore) Get(ctx context.Context, key string) (models.CourseDraft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.drafts[key]
	if !ok {
		return models.CourseDraft{}, false, nil
	}
	if !s.now().Before(e.expires) {
		delete(s.drafts, key)
		return models.CourseDraft{}, false, nil
	}
	return cloneDraft(e.draft), true, nil
}

func (s *MemoryDraftStore) Set(ctx context.Context, key string, d models.CourseDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	if _, exists := s.drafts[key]; !exists && s.limit > 0 && len(s.drafts) >= s.limit {
		s.evictOldestLocked()
	}
	s.drafts[key] = memoryDraft{draft: cloneDraft(d), expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryDraftStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}

// Len returns the number of live drafts.
func (s *MemoryDraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	return len(s.drafts)
}

func (s *MemoryDraftStore) purgeLocked() {
	now := s.now()
	for key, e := range s.drafts {
		if !now.Before(e.expires) {
			delete(s.drafts, key)
		}
	}
}

func (s *MemoryDraftStore) evictOldestLocked() {
	var oldest string
	var oldestExp time.Time
	for key, e := range s.drafts {
		if oldest == "" || e.expires.Before(oldestExp) {
			oldest, oldestExp = key, e.expires
		}
	}
	if oldest != "" {
		delete(s.drafts, oldest)
		logger.Warn().Int("limit", s.limit).Msg("Draft limit reached, dropped the oldest draft")
	}
}

func cloneDraft(d models.CourseDraft) models.CourseDraft {
	if d.Objectives != nil {
		d.Objectives = append([]string(nil), d.Objectives...)
	}
	return d
}

const draftKeyPrefix = "academy:draft:"

// RedisDraftStore shares drafts between application instances.
type RedisDraftStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisDraftStore creates a RedisDraftStore on client.
func NewRedisDraftStore(client redis.Cmdable, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func (s *RedisDraftStore) Get(ctx context.Context, key string) (models.CourseDraft, bool, error) {
	raw, err := s.client.Get(ctx, draftKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CourseDraft{}, false, nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read draft")
		return models.CourseDraft{}, false, fmt.Errorf("failed to read draft: %w", err)
	}
	var d models.CourseDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return models.CourseDraft{}, false, fmt.Errorf("failed to decode draft: %w", err)
	}
	return d, true, nil
}

func (s *RedisDraftStore) Set(ctx context.Context, key string, d models.CourseDraft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to store draft")
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, draftKeyPrefix+key).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to delete draft")
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
