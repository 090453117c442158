package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/platform/cache"
)

// ErrAttemptNotFound is returned for unknown or expired attempts.
var ErrAttemptNotFound = errors.New("attempt not found")

// Attempt pins the exact question list handed to a learner so submission
// is scored against what was shown.
type Attempt struct {
	ID        string             `json:"id"`
	Email     string             `json:"email"`
	CourseKey string             `json:"course_key"`
	Level     catalog.Level      `json:"level"`
	Questions []catalog.Question `json:"questions"`
	CreatedAt time.Time          `json:"created_at"`
}

// AttemptStore persists in-flight attempts between generation and submission.
// Take removes and returns an attempt atomically: of concurrent callers for
// one id, at most one succeeds.
type AttemptStore interface {
	Save(ctx context.Context, a *Attempt) error
	Get(ctx context.Context, id string) (*Attempt, error)
	Take(ctx context.Context, id string) (*Attempt, error)
}

func prepare(a *Attempt, now time.Time) error {
	if a == nil {
		return fmt.Errorf("attempt is nil")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	return nil
}

func copyAttempt(a *Attempt) *Attempt {
	c := *a
	c.Questions = append([]catalog.Question(nil), a.Questions...)
	return &c
}

// MemoryAttemptStore keeps attempts in process memory with a TTL.
type MemoryAttemptStore struct {
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex
	attempts map[string]*Attempt
}

// NewMemoryAttemptStore creates a store whose attempts expire after ttl.
// A zero ttl never expires.
func NewMemoryAttemptStore(ttl time.Duration) *MemoryAttemptStore {
	return &MemoryAttemptStore{
		ttl:      ttl,
		now:      time.Now,
		attempts: make(map[string]*Attempt),
	}
}

func (s *MemoryAttemptStore) Save(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := prepare(a, s.now()); err != nil {
		return err
	}
	s.evictExpired()
	s.attempts[a.ID] = copyAttempt(a)
	return nil
}

func (s *MemoryAttemptStore) Get(_ context.Context, id string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok || s.expired(a) {
		delete(s.attempts, id)
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return copyAttempt(a), nil
}

func (s *MemoryAttemptStore) Take(_ context.Context, id string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	delete(s.attempts, id)
	if !ok || s.expired(a) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	return a, nil
}

func (s *MemoryAttemptStore) expired(a *Attempt) bool {
	return s.ttl > 0 && s.now().Sub(a.CreatedAt) > s.ttl
}

// evictExpired drops stale attempts. Callers hold mu.
func (s *MemoryAttemptStore) evictExpired() {
	for id, a := range s.attempts {
		if s.expired(a) {
			delete(s.attempts, id)
		}
	}
}

const attemptKeyPrefix = "learn:attempt:"

// RedisAttemptStore keeps attempts in Redis/Dragonfly as JSON with a TTL.
type RedisAttemptStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisAttemptStore wraps a connected cache.
func NewRedisAttemptStore(c *cache.Cache, ttl time.Duration) *RedisAttemptStore {
	return &RedisAttemptStore{cache: c, ttl: ttl}
}

func (s *RedisAttemptStore) Save(ctx context.Context, a *Attempt) error {
	if err := prepare(a, time.Now()); err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, attemptKeyPrefix+a.ID, a, s.ttl); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *RedisAttemptStore) Get(ctx context.Context, id string) (*Attempt, error) {
	var a Attempt
	err := s.cache.GetJSON(ctx, attemptKeyPrefix+id, &a)
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return &a, nil
}

func (s *RedisAttemptStore) Take(ctx context.Context, id string) (*Attempt, error) {
	var a Attempt
	err := s.cache.TakeJSON(ctx, attemptKeyPrefix+id, &a)
	if errors.Is(err, cache.ErrMiss) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("take attempt: %w", err)
	}
	return &a, nil
}
