// Package learning orchestrates enrollment, assessments and recommendations
// against the learner repository.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/p-n-ai/pai-learn/internal/assessment"
	"github.com/p-n-ai/pai-learn/internal/catalog"
	"github.com/p-n-ai/pai-learn/internal/learner"
	"github.com/p-n-ai/pai-learn/internal/platform/metrics"
)

const defaultAttemptTTL = 30 * time.Minute

// ServiceConfig holds dependencies for the learning service.
type ServiceConfig struct {
	Catalog     *catalog.Catalog
	Users       learner.Repository      // default: in-memory
	Attempts    assessment.AttemptStore // default: in-memory, 30m TTL
	Credentials learner.Credentials     // default: bcrypt
	Events      EventLogger             // default: nop
	Metrics     *metrics.Metrics        // optional
	Rand        *rand.Rand              // optional; question sampling source
	Now         func() time.Time        // default: time.Now
}

// Service is the learning core. It is safe for concurrent use; updates to a
// single learner are serialized.
type Service struct {
	catalog     *catalog.Catalog
	users       learner.Repository
	attempts    assessment.AttemptStore
	credentials learner.Credentials
	events      EventLogger
	metrics     *metrics.Metrics
	now         func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand

	locks userLocks
}

// NewService creates a learning service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	users := cfg.Users
	if users == nil {
		users = learner.NewMemoryRepository()
	}
	attempts := cfg.Attempts
	if attempts == nil {
		attempts = assessment.NewMemoryAttemptStore(defaultAttemptTTL)
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = learner.BcryptCredentials{}
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog:     cfg.Catalog,
		users:       users,
		attempts:    attempts,
		credentials: creds,
		events:      events,
		metrics:     cfg.Metrics,
		now:         now,
		rand:        cfg.Rand,
		locks:       userLocks{locks: map[string]*userLock{}},
	}, nil
}

// Catalog returns the course catalog the service was built with.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// errUnchanged aborts an update without writing.
var errUnchanged = errors.New("unchanged")

// update loads a learner, applies fn and saves the result while holding the
// learner's lock. A failed save returns the mutated user together with a
// *PersistenceError.
func (s *Service) update(ctx context.Context, email, op string, fn func(u *learner.User) error) (*learner.User, error) {
	email = learner.NormalizeEmail(email)
	unlock := s.locks.lock(email)
	defer unlock()

	u, err := s.loadUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := fn(u); err != nil {
		if errors.Is(err, errUnchanged) {
			return u, err
		}
		return nil, err
	}
	u.UpdatedAt = s.now()

	if err := s.users.Upsert(ctx, u); err != nil {
		slog.Error("failed to persist learner",
			"op", op,
			"email", email,
			"error", err,
		)
		s.metrics.ObservePersistenceFailure(op)
		return u, &PersistenceError{Op: op, Err: err}
	}
	return u, nil
}

func (s *Service) loadUser(ctx context.Context, email string) (*learner.User, error) {
	u, err := s.users.Get(ctx, email)
	if errors.Is(err, learner.ErrNotFound) {
		return nil, notFound("user", email)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return u, nil
}

func (s *Service) course(name string) (catalog.Course, error) {
	c, ok := s.catalog.Course(name)
	if !ok {
		return catalog.Course{}, notFound("course", name)
	}
	return c, nil
}

func (s *Service) logEvent(email, courseKey, eventType string, data map[string]any) {
	err := s.events.LogEvent(Event{
		Email:     email,
		CourseKey: courseKey,
		EventType: eventType,
		Data:      data,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "email", email, "error", err)
	}
}

func (s *Service) sample(course string, level catalog.Level) []catalog.Question {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return assessment.Generate(s.catalog, course, level, s.rand)
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks hands out one mutex per email and forgets it once unused.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

func (l *userLocks) lock(key string) func() {
	l.mu.Lock()
	ul, ok := l.locks[key]
	if !ok {
		ul = &userLock{}
		l.locks[key] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
