package learner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned when no learner has the requested email.
var ErrNotFound = errors.New("user not found")

// Repository persists learner records keyed by normalized email.
type Repository interface {
	Get(ctx context.Context, email string) (*User, error)
	Upsert(ctx context.Context, user *User) error
	All(ctx context.Context) ([]*User, error)
}

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	users map[string]*User
	mu    sync.RWMutex
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]*User),
	}
}

func (r *MemoryRepository) Get(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, email)
	}
	return u.Clone(), nil
}

func (r *MemoryRepository) Upsert(_ context.Context, user *User) error {
	key, err := userKey(user)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[key] = user.Clone()
	return nil
}

func (r *MemoryRepository) All(_ context.Context) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(), nil
}

// snapshot returns clones of every record ordered by email. Callers hold mu.
func (r *MemoryRepository) snapshot() []*User {
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Clone())
	}
	slices.SortFunc(out, func(a, b *User) int { return strings.Compare(a.Email, b.Email) })
	return out
}

func userKey(user *User) (string, error) {
	if user == nil {
		return "", fmt.Errorf("user is nil")
	}
	key := NormalizeEmail(user.Email)
	if key == "" {
		return "", fmt.Errorf("user email is required")
	}
	user.Email = key
	return key, nil
}
