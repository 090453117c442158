package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/p-n-ai/pai-learn/internal/learner"
)

const minPasswordLength = 6

// Signup registers a new learner with empty enrollment and progress.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*learner.User, error) {
	email = learner.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, invalid("name is required")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(email)
	defer unlock()

	_, err := s.users.Get(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%w: email %q is already registered", ErrAlreadyExists, email)
	}
	if !errors.Is(err, learner.ErrNotFound) {
		return nil, fmt.Errorf("checking existing user: %w", err)
	}

	hash, err := s.credentials.Hash(password)
	if err != nil {
		return nil, err
	}
	u := learner.NewUser(email, name, hash, s.now())
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, fmt.Errorf("saving new user: %w", err)
	}

	slog.Info("learner registered", "email", email)
	return u, nil
}

// Authenticate checks an email and password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*learner.User, error) {
	u, err := s.users.Get(ctx, learner.NormalizeEmail(email))
	if errors.Is(err, learner.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if !s.credentials.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser looks up a learner by email.
func (s *Service) GetUser(ctx context.Context, email string) (*learner.User, error) {
	return s.loadUser(ctx, learner.NormalizeEmail(email))
}

// UserPatch is a partial profile update. Nil fields are left alone.
type UserPatch struct {
	Name     *string
	Password *string
}

// UpdateUser merges patch into the learner's profile and saves it.
func (s *Service) UpdateUser(ctx context.Context, email string, patch UserPatch) (*learner.User, error) {
	var name, hash string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("name cannot be blank")
		}
	}
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, err
		}
		h, err := s.credentials.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	u, err := s.update(ctx, email, "update_user", func(u *learner.User) error {
		if patch.Name == nil && patch.Password == nil {
			return errUnchanged
		}
		if name != "" {
			u.Name = name
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return u, nil
	}
	return u, err
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email %q is not a valid address", email)
	}
	return nil
}

func validatePassword(password string) error {
	if len(strings.TrimSpace(password)) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
