package learning

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown users, courses, modules and attempts.
	ErrNotFound = errors.New("not found")
	// ErrValidation means the request is malformed or incomplete.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyExists is returned when signing up with a registered email.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// PersistenceError reports that a result was computed but the learner
// profile could not be saved. Operations returning it also return the result.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: result computed but profile update failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func notFound(kind, name string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, name)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
