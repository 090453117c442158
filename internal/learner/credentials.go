package learner

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credentials hashes and verifies learner passwords.
type Credentials interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// BcryptCredentials implements Credentials with bcrypt.
type BcryptCredentials struct {
	Cost int
}

func (c BcryptCredentials) Hash(password string) (string, error) {
	cost := c.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (BcryptCredentials) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
