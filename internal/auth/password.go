package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt work factor used in production.
// Roughly 250ms per hash on a modern server.
const DefaultPasswordCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer inputs are silently
// truncated by bcrypt, so they are rejected instead.
const maxPasswordBytes = 72

var (
	ErrPasswordMismatch = errors.New("auth: password does not match")
	ErrPasswordTooLong  = errors.New("auth: password must be 72 bytes or fewer")
)

// PasswordService hashes and verifies passwords with bcrypt.
//
// The cost is a field so tests can run at bcrypt.MinCost (4) instead of
// paying ~250ms per hash.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with the given bcrypt cost.
// A cost of 0 selects DefaultPasswordCost.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost == 0 {
		cost = DefaultPasswordCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordService{cost: cost}, nil
}

// Hash returns a self-contained bcrypt hash ($2a$<cost>$<salt><hash>).
// The salt is random, so hashing the same password twice gives different
// outputs.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch
// when it does not. The comparison is constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return fmt.Errorf("auth: comparing password hash: %w", err)
}
