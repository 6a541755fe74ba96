package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultCost takes a few hundred milliseconds per hash on current
	// hardware. Tests use bcrypt.MinCost through NewPasswordServiceWithCost.
	DefaultCost = 12

	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit; longer input would be
	// silently truncated.
	MaxPasswordLength = 72
)

// ErrInvalidPassword is returned by Verify when the password does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords with bcrypt. The salt and
// cost are embedded in the hash, so only the hash string is stored.
//
// ANATOMY OF A BCRYPT HASH:
//
//	$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW
//	 │  │  └ 22 chars of salt, then 31 chars of hash
//	 │  └ cost: 2^12 rounds
//	 └ algorithm version
//
// A random salt per hash means two users with the same password get
// different hashes, and a precomputed table is useless.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultCost}
}

// NewPasswordServiceWithCost is for tests in other packages, which use
// bcrypt.MinCost to keep hashing fast.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. Passwords outside
// MinPasswordLength..MaxPasswordLength bytes are rejected.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) < MinPasswordLength {
		return "", fmt.Errorf("auth: password must be at least %d characters", MinPasswordLength)
	}
	if len(plaintext) > MaxPasswordLength {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordLength)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrInvalidPassword when
// it does not. The comparison is constant-time. An empty hash (GitHub-only
// accounts) never matches.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrInvalidPassword
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
