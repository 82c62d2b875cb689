package auth

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password. Mismatches and malformed digests both collapse into
// ErrMismatchedHashAndPassword; a wrong password is a value, not a fault.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// RandomPasswordHash is a temporary password
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}

// Hasher bounds concurrent bcrypt work. Hashing is CPU bound; without a cap a
// burst of registrations can starve request dispatch for unrelated traffic.
type Hasher struct {
	sem chan struct{}
}

// NewHasher creates a Hasher allowing up to limit concurrent hash or compare
// operations. Zero or negative limits fall back to the CPU count.
func NewHasher(limit int) *Hasher {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Hasher{sem: make(chan struct{}, limit)}
}

// Hash acquires a slot and hashes the password, honoring ctx while waiting.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	select {
	case h.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-h.sem }()

	return HashPassword(password)
}

// Compare acquires a slot and compares password and hash.
func (h *Hasher) Compare(ctx context.Context, password, hash string) error {
	select {
	case h.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-h.sem }()

	return ComparePasswordAndHash(password, hash)
}
