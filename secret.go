package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const secretByteLength = 32

// IssuedSecret is the result of issuing a single-use secret. Plaintext goes
// out exactly once, embedded in an email link; only Hash and ExpiresAt are
// ever persisted.
type IssuedSecret struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// SecretIssuer generates and checks single-use secrets. It holds no state per
// secret; each slot lives on the identity record and moves through
// empty -> issued -> (consumed | expired) -> empty. Reissuing while issued
// silently overwrites, which is the supported way to cancel or retry a flow.
type SecretIssuer struct {
	now func() time.Time
}

// NewSecretIssuer returns an issuer using the wall clock.
func NewSecretIssuer() *SecretIssuer {
	return &SecretIssuer{now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *SecretIssuer) WithClock(now func() time.Time) *SecretIssuer {
	if now != nil {
		s.now = now
	}
	return s
}

// Now returns the issuer's current time.
func (s *SecretIssuer) Now() time.Time {
	return s.now()
}

// Issue generates a fresh secret for the given kind. The returned plaintext
// must not be stored anywhere server side.
func (s *SecretIssuer) Issue(kind SecretKind) (IssuedSecret, error) {
	buf := make([]byte, secretByteLength)
	if _, err := rand.Read(buf); err != nil {
		return IssuedSecret{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate secret")
	}

	plaintext := base64.RawURLEncoding.EncodeToString(buf)

	return IssuedSecret{
		Plaintext: plaintext,
		Hash:      HashSecret(plaintext),
		ExpiresAt: s.now().Add(SecretWindow(kind)),
	}, nil
}

// HashSecret applies the one-way function used for stored secret hashes.
// Unlike passwords, the input already carries 256 bits of entropy, so a plain
// digest is enough and keeps the lookup-by-hash path cheap.
func HashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ConsumeSecret reports whether a candidate plaintext matches a stored slot
// that is still alive at now. Clearing the slot on success is the caller's
// contract; a candidate that fails here must leave the slot untouched.
func ConsumeSecret(candidate, storedHash string, storedExpiry *time.Time, now time.Time) bool {
	if candidate == "" || storedHash == "" || storedExpiry == nil {
		return false
	}

	// Expiry is enforced here, at consumption, never at issuance.
	if now.After(*storedExpiry) {
		return false
	}

	sum := HashSecret(candidate)
	return subtle.ConstantTimeCompare([]byte(sum), []byte(storedHash)) == 1
}
