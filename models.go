package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record. It is the sole owner of every piece of secret
// material in the subsystem: the password hash and the (at most one live)
// reset/verification secret hashes.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID    uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name  string    `bun:"name,notnull" json:"name,omitempty"`
	Email string    `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone string    `bun:"phone_number" json:"phone,omitempty"`
	Role  UserRole  `bun:"user_role,notnull" json:"role,omitempty"`

	// PasswordHash never serializes and is excluded from default selects;
	// it has to be requested explicitly for the one comparison that needs it.
	PasswordHash string `bun:"password_hash" json:"-"`

	IsActive      bool       `bun:"is_active" json:"isActive"`
	EmailVerified bool       `bun:"is_email_verified" json:"isEmailVerified"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"lastLoginAt,omitempty"`

	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"-"`

	// Single-use secret slots. Empty hash means empty slot; a populated slot
	// whose expiry has passed is treated as absent at consumption time.
	ResetSecretHash       string     `bun:"reset_secret_hash,nullzero" json:"-"`
	ResetSecretExpiresAt  *time.Time `bun:"reset_secret_expires_at,nullzero" json:"-"`
	VerifySecretHash      string     `bun:"verify_secret_hash,nullzero" json:"-"`
	VerifySecretExpiresAt *time.Time `bun:"verify_secret_expires_at,nullzero" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Sanitized returns a copy safe to embed in API responses. The hash column is
// already json:"-" but stripping it here keeps the invariant independent of
// serialization details.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.ResetSecretHash = ""
	out.VerifySecretHash = ""
	return &out
}

// SecretKind selects which single-use slot an operation targets.
type SecretKind string

const (
	// SecretKindReset authorizes a password change.
	SecretKindReset SecretKind = "reset"
	// SecretKindVerify authorizes the email-verified flag.
	SecretKindVerify SecretKind = "verify"
)

// SecretWindow returns how long a freshly issued secret of the given kind
// stays consumable.
func SecretWindow(kind SecretKind) time.Duration {
	if kind == SecretKindVerify {
		return 24 * time.Hour
	}
	return 10 * time.Minute
}
