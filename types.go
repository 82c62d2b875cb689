package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity.
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*User, error)
	IssueTokenPair(user *User) (TokenPair, error)
}

// TokenPair is the access/refresh pair returned by every flow that logs the
// caller in.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Mailer is the outbound notification collaborator. Content and delivery are
// someone else's problem; the subsystem only asks for a message to go out.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, secret string) error
	SendEmailVerification(ctx context.Context, email, secret string) error
}

// CredentialStore is the narrow persistence surface the session flows need.
// The bun-backed Users repository satisfies it; tests swap in memory fakes.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string, withPasswordHash bool) (*User, error)
	GetByUserID(ctx context.Context, id string) (*User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	TrackAttemptedLogin(ctx context.Context, user *User) error

	SetSecret(ctx context.Context, id uuid.UUID, kind SecretKind, hash string, expiresAt time.Time) error
	ClearSecret(ctx context.Context, id uuid.UUID, kind SecretKind) error
	FindBySecret(ctx context.Context, kind SecretKind, hash string) (*User, error)

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
