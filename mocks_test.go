package auth_test

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/IsahPhilip/house-unlimited-ng-sub001"
)

// testLogger swallows everything.
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// recordingMailer captures the secrets it was asked to deliver.
type recordingMailer struct {
	mu            sync.Mutex
	resetSecrets  map[string]string
	verifySecrets map[string]string
	failResets    bool
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{
		resetSecrets:  map[string]string{},
		verifySecrets: map[string]string{},
	}
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, email, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failResets {
		return assertableError("smtp unavailable")
	}
	m.resetSecrets[email] = secret
	return nil
}

func (m *recordingMailer) SendEmailVerification(ctx context.Context, email, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifySecrets[email] = secret
	return nil
}

func (m *recordingMailer) resetSecretFor(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetSecrets[email]
}

type assertableError string

func (e assertableError) Error() string { return string(e) }

// memUsers is an in-memory auth.Users used wherever a test does not need a
// real database. Tx variants ignore the transaction handle.
type memUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*auth.User
	byEmail map[string]*auth.User
}

var _ auth.Users = (*memUsers)(nil)

func newMemUsers() *memUsers {
	return &memUsers{
		byID:    map[uuid.UUID]*auth.User{},
		byEmail: map[string]*auth.User{},
	}
}

func (s *memUsers) seed(user *auth.User) *auth.User {
	created, err := s.Register(context.Background(), user)
	if err != nil {
		panic(err)
	}
	return created
}

func (s *memUsers) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	return s.RegisterTx(ctx, nil, user)
}

func (s *memUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := auth.NormalizeEmail(user.Email)
	if _, exists := s.byEmail[email]; exists {
		return nil, auth.ErrDuplicateEmail
	}

	clone := *user
	clone.Email = email
	if clone.ID == uuid.Nil {
		clone.ID = uuid.New()
	}
	if clone.Role == "" {
		clone.Role = auth.RoleStandard
	}
	clone.IsActive = true
	now := time.Now()
	clone.CreatedAt = &now
	clone.UpdatedAt = &now

	s.byID[clone.ID] = &clone
	s.byEmail[email] = &clone

	out := clone
	return &out, nil
}

func (s *memUsers) GetByEmail(ctx context.Context, email string, withPasswordHash bool) (*auth.User, error) {
	return s.GetByEmailTx(ctx, nil, email, withPasswordHash)
}

func (s *memUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, withPasswordHash bool) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}

	clone := *user
	if !withPasswordHash {
		clone.PasswordHash = ""
	}
	return &clone, nil
}

func (s *memUsers) GetByUserID(ctx context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, repository.NewRecordNotFound()
	}

	user, ok := s.byID[uid]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}

	clone := *user
	clone.PasswordHash = ""
	return &clone, nil
}

func (s *memUsers) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return s.TouchLastLoginTx(ctx, nil, id)
}

func (s *memUsers) TouchLastLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	now := time.Now()
	user.LastLoginAt = &now
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	return nil
}

func (s *memUsers) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	return s.TrackAttemptedLoginTx(ctx, nil, user)
}

func (s *memUsers) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[user.ID]
	if !ok {
		return repository.NewRecordNotFound()
	}

	stored.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	stored.LoginAttemptAt = &now
	return nil
}

func (s *memUsers) SetSecret(ctx context.Context, id uuid.UUID, kind auth.SecretKind, hash string, expiresAt time.Time) error {
	return s.SetSecretTx(ctx, nil, id, kind, hash, expiresAt)
}

func (s *memUsers) SetSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, kind auth.SecretKind, hash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	if kind == auth.SecretKindVerify {
		user.VerifySecretHash = hash
		user.VerifySecretExpiresAt = &expiresAt
	} else {
		user.ResetSecretHash = hash
		user.ResetSecretExpiresAt = &expiresAt
	}
	return nil
}

func (s *memUsers) ClearSecret(ctx context.Context, id uuid.UUID, kind auth.SecretKind) error {
	return s.ClearSecretTx(ctx, nil, id, kind)
}

func (s *memUsers) ClearSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, kind auth.SecretKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	if kind == auth.SecretKindVerify {
		user.VerifySecretHash = ""
		user.VerifySecretExpiresAt = nil
	} else {
		user.ResetSecretHash = ""
		user.ResetSecretExpiresAt = nil
	}
	return nil
}

func (s *memUsers) FindBySecret(ctx context.Context, kind auth.SecretKind, hash string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if hash == "" {
		return nil, repository.NewRecordNotFound()
	}

	for _, user := range s.byID {
		stored := user.ResetSecretHash
		if kind == auth.SecretKindVerify {
			stored = user.VerifySecretHash
		}
		if stored == hash {
			clone := *user
			clone.PasswordHash = ""
			return &clone, nil
		}
	}

	return nil, repository.NewRecordNotFound()
}

func (s *memUsers) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.ResetPasswordTx(ctx, nil, id, passwordHash)
}

func (s *memUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	user.PasswordHash = passwordHash
	user.ResetSecretHash = ""
	user.ResetSecretExpiresAt = nil
	return nil
}

func (s *memUsers) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return s.MarkEmailVerifiedTx(ctx, nil, id)
}

func (s *memUsers) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return repository.NewRecordNotFound()
	}

	user.EmailVerified = true
	user.VerifySecretHash = ""
	user.VerifySecretExpiresAt = nil
	return nil
}

// raw returns the live stored record, for assertions on internal state.
func (s *memUsers) raw(id uuid.UUID) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}

func (s *memUsers) rawByEmail(email string) *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byEmail[auth.NormalizeEmail(strings.TrimSpace(email))]
}

// memRepo satisfies auth.RepositoryManager on top of memUsers. RunInTx has no
// transactional semantics; handlers only need the callback invoked.
type memRepo struct {
	users *memUsers
}

var _ auth.RepositoryManager = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{users: newMemUsers()}
}

func (m *memRepo) Users() auth.Users { return m.users }

func (m *memRepo) Validate() error { return nil }

func (m *memRepo) MustValidate() {}

func (m *memRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return f(ctx, bun.Tx{})
	}
}
