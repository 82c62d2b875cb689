package auth

import (
	"context"
	"time"
)

// DefaultMaxLoginAttempts is how many consecutive failures a record absorbs
// before the cooldown window applies.
const DefaultMaxLoginAttempts = 5

// DefaultLoginCooldown is how long a throttled record stays locked.
const DefaultLoginCooldown = 24 * time.Hour

// Auther implements Authenticator against a CredentialStore. Every failure
// path of Login collapses into ErrInvalidCredentials so responses never
// reveal whether an email is registered.
type Auther struct {
	store            CredentialStore
	hasher           *Hasher
	minter           *TokenMinter
	logger           Logger
	maxLoginAttempts int
	cooldownPeriod   time.Duration
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Auther
func NewAuthenticator(store CredentialStore, hasher *Hasher, minter *TokenMinter) *Auther {
	return &Auther{
		store:            store,
		hasher:           hasher,
		minter:           minter,
		logger:           defLogger{},
		maxLoginAttempts: DefaultMaxLoginAttempts,
		cooldownPeriod:   DefaultLoginCooldown,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithLoginThrottle overrides the attempt limit and cooldown window.
func (s *Auther) WithLoginThrottle(maxAttempts int, cooldown time.Duration) *Auther {
	if maxAttempts > 0 {
		s.maxLoginAttempts = maxAttempts
	}
	if cooldown > 0 {
		s.cooldownPeriod = cooldown
	}
	return s
}

// TokenMinter exposes the minter so HTTP wiring can reuse it for middleware.
func (s *Auther) TokenMinter() *TokenMinter {
	return s.minter
}

// Login verifies the email/password pair and returns the matching user.
func (s *Auther) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.store.GetByEmail(ctx, email, true)
	if err != nil {
		s.logger.Debug("Login lookup failed: %v", err)
		return nil, ErrInvalidCredentials
	}

	if s.isThrottled(user) {
		s.logger.Warn("Login throttled for user %s", user.ID)
		return nil, ErrTooManyLoginAttempts
	}

	if err := s.hasher.Compare(ctx, password, user.PasswordHash); err != nil {
		if terr := s.store.TrackAttemptedLogin(ctx, user); terr != nil {
			s.logger.Error("Login failed to track attempt: %v", terr)
		}
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Warn("Login blocked for inactive user %s", user.ID)
		return nil, ErrInvalidCredentials
	}

	if err := s.store.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Error("Login failed to record last login: %v", err)
	}

	return user, nil
}

// Refresh validates a refresh token and re-resolves the user behind it. The
// record has to still exist and be active; a revoked account cannot keep
// minting sessions off an old refresh token.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*User, error) {
	claims, err := s.minter.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetByUserID(ctx, claims.UserID())
	if err != nil {
		s.logger.Debug("Refresh could not resolve subject: %v", err)
		return nil, ErrInvalidToken
	}

	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	return user, nil
}

// IssueTokenPair mints a fresh access/refresh pair for the user.
func (s *Auther) IssueTokenPair(user *User) (TokenPair, error) {
	return s.minter.IssuePair(NewUserIdentity(user))
}

func (s *Auther) isThrottled(user *User) bool {
	if user.LoginAttempts < s.maxLoginAttempts || user.LoginAttemptAt == nil {
		return false
	}

	return IsWithinThresholdPeriod(*user.LoginAttemptAt, s.cooldownPeriod)
}
