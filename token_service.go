package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService signs and validates tokens for a single signing key.
type TokenService interface {
	Generate(identity Identity) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance. An empty signing key
// is a construction error; there is no fallback secret.
func NewTokenService(signingKey []byte, expiration time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) (*TokenServiceImpl, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("token service requires a signing key", errors.CategoryValidation)
	}
	if expiration <= 0 {
		return nil, errors.New("token service requires a positive expiration", errors.CategoryValidation)
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		expiration: expiration,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
	}, nil
}

// Generate creates a JWT token carrying the identity's id and role.
func (ts *TokenServiceImpl) Generate(identity Identity) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiration)),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// TokenMinter issues and verifies the access/refresh pair. The two services
// hold distinct keys so a refresh token never validates as an access token.
type TokenMinter struct {
	access  *TokenServiceImpl
	refresh *TokenServiceImpl
	logger  Logger
}

// NewTokenMinter builds a minter from the two signing keys. Missing keys fail
// construction; callers treat that as fatal at startup.
func NewTokenMinter(accessKey, refreshKey []byte, accessTTL, refreshTTL time.Duration, issuer string, audience []string, logger Logger) (*TokenMinter, error) {
	if logger == nil {
		logger = defLogger{}
	}

	access, err := NewTokenService(accessKey, accessTTL, issuer, audience, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "access token service")
	}

	refresh, err := NewTokenService(refreshKey, refreshTTL, issuer, audience, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "refresh token service")
	}

	return &TokenMinter{access: access, refresh: refresh, logger: logger}, nil
}

// IssueAccessToken signs a short-lived token with sub = subject id.
func (m *TokenMinter) IssueAccessToken(identity Identity) (string, error) {
	return m.access.Generate(identity)
}

// IssueRefreshToken signs the longer-lived counterpart with the refresh key.
func (m *TokenMinter) IssueRefreshToken(identity Identity) (string, error) {
	return m.refresh.Generate(identity)
}

// IssuePair mints both tokens for one identity.
func (m *TokenMinter) IssuePair(identity Identity) (TokenPair, error) {
	token, err := m.IssueAccessToken(identity)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := m.IssueRefreshToken(identity)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Token: token, RefreshToken: refresh}, nil
}

// VerifyAccessToken checks an access token. Every failure mode collapses into
// ErrInvalidToken so responses never leak which check failed; the underlying
// cause is logged at debug level only.
func (m *TokenMinter) VerifyAccessToken(raw string) (AuthClaims, error) {
	return m.collapse(m.access.Validate(raw))
}

// VerifyRefreshToken checks a refresh token against the refresh key.
func (m *TokenMinter) VerifyRefreshToken(raw string) (AuthClaims, error) {
	return m.collapse(m.refresh.Validate(raw))
}

func (m *TokenMinter) collapse(claims AuthClaims, err error) (AuthClaims, error) {
	if err != nil {
		switch {
		case IsTokenExpiredError(err):
			m.logger.Debug("rejected expired token")
		case IsMalformedError(err):
			m.logger.Debug("rejected malformed token")
		default:
			m.logger.Debug("token verification failed: %v", err)
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func newTokenID() string {
	return uuid.NewString()
}
