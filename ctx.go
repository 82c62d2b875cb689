package auth

import "context"

type contextKey string

const (
	userContextKey   contextKey = "auth:user"
	claimsContextKey contextKey = "auth:claims"
)

// WithContext returns a context carrying the authenticated user record.
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext retrieves the authenticated user, if any.
func FromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userContextKey).(*User)
	return user, ok
}

// WithClaimsContext returns a context carrying the verified token claims.
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// GetClaims retrieves the verified token claims, if any.
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(AuthClaims)
	return claims, ok
}
