package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/IsahPhilip/house-unlimited-ng-sub001/middleware/jwtware"
)

// ContextKeyUser is where the gateway stores the resolved user in fiber
// locals.
const ContextKeyUser = "auth_user"

// ContextKeyClaims is where the jwt middleware stores verified claims.
const ContextKeyClaims = "auth_claims"

// Gateway guards routes. Authenticate verifies the bearer token and resolves
// the live user record; Authorize layers role checks on top. Neither mutates
// the request, identity travels via locals and the request context.
type Gateway struct {
	minter *TokenMinter
	store  CredentialStore
	logger Logger
}

func NewGateway(minter *TokenMinter, store CredentialStore, logger Logger) *Gateway {
	if logger == nil {
		logger = defLogger{}
	}
	return &Gateway{minter: minter, store: store, logger: logger}
}

// Authenticate returns the middleware protecting every route that needs a
// logged-in caller. Tokens come from the Authorization header or the session
// cookie. A verified token whose subject no longer resolves to an active
// record is rejected the same way a bad signature is.
func (g *Gateway) Authenticate() fiber.Handler {
	return jwtware.New(jwtware.Config{
		TokenValidator: accessValidator{g.minter},
		ContextKey:     ContextKeyClaims,
		TokenLookup:    "header:" + fiber.HeaderAuthorization + ",cookie:token",
		AuthScheme:     "Bearer",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if IsMalformedError(err) {
				g.logger.Debug("request carried no usable token")
			} else {
				g.logger.Debug("authentication rejected: %v", err)
			}
			return unauthorized(c)
		},
		SuccessHandler: g.resolveUser,
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(ctx, ac)
			}
			return ctx
		},
	})
}

// Authorize allows only callers whose role is in the given set. It must run
// after Authenticate.
func (g *Gateway) Authorize(roles ...UserRole) fiber.Handler {
	allowed := map[UserRole]bool{}
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(ContextKeyUser).(*User)
		if !ok || user == nil {
			return unauthorized(c)
		}

		if len(allowed) > 0 && !allowed[user.Role] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}

		return c.Next()
	}
}

// AuthorizeAtLeast allows callers whose role meets the hierarchy floor.
func (g *Gateway) AuthorizeAtLeast(minRole UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(ContextKeyUser).(*User)
		if !ok || user == nil {
			return unauthorized(c)
		}

		if !RoleIsAtLeast(user.Role, minRole) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}

		return c.Next()
	}
}

// CurrentUser retrieves the user the gateway resolved for this request.
func CurrentUser(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(ContextKeyUser).(*User)
	return user, ok && user != nil
}

func (g *Gateway) resolveUser(c *fiber.Ctx) error {
	claims, ok := c.Locals(ContextKeyClaims).(jwtware.AuthClaims)
	if !ok {
		return unauthorized(c)
	}

	user, err := g.store.GetByUserID(c.UserContext(), claims.UserID())
	if err != nil {
		g.logger.Debug("token subject did not resolve: %v", err)
		return unauthorized(c)
	}

	if !user.IsActive {
		return unauthorized(c)
	}

	c.Locals(ContextKeyUser, user)
	c.SetUserContext(WithContext(c.UserContext(), user))

	return c.Next()
}

// accessValidator bridges the minter into the middleware's validator shape.
type accessValidator struct {
	m *TokenMinter
}

func (v accessValidator) Validate(raw string) (jwtware.AuthClaims, error) {
	claims, err := v.m.VerifyAccessToken(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "invalid or expired token",
	})
}
