package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// CookieName is the session cookie holding the access token.
const CookieName = "token"

type AuthControllerRoutes struct {
	Register       string
	Login          string
	RefreshToken   string
	ForgotPassword string
	ResetPassword  string
	VerifyEmail    string
	Logout         string
	Me             string
}

type AuthController struct {
	Debug            bool
	Logger           Logger
	Repo             RepositoryManager
	Auther           Authenticator
	Hasher           *Hasher
	Issuer           *SecretIssuer
	Mailer           Mailer
	Routes           *AuthControllerRoutes
	CookieExpiryDays int
	// UseHashid derives new identity IDs deterministically from the email
	// instead of random UUIDs.
	UseHashid bool
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:           defLogger{},
		CookieExpiryDays: 7,
		Routes: &AuthControllerRoutes{
			Register:       "/auth/register",
			Login:          "/auth/login",
			RefreshToken:   "/auth/refresh-token",
			ForgotPassword: "/auth/forgot-password",
			ResetPassword:  "/auth/reset-password/:token",
			VerifyEmail:    "/auth/verify-email",
			Logout:         "/auth/logout",
			Me:             "/auth/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Hasher == nil {
		c.Hasher = NewHasher(0)
	}

	if c.Issuer == nil {
		c.Issuer = NewSecretIssuer()
	}

	if c.Mailer == nil {
		c.Mailer = NoopMailer{}
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerHasher(hasher *Hasher) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Hasher = hasher
		return c
	}
}

func WithControllerIssuer(issuer *SecretIssuer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Issuer = issuer
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerHashid(enabled bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.UseHashid = enabled
		return c
	}
}

func WithControllerCookieExpiryDays(days int) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if days > 0 {
			c.CookieExpiryDays = days
		}
		return c
	}
}

// RegisterAuthRoutes mounts the full surface on the fiber app. The gateway
// guards logout and me; everything else is reachable anonymously.
func RegisterAuthRoutes(app *fiber.App, controller *AuthController, gateway *Gateway) {
	app.Post(controller.Routes.Register, controller.Register)
	app.Post(controller.Routes.Login, controller.Login)
	app.Post(controller.Routes.RefreshToken, controller.RefreshToken)
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword)
	app.Put(controller.Routes.ResetPassword, controller.ResetPassword)
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmail)

	app.Post(controller.Routes.Logout, gateway.Authenticate(), controller.Logout)
	app.Get(controller.Routes.Me, gateway.Authenticate(), controller.Me)
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(7, 20)),
		// Admin accounts are provisioned out of band, never self-registered.
		validation.Field(&r.Role, validation.In(RoleStandard, RoleAgent)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	a.debugDump("AUTH REGISTER", payload)

	var resp *RegisterIdentityResponse
	handler := NewRegisterIdentityHandler(a.Repo, a.Hasher, a.Auther, a.Issuer, a.Mailer, a.Logger)

	err := handler.Execute(c.UserContext(), RegisterIdentityMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Role:      payload.Role,
		Password:  payload.Password,
		UseHashid: a.UseHashid,
		OnResponse: func(r *RegisterIdentityResponse) {
			resp = r
		},
	})

	if err != nil {
		return a.errorResponse(c, err)
	}

	a.setTokenCookie(c, resp.Tokens.Token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":         resp.User,
		"token":        resp.Tokens.Token,
		"refreshToken": resp.Tokens.RefreshToken,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	a.debugDump("AUTH LOGIN", payload)

	user, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		// Every login failure reads the same to the caller; the cause is only
		// visible in logs.
		a.Logger.Info("login rejected for %s: %v", NormalizeEmail(payload.Email), err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	tokens, err := a.Auther.IssueTokenPair(user)
	if err != nil {
		return a.errorResponse(c, err)
	}

	a.setTokenCookie(c, tokens.Token)

	return c.JSON(fiber.Map{
		"user":         user.Sanitized(),
		"token":        tokens.Token,
		"refreshToken": tokens.RefreshToken,
	})
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (a *AuthController) RefreshToken(c *fiber.Ctx) error {
	payload := new(RefreshRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	user, err := a.Auther.Refresh(c.UserContext(), payload.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid or expired token",
		})
	}

	tokens, err := a.Auther.IssueTokenPair(user)
	if err != nil {
		return a.errorResponse(c, err)
	}

	a.setTokenCookie(c, tokens.Token)

	return c.JSON(fiber.Map{
		"token":        tokens.Token,
		"refreshToken": tokens.RefreshToken,
	})
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Issuer, a.Mailer, a.Logger)

	err := handler.Execute(c.UserContext(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "password reset email sent",
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Password string `json:"password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	var resp *FinalizePasswordResetResponse
	handler := NewFinalizePasswordResetHandler(a.Repo, a.Hasher, a.Issuer, a.Logger)

	err := handler.Execute(c.UserContext(), FinalizePasswordResetMessage{
		Secret:   c.Params("token"),
		Password: payload.Password,
		OnResponse: func(r *FinalizePasswordResetResponse) {
			resp = r
		},
	})
	if err != nil {
		return a.errorResponse(c, err)
	}

	// A successful reset logs the caller in with a fresh pair, same as Login.
	tokens, err := a.Auther.IssueTokenPair(resp.User)
	if err != nil {
		return a.errorResponse(c, err)
	}

	a.setTokenCookie(c, tokens.Token)

	return c.JSON(fiber.Map{
		"user":         resp.User,
		"token":        tokens.Token,
		"refreshToken": tokens.RefreshToken,
	})
}

// VerifyEmailRequest payload
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// Validate will run validation rules
func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

func (a *AuthController) VerifyEmail(c *fiber.Ctx) error {
	payload := new(VerifyEmailRequest)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	handler := NewVerifyEmailHandler(a.Repo, a.Issuer, a.Logger)

	err := handler.Execute(c.UserContext(), VerifyEmailMessage{
		Secret: payload.Token,
	})
	if err != nil {
		return a.errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "email verified",
	})
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	a.clearTokenCookie(c)
	return c.JSON(fiber.Map{
		"message": "logged out",
	})
}

func (a *AuthController) Me(c *fiber.Ctx) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid or expired token",
		})
	}

	return c.JSON(fiber.Map{
		"user": user.Sanitized(),
	})
}

func (a *AuthController) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(a.CookieExpiryDays) * 24 * time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *AuthController) clearTokenCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *AuthController) debugDump(label string, payload any) {
	if !a.Debug {
		return
	}
	fmt.Printf("======= %s ======\n", label)
	fmt.Println(print.MaybePrettyJSON(payload))
	fmt.Println("=========================")
}

// errorResponse translates rich errors to status codes without echoing
// internals back to the caller.
func (a *AuthController) errorResponse(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		a.Logger.Error("unhandled error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	status := richErr.Code
	if status == 0 {
		status = statusFromCategory(richErr.Category)
	}

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error("request failed: %v", richErr)
		return c.Status(status).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"error": richErr.Message,
	})
}

func statusFromCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// FormatValidationErrorToMap flattens ozzo validation errors to field:message
// pairs for the response body.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

func validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":      "validation failed",
		"validation": FormatValidationErrorToMap(err),
	})
}
