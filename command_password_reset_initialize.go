package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`

	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "identity.password_reset" }

type InitializePasswordResetResponse struct {
	Email   string
	Success bool
}

// InitializePasswordResetHandler issues a short-lived reset secret and asks
// the mailer to deliver it. Issuing again before the old secret is used
// overwrites the slot, so only the newest link works.
type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	issuer *SecretIssuer
	mailer Mailer
	logger Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, issuer *SecretIssuer, mailer Mailer, logger Logger) *InitializePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &InitializePasswordResetHandler{
		repo:   repo,
		issuer: issuer,
		mailer: mailer,
		logger: logger,
	}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email, false)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound.Clone().
				WithMetadata(map[string]any{"email": NormalizeEmail(event.Email)})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve identity for password reset")
	}

	secret, err := h.issuer.Issue(SecretKindReset)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue reset secret")
	}

	if err := h.repo.Users().SetSecret(ctx, user.ID, SecretKindReset, secret.Hash, secret.ExpiresAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset secret")
	}

	if err := h.mailer.SendPasswordReset(ctx, user.Email, secret.Plaintext); err != nil {
		// The link never reached the user; leave no live secret behind.
		if cerr := h.repo.Users().ClearSecret(ctx, user.ID, SecretKindReset); cerr != nil {
			h.logger.Error("failed to clear orphaned reset secret: %v", cerr)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send reset notification")
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{
			Email:   user.Email,
			Success: true,
		})
	}

	return nil
}
