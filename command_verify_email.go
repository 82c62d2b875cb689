package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type VerifyEmailMessage struct {
	Secret string `json:"token"`

	OnResponse func(resp *VerifyEmailResponse)
}

func (p VerifyEmailMessage) Type() string { return "identity.verify_email" }

type VerifyEmailResponse struct {
	User    *User
	Success bool
}

// VerifyEmailHandler consumes a verification secret and marks the address
// confirmed. The secret burns in the same statement that flips the flag.
type VerifyEmailHandler struct {
	repo   RepositoryManager
	issuer *SecretIssuer
	logger Logger
}

func NewVerifyEmailHandler(repo RepositoryManager, issuer *SecretIssuer, logger Logger) *VerifyEmailHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &VerifyEmailHandler{
		repo:   repo,
		issuer: issuer,
		logger: logger,
	}
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := consumeSecretFor(ctx, h.repo, h.issuer, SecretKindVerify, event.Secret, h.logger)
	if err != nil {
		return err
	}

	if err := h.repo.Users().MarkEmailVerified(ctx, user.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
	}

	user.EmailVerified = true

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailResponse{
			User:    user.Sanitized(),
			Success: true,
		})
	}

	return nil
}
