package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Secret   string `json:"token"`
	Password string `json:"password"`

	OnResponse func(resp *FinalizePasswordResetResponse)
}

func (p FinalizePasswordResetMessage) Type() string { return "identity.password_reset_finalize" }

type FinalizePasswordResetResponse struct {
	User    *User
	Success bool
}

// FinalizePasswordResetHandler consumes a reset secret and swaps the
// password. Unknown, expired, and already-used secrets are indistinguishable
// to the caller.
type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	hasher *Hasher
	issuer *SecretIssuer
	logger Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, hasher *Hasher, issuer *SecretIssuer, logger Logger) *FinalizePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &FinalizePasswordResetHandler{
		repo:   repo,
		hasher: hasher,
		issuer: issuer,
		logger: logger,
	}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.consumeSecret(ctx, SecretKindReset, event.Secret)
	if err != nil {
		return err
	}

	hash, err := h.hasher.Hash(ctx, event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := h.repo.Users().ResetPassword(ctx, user.ID, hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist new password")
	}

	if event.OnResponse != nil {
		event.OnResponse(&FinalizePasswordResetResponse{
			User:    user.Sanitized(),
			Success: true,
		})
	}

	return nil
}

func (h *FinalizePasswordResetHandler) consumeSecret(ctx context.Context, kind SecretKind, candidate string) (*User, error) {
	return consumeSecretFor(ctx, h.repo, h.issuer, kind, candidate, h.logger)
}

// consumeSecretFor locates the record holding the candidate's hash and
// checks the slot is live. Every failure mode returns the same error.
func consumeSecretFor(ctx context.Context, repo RepositoryManager, issuer *SecretIssuer, kind SecretKind, candidate string, logger Logger) (*User, error) {
	if candidate == "" {
		return nil, ErrSecretInvalid
	}

	hash := HashSecret(candidate)

	user, err := repo.Users().FindBySecret(ctx, kind, hash)
	if err != nil {
		logger.Debug("secret lookup failed: %v", err)
		return nil, ErrSecretInvalid
	}

	storedHash, storedExpiry := user.ResetSecretHash, user.ResetSecretExpiresAt
	if kind == SecretKindVerify {
		storedHash, storedExpiry = user.VerifySecretHash, user.VerifySecretExpiresAt
	}

	if !ConsumeSecret(candidate, storedHash, storedExpiry, issuer.Now()) {
		return nil, ErrSecretInvalid
	}

	return user, nil
}
