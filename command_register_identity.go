package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterIdentityMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool

	OnResponse func(resp *RegisterIdentityResponse)
}

func (e RegisterIdentityMessage) Type() string { return "identity.register" }

type RegisterIdentityResponse struct {
	User    *User
	Tokens  TokenPair
	Success bool
}

// RegisterIdentityHandler creates the user record, issues an email
// verification secret, and hands back a fresh token pair so signup doubles
// as a login.
type RegisterIdentityHandler struct {
	repo   RepositoryManager
	hasher *Hasher
	auth   Authenticator
	issuer *SecretIssuer
	mailer Mailer
	logger Logger
}

func NewRegisterIdentityHandler(repo RepositoryManager, hasher *Hasher, auth Authenticator, issuer *SecretIssuer, mailer Mailer, logger Logger) *RegisterIdentityHandler {
	if logger == nil {
		logger = defLogger{}
	}
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &RegisterIdentityHandler{
		repo:   repo,
		hasher: hasher,
		auth:   auth,
		issuer: issuer,
		mailer: mailer,
		logger: logger,
	}
}

func (h *RegisterIdentityHandler) Execute(ctx context.Context, event RegisterIdentityMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during identity registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterIdentityHandler) execute(ctx context.Context, event RegisterIdentityMessage) error {
	user := &User{}
	resp := &RegisterIdentityResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Role != "" && !IsValidRole(event.Role) {
		return goerrors.New("unknown role", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"role": event.Role})
	}

	verification := IssuedSecret{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email, false); err == nil && existing != nil {
			return ErrDuplicateEmail.Clone().
				WithMetadata(map[string]any{"email": NormalizeEmail(event.Email)})
		} else if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing identity")
		}

		hash, err := h.hasher.Hash(ctx, event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Name = event.Name
		user.Email = event.Email
		user.Phone = event.Phone
		user.Role = event.Role
		if event.UseHashid {
			if id, err := hashid.NewUUID(NormalizeEmail(event.Email)); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create identity")
		}

		verification, err = h.issuer.Issue(SecretKindVerify)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification secret")
		}

		if err := h.repo.Users().SetSecretTx(ctx, tx, user.ID, SecretKindVerify, verification.Hash, verification.ExpiresAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store verification secret")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "identity registration transaction failed")
	}

	// Verification email is best effort; the account exists either way and
	// the secret can be reissued.
	go func() {
		if err := h.mailer.SendEmailVerification(context.WithoutCancel(ctx), user.Email, verification.Plaintext); err != nil {
			h.logger.Warn("failed to send verification notification: %v", err)
		}
	}()

	tokens, err := h.auth.IssueTokenPair(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue tokens for new identity")
	}

	resp.User = user.Sanitized()
	resp.Tokens = tokens
	resp.Success = true

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
