package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// ResetUserPasswordSQL swaps the password hash and burns the reset slot in a
// single statement so a secret can never authorize two changes.
var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"reset_secret_hash" = NULL,
	"reset_secret_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// MarkEmailVerifiedSQL flips the verified flag and burns the verify slot
// atomically, mirroring ResetUserPasswordSQL.
var MarkEmailVerifiedSQL = `UPDATE "users" AS "usr"
SET
	"is_email_verified" = TRUE,
	"verify_secret_hash" = NULL,
	"verify_secret_expires_at" = NULL,
	"updated_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var TouchLastLoginSQL = `UPDATE "users" AS "usr"
SET
	"last_login_at" = ?,
	"login_attempt_at" = NULL,
	"login_attempts" = 0
WHERE
	("usr".id = ?)
	AND "usr"."deleted_at" IS NULL;`

// Users is the persistence surface for identity records. It satisfies
// CredentialStore; the extra Tx variants let command handlers compose
// operations inside one transaction.
type Users interface {
	CredentialStore

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, withPasswordHash bool) (*User, error)

	TouchLastLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	SetSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, kind SecretKind, hash string, expiresAt time.Time) error
	ClearSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, kind SecretKind) error

	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var (
	_ Users           = (*users)(nil)
	_ CredentialStore = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{repo: repo, db: db}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	record, err := a.repo.CreateTx(ctx, tx, user)
	if err != nil {
		if isDuplicateEmail(err) {
			return nil, ErrDuplicateEmail.Clone()
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string, withPasswordHash bool) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email, withPasswordHash)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, withPasswordHash bool) (*User, error) {
	record := &User{}
	q := tx.NewSelect().Model(record)

	if !withPasswordHash {
		q.ExcludeColumn("password_hash")
	}

	err := q.
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByUserID(ctx context.Context, id string) (*User, error) {
	return a.repo.GetByID(ctx, id)
}

func (a *users) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	return a.TouchLastLoginTx(ctx, a.db, id)
}

func (a *users) TouchLastLoginTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	// NOTE: Updating through the ORM won't reset login_attempt_at and
	// login_attempts, hence the raw statement.
	_, err := tx.NewRaw(TouchLastLoginSQL, time.Now(), id).Exec(ctx)
	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.repo.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func (a *users) SetSecret(ctx context.Context, id uuid.UUID, kind SecretKind, hash string, expiresAt time.Time) error {
	return a.SetSecretTx(ctx, a.db, id, kind, hash, expiresAt)
}

func (a *users) SetSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, kind SecretKind, hash string, expiresAt time.Time) error {
	hashCol, expCol := secretColumns(kind)
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("?0 = ?1", bun.Ident(hashCol), hash).
		Set("?0 = ?1", bun.Ident(expCol), expiresAt).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(res, id)
}

func (a *users) ClearSecret(ctx context.Context, id uuid.UUID, kind SecretKind) error {
	return a.ClearSecretTx(ctx, a.db, id, kind)
}

func (a *users) ClearSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, kind SecretKind) error {
	hashCol, expCol := secretColumns(kind)
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("?0 = NULL", bun.Ident(hashCol)).
		Set("?0 = NULL", bun.Ident(expCol)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (a *users) FindBySecret(ctx context.Context, kind SecretKind, hash string) (*User, error) {
	hashCol, _ := secretColumns(kind)

	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		ExcludeColumn("password_hash").
		Where("?0 = ?1", bun.Ident(hashCol), hash).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"kind": string(kind),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.repo.RawTx(ctx, tx, ResetUserPasswordSQL, passwordHash, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return a.MarkEmailVerifiedTx(ctx, a.db, id)
}

func (a *users) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := a.repo.RawTx(ctx, tx, MarkEmailVerifiedSQL, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func secretColumns(kind SecretKind) (hashCol, expCol string) {
	if kind == SecretKindVerify {
		return "verify_secret_hash", "verify_secret_expires_at"
	}
	return "reset_secret_hash", "reset_secret_expires_at"
}

func requireAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}
	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleStandard
	}

	record.Email = NormalizeEmail(record.Email)
	record.Phone = NormalizePhone(record.Phone)
	record.IsActive = true

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

// NormalizeEmail lowercases and trims so lookups behave the same no matter
// how the address was typed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone formats the number as E.164 when it parses; anything else is
// stored as typed.
func NormalizePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(trimmed, "US")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}

func isDuplicateEmail(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key")
}
