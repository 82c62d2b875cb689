package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/IsahPhilip/house-unlimited-ng-sub001"
)

func seedLoginUser(t *testing.T, store *memUsers, password string) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return store.seed(&auth.User{
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		Role:         auth.RoleStandard,
		PasswordHash: hash,
	})
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return the user and update last login", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		got, err := auther.Login(ctx, "ada@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)

		stored := store.raw(user.ID)
		assert.NotNil(t, stored.LastLoginAt)
		assert.Zero(t, stored.LoginAttempts)
	})

	t.Run("email lookup is case insensitive", func(t *testing.T) {
		store := newMemUsers()
		seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		_, err := auther.Login(ctx, "Ada@Example.COM", "password123")
		assert.NoError(t, err)
	})

	t.Run("unknown email and wrong password fail identically", func(t *testing.T) {
		store := newMemUsers()
		seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		_, errUnknown := auther.Login(ctx, "nobody@example.com", "password123")
		_, errWrongPwd := auther.Login(ctx, "ada@example.com", "not-the-password")

		assert.ErrorIs(t, errUnknown, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, errWrongPwd, auth.ErrInvalidCredentials)
		assert.Equal(t, errUnknown.Error(), errWrongPwd.Error())
	})

	t.Run("failed attempts are tracked", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		_, _ = auther.Login(ctx, "ada@example.com", "wrong")
		_, _ = auther.Login(ctx, "ada@example.com", "wrong")

		stored := store.raw(user.ID)
		assert.Equal(t, 2, stored.LoginAttempts)
		assert.NotNil(t, stored.LoginAttemptAt)
	})

	t.Run("successful login resets the attempt counter", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		_, _ = auther.Login(ctx, "ada@example.com", "wrong")
		_, err := auther.Login(ctx, "ada@example.com", "password123")
		require.NoError(t, err)

		stored := store.raw(user.ID)
		assert.Zero(t, stored.LoginAttempts)
		assert.Nil(t, stored.LoginAttemptAt)
	})

	t.Run("inactive account cannot log in even with the right password", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		store.raw(user.ID).IsActive = false
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		_, err := auther.Login(ctx, "ada@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("throttles after too many failures inside the cooldown", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t)).
			WithLoginThrottle(3, 24*time.Hour)

		stored := store.raw(user.ID)
		stored.LoginAttempts = 3
		now := time.Now()
		stored.LoginAttemptAt = &now

		_, err := auther.Login(ctx, "ada@example.com", "password123")
		assert.ErrorIs(t, err, auth.ErrTooManyLoginAttempts)
	})

	t.Run("cooldown lapses once the window passes", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t)).
			WithLoginThrottle(3, 24*time.Hour)

		stored := store.raw(user.ID)
		stored.LoginAttempts = 3
		stale := time.Now().Add(-25 * time.Hour)
		stored.LoginAttemptAt = &stale

		_, err := auther.Login(ctx, "ada@example.com", "password123")
		assert.NoError(t, err)
	})
}

func TestAuther_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("valid refresh token resolves the user", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		minter := newTestMinter(t)
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), minter)

		pair, err := auther.IssueTokenPair(user)
		require.NoError(t, err)

		got, err := auther.Refresh(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("access token is not accepted as a refresh token", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		pair, err := auther.IssueTokenPair(user)
		require.NoError(t, err)

		_, err = auther.Refresh(ctx, pair.Token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("refresh fails for a deactivated user", func(t *testing.T) {
		store := newMemUsers()
		user := seedLoginUser(t, store, "password123")
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		pair, err := auther.IssueTokenPair(user)
		require.NoError(t, err)

		store.raw(user.ID).IsActive = false

		_, err = auther.Refresh(ctx, pair.RefreshToken)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage refresh token", func(t *testing.T) {
		store := newMemUsers()
		auther := auth.NewAuthenticator(store, auth.NewHasher(0), newTestMinter(t))

		_, err := auther.Refresh(ctx, "garbage")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
