package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/openliga/tournament-engine/models"
)

func TestAuthServiceRegister(t *testing.T) {
	t.Run("creates player with hashed password", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewAuthService(repo)

		user, err := svc.Register(context.Background(), RegisterInput{
			Email:    "Ada@Example.com",
			Password: "correct-horse",
		})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.Equal(t, models.RolePlayer, user.Role)
		assert.Empty(t, user.PasswordHash, "hash must not leak in the response")

		stored, err := repo.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse")))
	})

	t.Run("organizer role accepted", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())
		user, err := svc.Register(context.Background(), RegisterInput{
			Email:    "org@example.com",
			Password: "long-enough",
			Role:     "organizer",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleOrganizer, user.Role)
	})

	t.Run("admin role cannot be self-assigned", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())
		_, err := svc.Register(context.Background(), RegisterInput{
			Email:    "root@example.com",
			Password: "long-enough",
			Role:     "admin",
		})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("short password rejected", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo())
		_, err := svc.Register(context.Background(), RegisterInput{
			Email:    "a@example.com",
			Password: "short",
		})
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := NewAuthService(repo)
		_, err := svc.Register(context.Background(), RegisterInput{Email: "dup@example.com", Password: "long-enough"})
		require.NoError(t, err)
		_, err = svc.Register(context.Background(), RegisterInput{Email: "dup@example.com", Password: "long-enough"})
		assert.ErrorIs(t, err, ErrUserEmailConflict)
	})
}

func TestAuthServiceLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "login@example.com",
		Password: "valid-password",
	})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := svc.Login(context.Background(), LoginInput{
			Email:    "login@example.com",
			Password: "valid-password",
		})
		require.NoError(t, err)
		assert.Equal(t, "login@example.com", user.Email)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginInput{
			Email:    "login@example.com",
			Password: "wrong-password",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email maps to same error", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginInput{
			Email:    "nobody@example.com",
			Password: "whatever-password",
		})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
