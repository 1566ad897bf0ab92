package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/loomsite/loomsite/internal/auth/domain"
	"github.com/loomsite/loomsite/internal/auth/repository"
	"github.com/loomsite/loomsite/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newAuthService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Session{}))

	genID, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return New(zap.NewNop(), repository.Provide(db), genID, clk), clk
}

func mustSignup(t *testing.T, svc domain.Service, email, password string) *domain.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func TestCreateUser(t *testing.T) {
	svc, _ := newAuthService(t)

	user := mustSignup(t, svc, "  Jo@Example.COM ", "correct horse")
	assert.Equal(t, "jo@example.com", user.Email)
	assert.Equal(t, "jo", user.DisplayName)
	require.NotNil(t, user.PasswordHash)
	assert.NotContains(t, *user.PasswordHash, "correct horse")
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{Email: "not-an-email", Password: "long enough"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.CreateUser(context.Background(), domain.CreateUserRequest{Email: "jo@example.com", Password: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	mustSignup(t, svc, "jo@example.com", "correct horse")

	_, err := svc.CreateUser(context.Background(), domain.CreateUserRequest{
		Email:    "JO@example.com",
		Password: "another pass",
	})
	assert.ErrorIs(t, err, domain.ErrUserExists)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, clk := newAuthService(t)
	user := mustSignup(t, svc, "jo@example.com", "correct horse")

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.RawToken)
	assert.Equal(t, clk.Now().Add(7*24*time.Hour), result.ExpiresAt)

	authed, err := svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	mustSignup(t, svc, "jo@example.com", "correct horse")

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "incorrect horse",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUnknownUserIndistinguishable(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever pass",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestSessionExpiry(t *testing.T) {
	svc, clk := newAuthService(t)
	mustSignup(t, svc, "jo@example.com", "correct horse")

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	clk.Advance(7*24*time.Hour + time.Minute)
	_, err = svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newAuthService(t)
	mustSignup(t, svc, "jo@example.com", "correct horse")

	result, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "jo@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), result.RawToken))

	_, err = svc.Authenticate(context.Background(), result.RawToken)
	assert.Error(t, err)
}

func TestAuthenticateEmptyToken(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}
