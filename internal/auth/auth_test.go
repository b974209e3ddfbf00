package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketbox/internal/models"
	"ticketbox/internal/store"
)

func newAuthService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()

	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	db := store.NewMemoryStore()
	db.PutAdmin(models.Admin{
		ID:           "adm1",
		Email:        "staff@example.com",
		Name:         "Gate Staff",
		PasswordHash: hash,
	})
	return NewService(db, "test-signing-key", ttl)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newAuthService(t, 12*time.Hour)

	token, admin, err := svc.Login(context.Background(), "staff@example.com", "s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "staff@example.com", admin.Email)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "adm1", claims.Subject)
	assert.Equal(t, "staff@example.com", claims.Email)
	assert.Equal(t, "Gate Staff", claims.Name)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t, 12*time.Hour)

	_, _, err := svc.Login(context.Background(), "staff@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newAuthService(t, 12*time.Hour)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := newAuthService(t, 12*time.Hour)

	token, _, err := svc.Login(context.Background(), "staff@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	other := NewService(store.NewMemoryStore(), "different-key", 12*time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newAuthService(t, -time.Minute)

	token, _, err := svc.Login(context.Background(), "staff@example.com", "s3cret-pass")
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
