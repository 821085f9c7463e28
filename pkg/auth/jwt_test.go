package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

func testService() JWTService {
	return NewJWTService(JWTConfig{
		Secret:             "access-secret",
		RefreshSecret:      "refresh-secret",
		ExpiryHours:        1,
		RefreshExpiryHours: 24,
	})
}

func testUser() *model.User {
	user := &model.User{
		Email: "doc@example.com",
		Role:  model.UserRoleDoctor,
	}
	user.ID = uuid.New()
	return user
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := testService()
	user := testUser()

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, model.UserRoleDoctor, claims.Role)
}

func TestRefreshTokenNotValidAsAccessToken(t *testing.T) {
	svc := testService()

	refresh, err := svc.GenerateRefreshToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(refresh)
	assert.Error(t, err)

	_, err = svc.ValidateRefreshToken(refresh)
	assert.NoError(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := testService()

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	other := NewJWTService(JWTConfig{
		Secret:        "different-secret",
		RefreshSecret: "different-refresh",
		ExpiryHours:   1,
	})

	token, _, err := other.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = testService().ValidateToken(token)
	assert.Error(t, err)
}
