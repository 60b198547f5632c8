package service

import (
	"testing"
	"time"

	"github.com/givetrack/givetrack/internal/config"
	"github.com/givetrack/givetrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		SecretKey:     "test-secret-key-that-is-long-enough!",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	}
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	_, err := NewJWTService(&config.JWTConfig{SecretKey: "short"}, testLogger())
	assert.Error(t, err)
}

func TestGenerateAndVerifyTokenPair(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig(), testLogger())
	require.NoError(t, err)

	pair, familyID, err := svc.GenerateTokenPair("uid-1", "a@b.com", models.RoleDonor, "")
	require.NoError(t, err)
	assert.NotEmpty(t, familyID)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.EqualValues(t, 900, pair.ExpiresIn)

	access, err := svc.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access", access.Type)
	assert.Equal(t, "a@b.com", access.Email)
	assert.Equal(t, models.RoleDonor, access.Role)
	assert.Equal(t, "uid-1", access.Subject)

	refresh, err := svc.VerifyToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refresh.Type)
	assert.NotEqual(t, access.JTI, refresh.JTI)
}

func TestGenerateTokenPairKeepsFamily(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig(), testLogger())
	require.NoError(t, err)

	_, familyID, err := svc.GenerateTokenPair("uid-1", "a@b.com", models.RoleDonor, "family-1")
	require.NoError(t, err)
	assert.Equal(t, "family-1", familyID)
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	svc, err := NewJWTService(testJWTConfig(), testLogger())
	require.NoError(t, err)

	other, err := NewJWTService(&config.JWTConfig{
		SecretKey:     "a-completely-different-32-byte-key!!",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	}, testLogger())
	require.NoError(t, err)

	pair, _, err := other.GenerateTokenPair("uid-1", "a@b.com", models.RoleDonor, "")
	require.NoError(t, err)

	_, err = svc.VerifyToken(pair.AccessToken)
	assert.Error(t, err)
}
