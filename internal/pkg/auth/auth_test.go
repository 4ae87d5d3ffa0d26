// internal/pkg/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Storefront API"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-key",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, err := manager.GenerateAccessToken(42, "user@example.com", true)
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, "Storefront API", claims.Issuer)
	assert.Equal(t, "user:42", claims.Subject)
}

func TestTokenTypeIsEnforced(t *testing.T) {
	manager := NewJWTManager(testConfig())

	access, err := manager.GenerateAccessToken(1, "user@example.com", false)
	require.NoError(t, err)
	refresh, err := manager.GenerateRefreshToken(1, "user@example.com")
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(refresh)
	assert.Error(t, err, "refresh token must not pass as access token")

	_, err = manager.ValidateRefreshToken(access)
	assert.Error(t, err, "access token must not pass as refresh token")
}

func TestRefreshTokenNeverCarriesAdmin(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, err := manager.GenerateRefreshToken(1, "admin@example.com")
	require.NoError(t, err)

	claims, err := manager.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager(testConfig())

	token, err := manager.GenerateAccessToken(1, "user@example.com", false)
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "different-secret"
	_, err = NewJWTManager(other).ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromHeader("Bearer abc.def.ghi"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	manager := NewPasswordManager(testConfig())

	hash, err := manager.HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.NoError(t, manager.VerifyPassword("Sup3rSecret", hash))
	assert.Error(t, manager.VerifyPassword("WrongPass1", hash))
}

func TestValidatePassword(t *testing.T) {
	manager := NewPasswordManager(testConfig())

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Sup3rSecret", false},
		{"too short", "Ab1", true},
		{"no uppercase", "sup3rsecret", true},
		{"no lowercase", "SUP3RSECRET", true},
		{"no number", "SuperSecret", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
