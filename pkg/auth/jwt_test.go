package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/studyquest-api/internal/config"
	apperrors "github.com/yourusername/studyquest-api/internal/pkg/errors"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	s, err := NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "studyquest"})
	require.NoError(t, err)
	return s
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService(config.JWTConfig{})
	assert.Error(t, err)
}

func TestJWTService_ParseToken(t *testing.T) {
	s := newTestJWTService(t)

	token, err := s.GenerateToken(42, "user@example.com", "user", time.Hour)
	require.NoError(t, err)

	claims, err := s.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestJWTService_ParseToken_Errors(t *testing.T) {
	s := newTestJWTService(t)
	other, err := NewJWTService(config.JWTConfig{Secret: "other-secret", Issuer: "studyquest"})
	require.NoError(t, err)
	foreignIssuer, err := NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	expired, err := s.GenerateToken(1, "a@b.c", "user", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := other.GenerateToken(1, "a@b.c", "user", time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := foreignIssuer.GenerateToken(1, "a@b.c", "user", time.Hour)
	require.NoError(t, err)
	noUser, err := s.GenerateToken(0, "a@b.c", "user", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTCustomClaims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"истекший токен", expired, apperrors.ErrExpiredToken},
		{"чужая подпись", wrongKey, apperrors.ErrUnauthorized},
		{"чужой издатель", wrongIssuer, apperrors.ErrUnauthorized},
		{"нет user_id", noUser, apperrors.ErrUnauthorized},
		{"алгоритм none", none, apperrors.ErrUnauthorized},
		{"мусор", "not-a-token", apperrors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ParseToken(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "Ожидалась ошибка %v, получено %v", tt.wantErr, err)
		})
	}
}
