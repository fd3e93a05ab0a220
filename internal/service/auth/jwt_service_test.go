package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

func newTestService(t *testing.T, secret string, at time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newJWTService(secret, time.Hour, func() time.Time { return at })
	require.NoError(t, err)
	return svc
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	operatorID := uuid.New()
	svc := newTestService(t, testSecret, fixedTime)

	token, err := svc.GenerateToken(context.Background(), operatorID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.OperatorID)
	assert.Equal(t, operatorID.String(), claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	_, err = svc.GenerateToken(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrMissingOperator)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	operatorID := uuid.New()

	issue := func(secret string, at time.Time) string {
		token, err := newTestService(t, secret, at).GenerateToken(context.Background(), operatorID)
		require.NoError(t, err)
		return token
	}

	handSigned := func(id uuid.UUID, tokenType string) string {
		claims := jwtCustomClaims{
			OperatorID: id,
			TokenType:  tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   id.String(),
				IssuedAt:  jwt.NewNumericDate(fixedTime),
				ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return token
	}

	tests := []struct {
		name    string
		token   string
		at      time.Time
		secret  string
		wantErr error
	}{
		{"valid token", issue(testSecret, fixedTime), fixedTime, testSecret, nil},
		{"within clock skew", issue(testSecret, fixedTime), fixedTime.Add(time.Hour + time.Minute), testSecret, nil},
		{"expired token", issue(testSecret, fixedTime), fixedTime.Add(2 * time.Hour), testSecret, ErrExpiredToken},
		{"not yet valid", issue(testSecret, fixedTime.Add(time.Hour)), fixedTime, testSecret, ErrTokenNotYetValid},
		{"invalid signature", issue(testSecret, fixedTime), fixedTime, wrongSecret, ErrInvalidToken},
		{"malformed token", "this.is.not.a.valid.jwt.token", fixedTime, testSecret, ErrInvalidToken},
		{"wrong token type", handSigned(operatorID, "refresh"), fixedTime, testSecret, ErrWrongTokenType},
		{"no operator", handSigned(uuid.Nil, TokenTypeAccess), fixedTime, testSecret, ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.secret, tt.at)
			claims, err := svc.ValidateToken(context.Background(), tt.token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, operatorID, claims.OperatorID)
		})
	}
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	assert.Error(t, err)

	_, err = NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 0})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: testSecret, TokenLifetimeMinutes: 60})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
