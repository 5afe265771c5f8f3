package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	token, expiresAt, err := svc.GenerateAccessToken(GenerateTokenInput{
		UserID:   userID,
		Username: "green-acres",
		Role:     identity.RoleFarmer,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "green-acres", claims.Username)
	assert.Equal(t, "farmer", claims.Role)
	assert.Greater(t, claims.GetRemainingTTL(), 14*time.Minute)

	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, identity.NewActor(userID, identity.RoleFarmer), actor)
}

func TestValidateAccessToken_Rejections(t *testing.T) {
	svc := newTestJWTService()

	expired := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: -time.Minute,
	})
	expiredToken, _, err := expired.GenerateAccessToken(GenerateTokenInput{UserID: uuid.New(), Role: identity.RoleStaff})
	require.NoError(t, err)

	otherSecret := NewJWTService(config.JWTConfig{
		Secret:                "another-secret-key-of-32-chars!!",
		Issuer:                "test-issuer",
		AccessTokenExpiration: time.Minute,
	})
	forged, _, err := otherSecret.GenerateAccessToken(GenerateTokenInput{UserID: uuid.New(), Role: identity.RoleStaff})
	require.NoError(t, err)

	otherIssuer := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "someone-else",
		AccessTokenExpiration: time.Minute,
	})
	foreign, _, err := otherIssuer.GenerateAccessToken(GenerateTokenInput{UserID: uuid.New(), Role: identity.RoleStaff})
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.NewString(), Role: "staff"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		err   error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expiredToken, ErrExpiredToken},
		{"wrong secret", forged, ErrInvalidToken},
		{"wrong issuer", foreign, ErrInvalidToken},
		{"unsigned", noneAlg, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidateAccessToken_MissingUserID(t *testing.T) {
	svc := newTestJWTService()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Role: "retailer",
	}).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestClaimsActor(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name   string
		claims Claims
		want   identity.Actor
		err    error
	}{
		{"retailer", Claims{UserID: id.String(), Role: "retailer"}, identity.NewActor(id, identity.RoleRetailer), nil},
		{"role is case insensitive", Claims{UserID: id.String(), Role: " Staff "}, identity.NewActor(id, identity.RoleStaff), nil},
		{"unknown role", Claims{UserID: id.String(), Role: "admin"}, identity.Actor{}, ErrInvalidRole},
		{"missing role", Claims{UserID: id.String()}, identity.Actor{}, ErrInvalidRole},
		{"bad user id", Claims{UserID: "42", Role: "farmer"}, identity.Actor{}, ErrInvalidClaims},
		{"nil user id", Claims{UserID: uuid.Nil.String(), Role: "farmer"}, identity.Actor{}, ErrInvalidClaims},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.claims.Actor()
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
