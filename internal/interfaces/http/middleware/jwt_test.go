package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/infrastructure/auth"
	"github.com/harvestplace/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                testSecret,
		Issuer:                "test-issuer",
		AccessTokenExpiration: expiration,
	})
}

func newToken(t *testing.T, svc *auth.JWTService, userID uuid.UUID, role identity.Role) string {
	t.Helper()
	token, _, err := svc.GenerateAccessToken(auth.GenerateTokenInput{UserID: userID, Username: "tester", Role: role})
	require.NoError(t, err)
	return token
}

func newAuthRouter(svc *auth.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuth(DefaultJWTConfig(svc)))
	handlers := append(extra, func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID.String(), "role": actor.Role.String()})
	})
	router.GET("/protected", handlers...)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+newToken(t, svc, userID, identity.RoleRetailer))
	w := httptest.NewRecorder()
	newAuthRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"`+userID.String()+`","role":"retailer"}`, w.Body.String())
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	expired := newToken(t, newTestJWTService(-time.Minute), uuid.New(), identity.RoleFarmer)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "INVALID_TOKEN"},
		{"basic auth", "Basic dXNlcjpwYXNz", "INVALID_TOKEN"},
		{"empty bearer", "Bearer ", "INVALID_TOKEN"},
		{"garbage token", "Bearer not.a.jwt", "INVALID_TOKEN"},
		{"expired token", "Bearer " + expired, "TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			newAuthRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.code+`"`)
			assert.Contains(t, w.Body.String(), `"request_id":"`)
		})
	}
}

func TestJWTAuth_UnknownRole(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token, _, err := svc.GenerateAccessToken(auth.GenerateTokenInput{UserID: uuid.New(), Role: identity.Role("admin")})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	newAuthRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	w := httptest.NewRecorder()
	newAuthRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_StoresClaims(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	userID := uuid.New()

	var claims *auth.Claims
	router := gin.New()
	router.Use(JWTAuth(DefaultJWTConfig(svc)))
	router.GET("/protected", func(c *gin.Context) {
		claims = GetJWTClaims(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+newToken(t, svc, userID, identity.RoleStaff))
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, claims)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "tester", claims.Username)
}

func TestRequireCapability(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)

	tests := []struct {
		name   string
		role   identity.Role
		guard  gin.HandlerFunc
		status int
	}{
		{"farmer may buy", identity.RoleFarmer, RequireBuyer(), http.StatusOK},
		{"retailer may buy", identity.RoleRetailer, RequireBuyer(), http.StatusOK},
		{"staff may not buy", identity.RoleStaff, RequireBuyer(), http.StatusForbidden},
		{"staff manages status", identity.RoleStaff, RequireStaff(), http.StatusOK},
		{"farmer does not manage status", identity.RoleFarmer, RequireStaff(), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set(AuthHeaderKey, BearerPrefix+newToken(t, svc, uuid.New(), tt.role))
			w := httptest.NewRecorder()
			newAuthRouter(svc, tt.guard).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), `"code":"FORBIDDEN"`)
			}
		})
	}
}

func TestRequireCapability_WithoutAuth(t *testing.T) {
	router := gin.New()
	router.GET("/staff", RequireStaff(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/staff", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
