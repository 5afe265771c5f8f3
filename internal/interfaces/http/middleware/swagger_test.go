package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/harvestplace/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func newSwaggerRouter(cfg config.SwaggerConfig, jwt gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/swagger/*any", SwaggerProtection(cfg, jwt), func(c *gin.Context) {
		c.String(http.StatusOK, "docs")
	})
	return router
}

func TestSwaggerProtection(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token := newToken(t, svc, uuid.New(), identity.RoleStaff)
	jwt := JWTAuth(DefaultJWTConfig(svc))

	tests := []struct {
		name       string
		cfg        config.SwaggerConfig
		remoteAddr string
		token      string
		wantStatus int
	}{
		{
			name:       "disabled",
			cfg:        config.SwaggerConfig{Enabled: false},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "open",
			cfg:        config.SwaggerConfig{Enabled: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "allowed single ip",
			cfg:        config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.10"}},
			remoteAddr: "192.168.1.10:5000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "allowed cidr",
			cfg:        config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}},
			remoteAddr: "10.20.30.40:5000",
			wantStatus: http.StatusOK,
		},
		{
			name:       "outside allow list",
			cfg:        config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}},
			remoteAddr: "203.0.113.7:5000",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "auth required without token",
			cfg:        config.SwaggerConfig{Enabled: true, RequireAuth: true},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "auth required with token",
			cfg:        config.SwaggerConfig{Enabled: true, RequireAuth: true},
			token:      token,
			wantStatus: http.StatusOK,
		},
		{
			name:       "allowed ip still needs token",
			cfg:        config.SwaggerConfig{Enabled: true, RequireAuth: true, AllowedIPs: []string{"10.0.0.0/8"}},
			remoteAddr: "10.1.1.1:5000",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			if tt.token != "" {
				req.Header.Set(AuthHeaderKey, BearerPrefix+tt.token)
			}
			w := httptest.NewRecorder()
			newSwaggerRouter(tt.cfg, jwt).ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestSwaggerProtection_DisabledBody(t *testing.T) {
	w := httptest.NewRecorder()
	newSwaggerRouter(config.SwaggerConfig{}, nil).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
}

func TestParseAllowList(t *testing.T) {
	ips, nets := parseAllowList([]string{"192.168.1.1", " 10.0.0.0/8 ", "not-an-ip", "300.0.0.0/8", "::1"})

	assert.Len(t, ips, 2)
	assert.Len(t, nets, 1)
	assert.True(t, isIPAllowed(net.ParseIP("10.9.9.9"), ips, nets))
	assert.True(t, isIPAllowed(net.ParseIP("::1"), ips, nets))
	assert.False(t, isIPAllowed(net.ParseIP("192.168.1.2"), ips, nets))
	assert.False(t, isIPAllowed(nil, ips, nets))
}
