package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harvestplace/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
)

func TestProfiling_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(ProfilingWithConfig(ProfilingConfig{Enabled: false}))

	var labeled bool
	router.GET("/api/v1/wallet", func(c *gin.Context) {
		_, labeled = pprof.Label(c.Request.Context(), ProfilingLabelRoute)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, labeled)
}

func TestProfiling_LabelsRequest(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)

	router := gin.New()
	router.Use(JWTAuth(DefaultJWTConfig(svc)), ProfilingWithConfig(DefaultProfilingConfig()))

	got := map[string]string{}
	router.POST("/api/v1/orders/:id/cancel", func(c *gin.Context) {
		for _, key := range []string{ProfilingLabelRoute, ProfilingLabelMethod, ProfilingLabelController, ProfilingLabelRole} {
			if v, ok := pprof.Label(c.Request.Context(), key); ok {
				got[key] = v
			}
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/cancel", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+newToken(t, svc, uuid.New(), identity.RoleRetailer))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{
		ProfilingLabelRoute:      "/api/v1/orders/:id/cancel",
		ProfilingLabelMethod:     http.MethodPost,
		ProfilingLabelController: "orders",
		ProfilingLabelRole:       "retailer",
	}, got)
}

func TestProfiling_SkipPaths(t *testing.T) {
	router := gin.New()
	router.Use(ProfilingWithConfig(DefaultProfilingConfig()))

	var labeled bool
	router.GET("/health", func(c *gin.Context) {
		_, labeled = pprof.Label(c.Request.Context(), ProfilingLabelRoute)
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.False(t, labeled)
}

func TestExtractControllerFromRoute(t *testing.T) {
	tests := map[string]string{
		"/api/v1/orders":            "orders",
		"/api/v1/orders/:id/status": "orders",
		"/api/v2/wallet/deposit":    "wallet",
		"/health":                   "health",
		"":                          "",
		"/api/v1/:id":               "",
	}
	for route, want := range tests {
		assert.Equal(t, want, extractControllerFromRoute(route), route)
	}
}

func TestIsVersionSegment(t *testing.T) {
	assert.True(t, isVersionSegment("v1"))
	assert.True(t, isVersionSegment("V12"))
	assert.False(t, isVersionSegment("v"))
	assert.False(t, isVersionSegment("vx"))
	assert.False(t, isVersionSegment("orders"))
}
