package routes

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"churchinventory/internal/core/config"
	"churchinventory/internal/core/container"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, trustedProxies ...string) (*gin.Engine, *container.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		TrustedProxies: trustedProxies,
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		RequestTimeout: time.Second,
		PerPage:        20,
		LoginRateRPS:   1,
		LoginRateBurst: 2,
	}

	// No database: every request below is answered before a query runs.
	app, err := container.NewAppContainer(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	require.Nil(t, app.SheetsHandler)

	router, err := NewRouter(app)
	require.NoError(t, err)
	return router, app
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/items", "/locations", "/stocks", "/movements", "/disposals", "/users/me", "/export"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAdminRoutesRejectMembers(t *testing.T) {
	router, app := newTestRouter(t)

	token, err := app.TokenIssuer.GenerateJWT(security.Identity{UserID: 2, Username: "usher", Role: roles.User})
	require.NoError(t, err)

	for _, path := range []string{"/users", "/login-attempts", "/activity"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestLoginIsPublicAndRateLimited(t *testing.T) {
	router, _ := newTestRouter(t)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestUtilityRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestForwardedForIsIgnoredFromUntrustedPeers(t *testing.T) {
	router, _ := newTestRouter(t)
	router.GET("/client-ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/client-ip", nil)
	req.RemoteAddr = "203.0.113.9:40000"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	router.ServeHTTP(w, req)
	assert.Equal(t, "203.0.113.9", w.Body.String())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestForwardedForIsHonouredFromTrustedProxy(t *testing.T) {
	router, _ := newTestRouter(t, "198.51.100.0/24")
	router.GET("/client-ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/client-ip", nil)
	req.RemoteAddr = "198.51.100.4:40000"
	req.Header.Set("X-Forwarded-For", "192.0.2.77")
	router.ServeHTTP(w, req)
	assert.Equal(t, "192.0.2.77", w.Body.String())
}

func TestInvalidTrustedProxyIsRejected(t *testing.T) {
	app, err := container.NewAppContainer(context.Background(), &config.Config{
		JWTSecret:      "test-secret",
		JWTTTL:         time.Hour,
		TrustedProxies: []string{"not-an-address"},
	}, nil, nil)
	require.NoError(t, err)

	_, err = NewRouter(app)
	assert.Error(t, err)
}
