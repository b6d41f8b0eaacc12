package security

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	pkgsecurity "churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, username, password, ipAddress string) (*LoginResult, error) {
	args := m.Called(username, password, ipAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockAuthenticator) GetAttempts(ctx context.Context, filter LoginAttemptFilter, page models.Page) (*models.PagedResult[models.LoginAttempt], error) {
	args := m.Called(filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PagedResult[models.LoginAttempt]), args.Error(1)
}

func (m *MockAuthenticator) ResetLockout(ctx context.Context, username, resetBy string) error {
	return m.Called(username, resetBy).Error(0)
}

func setupRouter(service Authenticator, identity *pkgsecurity.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewAuthHandler(service, 20)
	handler.RegisterPublicRoutes(router)

	group := router.Group("", func(c *gin.Context) {
		if identity != nil {
			pkgsecurity.SetIdentity(c, *identity)
		}
		c.Next()
	})
	handler.RegisterRoutes(group)
	return router
}

func TestLoginHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(m *MockAuthenticator)
		expectedStatus int
	}{
		{
			name: "valid credentials",
			body: `{"username":"treasurer","password":"hymnal42"}`,
			mockSetup: func(m *MockAuthenticator) {
				m.On("Authenticate", "treasurer", "hymnal42", "192.0.2.1").
					Return(&LoginResult{Token: "token"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "invalid credentials",
			body: `{"username":"treasurer","password":"nope"}`,
			mockSetup: func(m *MockAuthenticator) {
				m.On("Authenticate", "treasurer", "nope", "192.0.2.1").
					Return(nil, custom_error.ErrInvalidCredentials)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "locked out",
			body: `{"username":"treasurer","password":"nope"}`,
			mockSetup: func(m *MockAuthenticator) {
				m.On("Authenticate", "treasurer", "nope", "192.0.2.1").
					Return(nil, custom_error.ErrTooManyAttempts)
			},
			expectedStatus: http.StatusTooManyRequests,
		},
		{
			name:           "missing password",
			body:           `{"username":"treasurer"}`,
			mockSetup:      func(m *MockAuthenticator) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockAuthenticator)
			tt.mockSetup(service)
			router := setupRouter(service, nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/auth", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestLoginAttemptRoutes(t *testing.T) {
	admin := pkgsecurity.Identity{UserID: 1, Username: "admin", Role: roles.Admin}
	member := pkgsecurity.Identity{UserID: 2, Username: "member", Role: roles.User}

	t.Run("admin lists attempts with filters", func(t *testing.T) {
		service := new(MockAuthenticator)
		successful := false
		service.On("GetAttempts", LoginAttemptFilter{Username: "treasurer", Successful: &successful}, models.Page{Page: 2, PerPage: 20}).
			Return(&models.PagedResult[models.LoginAttempt]{Items: []models.LoginAttempt{}}, nil)

		w := httptest.NewRecorder()
		setupRouter(service, &admin).ServeHTTP(w, httptest.NewRequest("GET", "/login-attempts?username=treasurer&successful=false&page=2", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("member cannot list attempts", func(t *testing.T) {
		service := new(MockAuthenticator)

		w := httptest.NewRecorder()
		setupRouter(service, &member).ServeHTTP(w, httptest.NewRequest("GET", "/login-attempts", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin resets one username", func(t *testing.T) {
		service := new(MockAuthenticator)
		service.On("ResetLockout", "treasurer", "admin").Return(nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login-attempts/reset", bytes.NewBufferString(`{"username":"treasurer"}`))
		req.Header.Set("Content-Type", "application/json")
		setupRouter(service, &admin).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("admin resets everyone", func(t *testing.T) {
		service := new(MockAuthenticator)
		service.On("ResetLockout", "", "admin").Return(nil)

		w := httptest.NewRecorder()
		setupRouter(service, &admin).ServeHTTP(w, httptest.NewRequest("POST", "/login-attempts/reset", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		service.AssertExpectations(t)
	})
}

func TestLoginRecordsSocketAddressWhenNoProxyIsTrusted(t *testing.T) {
	service := new(MockAuthenticator)
	service.On("Authenticate", "treasurer", "hymnal42", "203.0.113.9").
		Return(nil, custom_error.ErrInvalidCredentials)

	router := setupRouter(service, nil)
	assert.NoError(t, router.SetTrustedProxies(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth", bytes.NewBufferString(`{"username":"treasurer","password":"hymnal42"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "10.9.8.7")
	req.RemoteAddr = "203.0.113.9:51000"
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	service.AssertExpectations(t)
}
