package items

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) AddItem(ctx context.Context, identity security.Identity, req CreateItemRequest) (*models.Item, error) {
	args := m.Called(req.Name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockCatalog) GetItem(ctx context.Context, id int) (*models.Item, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockCatalog) UpdateItem(ctx context.Context, identity security.Identity, id int, req UpdateItemRequest) (*models.Item, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockCatalog) ListItems(ctx context.Context, query ItemListQuery, page models.Page) (*models.PagedResult[models.Item], error) {
	args := m.Called(query.Query, page)
	return args.Get(0).(*models.PagedResult[models.Item]), args.Error(1)
}

func (m *MockCatalog) Categories(ctx context.Context) ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalog) Conditions(ctx context.Context) ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCatalog) DeleteItem(ctx context.Context, identity security.Identity, id int) (*models.ItemDeletion, error) {
	args := m.Called(identity.Username, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemDeletion), args.Error(1)
}

func TestItemHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	admin := security.Identity{UserID: 1, Username: "admin", Role: roles.Admin}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		identity       security.Identity
		mockSetup      func(m *MockCatalog)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "create", method: http.MethodPost, path: "/items", body: `{"name":"Hymnal","price_per_item":"9.99"}`, identity: clerk,
			mockSetup: func(m *MockCatalog) {
				m.On("AddItem", "Hymnal").Return(&models.Item{ID: 1, Name: "Hymnal"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "create with value wider than its column", method: http.MethodPost, path: "/items", body: `{"name":"Hymnal"}`, identity: clerk,
			mockSetup: func(m *MockCatalog) {
				m.On("AddItem", "Hymnal").
					Return(nil, custom_error.WrapDBError("failed to insert item record", &pq.Error{Code: "22001", Column: "description"}))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"field":"description"`,
		},
		{
			name: "create without name", method: http.MethodPost, path: "/items", body: `{"description":"x"}`, identity: clerk,
			mockSetup:      func(m *MockCatalog) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "search requires term", method: http.MethodGet, path: "/items/search", identity: clerk,
			mockSetup:      func(m *MockCatalog) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"field":"q"`,
		},
		{
			name: "search", method: http.MethodGet, path: "/items/search?q=candle", identity: clerk,
			mockSetup: func(m *MockCatalog) {
				m.On("ListItems", "candle", models.Page{Page: 1, PerPage: 20}).
					Return(&models.PagedResult[models.Item]{Items: []models.Item{}, Page: 1, PerPage: 20}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "categories route is not an id", method: http.MethodGet, path: "/items/categories", identity: clerk,
			mockSetup: func(m *MockCatalog) {
				m.On("Categories").Return([]string{"Linens", "Vessels"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `["Linens","Vessels"]`,
		},
		{
			name: "get missing", method: http.MethodGet, path: "/items/12", identity: clerk,
			mockSetup: func(m *MockCatalog) {
				m.On("GetItem", 12).Return(nil, custom_error.NewNotFoundError("item", 12))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "delete needs admin", method: http.MethodDelete, path: "/items/12", identity: clerk,
			mockSetup:      func(m *MockCatalog) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name: "delete reports counts", method: http.MethodDelete, path: "/items/12", identity: admin,
			mockSetup: func(m *MockCatalog) {
				m.On("DeleteItem", "admin", 12).Return(&models.ItemDeletion{ItemID: 12, Stock: 1, Movements: 2}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"movement_rows":2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockCatalog)
			tt.mockSetup(service)

			router := gin.New()
			group := router.Group("", func(c *gin.Context) {
				security.SetIdentity(c, tt.identity)
				c.Next()
			})
			NewItemHandler(service, 20).RegisterRoutes(group)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			service.AssertExpectations(t)
		})
	}
}
