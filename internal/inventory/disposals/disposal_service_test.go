package disposals

import (
	"context"
	"errors"
	"testing"
	"time"

	"churchinventory/internal/metrics"
	"churchinventory/internal/testutil"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/doug-martin/goqu/v9"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) LockItem(ctx context.Context, tx *goqu.TxDatabase, itemID int) error {
	return m.Called(itemID).Error(0)
}

func (m *MockLedger) EnsureLocation(ctx context.Context, tx *goqu.TxDatabase, locationID int, field string) error {
	return m.Called(locationID, field).Error(0)
}

func (m *MockLedger) Decrease(ctx context.Context, tx *goqu.TxDatabase, itemID, locationID, quantity int) error {
	return m.Called(itemID, locationID, quantity).Error(0)
}

type MockDisposalRepository struct {
	mock.Mock
}

func (m *MockDisposalRepository) InsertDisposal(ctx context.Context, tx *goqu.TxDatabase, disposal *models.Disposal) error {
	args := m.Called(disposal)
	if args.Error(0) == nil {
		disposal.ID = 7
	}
	return args.Error(0)
}

func (m *MockDisposalRepository) GetDisposals(ctx context.Context, filter DisposalFilter, page models.Page) (*models.PagedResult[models.Disposal], error) {
	args := m.Called(filter, page)
	return args.Get(0).(*models.PagedResult[models.Disposal]), args.Error(1)
}

func (m *MockDisposalRepository) AllDisposals(ctx context.Context) ([]models.Disposal, error) {
	args := m.Called()
	return args.Get(0).([]models.Disposal), args.Error(1)
}

var treasurer = security.Identity{UserID: 3, Username: "treasurer", Role: roles.User}

func newService(ledger *MockLedger, repo *MockDisposalRepository) (*DisposalService, *testutil.Transactor, *metrics.Metrics) {
	tx := &testutil.Transactor{}
	m := metrics.New()
	return NewDisposalService(tx, ledger, repo, auditlog.NewAuditLog(nil), m), tx, m
}

func TestRecordDisposal(t *testing.T) {
	ledger := new(MockLedger)
	repo := new(MockDisposalRepository)
	s, tx, m := newService(ledger, repo)

	ledger.On("LockItem", 1).Return(nil).Once()
	ledger.On("EnsureLocation", 10, "location_id").Return(nil).Once()
	ledger.On("Decrease", 1, 10, 4).Return(nil).Once()
	repo.On("InsertDisposal", mock.MatchedBy(func(d *models.Disposal) bool {
		return d.Quantity == 4 && d.DisposedBy == "treasurer" && d.Reason == "broken"
	})).Return(nil).Once()

	disposal, err := s.RecordDisposal(context.Background(), treasurer, models.DisposalRequest{
		ItemID: 1, LocationID: 10, Quantity: 4, Reason: "  broken ", DisposedBy: "spoofed",
	})

	require.NoError(t, err)
	assert.Equal(t, 7, disposal.ID)
	assert.False(t, tx.RolledBack)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.LedgerOperations.WithLabelValues("disposal")))
	ledger.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestRecordDisposalExceedingStock(t *testing.T) {
	ledger := new(MockLedger)
	repo := new(MockDisposalRepository)
	s, tx, m := newService(ledger, repo)

	ledger.On("LockItem", 1).Return(nil).Once()
	ledger.On("EnsureLocation", 10, "location_id").Return(nil).Once()
	ledger.On("Decrease", 1, 10, 7).
		Return(&custom_error.InsufficientStockError{ItemID: 1, LocationID: 10, Requested: 7, Available: 6}).Once()

	_, err := s.RecordDisposal(context.Background(), treasurer, models.DisposalRequest{
		ItemID: 1, LocationID: 10, Quantity: 7, Reason: "lost",
	})

	var target *custom_error.InsufficientStockError
	require.True(t, errors.As(err, &target))
	assert.True(t, tx.RolledBack)
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.InsufficientStock.WithLabelValues("disposal")))
	repo.AssertNotCalled(t, "InsertDisposal", mock.Anything)
}

func TestRecordDisposalValidation(t *testing.T) {
	tests := []struct {
		name          string
		identity      security.Identity
		req           models.DisposalRequest
		expectedField string
	}{
		{"missing reason", treasurer, models.DisposalRequest{ItemID: 1, LocationID: 1, Quantity: 1, Reason: "  "}, "reason"},
		{"zero quantity", treasurer, models.DisposalRequest{ItemID: 1, LocationID: 1, Quantity: 0, Reason: "x"}, "quantity"},
		{"missing location", treasurer, models.DisposalRequest{ItemID: 1, Quantity: 1, Reason: "x"}, "location_id"},
		{"anonymous", security.Identity{}, models.DisposalRequest{ItemID: 1, LocationID: 1, Quantity: 1, Reason: "x"}, "disposed_by"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(MockLedger)
			s, _, _ := newService(ledger, new(MockDisposalRepository))

			_, err := s.RecordDisposal(context.Background(), tt.identity, tt.req)

			var target *custom_error.ValidationError
			require.True(t, errors.As(err, &target))
			assert.Equal(t, tt.expectedField, target.Field)
			ledger.AssertNotCalled(t, "Decrease", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestApplyDisposalKeepsRequestedDate(t *testing.T) {
	ledger := new(MockLedger)
	repo := new(MockDisposalRepository)
	s, _, _ := newService(ledger, repo)
	date := time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)

	ledger.On("LockItem", 1).Return(nil)
	ledger.On("EnsureLocation", 2, "location_id").Return(nil)
	ledger.On("Decrease", 1, 2, 1).Return(nil)
	repo.On("InsertDisposal", mock.Anything).Return(nil)

	disposal, err := s.ApplyDisposal(context.Background(), nil, models.DisposalRequest{
		ItemID: 1, LocationID: 2, Quantity: 1, Reason: "damaged", DisposedDate: &date, DisposedBy: "import",
	})

	require.NoError(t, err)
	assert.Equal(t, date, disposal.DisposedDate)
	assert.Equal(t, "import", disposal.DisposedBy)
}
