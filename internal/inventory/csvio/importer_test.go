package csvio

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"churchinventory/internal/inventory/items"
	"churchinventory/internal/testutil"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockItemImporter struct {
	mock.Mock
}

func (m *MockItemImporter) ApplyAddItem(ctx context.Context, tx *goqu.TxDatabase, req items.CreateItemRequest) (*models.Item, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockItemImporter) ResolveItem(ctx context.Context, tx *goqu.TxDatabase, name, description string) (*models.Item, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

type MockMovementApplier struct {
	mock.Mock
}

func (m *MockMovementApplier) ApplyMovement(ctx context.Context, tx *goqu.TxDatabase, req models.MovementRequest) (*models.Movement, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Movement), args.Error(1)
}

type MockDisposalApplier struct {
	mock.Mock
}

func (m *MockDisposalApplier) ApplyDisposal(ctx context.Context, tx *goqu.TxDatabase, req models.DisposalRequest) (*models.Disposal, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Disposal), args.Error(1)
}

type MockLocationResolver struct {
	mock.Mock
}

func (m *MockLocationResolver) GetOrCreateLocation(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Location, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

var sexton = security.Identity{UserID: 9, Username: "sexton", Role: roles.User}

type importFixture struct {
	items     *MockItemImporter
	movements *MockMovementApplier
	disposals *MockDisposalApplier
	locations *MockLocationResolver
	tx        *testutil.Transactor
	importer  *Importer
}

func newImportFixture() *importFixture {
	f := &importFixture{
		items:     new(MockItemImporter),
		movements: new(MockMovementApplier),
		disposals: new(MockDisposalApplier),
		locations: new(MockLocationResolver),
		tx:        &testutil.Transactor{},
	}
	f.importer = NewImporter(f.tx, f.items, f.movements, f.disposals, f.locations, auditlog.NewAuditLog(nil), nil, nil)
	return f
}

func intPtr(v int) *int { return &v }

func TestImportInventory(t *testing.T) {
	f := newImportFixture()
	price := decimal.RequireFromString("4.50")

	f.items.On("ApplyAddItem", items.CreateItemRequest{
		Name: "Altar Candle", Description: "Beeswax", Category: "Liturgical", Condition: "New",
		DateAcquired: "2025-01-15", PricePerItem: &price, Quantity: 10, LocationName: "Sacristy",
		ResponsiblePerson: "sexton", Notes: importNote,
	}).Return(&models.Item{ID: 1}, nil).Once()
	f.items.On("ApplyAddItem", mock.MatchedBy(func(req items.CreateItemRequest) bool {
		return req.Name == "Hymnal" && req.Quantity == 40 && req.PricePerItem == nil
	})).Return(&models.Item{ID: 2}, nil).Once()

	file := "\ufeffName,Location,Quantity,Description,Category,Condition,DateAcquired,PricePerItem\n" +
		"Altar Candle,Sacristy,10,Beeswax,Liturgical,New,2025-01-15,4.50\n" +
		",,,,,,,\n" +
		"Hymnal,Choir Loft,40,,,,,\n"

	result, err := f.importer.Import(context.Background(), sexton, Inventory, strings.NewReader(file))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 1, f.tx.Calls)
	f.items.AssertExpectations(t)
}

func TestImportMovements(t *testing.T) {
	f := newImportFixture()
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	f.items.On("ResolveItem", "Communion Chalice").Return(&models.Item{ID: 3}, nil).Once()
	f.locations.On("GetOrCreateLocation", "Storage Room").Return(&models.Location{ID: 4}, nil).Once()
	f.locations.On("GetOrCreateLocation", "Main Church").Return(&models.Location{ID: 5}, nil).Once()
	f.movements.On("ApplyMovement", models.MovementRequest{
		ItemID: 3, Quantity: 2, FromLocationID: intPtr(4), ToLocationID: intPtr(5),
		MovementDate: &date, ResponsiblePerson: "sexton", Notes: "Weekly",
	}).Return(&models.Movement{ID: 1}, nil).Once()

	file := "Name,Quantity,Movement Date,ResponsiblePerson,FromLocation,ToLocation,Notes\n" +
		"Communion Chalice,2,2025-05-01,,Storage Room,Main Church,Weekly\n"

	result, err := f.importer.Import(context.Background(), sexton, Movements, strings.NewReader(file))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	f.movements.AssertExpectations(t)
	f.locations.AssertExpectations(t)
}

func TestImportDisposalsUsesIdentity(t *testing.T) {
	f := newImportFixture()

	f.items.On("ResolveItem", "Damaged Chair").Return(&models.Item{ID: 6}, nil).Once()
	f.locations.On("GetOrCreateLocation", "Sanctuary").Return(&models.Location{ID: 7}, nil).Once()
	f.disposals.On("ApplyDisposal", mock.MatchedBy(func(req models.DisposalRequest) bool {
		return req.ItemID == 6 && req.LocationID == 7 && req.Quantity == 1 &&
			req.DisposedBy == "sexton" && req.Reason == "Broken legs"
	})).Return(&models.Disposal{ID: 1}, nil).Once()

	file := "Name,Location,Quantity,DisposalDate,Reason,DisposedBy\n" +
		"Damaged Chair,Sanctuary,1,2025-05-01,Broken legs,someone-else\n"

	_, err := f.importer.Import(context.Background(), sexton, Disposals, strings.NewReader(file))

	require.NoError(t, err)
	f.disposals.AssertExpectations(t)
}

func TestImportRollsBackOnFirstBadRow(t *testing.T) {
	f := newImportFixture()

	f.items.On("ResolveItem", "Damaged Chair").Return(&models.Item{ID: 6}, nil)
	f.locations.On("GetOrCreateLocation", "Sanctuary").Return(&models.Location{ID: 7}, nil)
	f.disposals.On("ApplyDisposal", mock.MatchedBy(func(req models.DisposalRequest) bool { return req.Quantity == 1 })).
		Return(&models.Disposal{ID: 1}, nil).Once()
	f.disposals.On("ApplyDisposal", mock.MatchedBy(func(req models.DisposalRequest) bool { return req.Quantity == 50 })).
		Return(nil, &custom_error.InsufficientStockError{ItemID: 6, LocationID: 7, Requested: 50, Available: 0}).Once()

	file := "Name,Location,Quantity,DisposalDate,Reason\n" +
		"Damaged Chair,Sanctuary,1,2025-05-01,Broken\n" +
		"Damaged Chair,Sanctuary,50,2025-05-01,Broken\n"

	_, err := f.importer.Import(context.Background(), sexton, Disposals, strings.NewReader(file))

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 3, rowErr.Line)
	var stockErr *custom_error.InsufficientStockError
	assert.True(t, errors.As(err, &stockErr))
	assert.True(t, f.tx.RolledBack)
}

func TestImportValidation(t *testing.T) {
	tests := []struct {
		name          string
		kind          Kind
		file          string
		expectedField string
	}{
		{"empty file", Inventory, "", "file"},
		{"missing required column", Inventory, "Name,Quantity\nChair,1\n", "header"},
		{"non positive quantity", Inventory, "Name,Location,Quantity\nChair,Hall,0\n", "Quantity"},
		{"bad date", Movements, "Name,Quantity,MovementDate,ResponsiblePerson,ToLocation\nChair,1,05/01/2025,Ann,Hall\n", "MovementDate"},
		{"movement without locations", Movements, "Name,Quantity,MovementDate,ResponsiblePerson\nChair,1,2025-05-01,Ann\n", "ToLocation"},
		{"bad price", Inventory, "Name,Location,Quantity,PricePerItem\nChair,Hall,1,cheap\n", "PricePerItem"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newImportFixture()

			_, err := f.importer.Import(context.Background(), sexton, tt.kind, strings.NewReader(tt.file))

			var validationErr *custom_error.ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Equal(t, tt.expectedField, validationErr.Field)
			f.items.AssertNotCalled(t, "ApplyAddItem", mock.Anything)
			f.movements.AssertNotCalled(t, "ApplyMovement", mock.Anything)
		})
	}
}

func TestImportRequiresIdentity(t *testing.T) {
	f := newImportFixture()

	_, err := f.importer.Import(context.Background(), security.Identity{}, Inventory, strings.NewReader("Name,Location,Quantity\n"))

	assert.Error(t, err)
	assert.Zero(t, f.tx.Calls)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		value    string
		allowAll bool
		expected Kind
		wantErr  bool
	}{
		{"current_inventory", false, Inventory, false},
		{"movement_tracker", false, Movements, false},
		{"Disposed_Items", false, Disposals, false},
		{"", true, Inventory, false},
		{"all", true, All, false},
		{"all", false, "", true},
		{"assets", true, "", true},
	}

	for _, tt := range tests {
		kind, err := ParseKind(tt.value, tt.allowAll)
		if tt.wantErr {
			assert.Error(t, err, tt.value)
			continue
		}
		assert.NoError(t, err, tt.value)
		assert.Equal(t, tt.expected, kind)
	}
}
