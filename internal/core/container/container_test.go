package container

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	activity "churchinventory/internal/auditlog"
	"churchinventory/internal/core/config"
	"churchinventory/internal/inventory/csvio"
	"churchinventory/internal/inventory/items"
	"churchinventory/internal/testutil"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/roles"
	"churchinventory/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var warden = security.Identity{UserID: 1, Username: "warden", Role: roles.Admin}

func newIntegrationApp(t *testing.T) (*Container, *sql.DB) {
	t.Helper()
	db := testutil.StartPostgres(t)

	cfg := &config.Config{
		JWTSecret:        "integration-secret",
		JWTTTL:           time.Hour,
		PerPage:          20,
		LoginMaxFailures: 3,
		LoginBackoffBase: time.Minute,
		LoginBackoffMax:  time.Hour,
		LoginRateRPS:     10,
		LoginRateBurst:   10,
	}

	app, err := NewAppContainer(context.Background(), cfg, db, nil)
	require.NoError(t, err)
	return app, db
}

func stockedItem(t *testing.T, app *Container, name string, quantity int, locationID int) *models.Item {
	t.Helper()
	item, err := app.ItemService.AddItem(context.Background(), warden, items.CreateItemRequest{
		Name:       name,
		Quantity:   quantity,
		LocationID: &locationID,
	})
	require.NoError(t, err)
	return item
}

func quantity(t *testing.T, app *Container, itemID, locationID int) int {
	t.Helper()
	q, err := app.Stocks.Quantity(context.Background(), itemID, locationID)
	require.NoError(t, err)
	return q
}

func countRows(t *testing.T, db *sql.DB, table string, itemID int) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE item_id = $1", itemID).Scan(&n))
	return n
}

func TestLedgerAgainstPostgres(t *testing.T) {
	app, db := newIntegrationApp(t)
	ctx := context.Background()

	shelfA, err := app.LocationService.CreateLocation(ctx, warden, "Shelf A")
	require.NoError(t, err)
	shelfB, err := app.LocationService.CreateLocation(ctx, warden, "Shelf B")
	require.NoError(t, err)

	t.Run("disposal decrements and oversized disposal is rejected", func(t *testing.T) {
		widget := stockedItem(t, app, "Widget", 10, shelfA.ID)

		_, err := app.DisposalService.RecordDisposal(ctx, warden, models.DisposalRequest{
			ItemID: widget.ID, LocationID: shelfA.ID, Quantity: 4, Reason: "damaged",
		})
		require.NoError(t, err)
		assert.Equal(t, 6, quantity(t, app, widget.ID, shelfA.ID))
		assert.Equal(t, 1, countRows(t, db, "disposals", widget.ID))

		_, err = app.DisposalService.RecordDisposal(ctx, warden, models.DisposalRequest{
			ItemID: widget.ID, LocationID: shelfA.ID, Quantity: 7, Reason: "damaged",
		})
		var stockErr *custom_error.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, 6, stockErr.Available)
		assert.Equal(t, 6, quantity(t, app, widget.ID, shelfA.ID))
		assert.Equal(t, 1, countRows(t, db, "disposals", widget.ID))

		_, err = app.MovementService.RecordMovement(ctx, warden, models.MovementRequest{
			ItemID: widget.ID, Quantity: 5, FromLocationID: &shelfA.ID, ToLocationID: &shelfB.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, quantity(t, app, widget.ID, shelfA.ID))
		assert.Equal(t, 5, quantity(t, app, widget.ID, shelfB.ID))
	})

	t.Run("concurrent decrements never overdraw", func(t *testing.T) {
		hymnal := stockedItem(t, app, "Hymnal", 5, shelfA.ID)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = app.MovementService.RecordMovement(ctx, warden, models.MovementRequest{
					ItemID: hymnal.ID, Quantity: 3, FromLocationID: &shelfA.ID, ToLocationID: &shelfB.ID,
				})
			}(i)
		}
		wg.Wait()

		succeeded, insufficient := 0, 0
		for _, err := range errs {
			var stockErr *custom_error.InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				insufficient++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, insufficient)
		assert.Equal(t, 2, quantity(t, app, hymnal.ID, shelfA.ID))
		assert.Equal(t, 3, quantity(t, app, hymnal.ID, shelfB.ID))
	})

	t.Run("deleting an item leaves no orphans", func(t *testing.T) {
		candle := stockedItem(t, app, "Altar Candle", 8, shelfA.ID)
		_, err := app.MovementService.RecordMovement(ctx, warden, models.MovementRequest{
			ItemID: candle.ID, Quantity: 2, FromLocationID: &shelfA.ID, ToLocationID: &shelfB.ID,
		})
		require.NoError(t, err)
		_, err = app.DisposalService.RecordDisposal(ctx, warden, models.DisposalRequest{
			ItemID: candle.ID, LocationID: shelfA.ID, Quantity: 1, Reason: "burnt out",
		})
		require.NoError(t, err)

		deletion, err := app.ItemService.DeleteItem(ctx, warden, candle.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deletion.Stock)
		assert.Equal(t, int64(2), deletion.Movements)
		assert.Equal(t, int64(1), deletion.Disposals)

		for _, table := range []string{"item_locations", "movements", "disposals"} {
			assert.Zero(t, countRows(t, db, table, candle.ID), table)
		}

		_, err = app.ItemService.GetItem(ctx, candle.ID)
		var notFound *custom_error.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("location with stock cannot be deleted", func(t *testing.T) {
		err := app.LocationService.DeleteLocation(ctx, warden, shelfA.ID)
		var fkErr *custom_error.ForeignKeyViolationError
		assert.ErrorAs(t, err, &fkErr)
	})
}

func TestCSVImportRollsBackWholeFile(t *testing.T) {
	app, _ := newIntegrationApp(t)
	ctx := context.Background()

	inventory := "Name,Location,Quantity\nPew Bible,Nave,12\nCollection Plate,Narthex,3\n"
	result, err := app.CSVImporter.Import(ctx, warden, csvio.Inventory, strings.NewReader(inventory))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)

	disposals := "Name,Location,Quantity,DisposalDate,Reason\n" +
		"Pew Bible,Nave,2,2025-05-01,torn\n" +
		"Collection Plate,Narthex,9,2025-05-01,lost\n"
	_, err = app.CSVImporter.Import(ctx, warden, csvio.Disposals, strings.NewReader(disposals))
	var rowErr *csvio.RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, 3, rowErr.Line)

	rows, err := app.CSVExporter.Rows(ctx, csvio.Inventory)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	quantities := map[string]string{}
	for _, row := range rows[1:] {
		quantities[row[1]] = row[6]
	}
	assert.Equal(t, map[string]string{"Pew Bible": "12", "Collection Plate": "3"}, quantities)

	imports, err := app.Activity.GetActivity(ctx, activity.ActivityFilter{ResourceType: "import"}, models.Page{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, imports.Total)
	assert.Equal(t, "warden", imports.Items[0].Actor)
	assert.Equal(t, float64(2), imports.Items[0].Data["rows"])
}

func TestLoginLockoutAgainstPostgres(t *testing.T) {
	app, _ := newIntegrationApp(t)
	ctx := context.Background()

	_, err := app.UserService.WithCost(4).CreateUser(ctx, warden, models.CreateUserRequest{
		Username: "sexton", Password: "candlelight", ConfirmPassword: "candlelight",
	})
	require.NoError(t, err)

	result, err := app.AuthService.Authenticate(ctx, "sexton", "candlelight", "198.51.100.7")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	for i := 0; i < 3; i++ {
		_, err = app.AuthService.Authenticate(ctx, "sexton", "wrong", "198.51.100.7")
		require.ErrorIs(t, err, custom_error.ErrInvalidCredentials)
	}

	_, err = app.AuthService.Authenticate(ctx, "sexton", "candlelight", "198.51.100.7")
	require.ErrorIs(t, err, custom_error.ErrTooManyAttempts)

	require.NoError(t, app.AuthService.ResetLockout(ctx, "sexton", "warden"))

	_, err = app.AuthService.Authenticate(ctx, "sexton", "candlelight", "198.51.100.7")
	assert.NoError(t, err)
}
