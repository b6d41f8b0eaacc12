package stocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"churchinventory/internal/repository"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

const stockTable = "item_locations"

// StockRepository maintains the item-location ledger. Every mutating method
// takes the caller's transaction; the ledger is never written outside one.
type StockRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *StockRepository {
	return &StockRepository{repository: r}
}

// LockItem takes a row lock on the item. All ledger changes of one item are
// serialised behind it, so two source rows are never locked in opposite order.
func (r *StockRepository) LockItem(ctx context.Context, tx *goqu.TxDatabase, itemID int) error {
	var id int
	found, err := tx.From("inventory_items").
		Select("id").
		Where(goqu.Ex{"id": itemID}).
		ForUpdate(exp.Wait).
		ScanValContext(ctx, &id)
	if err != nil {
		return fmt.Errorf("failed to lock item %d: %w", itemID, err)
	}
	if !found {
		return custom_error.NewNotFoundError("item", itemID)
	}

	return nil
}

// EnsureLocation verifies the location exists and keeps it from being
// deleted until the transaction ends.
func (r *StockRepository) EnsureLocation(ctx context.Context, tx *goqu.TxDatabase, locationID int, field string) error {
	var id int
	found, err := tx.From("locations").
		Select("id").
		Where(goqu.Ex{"id": locationID}).
		ForShare(exp.Wait).
		ScanValContext(ctx, &id)
	if err != nil {
		return fmt.Errorf("failed to check location %d: %w", locationID, err)
	}
	if !found {
		return custom_error.NewReferentialIntegrityError(field, fmt.Sprintf("location %d does not exist", locationID))
	}

	return nil
}

// Decrease removes quantity from (item, location). The row is locked, checked
// and then updated with a guard so the quantity can never drop below zero.
// A row that reaches zero is removed.
func (r *StockRepository) Decrease(ctx context.Context, tx *goqu.TxDatabase, itemID, locationID, quantity int) error {
	var available int
	found, err := tx.From(stockTable).
		Select("quantity").
		Where(goqu.Ex{"item_id": itemID, "location_id": locationID}).
		ForUpdate(exp.Wait).
		ScanValContext(ctx, &available)
	if err != nil {
		return fmt.Errorf("failed to lock stock for item %d at location %d: %w", itemID, locationID, err)
	}

	insufficient := &custom_error.InsufficientStockError{
		ItemID:     itemID,
		LocationID: locationID,
		Requested:  quantity,
		Available:  available,
	}
	if !found || available < quantity {
		return insufficient
	}

	result, err := tx.Update(stockTable).
		Set(goqu.Record{"quantity": goqu.L("quantity - ?", quantity)}).
		Where(goqu.Ex{"item_id": itemID, "location_id": locationID}).
		Where(goqu.C("quantity").Gte(quantity)).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError(fmt.Sprintf("failed to decrease stock for item %d at location %d", itemID, locationID), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for item %d: %w", itemID, err)
	}
	if rowsAffected == 0 {
		return insufficient
	}

	_, err = tx.Delete(stockTable).
		Where(goqu.Ex{"item_id": itemID, "location_id": locationID}).
		Where(goqu.C("quantity").Eq(0)).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove stock row with zero quantity: %w", err)
	}

	return nil
}

// Increase adds quantity at (item, location), creating the row if needed.
func (r *StockRepository) Increase(ctx context.Context, tx *goqu.TxDatabase, itemID, locationID, quantity int) error {
	_, err := tx.Insert(stockTable).
		Rows(goqu.Record{
			"item_id":     itemID,
			"location_id": locationID,
			"quantity":    quantity,
		}).
		OnConflict(goqu.DoUpdate("item_id, location_id", goqu.Record{
			"quantity": goqu.L("item_locations.quantity + EXCLUDED.quantity"),
		})).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError(fmt.Sprintf("failed to increase stock for item %d at location %d", itemID, locationID), err)
	}

	return nil
}

// Quantity returns the on-hand quantity; a missing row means zero.
func (r *StockRepository) Quantity(ctx context.Context, itemID, locationID int) (int, error) {
	var quantity int
	_, err := r.repository.GoquDBWrapper.From(stockTable).
		Select("quantity").
		Where(goqu.Ex{"item_id": itemID, "location_id": locationID}).
		ScanValContext(ctx, &quantity)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("unable to read stock: %w", err)
	}

	return quantity, nil
}

func (r *StockRepository) GetStockItemsBy(ctx context.Context, conditions repository.QueryBuilder, page models.Page) (*models.PagedResult[models.StockItem], error) {
	aliases := map[string]string{
		"item_id":     "s.item_id",
		"location_id": "s.location_id",
	}
	where := conditions.BuildConditions(aliases)

	total, err := r.repository.GoquDBWrapper.
		From(goqu.T(stockTable).As("s")).
		Where(where).
		CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count stock items: %w", err)
	}

	var flatStocks []models.FlatStockRecord
	err = r.getStockItemQuery().
		Where(where).
		Order(goqu.I("i.name").Asc(), goqu.I("l.name").Asc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &flatStocks)
	if err != nil {
		return nil, fmt.Errorf("unable to select stock items from database: %w", err)
	}

	return &models.PagedResult[models.StockItem]{
		Items:   transformToStockItems(flatStocks),
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

// ForItems returns every stock row of the given items keyed by item id.
func (r *StockRepository) ForItems(ctx context.Context, itemIDs []int) (map[int][]models.StockItem, error) {
	result := make(map[int][]models.StockItem, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	var flatStocks []models.FlatStockRecord
	err := r.getStockItemQuery().
		Where(goqu.Ex{"s.item_id": itemIDs}).
		Order(goqu.I("l.name").Asc()).
		ScanStructsContext(ctx, &flatStocks)
	if err != nil {
		return nil, fmt.Errorf("unable to select stock for items: %w", err)
	}

	for _, flatStock := range flatStocks {
		result[flatStock.ItemID] = append(result[flatStock.ItemID], flatStock.ToStockItem())
	}

	return result, nil
}

func (r *StockRepository) ForLocation(ctx context.Context, locationID int) ([]models.StockItem, error) {
	var flatStocks []models.FlatStockRecord
	err := r.getStockItemQuery().
		Where(goqu.Ex{"s.location_id": locationID}).
		Order(goqu.I("i.name").Asc()).
		ScanStructsContext(ctx, &flatStocks)
	if err != nil {
		return nil, fmt.Errorf("unable to select stock for location %d: %w", locationID, err)
	}

	return transformToStockItems(flatStocks), nil
}

func (r *StockRepository) getStockItemQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		Select(
			goqu.I("s.item_id").As("item_id"),
			goqu.I("i.name").As("item_name"),
			goqu.I("s.location_id").As("location_id"),
			goqu.I("l.name").As("location_name"),
			goqu.I("s.quantity").As("quantity"),
		).
		From(goqu.T(stockTable).As("s")).
		InnerJoin(
			goqu.T("inventory_items").As("i"),
			goqu.On(goqu.Ex{"s.item_id": goqu.I("i.id")}),
		).
		InnerJoin(
			goqu.T("locations").As("l"),
			goqu.On(goqu.Ex{"s.location_id": goqu.I("l.id")}),
		)
}

func transformToStockItems(flatStocks []models.FlatStockRecord) []models.StockItem {
	stocks := make([]models.StockItem, 0, len(flatStocks))
	for _, flatStock := range flatStocks {
		stocks = append(stocks, flatStock.ToStockItem())
	}
	return stocks
}
