package items

import (
	"context"
	"fmt"

	"churchinventory/internal/repository"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

var itemColumns = []interface{}{
	"id", "name", "description", "category", "condition", "date_acquired", "price_per_item",
}

type ItemRepository interface {
	FindByNameAndDescription(ctx context.Context, tx *goqu.TxDatabase, name, description string) (*models.Item, error)
	FindByName(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Item, error)
	InsertItem(ctx context.Context, tx *goqu.TxDatabase, item *models.Item) error
	GetItem(ctx context.Context, id int) (*models.Item, error)
	UpdateItem(ctx context.Context, id int, updates goqu.Record) (*models.Item, error)
	GetItems(ctx context.Context, query ItemListQuery, page models.Page) (*models.PagedResult[models.Item], error)
	AllItems(ctx context.Context) ([]models.Item, error)
	DistinctValues(ctx context.Context, column string) ([]string, error)
	DeleteItem(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ItemDeletion, error)
}

type itemRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) *itemRepository {
	return &itemRepository{Repo: r}
}

func (r *itemRepository) FindByNameAndDescription(ctx context.Context, tx *goqu.TxDatabase, name, description string) (*models.Item, error) {
	var item models.Item
	found, err := tx.From("inventory_items").
		Select(itemColumns...).
		Where(goqu.Ex{"name": name, "description": description}).
		Order(goqu.C("id").Asc()).
		ScanStructContext(ctx, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to look up item %q: %w", name, err)
	}
	if !found {
		return nil, nil
	}

	return &item, nil
}

// FindByName returns the oldest item with exactly this name, or nil.
func (r *itemRepository) FindByName(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Item, error) {
	var item models.Item
	found, err := tx.From("inventory_items").
		Select(itemColumns...).
		Where(goqu.Ex{"name": name}).
		Order(goqu.C("id").Asc()).
		Limit(1).
		ScanStructContext(ctx, &item)
	if err != nil {
		return nil, fmt.Errorf("failed to look up item %q: %w", name, err)
	}
	if !found {
		return nil, nil
	}

	return &item, nil
}

func (r *itemRepository) InsertItem(ctx context.Context, tx *goqu.TxDatabase, item *models.Item) error {
	_, err := tx.Insert("inventory_items").
		Rows(goqu.Record{
			"name":           item.Name,
			"description":    item.Description,
			"category":       item.Category,
			"condition":      item.Condition,
			"date_acquired":  item.DateAcquired,
			"price_per_item": item.PricePerItem,
		}).
		Returning("id").
		Executor().
		ScanValContext(ctx, &item.ID)
	if err != nil {
		return custom_error.WrapDBError("failed to insert item record", err)
	}

	return nil
}

func (r *itemRepository) GetItem(ctx context.Context, id int) (*models.Item, error) {
	var item models.Item
	found, err := r.Repo.GoquDBWrapper.From("inventory_items").
		Select(itemColumns...).
		Where(goqu.Ex{"id": id}).
		ScanStructContext(ctx, &item)
	if err != nil {
		return nil, fmt.Errorf("unable to select item %d: %w", id, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("item", id)
	}

	return &item, nil
}

func (r *itemRepository) UpdateItem(ctx context.Context, id int, updates goqu.Record) (*models.Item, error) {
	var item models.Item
	found, err := r.Repo.GoquDBWrapper.
		Update("inventory_items").
		Set(updates).
		Where(goqu.Ex{"id": id}).
		Returning(itemColumns...).
		Executor().
		ScanStructContext(ctx, &item)
	if err != nil {
		return nil, custom_error.WrapDBError("failed to update item", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("item", id)
	}

	return &item, nil
}

func (r *itemRepository) GetItems(ctx context.Context, query ItemListQuery, page models.Page) (*models.PagedResult[models.Item], error) {
	aliases := map[string]string{
		"category":  "i.category",
		"condition": "i.condition",
	}

	dataset := r.Repo.GoquDBWrapper.From(goqu.T("inventory_items").As("i"))
	if ex := query.BuildConditions(aliases); len(ex) > 0 {
		dataset = dataset.Where(ex)
	}

	inStock := goqu.L("EXISTS (SELECT 1 FROM item_locations s WHERE s.item_id = i.id AND s.quantity > 0)")
	if query.InStock != nil {
		if *query.InStock {
			dataset = dataset.Where(inStock)
		} else {
			dataset = dataset.Where(goqu.L("NOT ?", inStock))
		}
	}

	if query.Query != "" {
		pattern := "%" + query.Query + "%"
		dataset = dataset.Where(goqu.Or(
			goqu.I("i.name").ILike(pattern),
			goqu.I("i.description").ILike(pattern),
			goqu.I("i.category").ILike(pattern),
			goqu.I("i.condition").ILike(pattern),
		))
	}

	total, err := dataset.CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count items: %w", err)
	}

	items := []models.Item{}
	err = dataset.
		Select(
			goqu.I("i.id").As("id"),
			goqu.I("i.name").As("name"),
			goqu.I("i.description").As("description"),
			goqu.I("i.category").As("category"),
			goqu.I("i.condition").As("condition"),
			goqu.I("i.date_acquired").As("date_acquired"),
			goqu.I("i.price_per_item").As("price_per_item"),
		).
		Order(goqu.I("i.name").Asc(), goqu.I("i.id").Asc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("unable to select items from database: %w", err)
	}

	return &models.PagedResult[models.Item]{
		Items:   items,
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

func (r *itemRepository) AllItems(ctx context.Context) ([]models.Item, error) {
	items := []models.Item{}
	err := r.Repo.GoquDBWrapper.From("inventory_items").
		Select(itemColumns...).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc()).
		ScanStructsContext(ctx, &items)
	if err != nil {
		return nil, fmt.Errorf("unable to select items from database: %w", err)
	}

	return items, nil
}

// DistinctValues lists the non-empty values in use for category or condition.
func (r *itemRepository) DistinctValues(ctx context.Context, column string) ([]string, error) {
	if column != "category" && column != "condition" {
		return nil, fmt.Errorf("unsupported column %q", column)
	}

	values := []string{}
	err := r.Repo.GoquDBWrapper.From("inventory_items").
		Select(goqu.C(column)).
		Distinct().
		Where(goqu.C(column).Neq("")).
		Order(goqu.C(column).Asc()).
		ScanValsContext(ctx, &values)
	if err != nil {
		return nil, fmt.Errorf("unable to list %s values: %w", column, err)
	}

	return values, nil
}

// DeleteItem removes the dependent rows explicitly so their counts can be
// reported, then the item itself. The caller holds the item lock.
func (r *itemRepository) DeleteItem(ctx context.Context, tx *goqu.TxDatabase, id int) (*models.ItemDeletion, error) {
	deletion := &models.ItemDeletion{ItemID: id}

	counts := []struct {
		table  string
		target *int64
	}{
		{"item_locations", &deletion.Stock},
		{"movements", &deletion.Movements},
		{"disposals", &deletion.Disposals},
	}

	for _, c := range counts {
		result, err := tx.Delete(c.table).
			Where(goqu.Ex{"item_id": id}).
			Executor().
			ExecContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s of item %d: %w", c.table, id, err)
		}
		if *c.target, err = result.RowsAffected(); err != nil {
			return nil, fmt.Errorf("could not retrieve rows affected: %w", err)
		}
	}

	result, err := tx.Delete("inventory_items").
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return nil, custom_error.WrapDBError("failed to delete item", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, custom_error.NewNotFoundError("item", id)
	}

	return deletion, nil
}
