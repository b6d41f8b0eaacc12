package items

import (
	"context"
	"fmt"
	"strings"

	"churchinventory/internal/metrics"
	"churchinventory/internal/repository"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/metadata"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
)

type ItemLocker interface {
	LockItem(ctx context.Context, tx *goqu.TxDatabase, itemID int) error
}

type StockLister interface {
	ForItems(ctx context.Context, itemIDs []int) (map[int][]models.StockItem, error)
}

type MovementApplier interface {
	ApplyMovement(ctx context.Context, tx *goqu.TxDatabase, req models.MovementRequest) (*models.Movement, error)
}

type LocationResolver interface {
	GetOrCreateLocation(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Location, error)
}

type ItemService struct {
	transactor repository.Transactor
	ir         ItemRepository
	locker     ItemLocker
	stocks     StockLister
	movements  MovementApplier
	locations  LocationResolver
	auditLog   *auditlog.Auditlog
	metrics    *metrics.Metrics
}

func NewItemService(
	t repository.Transactor,
	ir ItemRepository,
	locker ItemLocker,
	stocks StockLister,
	movements MovementApplier,
	locations LocationResolver,
	a *auditlog.Auditlog,
	m *metrics.Metrics,
) *ItemService {
	return &ItemService{
		transactor: t,
		ir:         ir,
		locker:     locker,
		stocks:     stocks,
		movements:  movements,
		locations:  locations,
		auditLog:   a,
		metrics:    m,
	}
}

// AddItem registers an item, or adds to an existing one with the same name
// and description, and records any initial quantity as a stocking movement.
func (s *ItemService) AddItem(ctx context.Context, identity security.Identity, req CreateItemRequest) (*models.Item, error) {
	if req.ResponsiblePerson == "" {
		req.ResponsiblePerson = identity.Username
	}

	var item *models.Item
	err := s.transactor.WithinTransaction(ctx, func(tx *goqu.TxDatabase) error {
		var err error
		item, err = s.ApplyAddItem(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveLedger("add_item")
	s.auditLog.Log(security.WithIdentity(ctx, identity), "create", map[string]interface{}{
		"name":     item.Name,
		"quantity": req.Quantity,
	}, item)

	return s.GetItem(ctx, item.ID)
}

// ApplyAddItem is AddItem inside a caller-owned transaction.
func (s *ItemService) ApplyAddItem(ctx context.Context, tx *goqu.TxDatabase, req CreateItemRequest) (*models.Item, error) {
	item, err := newItem(req)
	if err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, custom_error.NewValidationError("quantity", "quantity must not be negative")
	}
	if req.Quantity > 0 && req.LocationID == nil && strings.TrimSpace(req.LocationName) == "" {
		return nil, custom_error.NewValidationError("location_id", "a location is required for an initial quantity")
	}

	existing, err := s.ir.FindByNameAndDescription(ctx, tx, item.Name, item.Description)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		item = existing
	} else if err := s.ir.InsertItem(ctx, tx, item); err != nil {
		return nil, err
	}

	if req.Quantity == 0 {
		return item, nil
	}

	locationID := req.LocationID
	if locationID == nil {
		location, err := s.locations.GetOrCreateLocation(ctx, tx, req.LocationName)
		if err != nil {
			return nil, err
		}
		locationID = &location.ID
	}

	notes := req.Notes
	if notes == "" {
		notes = "Initial stock"
	}

	_, err = s.movements.ApplyMovement(ctx, tx, models.MovementRequest{
		ItemID:            item.ID,
		Quantity:          req.Quantity,
		ToLocationID:      locationID,
		ResponsiblePerson: req.ResponsiblePerson,
		Notes:             notes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record initial stock: %w", err)
	}

	return item, nil
}

// ResolveItem finds an item by name inside tx, registering a bare one with
// default metadata when none exists.
func (s *ItemService) ResolveItem(ctx context.Context, tx *goqu.TxDatabase, name, description string) (*models.Item, error) {
	item, err := newItem(CreateItemRequest{Name: name, Description: description})
	if err != nil {
		return nil, err
	}

	existing, err := s.ir.FindByName(ctx, tx, item.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if err := s.ir.InsertItem(ctx, tx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// GetItem returns the item with its stock per location and total quantity.
func (s *ItemService) GetItem(ctx context.Context, id int) (*models.Item, error) {
	item, err := s.ir.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	items := []models.Item{*item}
	if err := s.attachStock(ctx, items); err != nil {
		return nil, err
	}

	return &items[0], nil
}

func (s *ItemService) UpdateItem(ctx context.Context, identity security.Identity, id int, req UpdateItemRequest) (*models.Item, error) {
	updates, err := buildUpdateFields(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.ir.UpdateItem(ctx, id, updates); err != nil {
		return nil, err
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditLog.Log(security.WithIdentity(ctx, identity), "update", map[string]interface{}(updates), item)

	return item, nil
}

func (s *ItemService) ListItems(ctx context.Context, query ItemListQuery, page models.Page) (*models.PagedResult[models.Item], error) {
	query.Query = strings.TrimSpace(query.Query)

	result, err := s.ir.GetItems(ctx, query, page)
	if err != nil {
		return nil, err
	}

	if err := s.attachStock(ctx, result.Items); err != nil {
		return nil, err
	}

	return result, nil
}

// AllItems returns every item with stock attached, for exports.
func (s *ItemService) AllItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.ir.AllItems(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.attachStock(ctx, items); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *ItemService) Categories(ctx context.Context) ([]string, error) {
	return s.ir.DistinctValues(ctx, "category")
}

func (s *ItemService) Conditions(ctx context.Context) ([]string, error) {
	return s.ir.DistinctValues(ctx, "condition")
}

// DeleteItem removes the item with all its stock, movements and disposals.
func (s *ItemService) DeleteItem(ctx context.Context, identity security.Identity, id int) (*models.ItemDeletion, error) {
	var deletion *models.ItemDeletion
	err := s.transactor.WithinTransaction(ctx, func(tx *goqu.TxDatabase) error {
		if err := s.locker.LockItem(ctx, tx, id); err != nil {
			return err
		}

		var err error
		deletion, err = s.ir.DeleteItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveLedger("delete_item")
	s.auditLog.Log(security.WithIdentity(ctx, identity), "delete", map[string]interface{}{
		"stock_rows":    deletion.Stock,
		"movement_rows": deletion.Movements,
		"disposal_rows": deletion.Disposals,
	}, &models.Item{ID: id})

	return deletion, nil
}

func (s *ItemService) attachStock(ctx context.Context, items []models.Item) error {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	stockByItem, err := s.stocks.ForItems(ctx, ids)
	if err != nil {
		return err
	}

	for i := range items {
		items[i].Stock = stockByItem[items[i].ID]
		if items[i].Stock == nil {
			items[i].Stock = []models.StockItem{}
		}
		items[i].TotalQuantity = 0
		for _, stock := range items[i].Stock {
			items[i].TotalQuantity += stock.Quantity
		}
	}

	return nil
}

func newItem(req CreateItemRequest) (*models.Item, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, custom_error.NewValidationError("name", "name is required")
	}
	if err := validateLength("name", name, maxNameLength); err != nil {
		return nil, err
	}
	if err := validateLength("category", strings.TrimSpace(req.Category), maxCategoryLength); err != nil {
		return nil, err
	}
	if err := validateLength("condition", strings.TrimSpace(req.Condition), maxConditionLength); err != nil {
		return nil, err
	}
	if err := validatePrice(req.PricePerItem); err != nil {
		return nil, err
	}

	dateAcquired, err := parseDate(req.DateAcquired)
	if err != nil {
		return nil, err
	}

	price := decimal.Zero
	if req.PricePerItem != nil {
		price = *req.PricePerItem
	}

	return &models.Item{
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Category:     metadata.CategoryOrDefault(req.Category),
		Condition:    metadata.ConditionOrDefault(req.Condition),
		DateAcquired: dateAcquired,
		PricePerItem: price,
	}, nil
}

func buildUpdateFields(req UpdateItemRequest) (goqu.Record, error) {
	updates := goqu.Record{}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, custom_error.NewValidationError("name", "name must not be empty")
		}
		if err := validateLength("name", name, maxNameLength); err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		if err := validateLength("category", strings.TrimSpace(*req.Category), maxCategoryLength); err != nil {
			return nil, err
		}
		updates["category"] = metadata.CategoryOrDefault(*req.Category)
	}
	if req.Condition != nil {
		if err := validateLength("condition", strings.TrimSpace(*req.Condition), maxConditionLength); err != nil {
			return nil, err
		}
		updates["condition"] = metadata.ConditionOrDefault(*req.Condition)
	}
	if req.DateAcquired != nil {
		date, err := parseDate(*req.DateAcquired)
		if err != nil {
			return nil, err
		}
		updates["date_acquired"] = date
	}
	if req.PricePerItem != nil {
		if err := validatePrice(req.PricePerItem); err != nil {
			return nil, err
		}
		updates["price_per_item"] = *req.PricePerItem
	}

	if len(updates) == 0 {
		return nil, custom_error.NewValidationError("", "no fields to update")
	}

	return updates, nil
}
