package movements

import (
	"context"
	"fmt"
	"time"

	"churchinventory/internal/repository"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type MovementFilter struct {
	ItemID     *int   `form:"item_id"`
	LocationID *int   `form:"location_id"`
	Query      string `form:"q"`
}

type MovementRepository interface {
	InsertMovement(ctx context.Context, tx *goqu.TxDatabase, movement *models.Movement) error
	GetMovements(ctx context.Context, filter MovementFilter, page models.Page) (*models.PagedResult[models.Movement], error)
	AllMovements(ctx context.Context) ([]models.Movement, error)
}

type movementRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) *movementRepository {
	return &movementRepository{Repo: r}
}

func (r *movementRepository) InsertMovement(ctx context.Context, tx *goqu.TxDatabase, movement *models.Movement) error {
	record := goqu.Record{
		"item_id":            movement.Item.ID,
		"quantity":           movement.Quantity,
		"movement_date":      movement.MovementDate,
		"responsible_person": movement.ResponsiblePerson,
		"notes":              movement.Notes,
		"from_location_id":   nil,
		"to_location_id":     nil,
	}
	if movement.FromLocation != nil {
		record["from_location_id"] = movement.FromLocation.ID
	}
	if movement.ToLocation != nil {
		record["to_location_id"] = movement.ToLocation.ID
	}

	_, err := tx.Insert("movements").
		Rows(record).
		Returning("id").
		Executor().
		ScanValContext(ctx, &movement.ID)
	if err != nil {
		return custom_error.WrapDBError("failed to insert movement record", err)
	}

	return nil
}

func (r *movementRepository) GetMovements(ctx context.Context, filter MovementFilter, page models.Page) (*models.PagedResult[models.Movement], error) {
	conditions := repository.NewQueryBuilder()
	conditions.AddCondition("item_id", filter.ItemID)

	var expressions []goqu.Expression
	if ex := conditions.BuildConditions(map[string]string{"item_id": "m.item_id"}); len(ex) > 0 {
		expressions = append(expressions, ex)
	}
	if filter.LocationID != nil {
		expressions = append(expressions, goqu.Or(
			goqu.I("m.from_location_id").Eq(*filter.LocationID),
			goqu.I("m.to_location_id").Eq(*filter.LocationID),
		))
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		expressions = append(expressions, goqu.Or(
			goqu.I("i.name").ILike(pattern),
			goqu.I("m.responsible_person").ILike(pattern),
			goqu.I("fl.name").ILike(pattern),
			goqu.I("tl.name").ILike(pattern),
		))
	}

	query := r.getMovementQuery().Where(expressions...)

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count movements: %w", err)
	}

	var flatMovements []models.FlatMovementRecord
	err = query.
		Order(goqu.I("m.movement_date").Desc(), goqu.I("m.id").Desc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &flatMovements)
	if err != nil {
		return nil, fmt.Errorf("unable to select movements from database: %w", err)
	}

	return &models.PagedResult[models.Movement]{
		Items:   transformToMovements(flatMovements),
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

// AllMovements returns the whole log, newest first, for exports.
func (r *movementRepository) AllMovements(ctx context.Context) ([]models.Movement, error) {
	var flatMovements []models.FlatMovementRecord
	err := r.getMovementQuery().
		Order(goqu.I("m.movement_date").Desc(), goqu.I("m.id").Desc()).
		ScanStructsContext(ctx, &flatMovements)
	if err != nil {
		return nil, fmt.Errorf("unable to select movements from database: %w", err)
	}

	return transformToMovements(flatMovements), nil
}

func (r *movementRepository) getMovementQuery() *goqu.SelectDataset {
	return r.Repo.GoquDBWrapper.
		Select(
			goqu.I("m.id").As("id"),
			goqu.I("m.item_id").As("item_id"),
			goqu.I("i.name").As("item_name"),
			goqu.I("m.quantity").As("quantity"),
			goqu.I("m.from_location_id").As("from_location_id"),
			goqu.I("fl.name").As("from_location_name"),
			goqu.I("m.to_location_id").As("to_location_id"),
			goqu.I("tl.name").As("to_location_name"),
			goqu.I("m.movement_date").As("movement_date"),
			goqu.I("m.responsible_person").As("responsible_person"),
			goqu.I("m.notes").As("notes"),
		).
		From(goqu.T("movements").As("m")).
		InnerJoin(
			goqu.T("inventory_items").As("i"),
			goqu.On(goqu.Ex{"m.item_id": goqu.I("i.id")}),
		).
		LeftJoin(
			goqu.T("locations").As("fl"),
			goqu.On(goqu.Ex{"m.from_location_id": goqu.I("fl.id")}),
		).
		LeftJoin(
			goqu.T("locations").As("tl"),
			goqu.On(goqu.Ex{"m.to_location_id": goqu.I("tl.id")}),
		)
}

func transformToMovements(flatMovements []models.FlatMovementRecord) []models.Movement {
	movements := make([]models.Movement, 0, len(flatMovements))
	for _, flatMovement := range flatMovements {
		movements = append(movements, flatMovement.ToMovement())
	}
	return movements
}

func movementDate(requested *time.Time, now time.Time) time.Time {
	if requested == nil || requested.IsZero() {
		return now
	}
	return *requested
}
