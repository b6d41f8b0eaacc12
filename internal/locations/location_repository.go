package locations

import (
	"context"
	"errors"
	"fmt"

	"churchinventory/internal/repository"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

type LocationRepository interface {
	GetLocations(ctx context.Context, page models.Page) (*models.PagedResult[models.Location], error)
	AllLocations(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id int) (*models.Location, error)
	PersistLocation(ctx context.Context, location *models.Location) error
	RenameLocation(ctx context.Context, id int, name string) (*models.Location, error)
	GetOrCreateLocation(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Location, error)
	LockLocation(ctx context.Context, tx *goqu.TxDatabase, id int) error
	StockOnHand(ctx context.Context, tx *goqu.TxDatabase, id int) (int64, error)
	HistoryReferences(ctx context.Context, tx *goqu.TxDatabase, id int) (int64, error)
	RemoveEmptyStock(ctx context.Context, tx *goqu.TxDatabase, id int) error
	RemoveLocation(ctx context.Context, tx *goqu.TxDatabase, id int) error
}

type locationRepository struct {
	Repository *repository.Repository
}

func NewLocationRepository(r *repository.Repository) *locationRepository {
	return &locationRepository{Repository: r}
}

func (r *locationRepository) GetLocations(ctx context.Context, page models.Page) (*models.PagedResult[models.Location], error) {
	query := r.Repository.GoquDBWrapper.From("locations")

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count locations: %w", err)
	}

	locations := []models.Location{}
	err = query.Select("id", "name").
		Order(goqu.C("name").Asc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &locations)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return &models.PagedResult[models.Location]{
		Items:   locations,
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

func (r *locationRepository) AllLocations(ctx context.Context) ([]models.Location, error) {
	locations := []models.Location{}
	err := r.Repository.GoquDBWrapper.From("locations").
		Select("id", "name").
		Order(goqu.C("name").Asc()).
		ScanStructsContext(ctx, &locations)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return locations, nil
}

func (r *locationRepository) GetLocation(ctx context.Context, id int) (*models.Location, error) {
	var location models.Location
	found, err := r.Repository.GoquDBWrapper.From("locations").
		Select("id", "name").
		Where(goqu.Ex{"id": id}).
		ScanStructContext(ctx, &location)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("location", id)
	}

	return &location, nil
}

func (r *locationRepository) PersistLocation(ctx context.Context, location *models.Location) error {
	query := r.Repository.GoquDBWrapper.Insert("locations").
		Rows(goqu.Record{"name": location.Name}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &location.ID); err != nil {
		return conflictOnName(custom_error.WrapDBError("failed to insert location record", err), location.Name)
	}

	return nil
}

func (r *locationRepository) RenameLocation(ctx context.Context, id int, name string) (*models.Location, error) {
	var location models.Location
	found, err := r.Repository.GoquDBWrapper.
		Update("locations").
		Set(goqu.Record{"name": name}).
		Where(goqu.Ex{"id": id}).
		Returning("id", "name").
		Executor().
		ScanStructContext(ctx, &location)
	if err != nil {
		return nil, conflictOnName(custom_error.WrapDBError("failed to update location", err), name)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("location", id)
	}

	return &location, nil
}

// GetOrCreateLocation resolves a location by its exact (already normalized)
// name, inserting it when it does not exist yet.
func (r *locationRepository) GetOrCreateLocation(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Location, error) {
	location := models.Location{Name: name}

	_, err := tx.Insert("locations").
		Rows(goqu.Record{"name": name}).
		OnConflict(goqu.DoNothing()).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return nil, custom_error.WrapDBError("failed to create location", err)
	}

	found, err := tx.From("locations").
		Select("id").
		Where(goqu.Ex{"name": name}).
		ScanValContext(ctx, &location.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve location %q: %w", name, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("location", name)
	}

	return &location, nil
}

func (r *locationRepository) LockLocation(ctx context.Context, tx *goqu.TxDatabase, id int) error {
	var lockedID int
	found, err := tx.From("locations").
		Select("id").
		Where(goqu.Ex{"id": id}).
		ForUpdate(exp.Wait).
		ScanValContext(ctx, &lockedID)
	if err != nil {
		return fmt.Errorf("failed to lock location %d: %w", id, err)
	}
	if !found {
		return custom_error.NewNotFoundError("location", id)
	}

	return nil
}

func (r *locationRepository) StockOnHand(ctx context.Context, tx *goqu.TxDatabase, id int) (int64, error) {
	count, err := tx.From("item_locations").
		Where(goqu.Ex{"location_id": id}, goqu.C("quantity").Gt(0)).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count stock at location %d: %w", id, err)
	}

	return count, nil
}

func (r *locationRepository) HistoryReferences(ctx context.Context, tx *goqu.TxDatabase, id int) (int64, error) {
	movements, err := tx.From("movements").
		Where(goqu.Or(
			goqu.C("from_location_id").Eq(id),
			goqu.C("to_location_id").Eq(id),
		)).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count movements at location %d: %w", id, err)
	}

	disposals, err := tx.From("disposals").
		Where(goqu.Ex{"location_id": id}).
		CountContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count disposals at location %d: %w", id, err)
	}

	return movements + disposals, nil
}

func (r *locationRepository) RemoveEmptyStock(ctx context.Context, tx *goqu.TxDatabase, id int) error {
	_, err := tx.Delete("item_locations").
		Where(goqu.Ex{"location_id": id, "quantity": 0}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove empty stock rows: %w", err)
	}

	return nil
}

func (r *locationRepository) RemoveLocation(ctx context.Context, tx *goqu.TxDatabase, id int) error {
	result, err := tx.Delete("locations").
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to delete location", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("location", id)
	}

	return nil
}

func conflictOnName(err error, name string) error {
	var conflict *custom_error.UniqueViolationError
	if errors.As(err, &conflict) {
		return custom_error.NewConflictError("name", fmt.Sprintf("location %q already exists", name))
	}
	return err
}
