package locations

import (
	"context"
	"fmt"

	"churchinventory/internal/repository"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/metadata"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"github.com/doug-martin/goqu/v9"
)

const maxNameLength = 100

type StockLister interface {
	ForLocation(ctx context.Context, locationID int) ([]models.StockItem, error)
}

type LocationService struct {
	transactor repository.Transactor
	lr         LocationRepository
	stocks     StockLister
	auditLog   *auditlog.Auditlog
}

func NewLocationService(t repository.Transactor, lr LocationRepository, s StockLister, a *auditlog.Auditlog) *LocationService {
	return &LocationService{transactor: t, lr: lr, stocks: s, auditLog: a}
}

func (s *LocationService) CreateLocation(ctx context.Context, identity security.Identity, name string) (*models.Location, error) {
	location := &models.Location{}
	var err error
	if location.Name, err = validateName(name); err != nil {
		return nil, err
	}

	if err := s.lr.PersistLocation(ctx, location); err != nil {
		return nil, err
	}

	s.auditLog.Log(security.WithIdentity(ctx, identity), "create", map[string]interface{}{"name": location.Name}, location)

	return location, nil
}

func (s *LocationService) GetLocations(ctx context.Context, page models.Page) (*models.PagedResult[models.Location], error) {
	return s.lr.GetLocations(ctx, page)
}

// GetLocation returns the location together with everything stored there.
func (s *LocationService) GetLocation(ctx context.Context, id int) (*models.LocationStock, error) {
	location, err := s.lr.GetLocation(ctx, id)
	if err != nil {
		return nil, err
	}

	stock, err := s.stocks.ForLocation(ctx, id)
	if err != nil {
		return nil, err
	}

	return &models.LocationStock{Location: *location, Stock: stock}, nil
}

func (s *LocationService) RenameLocation(ctx context.Context, identity security.Identity, id int, name string) (*models.Location, error) {
	normalized, err := validateName(name)
	if err != nil {
		return nil, err
	}

	location, err := s.lr.RenameLocation(ctx, id, normalized)
	if err != nil {
		return nil, err
	}

	s.auditLog.Log(security.WithIdentity(ctx, identity), "update", map[string]interface{}{"name": location.Name}, location)

	return location, nil
}

// GetOrCreateLocation is used by bulk import inside its own transaction.
func (s *LocationService) GetOrCreateLocation(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Location, error) {
	normalized, err := validateName(name)
	if err != nil {
		return nil, err
	}

	return s.lr.GetOrCreateLocation(ctx, tx, normalized)
}

// DeleteLocation refuses while stock is on hand or history points at the
// location. Empty stock rows are dropped in the same transaction.
func (s *LocationService) DeleteLocation(ctx context.Context, identity security.Identity, id int) error {
	err := s.transactor.WithinTransaction(ctx, func(tx *goqu.TxDatabase) error {
		if err := s.lr.LockLocation(ctx, tx, id); err != nil {
			return err
		}

		onHand, err := s.lr.StockOnHand(ctx, tx, id)
		if err != nil {
			return err
		}
		if onHand > 0 {
			return custom_error.NewReferentialIntegrityError("location_id",
				fmt.Sprintf("location %d still holds stock for %d item(s)", id, onHand))
		}

		history, err := s.lr.HistoryReferences(ctx, tx, id)
		if err != nil {
			return err
		}
		if history > 0 {
			return custom_error.NewReferentialIntegrityError("location_id",
				fmt.Sprintf("location %d is referenced by %d movement or disposal record(s)", id, history))
		}

		if err := s.lr.RemoveEmptyStock(ctx, tx, id); err != nil {
			return err
		}

		return s.lr.RemoveLocation(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.auditLog.Log(security.WithIdentity(ctx, identity), "delete", nil, &models.Location{ID: id})

	return nil
}

func validateName(name string) (string, error) {
	normalized := metadata.NormalizeLocationName(name)
	if normalized == "" {
		return "", custom_error.NewValidationError("name", "location name is required")
	}
	if len(normalized) > maxNameLength {
		return "", custom_error.NewValidationError("name", fmt.Sprintf("location name must be at most %d characters", maxNameLength))
	}
	return normalized, nil
}
