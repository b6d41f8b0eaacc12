package movements

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"churchinventory/internal/metrics"
	"churchinventory/internal/repository"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"github.com/doug-martin/goqu/v9"
)

const maxResponsiblePersonLength = 100

// Ledger is the subset of the stock ledger a movement needs.
type Ledger interface {
	LockItem(ctx context.Context, tx *goqu.TxDatabase, itemID int) error
	EnsureLocation(ctx context.Context, tx *goqu.TxDatabase, locationID int, field string) error
	Decrease(ctx context.Context, tx *goqu.TxDatabase, itemID, locationID, quantity int) error
	Increase(ctx context.Context, tx *goqu.TxDatabase, itemID, locationID, quantity int) error
}

type MovementService struct {
	transactor repository.Transactor
	ledger     Ledger
	mr         MovementRepository
	auditLog   *auditlog.Auditlog
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewMovementService(t repository.Transactor, l Ledger, mr MovementRepository, a *auditlog.Auditlog, m *metrics.Metrics) *MovementService {
	return &MovementService{
		transactor: t,
		ledger:     l,
		mr:         mr,
		auditLog:   a,
		metrics:    m,
		now:        time.Now,
	}
}

// RecordMovement moves stock between locations in one transaction. A missing
// source is initial stocking, a missing destination removes stock.
func (s *MovementService) RecordMovement(ctx context.Context, identity security.Identity, req models.MovementRequest) (*models.Movement, error) {
	if req.ResponsiblePerson == "" {
		req.ResponsiblePerson = identity.Username
	}

	var movement *models.Movement
	err := s.transactor.WithinTransaction(ctx, func(tx *goqu.TxDatabase) error {
		var err error
		movement, err = s.ApplyMovement(ctx, tx, req)
		return err
	})
	if err != nil {
		var stockErr *custom_error.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.metrics.ObserveInsufficientStock("movement")
		}
		return nil, err
	}

	s.metrics.ObserveLedger("movement")
	s.auditLog.Log(security.WithIdentity(ctx, identity), "move", map[string]interface{}{
		"item_id":          movement.Item.ID,
		"quantity":         movement.Quantity,
		"from_location_id": req.FromLocationID,
		"to_location_id":   req.ToLocationID,
	}, movement)

	return movement, nil
}

// ApplyMovement performs the ledger changes of a movement inside tx. The
// caller owns the transaction.
func (s *MovementService) ApplyMovement(ctx context.Context, tx *goqu.TxDatabase, req models.MovementRequest) (*models.Movement, error) {
	if err := ValidateMovement(req); err != nil {
		return nil, err
	}

	if err := s.ledger.LockItem(ctx, tx, req.ItemID); err != nil {
		return nil, err
	}

	movement := &models.Movement{
		Item:              models.Item{ID: req.ItemID},
		Quantity:          req.Quantity,
		MovementDate:      movementDate(req.MovementDate, s.now()),
		ResponsiblePerson: req.ResponsiblePerson,
		Notes:             req.Notes,
	}

	if req.FromLocationID != nil {
		if err := s.ledger.EnsureLocation(ctx, tx, *req.FromLocationID, "from_location_id"); err != nil {
			return nil, err
		}
		movement.FromLocation = &models.Location{ID: *req.FromLocationID}
	}
	if req.ToLocationID != nil {
		if err := s.ledger.EnsureLocation(ctx, tx, *req.ToLocationID, "to_location_id"); err != nil {
			return nil, err
		}
		movement.ToLocation = &models.Location{ID: *req.ToLocationID}
	}

	if req.FromLocationID != nil {
		if err := s.ledger.Decrease(ctx, tx, req.ItemID, *req.FromLocationID, req.Quantity); err != nil {
			return nil, err
		}
	}
	if req.ToLocationID != nil {
		if err := s.ledger.Increase(ctx, tx, req.ItemID, *req.ToLocationID, req.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.mr.InsertMovement(ctx, tx, movement); err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}

	return movement, nil
}

func (s *MovementService) GetMovements(ctx context.Context, filter MovementFilter, page models.Page) (*models.PagedResult[models.Movement], error) {
	return s.mr.GetMovements(ctx, filter, page)
}

func (s *MovementService) AllMovements(ctx context.Context) ([]models.Movement, error) {
	return s.mr.AllMovements(ctx)
}

func ValidateMovement(req models.MovementRequest) error {
	if req.ItemID <= 0 {
		return custom_error.NewValidationError("item_id", "item is required")
	}
	if req.Quantity <= 0 {
		return custom_error.NewValidationError("quantity", "quantity must be positive")
	}
	if req.FromLocationID == nil && req.ToLocationID == nil {
		return custom_error.NewValidationError("to_location_id", "at least one of from_location_id or to_location_id is required")
	}
	if req.FromLocationID != nil && req.ToLocationID != nil && *req.FromLocationID == *req.ToLocationID {
		return custom_error.NewValidationError("to_location_id", "source and destination must differ")
	}
	if utf8.RuneCountInString(req.ResponsiblePerson) > maxResponsiblePersonLength {
		return custom_error.NewValidationError("responsible_person", fmt.Sprintf("responsible_person must be at most %d characters", maxResponsiblePersonLength))
	}
	return nil
}
