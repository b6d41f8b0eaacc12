package disposals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"churchinventory/internal/metrics"
	"churchinventory/internal/repository"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"github.com/doug-martin/goqu/v9"
)

type Ledger interface {
	LockItem(ctx context.Context, tx *goqu.TxDatabase, itemID int) error
	EnsureLocation(ctx context.Context, tx *goqu.TxDatabase, locationID int, field string) error
	Decrease(ctx context.Context, tx *goqu.TxDatabase, itemID, locationID, quantity int) error
}

type DisposalService struct {
	transactor repository.Transactor
	ledger     Ledger
	dr         DisposalRepository
	auditLog   *auditlog.Auditlog
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewDisposalService(t repository.Transactor, l Ledger, dr DisposalRepository, a *auditlog.Auditlog, m *metrics.Metrics) *DisposalService {
	return &DisposalService{
		transactor: t,
		ledger:     l,
		dr:         dr,
		auditLog:   a,
		metrics:    m,
		now:        time.Now,
	}
}

// RecordDisposal writes off stock at a location. The acting identity is
// always recorded as disposed_by.
func (s *DisposalService) RecordDisposal(ctx context.Context, identity security.Identity, req models.DisposalRequest) (*models.Disposal, error) {
	if identity.Username == "" {
		return nil, custom_error.NewValidationError("disposed_by", "an authenticated user is required")
	}
	req.DisposedBy = identity.Username

	var disposal *models.Disposal
	err := s.transactor.WithinTransaction(ctx, func(tx *goqu.TxDatabase) error {
		var err error
		disposal, err = s.ApplyDisposal(ctx, tx, req)
		return err
	})
	if err != nil {
		var stockErr *custom_error.InsufficientStockError
		if errors.As(err, &stockErr) {
			s.metrics.ObserveInsufficientStock("disposal")
		}
		return nil, err
	}

	s.metrics.ObserveLedger("disposal")
	s.auditLog.Log(security.WithIdentity(ctx, identity), "dispose", map[string]interface{}{
		"item_id":     disposal.Item.ID,
		"location_id": disposal.Location.ID,
		"quantity":    disposal.Quantity,
		"reason":      disposal.Reason,
	}, disposal)

	return disposal, nil
}

// ApplyDisposal performs the ledger changes of a disposal inside tx.
func (s *DisposalService) ApplyDisposal(ctx context.Context, tx *goqu.TxDatabase, req models.DisposalRequest) (*models.Disposal, error) {
	if err := ValidateDisposal(req); err != nil {
		return nil, err
	}

	if err := s.ledger.LockItem(ctx, tx, req.ItemID); err != nil {
		return nil, err
	}
	if err := s.ledger.EnsureLocation(ctx, tx, req.LocationID, "location_id"); err != nil {
		return nil, err
	}
	if err := s.ledger.Decrease(ctx, tx, req.ItemID, req.LocationID, req.Quantity); err != nil {
		return nil, err
	}

	disposedDate := s.now()
	if req.DisposedDate != nil && !req.DisposedDate.IsZero() {
		disposedDate = *req.DisposedDate
	}

	disposal := &models.Disposal{
		Item:         models.Item{ID: req.ItemID},
		Location:     models.Location{ID: req.LocationID},
		Quantity:     req.Quantity,
		Reason:       strings.TrimSpace(req.Reason),
		DisposedDate: disposedDate,
		DisposedBy:   req.DisposedBy,
		Notes:        req.Notes,
	}

	if err := s.dr.InsertDisposal(ctx, tx, disposal); err != nil {
		return nil, fmt.Errorf("failed to record disposal: %w", err)
	}

	return disposal, nil
}

func (s *DisposalService) GetDisposals(ctx context.Context, filter DisposalFilter, page models.Page) (*models.PagedResult[models.Disposal], error) {
	return s.dr.GetDisposals(ctx, filter, page)
}

func (s *DisposalService) AllDisposals(ctx context.Context) ([]models.Disposal, error) {
	return s.dr.AllDisposals(ctx)
}

func ValidateDisposal(req models.DisposalRequest) error {
	if req.ItemID <= 0 {
		return custom_error.NewValidationError("item_id", "item is required")
	}
	if req.LocationID <= 0 {
		return custom_error.NewValidationError("location_id", "location is required")
	}
	if req.Quantity <= 0 {
		return custom_error.NewValidationError("quantity", "quantity must be positive")
	}
	if strings.TrimSpace(req.Reason) == "" {
		return custom_error.NewValidationError("reason", "reason is required")
	}
	if req.DisposedBy == "" {
		return custom_error.NewValidationError("disposed_by", "disposed_by is required")
	}
	return nil
}
