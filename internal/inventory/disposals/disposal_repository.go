package disposals

import (
	"context"
	"fmt"

	"churchinventory/internal/repository"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type DisposalFilter struct {
	ItemID     *int   `form:"item_id"`
	LocationID *int   `form:"location_id"`
	Query      string `form:"q"`
}

type DisposalRepository interface {
	InsertDisposal(ctx context.Context, tx *goqu.TxDatabase, disposal *models.Disposal) error
	GetDisposals(ctx context.Context, filter DisposalFilter, page models.Page) (*models.PagedResult[models.Disposal], error)
	AllDisposals(ctx context.Context) ([]models.Disposal, error)
}

type disposalRepository struct {
	Repo *repository.Repository
}

func NewRepository(r *repository.Repository) *disposalRepository {
	return &disposalRepository{Repo: r}
}

func (r *disposalRepository) InsertDisposal(ctx context.Context, tx *goqu.TxDatabase, disposal *models.Disposal) error {
	_, err := tx.Insert("disposals").
		Rows(goqu.Record{
			"item_id":       disposal.Item.ID,
			"location_id":   disposal.Location.ID,
			"quantity":      disposal.Quantity,
			"reason":        disposal.Reason,
			"disposed_date": disposal.DisposedDate,
			"disposed_by":   disposal.DisposedBy,
			"notes":         disposal.Notes,
		}).
		Returning("id").
		Executor().
		ScanValContext(ctx, &disposal.ID)
	if err != nil {
		return custom_error.WrapDBError("failed to insert disposal record", err)
	}

	return nil
}

func (r *disposalRepository) GetDisposals(ctx context.Context, filter DisposalFilter, page models.Page) (*models.PagedResult[models.Disposal], error) {
	conditions := repository.NewQueryBuilder()
	conditions.AddCondition("item_id", filter.ItemID)
	conditions.AddCondition("location_id", filter.LocationID)

	query := r.getDisposalQuery()
	if ex := conditions.BuildConditions(map[string]string{"item_id": "d.item_id", "location_id": "d.location_id"}); len(ex) > 0 {
		query = query.Where(ex)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where(goqu.Or(
			goqu.I("i.name").ILike(pattern),
			goqu.I("l.name").ILike(pattern),
			goqu.I("d.reason").ILike(pattern),
		))
	}

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count disposals: %w", err)
	}

	var flatDisposals []models.FlatDisposalRecord
	err = query.
		Order(goqu.I("d.disposed_date").Desc(), goqu.I("d.id").Desc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &flatDisposals)
	if err != nil {
		return nil, fmt.Errorf("unable to select disposals from database: %w", err)
	}

	return &models.PagedResult[models.Disposal]{
		Items:   transformToDisposals(flatDisposals),
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

func (r *disposalRepository) AllDisposals(ctx context.Context) ([]models.Disposal, error) {
	var flatDisposals []models.FlatDisposalRecord
	err := r.getDisposalQuery().
		Order(goqu.I("d.disposed_date").Desc(), goqu.I("d.id").Desc()).
		ScanStructsContext(ctx, &flatDisposals)
	if err != nil {
		return nil, fmt.Errorf("unable to select disposals from database: %w", err)
	}

	return transformToDisposals(flatDisposals), nil
}

func (r *disposalRepository) getDisposalQuery() *goqu.SelectDataset {
	return r.Repo.GoquDBWrapper.
		Select(
			goqu.I("d.id").As("id"),
			goqu.I("d.item_id").As("item_id"),
			goqu.I("i.name").As("item_name"),
			goqu.I("d.location_id").As("location_id"),
			goqu.I("l.name").As("location_name"),
			goqu.I("d.quantity").As("quantity"),
			goqu.I("d.reason").As("reason"),
			goqu.I("d.disposed_date").As("disposed_date"),
			goqu.I("d.disposed_by").As("disposed_by"),
			goqu.I("d.notes").As("notes"),
		).
		From(goqu.T("disposals").As("d")).
		InnerJoin(
			goqu.T("inventory_items").As("i"),
			goqu.On(goqu.Ex{"d.item_id": goqu.I("i.id")}),
		).
		InnerJoin(
			goqu.T("locations").As("l"),
			goqu.On(goqu.Ex{"d.location_id": goqu.I("l.id")}),
		)
}

func transformToDisposals(flatDisposals []models.FlatDisposalRecord) []models.Disposal {
	disposals := make([]models.Disposal, 0, len(flatDisposals))
	for _, flatDisposal := range flatDisposals {
		disposals = append(disposals, flatDisposal.ToDisposal())
	}
	return disposals
}
