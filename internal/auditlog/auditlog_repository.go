package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"churchinventory/internal/repository"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

const activityTable = "activity_log"

type ActivityFilter struct {
	ResourceType string `form:"resource_type"`
	ResourceID   int    `form:"resource_id"`
	Actor        string `form:"actor"`
	Action       string `form:"action"`
}

type ActivityReader interface {
	GetActivity(ctx context.Context, filter ActivityFilter, page models.Page) (*models.PagedResult[models.AuditLog], error)
}

type AuditLogRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *AuditLogRepository {
	return &AuditLogRepository{repository: r}
}

func (r *AuditLogRepository) PersistLog(ctx context.Context, entry *models.AuditLog) error {
	data := entry.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit log data: %w", err)
	}

	var inserted struct {
		ID        int       `db:"id"`
		CreatedAt time.Time `db:"created_at"`
	}
	_, err = r.repository.GoquDBWrapper.Insert(activityTable).
		Rows(goqu.Record{
			"resource_id":   entry.ResourceID,
			"resource_type": entry.ResourceType,
			"action":        entry.Action,
			"actor":         entry.Actor,
			"data":          string(dataJSON),
		}).
		Returning("id", "created_at").
		Executor().
		ScanStructContext(ctx, &inserted)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	entry.ID = inserted.ID
	entry.CreatedAt = inserted.CreatedAt

	return nil
}

// GetActivity lists entries newest first.
func (r *AuditLogRepository) GetActivity(ctx context.Context, filter ActivityFilter, page models.Page) (*models.PagedResult[models.AuditLog], error) {
	query := r.repository.GoquDBWrapper.From(activityTable)

	ex := goqu.Ex{}
	if filter.ResourceType != "" {
		ex["resource_type"] = filter.ResourceType
	}
	if filter.ResourceID != 0 {
		ex["resource_id"] = filter.ResourceID
	}
	if filter.Actor != "" {
		ex["actor"] = filter.Actor
	}
	if filter.Action != "" {
		ex["action"] = filter.Action
	}
	if len(ex) > 0 {
		query = query.Where(ex)
	}

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count activity: %w", err)
	}

	var records []models.FlatAuditLogRecord
	err = query.Select("id", "resource_id", "resource_type", "action", "actor", "data", "created_at").
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	entries, err := transformToAuditLogs(records)
	if err != nil {
		return nil, err
	}

	return &models.PagedResult[models.AuditLog]{
		Items:   entries,
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

func transformToAuditLogs(records []models.FlatAuditLogRecord) ([]models.AuditLog, error) {
	entries := make([]models.AuditLog, 0, len(records))
	for _, record := range records {
		entry := models.AuditLog{
			ID:           record.ID,
			ResourceID:   record.ResourceID,
			ResourceType: record.ResourceType,
			Action:       record.Action,
			Actor:        record.Actor,
			CreatedAt:    record.CreatedAt,
		}
		if len(record.DataRaw) > 0 {
			if err := json.Unmarshal(record.DataRaw, &entry.Data); err != nil {
				return nil, fmt.Errorf("failed to decode activity %d: %w", record.ID, err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
