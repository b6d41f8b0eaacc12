package auditlog

import (
	"context"

	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"go.uber.org/zap"
)

// Store persists activity entries. A failing store never fails the
// operation being logged.
type Store interface {
	PersistLog(ctx context.Context, entry *models.AuditLog) error
}

type Auditlog struct {
	logger *zap.Logger
	store  Store
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

// Log writes an activity entry for item. The actor is taken from the
// identity carried by ctx; system actions (CLI, import) have none.
func (a *Auditlog) Log(ctx context.Context, action string, data map[string]interface{}, item Auditable) models.AuditLog {
	auditLog := item.CreateLogView()
	auditLog.Action = action
	auditLog.Data = data

	if identity, ok := security.IdentityFromContext(ctx); ok {
		auditLog.Actor = identity.Username
	} else {
		auditLog.Actor = "system"
	}

	a.logger.Info("activity",
		zap.String("resource_type", auditLog.ResourceType),
		zap.Int("resource_id", auditLog.ResourceID),
		zap.String("action", auditLog.Action),
		zap.String("actor", auditLog.Actor),
		zap.Any("data", auditLog.Data),
	)

	if a.store != nil {
		if err := a.store.PersistLog(context.WithoutCancel(ctx), &auditLog); err != nil {
			a.logger.Warn("failed to persist activity",
				zap.String("resource_type", auditLog.ResourceType),
				zap.String("action", auditLog.Action),
				zap.Error(err),
			)
		}
	}

	return auditLog
}

func NewAuditLog(logger *zap.Logger) *Auditlog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditlog{logger: logger.Named("audit")}
}

// WithStore makes the log durable in addition to the structured log line.
func (a *Auditlog) WithStore(s Store) *Auditlog {
	a.store = s
	return a
}
