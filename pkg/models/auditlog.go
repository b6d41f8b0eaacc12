package models

import "time"

type AuditLog struct {
	ID           int                    `json:"id,omitempty"`
	ResourceID   int                    `json:"resource_id"`
	ResourceType string                 `json:"resource_type"`
	Action       string                 `json:"action"` // create, update, delete, move, dispose
	Actor        string                 `json:"actor,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	CreatedAt    time.Time              `json:"created_at,omitempty"`
}

// FlatAuditLogRecord is an activity_log row before its JSON payload is decoded.
type FlatAuditLogRecord struct {
	ID           int       `db:"id"`
	ResourceID   int       `db:"resource_id"`
	ResourceType string    `db:"resource_type"`
	Action       string    `db:"action"`
	Actor        string    `db:"actor"`
	DataRaw      []byte    `db:"data"`
	CreatedAt    time.Time `db:"created_at"`
}
