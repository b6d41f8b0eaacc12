package models

import "time"

type Movement struct {
	ID                int       `json:"id"`
	Item              Item      `json:"item"`
	Quantity          int       `json:"quantity"`
	FromLocation      *Location `json:"from_location"`
	ToLocation        *Location `json:"to_location"`
	MovementDate      time.Time `json:"movement_date"`
	ResponsiblePerson string    `json:"responsible_person"`
	Notes             string    `json:"notes"`
}

// MovementRequest is the input of the ledger's RecordMovement operation.
// A nil FromLocationID means initial stocking, a nil ToLocationID a write-off.
type MovementRequest struct {
	ItemID            int        `json:"item_id" binding:"required"`
	Quantity          int        `json:"quantity" binding:"required"`
	FromLocationID    *int       `json:"from_location_id"`
	ToLocationID      *int       `json:"to_location_id"`
	MovementDate      *time.Time `json:"movement_date"`
	ResponsiblePerson string     `json:"responsible_person"`
	Notes             string     `json:"notes"`
}

type FlatMovementRecord struct {
	ID                int       `db:"id"`
	ItemID            int       `db:"item_id"`
	ItemName          string    `db:"item_name"`
	Quantity          int       `db:"quantity"`
	FromLocationID    *int      `db:"from_location_id"`
	FromLocationName  *string   `db:"from_location_name"`
	ToLocationID      *int      `db:"to_location_id"`
	ToLocationName    *string   `db:"to_location_name"`
	MovementDate      time.Time `db:"movement_date"`
	ResponsiblePerson string    `db:"responsible_person"`
	Notes             string    `db:"notes"`
}

func (f FlatMovementRecord) ToMovement() Movement {
	movement := Movement{
		ID:                f.ID,
		Item:              Item{ID: f.ItemID, Name: f.ItemName},
		Quantity:          f.Quantity,
		MovementDate:      f.MovementDate,
		ResponsiblePerson: f.ResponsiblePerson,
		Notes:             f.Notes,
	}
	if f.FromLocationID != nil {
		movement.FromLocation = &Location{ID: *f.FromLocationID, Name: derefString(f.FromLocationName)}
	}
	if f.ToLocationID != nil {
		movement.ToLocation = &Location{ID: *f.ToLocationID, Name: derefString(f.ToLocationName)}
	}

	return movement
}

func (m *Movement) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   m.ID,
		ResourceType: "movement",
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
