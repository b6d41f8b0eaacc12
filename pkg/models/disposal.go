package models

import "time"

type Disposal struct {
	ID           int       `json:"id"`
	Item         Item      `json:"item"`
	Location     Location  `json:"location"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
	DisposedDate time.Time `json:"disposed_date"`
	DisposedBy   string    `json:"disposed_by"`
	Notes        string    `json:"notes"`
}

// DisposalRequest is the input of the ledger's RecordDisposal operation.
// DisposedBy is never read from the client; it is the acting identity.
type DisposalRequest struct {
	ItemID       int        `json:"item_id" binding:"required"`
	LocationID   int        `json:"location_id" binding:"required"`
	Quantity     int        `json:"quantity" binding:"required"`
	Reason       string     `json:"reason"`
	DisposedDate *time.Time `json:"disposed_date"`
	Notes        string     `json:"notes"`
	DisposedBy   string     `json:"-"`
}

type FlatDisposalRecord struct {
	ID           int       `db:"id"`
	ItemID       int       `db:"item_id"`
	ItemName     string    `db:"item_name"`
	LocationID   int       `db:"location_id"`
	LocationName string    `db:"location_name"`
	Quantity     int       `db:"quantity"`
	Reason       string    `db:"reason"`
	DisposedDate time.Time `db:"disposed_date"`
	DisposedBy   string    `db:"disposed_by"`
	Notes        string    `db:"notes"`
}

func (f FlatDisposalRecord) ToDisposal() Disposal {
	return Disposal{
		ID:           f.ID,
		Item:         Item{ID: f.ItemID, Name: f.ItemName},
		Location:     Location{ID: f.LocationID, Name: f.LocationName},
		Quantity:     f.Quantity,
		Reason:       f.Reason,
		DisposedDate: f.DisposedDate,
		DisposedBy:   f.DisposedBy,
		Notes:        f.Notes,
	}
}

func (d *Disposal) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   d.ID,
		ResourceType: "disposal",
	}
}
