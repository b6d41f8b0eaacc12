package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID            int             `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Category      string          `json:"category" db:"category"`
	Condition     string          `json:"condition" db:"condition"`
	DateAcquired  *time.Time      `json:"date_acquired,omitempty" db:"date_acquired"`
	PricePerItem  decimal.Decimal `json:"price_per_item" db:"price_per_item"`
	TotalQuantity int             `json:"total_quantity" db:"-"`
	Stock         []StockItem     `json:"stock,omitempty" db:"-"`
}

func (i *Item) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   i.ID,
		ResourceType: "item",
	}
}

// ItemDeletion summarises the rows removed together with an item.
type ItemDeletion struct {
	ItemID    int   `json:"item_id"`
	Stock     int64 `json:"stock_rows"`
	Movements int64 `json:"movement_rows"`
	Disposals int64 `json:"disposal_rows"`
}
