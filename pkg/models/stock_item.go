package models

// StockItem is one row of the stock ledger: the on-hand quantity of an item
// at a location.
type StockItem struct {
	ItemID   int      `json:"item_id"`
	ItemName string   `json:"item_name,omitempty"`
	Location Location `json:"location"`
	Quantity int      `json:"quantity"`
}

type FlatStockRecord struct {
	ItemID       int    `db:"item_id"`
	ItemName     string `db:"item_name"`
	LocationID   int    `db:"location_id"`
	LocationName string `db:"location_name"`
	Quantity     int    `db:"quantity"`
}

func (s FlatStockRecord) ToStockItem() StockItem {
	return StockItem{
		ItemID:   s.ItemID,
		ItemName: s.ItemName,
		Location: Location{
			ID:   s.LocationID,
			Name: s.LocationName,
		},
		Quantity: s.Quantity,
	}
}

func (s *StockItem) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   s.ItemID,
		ResourceType: "stock",
	}
}
