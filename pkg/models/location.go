package models

type Location struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// LocationStock is a location together with what is currently stored there.
type LocationStock struct {
	Location
	Stock []StockItem `json:"stock"`
}

func (l *Location) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   l.ID,
		ResourceType: "location",
	}
}
