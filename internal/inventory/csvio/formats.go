package csvio

import (
	"fmt"
	"strings"

	custom_error "churchinventory/pkg/errors"
)

type Kind string

const (
	Inventory Kind = "inventory"
	Movements Kind = "movements"
	Disposals Kind = "disposals"
	All       Kind = "all"
)

var kinds = []Kind{Inventory, Movements, Disposals}

const dateLayout = "2006-01-02"

// ParseKind accepts the short export names as well as the import contexts
// used by older spreadsheets.
func ParseKind(value string, allowAll bool) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "inventory", "current_inventory":
		return Inventory, nil
	case "movements", "movement_tracker":
		return Movements, nil
	case "disposals", "disposed_items":
		return Disposals, nil
	case "all":
		if allowAll {
			return All, nil
		}
	}
	return "", custom_error.NewValidationError("type", fmt.Sprintf("unknown type %q", value))
}

var exportHeaders = map[Kind][]string{
	Inventory: {"Item ID", "Name", "Description", "Category", "Condition", "Location", "Quantity"},
	Movements: {"Movement ID", "Item", "Quantity", "From Location", "To Location", "Date", "Responsible Person", "Notes"},
	Disposals: {"Disposal ID", "Item", "Location", "Quantity", "Reason", "Disposal Date", "Disposed By", "Notes"},
}

var templates = map[Kind][][]string{
	Inventory: {
		{"Name", "Location", "Quantity", "Description", "Category", "Condition", "DateAcquired", "PricePerItem"},
		{"Altar Candle", "Sacristy", "10", `Beeswax candles, 12" height`, "Liturgical", "New", "2025-01-15", "4.50"},
	},
	Movements: {
		{"Name", "Quantity", "MovementDate", "ResponsiblePerson", "FromLocation", "ToLocation", "Notes"},
		{"Communion Chalice", "2", "2025-05-01", "John Doe", "Storage Room", "Main Church", "Weekly service stock"},
	},
	Disposals: {
		{"Name", "Location", "Quantity", "DisposalDate", "Reason", "Notes"},
		{"Damaged Chair", "Sanctuary", "1", "2025-05-01", "Broken legs", ""},
	},
}

var requiredColumns = map[Kind][]string{
	Inventory: {"Name", "Location", "Quantity"},
	Movements: {"Name", "Quantity", "MovementDate", "ResponsiblePerson"},
	Disposals: {"Name", "Location", "Quantity", "DisposalDate", "Reason"},
}

// Template returns the header row and one example row for kind.
func Template(kind Kind) [][]string {
	rows := templates[kind]
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

func fileName(kind Kind, suffix, timestamp, ext string) string {
	if suffix != "" {
		return fmt.Sprintf("%s_%s_%s.%s", kind, suffix, timestamp, ext)
	}
	return fmt.Sprintf("%s_%s.%s", kind, timestamp, ext)
}
