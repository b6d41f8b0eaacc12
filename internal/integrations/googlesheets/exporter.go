package googlesheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"churchinventory/internal/inventory/csvio"

	"go.uber.org/zap"
)

type RowSource interface {
	Rows(ctx context.Context, kind csvio.Kind) ([][]string, error)
}

type ExportResult struct {
	SpreadsheetID string    `json:"spreadsheet_id"`
	Range         string    `json:"range"`
	Rows          int       `json:"rows"`
	UpdatedCells  int64     `json:"updated_cells"`
	ExportedAt    time.Time `json:"exported_at"`
}

// Exporter mirrors the inventory CSV export into a spreadsheet. The target
// sheet is cleared first so removed stock does not linger.
type Exporter struct {
	client        ValuesClient
	rows          RowSource
	spreadsheetID string
	writeRange    string
	logger        *zap.Logger
	now           func() time.Time
}

func NewExporter(client ValuesClient, rows RowSource, spreadsheetID, writeRange string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		client:        client,
		rows:          rows,
		spreadsheetID: spreadsheetID,
		writeRange:    normalizeRange(writeRange),
		logger:        logger.Named("sheets"),
		now:           time.Now,
	}
}

func (e *Exporter) ExportInventory(ctx context.Context) (*ExportResult, error) {
	rows, err := e.rows.Rows(ctx, csvio.Inventory)
	if err != nil {
		return nil, err
	}

	if err := e.client.Clear(ctx, e.spreadsheetID, sheetOf(e.writeRange)); err != nil {
		return nil, err
	}

	cells, err := e.client.Update(ctx, e.spreadsheetID, e.writeRange, toValues(rows))
	if err != nil {
		return nil, err
	}

	result := &ExportResult{
		SpreadsheetID: e.spreadsheetID,
		Range:         e.writeRange,
		Rows:          len(rows) - 1,
		UpdatedCells:  cells,
		ExportedAt:    e.now().UTC(),
	}
	e.logger.Info("inventory exported",
		zap.String("spreadsheet_id", e.spreadsheetID),
		zap.String("range", e.writeRange),
		zap.Int("rows", result.Rows),
		zap.Int64("updated_cells", cells),
	)

	return result, nil
}

// ReadBack returns what the target sheet currently holds.
func (e *Exporter) ReadBack(ctx context.Context) ([][]string, error) {
	values, err := e.client.Get(ctx, e.spreadsheetID, sheetOf(e.writeRange))
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = toString(cell)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func toValues(rows [][]string) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	return values
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// normalizeRange turns a bare sheet name into its top-left cell.
func normalizeRange(r string) string {
	r = strings.TrimSpace(r)
	if r == "" {
		return "Inventory!A1"
	}
	if !strings.Contains(r, "!") {
		return r + "!A1"
	}
	return r
}

func sheetOf(r string) string {
	if i := strings.Index(r, "!"); i >= 0 {
		return r[:i]
	}
	return r
}
