package csvio

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"churchinventory/pkg/models"
)

type ItemSource interface {
	AllItems(ctx context.Context) ([]models.Item, error)
}

type MovementSource interface {
	AllMovements(ctx context.Context) ([]models.Movement, error)
}

type DisposalSource interface {
	AllDisposals(ctx context.Context) ([]models.Disposal, error)
}

type Exporter struct {
	items     ItemSource
	movements MovementSource
	disposals DisposalSource
	now       func() time.Time
}

func NewExporter(i ItemSource, m MovementSource, d DisposalSource) *Exporter {
	return &Exporter{items: i, movements: m, disposals: d, now: time.Now}
}

// Rows renders kind as a table whose first row is the header.
func (e *Exporter) Rows(ctx context.Context, kind Kind) ([][]string, error) {
	switch kind {
	case Inventory:
		return e.inventoryRows(ctx)
	case Movements:
		return e.movementRows(ctx)
	case Disposals:
		return e.disposalRows(ctx)
	default:
		return nil, fmt.Errorf("unknown export type %q", kind)
	}
}

// inventoryRows lists one row per (item, location) with stock on hand.
func (e *Exporter) inventoryRows(ctx context.Context) ([][]string, error) {
	all, err := e.items.AllItems(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{exportHeaders[Inventory]}
	for _, item := range all {
		for _, stock := range item.Stock {
			if stock.Quantity <= 0 {
				continue
			}
			rows = append(rows, []string{
				strconv.Itoa(item.ID),
				item.Name,
				item.Description,
				item.Category,
				item.Condition,
				stock.Location.Name,
				strconv.Itoa(stock.Quantity),
			})
		}
	}

	return rows, nil
}

func (e *Exporter) movementRows(ctx context.Context) ([][]string, error) {
	all, err := e.movements.AllMovements(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{exportHeaders[Movements]}
	for _, m := range all {
		rows = append(rows, []string{
			strconv.Itoa(m.ID),
			m.Item.Name,
			strconv.Itoa(m.Quantity),
			locationName(m.FromLocation),
			locationName(m.ToLocation),
			m.MovementDate.Format(dateLayout),
			m.ResponsiblePerson,
			m.Notes,
		})
	}

	return rows, nil
}

func (e *Exporter) disposalRows(ctx context.Context) ([][]string, error) {
	all, err := e.disposals.AllDisposals(ctx)
	if err != nil {
		return nil, err
	}

	rows := [][]string{exportHeaders[Disposals]}
	for _, d := range all {
		rows = append(rows, []string{
			strconv.Itoa(d.ID),
			d.Item.Name,
			d.Location.Name,
			strconv.Itoa(d.Quantity),
			d.Reason,
			d.DisposedDate.Format(dateLayout),
			d.DisposedBy,
			d.Notes,
		})
	}

	return rows, nil
}

// WriteCSV writes kind as UTF-8 CSV with a byte order mark so spreadsheet
// applications detect the encoding.
func (e *Exporter) WriteCSV(ctx context.Context, kind Kind, w io.Writer) error {
	rows, err := e.Rows(ctx, kind)
	if err != nil {
		return err
	}
	return writeCSV(w, rows)
}

// WriteArchive writes every export into a single zip file.
func (e *Exporter) WriteArchive(ctx context.Context, w io.Writer, timestamp string) error {
	tables := make(map[Kind][][]string, len(kinds))
	for _, kind := range kinds {
		rows, err := e.Rows(ctx, kind)
		if err != nil {
			return err
		}
		tables[kind] = rows
	}

	return writeArchive(w, tables, "", timestamp)
}

// WriteTemplates writes every import template into a single zip file.
func WriteTemplates(w io.Writer, timestamp string) error {
	tables := make(map[Kind][][]string, len(kinds))
	for _, kind := range kinds {
		tables[kind] = Template(kind)
	}
	return writeArchive(w, tables, "template", timestamp)
}

func (e *Exporter) Timestamp() string {
	return e.now().UTC().Format("20060102_150405")
}

func writeArchive(w io.Writer, tables map[Kind][][]string, suffix, timestamp string) error {
	archive := zip.NewWriter(w)
	for _, kind := range kinds {
		file, err := archive.Create(fileName(kind, suffix, timestamp, "csv"))
		if err != nil {
			return err
		}
		if err := writeCSV(file, tables[kind]); err != nil {
			return err
		}
	}
	return archive.Close()
}

func writeCSV(w io.Writer, rows [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func locationName(l *models.Location) string {
	if l == nil {
		return ""
	}
	return l.Name
}
