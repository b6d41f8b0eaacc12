package csvio

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"churchinventory/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSources struct {
	items     []models.Item
	movements []models.Movement
	disposals []models.Disposal
	err       error
}

func (s stubSources) AllItems(ctx context.Context) ([]models.Item, error) {
	return s.items, s.err
}

func (s stubSources) AllMovements(ctx context.Context) ([]models.Movement, error) {
	return s.movements, s.err
}

func (s stubSources) AllDisposals(ctx context.Context) ([]models.Disposal, error) {
	return s.disposals, s.err
}

func newStubExporter(s stubSources) *Exporter {
	e := NewExporter(s, s, s)
	e.now = func() time.Time { return time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC) }
	return e
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, utf8BOM))
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	return rows
}

var sampleSources = stubSources{
	items: []models.Item{
		{ID: 1, Name: "Hymnal", Category: "Books", Condition: "Good", Stock: []models.StockItem{
			{Location: models.Location{Name: "Choir Loft"}, Quantity: 40},
			{Location: models.Location{Name: "Storage"}, Quantity: 0},
		}},
		{ID: 2, Name: "Folding Table", Category: "Furniture", Condition: "Fair"},
	},
	movements: []models.Movement{
		{ID: 5, Item: models.Item{Name: "Hymnal"}, Quantity: 10, ToLocation: &models.Location{Name: "Choir Loft"},
			MovementDate: time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC), ResponsiblePerson: "Ann", Notes: "Initial stock"},
	},
	disposals: []models.Disposal{
		{ID: 8, Item: models.Item{Name: "Hymnal"}, Location: models.Location{Name: "Choir Loft"}, Quantity: 2,
			Reason: "Torn", DisposedDate: time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC), DisposedBy: "sexton"},
	},
}

func TestExportInventorySkipsEmptyStock(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newStubExporter(sampleSources).WriteCSV(context.Background(), Inventory, &buf))

	rows := readCSV(t, buf.Bytes())
	assert.Equal(t, [][]string{
		exportHeaders[Inventory],
		{"1", "Hymnal", "", "Books", "Good", "Choir Loft", "40"},
	}, rows)
}

func TestExportMovementsAndDisposals(t *testing.T) {
	e := newStubExporter(sampleSources)

	rows, err := e.Rows(context.Background(), Movements)
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "Hymnal", "10", "", "Choir Loft", "2025-04-02", "Ann", "Initial stock"}, rows[1])

	rows, err = e.Rows(context.Background(), Disposals)
	require.NoError(t, err)
	assert.Equal(t, []string{"8", "Hymnal", "Choir Loft", "2", "Torn", "2025-04-20", "sexton", ""}, rows[1])
}

func TestExportArchive(t *testing.T) {
	e := newStubExporter(sampleSources)
	var buf bytes.Buffer

	require.NoError(t, e.WriteArchive(context.Background(), &buf, e.Timestamp()))

	archive, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range archive.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"inventory_20250501_093000.csv",
		"movements_20250501_093000.csv",
		"disposals_20250501_093000.csv",
	}, names)

	rc, err := archive.File[2].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 2)
}

func TestExportPropagatesSourceErrors(t *testing.T) {
	e := newStubExporter(stubSources{err: errors.New("db down")})

	assert.Error(t, e.WriteCSV(context.Background(), Movements, io.Discard))
	assert.Error(t, e.WriteArchive(context.Background(), io.Discard, "ts"))
}

func TestTemplatesRoundTripThroughImportHeader(t *testing.T) {
	for _, kind := range kinds {
		rows := Template(kind)
		require.Len(t, rows, 2)
		_, err := indexColumns(rows[0], requiredColumns[kind])
		assert.NoError(t, err, string(kind))
	}
}
