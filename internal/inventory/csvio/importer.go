package csvio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"churchinventory/internal/inventory/items"
	"churchinventory/internal/metrics"
	"churchinventory/internal/repository"
	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const importNote = "CSV import"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type ItemImporter interface {
	ApplyAddItem(ctx context.Context, tx *goqu.TxDatabase, req items.CreateItemRequest) (*models.Item, error)
	ResolveItem(ctx context.Context, tx *goqu.TxDatabase, name, description string) (*models.Item, error)
}

type MovementApplier interface {
	ApplyMovement(ctx context.Context, tx *goqu.TxDatabase, req models.MovementRequest) (*models.Movement, error)
}

type DisposalApplier interface {
	ApplyDisposal(ctx context.Context, tx *goqu.TxDatabase, req models.DisposalRequest) (*models.Disposal, error)
}

type LocationResolver interface {
	GetOrCreateLocation(ctx context.Context, tx *goqu.TxDatabase, name string) (*models.Location, error)
}

// RowError pins a failure to the CSV line that caused it.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type ImportResult struct {
	Kind Kind `json:"type"`
	Rows int  `json:"rows"`
}

func (r *ImportResult) CreateLogView() models.AuditLog {
	return models.AuditLog{ResourceType: "import"}
}

// Importer applies a CSV file through the ledger operations. All rows share
// one transaction: the first bad row rolls back the whole file.
type Importer struct {
	transactor repository.Transactor
	items      ItemImporter
	movements  MovementApplier
	disposals  DisposalApplier
	locations  LocationResolver
	auditLog   *auditlog.Auditlog
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewImporter(
	t repository.Transactor,
	i ItemImporter,
	mv MovementApplier,
	d DisposalApplier,
	l LocationResolver,
	a *auditlog.Auditlog,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		transactor: t,
		items:      i,
		movements:  mv,
		disposals:  d,
		locations:  l,
		auditLog:   a,
		metrics:    m,
		logger:     logger.Named("csv_import"),
	}
}

func (im *Importer) Import(ctx context.Context, identity security.Identity, kind Kind, r io.Reader) (*ImportResult, error) {
	if identity.Username == "" {
		return nil, custom_error.NewValidationError("identity", "an authenticated user is required")
	}

	reader, err := newReader(r)
	if err != nil {
		return nil, err
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, custom_error.NewValidationError("file", "file is empty")
	}
	if err != nil {
		return nil, custom_error.NewValidationError("file", err.Error())
	}
	columns, err := indexColumns(header, requiredColumns[kind])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Kind: kind}
	err = im.transactor.WithinTransaction(ctx, func(tx *goqu.TxDatabase) error {
		for {
			values, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				var parseErr *csv.ParseError
				line := 0
				if errors.As(err, &parseErr) {
					line = parseErr.StartLine
				}
				return &RowError{Line: line, Err: custom_error.NewValidationError("file", err.Error())}
			}
			line, _ := reader.FieldPos(0)

			row := record{columns: columns, values: values}
			if row.blank() {
				continue
			}

			if err := im.applyRow(ctx, tx, identity, kind, row); err != nil {
				return &RowError{Line: line, Err: err}
			}
			result.Rows++
		}
	})
	if err != nil {
		im.logger.Warn("import rolled back", zap.String("type", string(kind)), zap.String("user", identity.Username), zap.Error(err))
		return nil, err
	}

	im.metrics.ObserveLedger("import_" + string(kind))
	im.auditLog.Log(security.WithIdentity(ctx, identity), "import", map[string]interface{}{
		"type": kind,
		"rows": result.Rows,
	}, result)

	return result, nil
}

func (im *Importer) applyRow(ctx context.Context, tx *goqu.TxDatabase, identity security.Identity, kind Kind, row record) error {
	switch kind {
	case Inventory:
		return im.importInventoryRow(ctx, tx, identity, row)
	case Movements:
		return im.importMovementRow(ctx, tx, identity, row)
	case Disposals:
		return im.importDisposalRow(ctx, tx, identity, row)
	default:
		return custom_error.NewValidationError("type", fmt.Sprintf("cannot import %q", kind))
	}
}

func (im *Importer) importInventoryRow(ctx context.Context, tx *goqu.TxDatabase, identity security.Identity, row record) error {
	quantity, err := positiveInt(row.get("Quantity"), "Quantity")
	if err != nil {
		return err
	}

	req := items.CreateItemRequest{
		Name:              row.get("Name"),
		Description:       row.get("Description"),
		Category:          row.get("Category"),
		Condition:         row.get("Condition"),
		DateAcquired:      row.get("DateAcquired"),
		Quantity:          quantity,
		LocationName:      row.get("Location"),
		ResponsiblePerson: identity.Username,
		Notes:             importNote,
	}
	if req.LocationName == "" {
		return custom_error.NewValidationError("Location", "location is required")
	}
	if raw := row.get("PricePerItem"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return custom_error.NewValidationError("PricePerItem", fmt.Sprintf("invalid price %q", raw))
		}
		req.PricePerItem = &price
	}

	_, err = im.items.ApplyAddItem(ctx, tx, req)
	return err
}

func (im *Importer) importMovementRow(ctx context.Context, tx *goqu.TxDatabase, identity security.Identity, row record) error {
	quantity, err := positiveInt(row.get("Quantity"), "Quantity")
	if err != nil {
		return err
	}
	date, err := parseDate(row.get("MovementDate"), "MovementDate")
	if err != nil {
		return err
	}

	fromName, toName := row.get("FromLocation"), row.get("ToLocation")
	if fromName == "" && toName == "" {
		return custom_error.NewValidationError("ToLocation", "at least one of FromLocation or ToLocation is required")
	}

	item, err := im.items.ResolveItem(ctx, tx, row.get("Name"), "")
	if err != nil {
		return err
	}

	req := models.MovementRequest{
		ItemID:            item.ID,
		Quantity:          quantity,
		MovementDate:      &date,
		ResponsiblePerson: row.get("ResponsiblePerson"),
		Notes:             row.get("Notes"),
	}
	if req.ResponsiblePerson == "" {
		req.ResponsiblePerson = identity.Username
	}
	if fromName != "" {
		location, err := im.locations.GetOrCreateLocation(ctx, tx, fromName)
		if err != nil {
			return err
		}
		req.FromLocationID = &location.ID
	}
	if toName != "" {
		location, err := im.locations.GetOrCreateLocation(ctx, tx, toName)
		if err != nil {
			return err
		}
		req.ToLocationID = &location.ID
	}

	_, err = im.movements.ApplyMovement(ctx, tx, req)
	return err
}

func (im *Importer) importDisposalRow(ctx context.Context, tx *goqu.TxDatabase, identity security.Identity, row record) error {
	quantity, err := positiveInt(row.get("Quantity"), "Quantity")
	if err != nil {
		return err
	}
	date, err := parseDate(row.get("DisposalDate"), "DisposalDate")
	if err != nil {
		return err
	}
	reason := row.get("Reason")
	if reason == "" {
		return custom_error.NewValidationError("Reason", "reason is required")
	}

	item, err := im.items.ResolveItem(ctx, tx, row.get("Name"), "")
	if err != nil {
		return err
	}
	location, err := im.locations.GetOrCreateLocation(ctx, tx, row.get("Location"))
	if err != nil {
		return err
	}

	_, err = im.disposals.ApplyDisposal(ctx, tx, models.DisposalRequest{
		ItemID:       item.ID,
		LocationID:   location.ID,
		Quantity:     quantity,
		Reason:       reason,
		DisposedDate: &date,
		DisposedBy:   identity.Username,
		Notes:        row.get("Notes"),
	})
	return err
}

func newReader(r io.Reader) (*csv.Reader, error) {
	buffered := bufio.NewReader(r)
	prefix, err := buffered.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := buffered.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader, nil
}

// columnKey folds "Movement Date", "movement_date" and "MovementDate" onto
// the same key.
func columnKey(name string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(name)))
}

func indexColumns(header []string, required []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := columnKey(name)
		if _, seen := columns[key]; !seen && key != "" {
			columns[key] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := columns[columnKey(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, custom_error.NewValidationError("header", "missing columns: "+strings.Join(missing, ", "))
	}

	return columns, nil
}

type record struct {
	columns map[string]int
	values  []string
}

func (r record) get(column string) string {
	i, ok := r.columns[columnKey(column)]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (r record) blank() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func positiveInt(value, field string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, custom_error.NewValidationError(field, fmt.Sprintf("invalid quantity value %q", value))
	}
	return n, nil
}

func parseDate(value, field string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, custom_error.NewValidationError(field, fmt.Sprintf("invalid date %q, use YYYY-MM-DD", value))
	}
	return t.UTC(), nil
}
