package items

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	custom_error "churchinventory/pkg/errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"

	maxNameLength      = 200
	maxCategoryLength  = 100
	maxConditionLength = 50
)

// maxPrice is the first value that no longer fits NUMERIC(12, 2).
var maxPrice = decimal.New(1, 10)

type CreateItemRequest struct {
	Name              string           `json:"name" binding:"required"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	Condition         string           `json:"condition"`
	DateAcquired      string           `json:"date_acquired"`
	PricePerItem      *decimal.Decimal `json:"price_per_item"`
	Quantity          int              `json:"quantity"`
	LocationID        *int             `json:"location_id"`
	LocationName      string           `json:"location_name"`
	ResponsiblePerson string           `json:"responsible_person"`
	Notes             string           `json:"notes"`
}

type UpdateItemRequest struct {
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	Category     *string          `json:"category"`
	Condition    *string          `json:"condition"`
	DateAcquired *string          `json:"date_acquired"`
	PricePerItem *decimal.Decimal `json:"price_per_item"`
}

// ItemListQuery doubles as the QueryBuilder for the exact-match filters.
type ItemListQuery struct {
	Category  string `form:"category"`
	Condition string `form:"condition"`
	InStock   *bool  `form:"in_stock"`
	Query     string `form:"q"`
}

func (q *ItemListQuery) AddCondition(key string, value interface{}) {
	s, _ := value.(string)
	switch key {
	case "category":
		q.Category = s
	case "condition":
		q.Condition = s
	}
}

func (q *ItemListQuery) BuildConditions(aliases map[string]string) goqu.Ex {
	conditions := goqu.Ex{}

	if q.Category != "" {
		conditions[aliases["category"]] = q.Category
	}
	if q.Condition != "" {
		conditions[aliases["condition"]] = q.Condition
	}

	return conditions
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Blank means unset.
func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range []string{dateLayout, time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, nil
		}
	}

	return nil, custom_error.NewValidationError("date_acquired", "date must be formatted as YYYY-MM-DD")
}

func validatePrice(price *decimal.Decimal) error {
	if price == nil {
		return nil
	}
	if price.IsNegative() {
		return custom_error.NewValidationError("price_per_item", "price must not be negative")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return custom_error.NewValidationError("price_per_item", "price must be below 10000000000")
	}
	return nil
}

func validateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return custom_error.NewValidationError(field, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}
