package metadata

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultCategory  = "Uncategorized"
	DefaultCondition = "Unknown"
)

// NormalizeLocationName trims, collapses inner whitespace and title-cases a
// location name so "  storage   room" and "Storage Room" resolve to one row.
func NormalizeLocationName(value string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(value), " "))
}

// CategoryOrDefault returns the trimmed category, or DefaultCategory if empty.
func CategoryOrDefault(value string) string {
	return orDefault(value, DefaultCategory)
}

func ConditionOrDefault(value string) string {
	return orDefault(value, DefaultCondition)
}

func orDefault(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
