package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField checks sortField against a whitelist of columns.
// Returns defaultField if the input is empty or not allowed.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// EntrySortFields are the journal entry columns a listing may order by
var EntrySortFields = map[string]bool{
	"entry_date":   true,
	"entry_number": true,
	"created_at":   true,
	"posted_at":    true,
	"total_debit":  true,
}

// entryOrder builds the ORDER BY clause for a journal listing. entry_number
// breaks ties so pages are stable.
func entryOrder(orderBy, orderDir string) string {
	field := ValidateSortField(orderBy, EntrySortFields, "entry_date")
	dir := ValidateSortOrder(orderDir)
	if field == "entry_number" {
		return "entry_number " + dir
	}
	return field + " " + dir + ", entry_number " + dir
}
