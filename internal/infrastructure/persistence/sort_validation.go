package persistence

import (
	"fmt"
	"strings"
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField if it is whitelisted, defaultField otherwise
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" || !allowedFields[trimmed] {
		return defaultField
	}
	return trimmed
}

// OrderSortFields contains allowed sort fields for orders
var OrderSortFields = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"total_amount": true,
	"status":       true,
}

// TransactionSortFields contains allowed sort fields for wallet transactions
var TransactionSortFields = map[string]bool{
	"created_at": true,
	"amount":     true,
}

// orderClause builds a whitelisted ORDER BY clause with id as the tie breaker
// so pages stay stable when timestamps collide
func orderClause(field string, allowed map[string]bool, dir string) string {
	column := ValidateSortField(field, allowed, "created_at")
	direction := ValidateSortOrder(dir)
	return fmt.Sprintf("%s %s, id %s", column, direction, direction)
}
