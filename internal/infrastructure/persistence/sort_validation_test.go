package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"desc lowercase returns DESC", "desc", "DESC"},
		{"invalid value returns DESC", "INVALID", "DESC"},
		{"sql injection attempt returns DESC", "ASC; DROP TABLE orders;--", "DESC"},
		{"whitespace around ASC returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"whitelisted order field", "total_amount", OrderSortFields, "total_amount"},
		{"whitelisted transaction field", "amount", TransactionSortFields, "amount"},
		{"trimmed", "  status ", OrderSortFields, "status"},
		{"not whitelisted", "buyer_id", OrderSortFields, "created_at"},
		{"field of another table", "total_amount", TransactionSortFields, "created_at"},
		{"empty", "", OrderSortFields, "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, tt.allowed, "created_at"))
		})
	}
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name  string
		field string
		dir   string
		want  string
	}{
		{"default", "", "", "created_at DESC, id DESC"},
		{"allowed ascending", "total_amount", "asc", "total_amount ASC, id ASC"},
		{"unknown field falls back", "buyer_id", "asc", "created_at ASC, id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.field, OrderSortFields, tt.dir))
		})
	}
}

func TestSQLInjectionPrevention(t *testing.T) {
	payloads := []string{
		"created_at; DROP TABLE orders;--",
		"created_at' OR '1'='1",
		"created_at UNION SELECT * FROM wallets",
		"created_at, (SELECT balance FROM wallets)",
		"created_at/**/;DROP TABLE orders",
		"created_at\n; DROP TABLE orders",
	}

	for _, payload := range payloads {
		t.Run("field: "+payload[:min(len(payload), 30)], func(t *testing.T) {
			assert.Equal(t, "created_at", ValidateSortField(payload, OrderSortFields, "created_at"))
		})
		t.Run("order: "+payload[:min(len(payload), 30)], func(t *testing.T) {
			assert.Equal(t, "DESC", ValidateSortOrder(payload))
		})
	}
}
