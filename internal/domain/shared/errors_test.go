package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	specific := NewDomainError(CodeInsufficientStock, "Only 4 units of Carrots available")

	assert.True(t, errors.Is(specific, ErrInsufficientStock))
	assert.True(t, errors.Is(fmt.Errorf("reserve: %w", specific), ErrInsufficientStock))
	assert.False(t, errors.Is(specific, ErrInsufficientFunds))
	assert.False(t, errors.Is(errors.New("plain"), ErrNotFound))
}

func TestIsDomainError(t *testing.T) {
	de, ok := IsDomainError(fmt.Errorf("wrapped: %w", ErrSelfPurchase))
	assert.True(t, ok)
	assert.Equal(t, CodeSelfPurchase, de.Code)

	_, ok = IsDomainError(errors.New("db down"))
	assert.False(t, ok)
}

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Filter
		page     int
		pageSize int
		dir      string
	}{
		{"zero values", Filter{}, 1, DefaultPageSize, "desc"},
		{"oversized page", Filter{Page: 3, PageSize: 1000, OrderDir: "asc"}, 3, MaxPageSize, "asc"},
		{"unknown direction", Filter{Page: 2, PageSize: 10, OrderDir: "sideways"}, 2, 10, "desc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in.Normalize()
			assert.Equal(t, tt.page, f.Page)
			assert.Equal(t, tt.pageSize, f.PageSize)
			assert.Equal(t, tt.dir, f.OrderDir)
		})
	}
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(41), p.Total)
}
