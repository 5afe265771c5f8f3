package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in    string
		want  Role
		valid bool
	}{
		{"farmer", RoleFarmer, true},
		{" Retailer ", RoleRetailer, true},
		{"STAFF", RoleStaff, true},
		{"admin", Role("admin"), false},
		{"", Role(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}
}

func TestActor_Capabilities(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		role         Role
		canBuy       bool
		canSell      bool
		canManage    bool
		canViewOther bool
	}{
		{RoleFarmer, true, true, false, false},
		{RoleRetailer, true, false, false, false},
		{RoleStaff, false, false, true, true},
		{Role("guest"), false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			a := NewActor(id, tt.role)
			assert.Equal(t, tt.canBuy, a.CanBuy())
			assert.Equal(t, tt.canSell, a.CanSell())
			assert.Equal(t, tt.canManage, a.CanManageOrderStatus())
			assert.Equal(t, tt.canViewOther, a.CanViewAnyOrder())
		})
	}
}

func TestActor_IsZero(t *testing.T) {
	assert.True(t, Actor{}.IsZero())
	assert.False(t, NewActor(uuid.New(), RoleFarmer).IsZero())
}
