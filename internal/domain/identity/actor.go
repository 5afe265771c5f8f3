package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the marketplace role carried by an authenticated user
type Role string

const (
	RoleFarmer   Role = "farmer"
	RoleRetailer Role = "retailer"
	RoleStaff    Role = "staff"
)

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleFarmer, RoleRetailer, RoleStaff:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// Actor is the authenticated identity performing an operation.
// Capabilities are derived from the role and checked once at the
// application boundary.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// NewActor creates an actor
func NewActor(userID uuid.UUID, role Role) Actor {
	return Actor{UserID: userID, Role: role}
}

// IsZero reports whether the actor is unset
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil
}

// CanBuy reports whether the actor may place and cancel orders.
// Farmers and retailers both buy; staff do not trade.
func (a Actor) CanBuy() bool {
	return a.Role == RoleFarmer || a.Role == RoleRetailer
}

// CanSell reports whether the actor may own products
func (a Actor) CanSell() bool {
	return a.Role == RoleFarmer
}

// CanManageOrderStatus reports whether the actor may move orders through
// the fulfillment statuses
func (a Actor) CanManageOrderStatus() bool {
	return a.Role == RoleStaff
}

// CanViewAnyOrder reports whether the actor may read orders it does not own
func (a Actor) CanViewAnyOrder() bool {
	return a.Role == RoleStaff
}
