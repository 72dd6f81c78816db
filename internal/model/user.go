package model

// Category classifies users for show admission.
type Category string

const (
	CategorySingle    Category = "single"
	CategoryFamily    Category = "family"
	CategoryExclusive Category = "exclusive"
)

// DefaultSeatLimit applies to users without an explicit limit.
const DefaultSeatLimit = 4

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySingle, CategoryFamily, CategoryExclusive:
		return true
	}
	return false
}

// User represents an account as seen by the reservation core.  Accounts
// are managed elsewhere; only the fields that influence eligibility are
// loaded here.
//
// Fields:
//  ID        – primary key identifier of the user.
//  Email     – contact address, used in audit output only.
//  Category  – admission category.
//  SeatLimit – maximum seats per reservation; nil means DefaultSeatLimit.
//  IsAdmin   – administrators bypass category and seat-limit checks.
//  IsEnabled – disabled accounts cannot reserve.
type User struct {
	ID        uint64   `json:"id"`         // users.id
	Email     string   `json:"email"`      // users.email
	Category  Category `json:"category"`   // users.category
	SeatLimit *int     `json:"seat_limit"` // users.seat_limit (nullable)
	IsAdmin   bool     `json:"is_admin"`   // users.is_admin
	IsEnabled bool     `json:"is_enabled"` // users.is_enabled
}

// Limit returns the effective seat limit, or -1 for administrators.
func (u User) Limit() int {
	if u.IsAdmin {
		return -1
	}
	if u.SeatLimit != nil {
		return *u.SeatLimit
	}
	return DefaultSeatLimit
}
