package model

import "time"

// User is a person who can act in an inventory. Users are picked, not
// authenticated.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Roles.
const (
	RoleAdmin       = "admin"
	RoleResponsible = "responsible"
	RoleUser        = "user"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleResponsible || role == RoleUser
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:       3,
		RoleResponsible: 2,
		RoleUser:        1,
	}
	have, ok := levels[role]
	if !ok {
		return false
	}
	need, ok := levels[minimum]
	return ok && have >= need
}

// Actor identifies the user performing a state-changing operation.
type Actor struct {
	UserID int64
	Name   string
	Role   string
}
