package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent RoleType = "STUDENT"
	RoleFaculty RoleType = "FACULTY"
)

// Valid reports whether the role is one of the known roles
func (r RoleType) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}
