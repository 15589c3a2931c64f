package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID            int64      `json:"id" db:"id" example:"1"`
	Email         string     `json:"email" db:"email" example:"student1@example.ac.th"`
	Password      string     `json:"-" db:"password"` // Hashed, never serialized
	FirstName     string     `json:"firstName" db:"first_name" example:"Somchai"`
	LastName      string     `json:"lastName" db:"last_name" example:"Jaidee"`
	RoleType      RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`
	StudentNumber *string    `json:"studentNumber,omitempty" db:"student_number" example:"6401234"`
	IsActive      bool       `json:"isActive" db:"is_active" example:"true"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
