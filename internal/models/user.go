package models

import "time"

// UserType represents the role a user signed up with
type UserType string

const (
	UserStudent    UserType = "student"
	UserDeveloper  UserType = "developer"
	UserInstructor UserType = "instructor"
	UserAdmin      UserType = "admin"
)

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserStudent, UserDeveloper, UserInstructor, UserAdmin:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	UserType     UserType  `json:"userType" gorm:"column:user_type;type:varchar(20);not null;default:'student'"`
	Points       int       `json:"points" gorm:"not null;default:0;check:points >= 0"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
