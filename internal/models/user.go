package models

import "time"

// User is an account that owns books and reviews.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(150);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash
	IsStaff   bool      `json:"is_staff" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
