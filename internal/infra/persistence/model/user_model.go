package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table created by the embedded migrations.
// IDs are UUIDv7 values generated by the application.
type UserModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName      string    `gorm:"type:varchar(100);not null"`
	LastName       string    `gorm:"type:varchar(100);not null"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordDigest string    `gorm:"type:varchar(100);not null"`
	ResetTokenHash *string   `gorm:"type:char(64)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
