package common

import "time"

// RoleAdmin and RoleUser are the roleId values carried in tokens.
const (
	RoleAdmin = 1
	RoleUser  = 2
)

// BaseModel defines common fields for GORM models. IDs are integers because
// the wire contract exposes them as numbers.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}
