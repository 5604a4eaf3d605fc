package user

import (
	"time"

	"guestreport_client/internal/common"
)

// Auth providers stored on a user row.
const (
	ProviderEmail  = "Email"
	ProviderGoogle = "Google"
)

// User represents the user model in the database.
type User struct {
	common.BaseModel
	Email          string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	UserName       string  `gorm:"type:varchar(100);not null"`
	PasswordHash   *string `gorm:"type:varchar(255)"`
	AuthProvider   string  `gorm:"type:varchar(50);not null;default:'Email'"`
	GoogleSubject  *string `gorm:"type:varchar(255);uniqueIndex"`
	RoleID         int     `gorm:"not null;default:2"`
	ProfilePicture string  `gorm:"type:text"`
	Bio            string  `gorm:"type:text"`
	IsDeleted      bool    `gorm:"not null;default:false"`
	ReportsCount   int     `gorm:"not null;default:0"`
	LastLoginAt    *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// --- DTOs ---

// CreateUserRequest is the body of POST /api/User.
type CreateUserRequest struct {
	Email        string `json:"email" binding:"required,email"`
	UserName     string `json:"userName" binding:"omitempty,max=100"`
	Password     string `json:"password" binding:"required,min=4,max=72"` // bcrypt max is 72 bytes
	AuthProvider string `json:"authProvider" binding:"omitempty,oneof=Email"`
}

// UpdateProfileRequest is the body of PUT /api/User/:id. ID, when sent, must
// match the path.
type UpdateProfileRequest struct {
	ID       uint    `json:"id"`
	UserName string  `json:"userName" binding:"required,max=100"`
	Bio      *string `json:"bio" binding:"omitempty,max=2000"`
}

// UserResponse is returned by POST /api/User.
type UserResponse struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	UserName     string `json:"userName"`
	AuthProvider string `json:"authProvider"`
	IsDeleted    bool   `json:"isDeleted"`
}

// ProfileResponse is returned by GET /api/User/:id.
type ProfileResponse struct {
	ID                    uint      `json:"id"`
	Email                 string    `json:"email"`
	UserName              string    `json:"userName"`
	Name                  string    `json:"name"`
	Bio                   string    `json:"bio,omitempty"`
	CreatedAt             time.Time `json:"createdAt"`
	ReportsSubmittedCount int       `json:"reportsSubmittedCount"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		UserName:     u.UserName,
		AuthProvider: u.AuthProvider,
		IsDeleted:    u.IsDeleted,
	}
}

// ToProfileResponse converts a User model to a ProfileResponse DTO.
func ToProfileResponse(u *User) ProfileResponse {
	return ProfileResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		UserName:              u.UserName,
		Name:                  u.UserName,
		Bio:                   u.Bio,
		CreatedAt:             u.CreatedAt,
		ReportsSubmittedCount: u.ReportsCount,
	}
}
