package shared

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the backend's view of an account, shared between the user and auth modules.
type User struct {
	ID             uint
	Email          string
	UserName       string
	AuthProvider   string
	RoleID         int
	ProfilePicture string
	IsDeleted      bool
	CreatedAt      time.Time
}

// GoogleIdentity is what a verified Google ID token says about its holder.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Service defines the user operations the auth module depends on.
type Service interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
	FindOrCreateGoogleUser(ctx context.Context, identity GoogleIdentity) (usr *User, wasCreated bool, err error)
	GetUserByID(ctx context.Context, id uint) (*User, error)
}

// UserDataForToken abstracts the user data needed for token generation.
type UserDataForToken interface {
	GetID() uint
	GetEmail() string
	GetUserName() string
	GetRoleID() int
}

func (u *User) GetID() uint         { return u.ID }
func (u *User) GetEmail() string    { return u.Email }
func (u *User) GetUserName() string { return u.UserName }
func (u *User) GetRoleID() int      { return u.RoleID }

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(userData UserDataForToken) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims is the bearer token payload. nameid carries the user id.
type Claims struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	NameID   string `json:"nameid"`
	RoleID   int    `json:"roleId"`
	jwt.RegisteredClaims
}
