package session

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotSignedIn is returned by operations that need a live session.
	ErrNotSignedIn = errors.New("session: not signed in")
	// ErrNoUserID means the token carries neither nameid nor id.
	ErrNoUserID = errors.New("session: user id not found in token")
	// ErrNoProfileChanges means an update matched the stored profile and was not sent.
	ErrNoProfileChanges = errors.New("No profile changes were made.")
)

// AuthProvider says how the user signed in.
type AuthProvider string

const (
	ProviderEmail  AuthProvider = "Email"
	ProviderGoogle AuthProvider = "Google"
)

// RoleAdmin is the roleId of administrators.
const RoleAdmin = 1

// AuthenticatedUser is the record persisted under the "user" key of a tab.
type AuthenticatedUser struct {
	Email          string       `json:"email"`
	UserName       string       `json:"userName"`
	Token          string       `json:"token"`
	RoleID         int          `json:"roleId"`
	ProfilePicture string       `json:"profilePicture,omitempty"`
	AuthProvider   AuthProvider `json:"authProvider"`
}

func (u *AuthenticatedUser) IsAdmin() bool {
	return u.RoleID == RoleAdmin
}

// State of a tab's session.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// LoginRequest is the body of POST /User/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	IsSuccess bool   `json:"isSuccess"`
	Token     string `json:"token"`
	Message   string `json:"message"`
	RoleID    *int   `json:"roleId,omitempty"`
}

type googleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// GoogleUser is the user block returned by POST /User/google.
type GoogleUser struct {
	ID             int    `json:"id"`
	Email          string `json:"email"`
	UserName       string `json:"userName"`
	AuthProvider   string `json:"authProvider"`
	RoleID         int    `json:"roleId"`
	ProfilePicture string `json:"profilePicture"`
}

type googleLoginResponse struct {
	Token string      `json:"token"`
	User  *GoogleUser `json:"user"`
}

// RegisterRequest is the sign-up form. UserName falls back to the email
// local-part when left empty.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	UserName        string `json:"userName"`
	Password        string `json:"password" validate:"required,min=4"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=Password"`
	AgreeTerms      bool   `json:"-" validate:"required"`
}

type registerBody struct {
	Email        string       `json:"email"`
	UserName     string       `json:"userName"`
	Password     string       `json:"password"`
	AuthProvider AuthProvider `json:"authProvider"`
}

// RegisteredUser is the body returned by POST /User.
type RegisteredUser struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	UserName     string `json:"userName"`
	AuthProvider string `json:"authProvider"`
	IsDeleted    bool   `json:"isDeleted"`
	Message      string `json:"message,omitempty"`
}

// Profile is the body returned by GET /User/{id}.
type Profile struct {
	ID                    int        `json:"id"`
	Email                 string     `json:"email"`
	UserName              string     `json:"userName"`
	Name                  string     `json:"name,omitempty"`
	Bio                   string     `json:"bio,omitempty"`
	CreatedAt             *time.Time `json:"createdAt,omitempty"`
	ReportsSubmittedCount int        `json:"reportsSubmittedCount"`
}

// ProfileUpdate is the editable part of a profile.
type ProfileUpdate struct {
	UserName string
	Bio      string
}

type profileUpdateBody struct {
	ID       int    `json:"id"`
	UserName string `json:"userName"`
	Bio      string `json:"bio"`
}

// localPart returns the part of an email address before "@".
func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
