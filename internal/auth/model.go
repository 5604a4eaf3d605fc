package auth

// LoginRequest is the body of POST /api/User/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse is returned by POST /api/User/login.
type LoginResponse struct {
	IsSuccess bool   `json:"isSuccess"`
	Token     string `json:"token,omitempty"`
	Message   string `json:"message,omitempty"`
	RoleID    *int   `json:"roleId,omitempty"`
}

// GoogleLoginRequest carries the Google ID token (the "credential").
type GoogleLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

// GoogleUserResponse is the user block of a Google sign-in response.
type GoogleUserResponse struct {
	ID             uint   `json:"id"`
	Email          string `json:"email"`
	UserName       string `json:"userName"`
	AuthProvider   string `json:"authProvider"`
	RoleID         int    `json:"roleId"`
	ProfilePicture string `json:"profilePicture"`
}

// GoogleLoginResponse is returned by POST /api/User/google.
type GoogleLoginResponse struct {
	Token string             `json:"token"`
	User  GoogleUserResponse `json:"user"`
}
