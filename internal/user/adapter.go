package user

import "guestreport_client/internal/shared"

// DBToShared converts a GORM user.User model to a shared.User.
func DBToShared(dbUser *User) *shared.User {
	if dbUser == nil {
		return nil
	}
	return &shared.User{
		ID:             dbUser.ID,
		Email:          dbUser.Email,
		UserName:       dbUser.UserName,
		AuthProvider:   dbUser.AuthProvider,
		RoleID:         dbUser.RoleID,
		ProfilePicture: dbUser.ProfilePicture,
		IsDeleted:      dbUser.IsDeleted,
		CreatedAt:      dbUser.CreatedAt,
	}
}
