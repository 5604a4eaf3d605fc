package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"guestreport_client/internal/common"
	"guestreport_client/internal/shared"

	"go.uber.org/zap"
)

// ServiceImplementation implements the shared.Service interface.
type ServiceImplementation struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

var _ shared.Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(repo Repository, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:   repo,
		logger: logger.Named("user"),
		now:    time.Now,
	}
}

var errInvalidCredentials = common.ErrUnauthorized.WithMessage("Invalid email or password.")

// Register creates an email/password account. It does not sign the user in.
func (s *ServiceImplementation) Register(ctx context.Context, req CreateUserRequest) (*User, error) {
	_, err := s.repo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, common.ErrConflict.WithMessage("A user with this email already exists.")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user by email: %w", err)
	}

	hashedPassword, err := common.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		userName = localPart(req.Email)
	}
	dbUser := &User{
		Email:        req.Email,
		UserName:     userName,
		PasswordHash: &hashedPassword,
		AuthProvider: ProviderEmail,
		RoleID:       common.RoleUser,
	}
	if err := s.repo.Create(ctx, dbUser); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, apiErr
		}
		s.logger.Error("Failed to create user in repository", zap.Error(err), zap.String("email", req.Email))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered successfully", zap.Uint("userID", dbUser.ID))
	return dbUser, nil
}

// Authenticate checks an email/password pair.
func (s *ServiceImplementation) Authenticate(ctx context.Context, email, password string) (*shared.User, error) {
	dbUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Info("User not found during login", zap.String("email", email))
			return nil, errInvalidCredentials
		}
		s.logger.Error("Error finding user by email during login", zap.Error(err), zap.String("email", email))
		return nil, common.ErrInternalServer.WithDetails("Login failed due to an internal error.")
	}
	if dbUser.IsDeleted {
		return nil, errInvalidCredentials
	}
	if dbUser.PasswordHash == nil || *dbUser.PasswordHash == "" {
		s.logger.Warn("Password login attempted on an account without a password", zap.Uint("userID", dbUser.ID))
		return nil, common.ErrUnauthorized.WithMessage("This account signs in with Google.")
	}
	if !common.CheckPasswordHash(password, *dbUser.PasswordHash) {
		s.logger.Warn("Invalid password attempt", zap.Uint("userID", dbUser.ID))
		return nil, errInvalidCredentials
	}

	s.touchLastLogin(ctx, dbUser)
	return DBToShared(dbUser), nil
}

// FindOrCreateGoogleUser resolves a verified Google identity to an account.
// An existing email account is linked to the Google subject on first use.
func (s *ServiceImplementation) FindOrCreateGoogleUser(ctx context.Context, identity shared.GoogleIdentity) (*shared.User, bool, error) {
	dbUser, err := s.repo.FindByGoogleSubject(ctx, identity.Subject)
	if err == nil {
		s.touchLastLogin(ctx, dbUser)
		return DBToShared(dbUser), false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up google user: %w", err)
	}

	if identity.Email == "" {
		return nil, false, common.ErrUnauthorized.WithMessage("Google account has no email address.")
	}

	dbUser, err = s.repo.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if !identity.EmailVerified {
			return nil, false, common.ErrUnauthorized.WithMessage("Google email address is not verified.")
		}
		subject := identity.Subject
		dbUser.GoogleSubject = &subject
		if dbUser.ProfilePicture == "" {
			dbUser.ProfilePicture = identity.Picture
		}
		if err := s.repo.Update(ctx, dbUser); err != nil {
			return nil, false, fmt.Errorf("failed to link google account: %w", err)
		}
		s.logger.Info("Linked Google account to existing user", zap.Uint("userID", dbUser.ID))
		s.touchLastLogin(ctx, dbUser)
		return DBToShared(dbUser), false, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, false, fmt.Errorf("failed to check existing user by email: %w", err)
	}

	subject := identity.Subject
	userName := strings.TrimSpace(identity.Name)
	if userName == "" {
		userName = localPart(identity.Email)
	}
	now := s.now()
	dbUser = &User{
		Email:          identity.Email,
		UserName:       userName,
		AuthProvider:   ProviderGoogle,
		GoogleSubject:  &subject,
		RoleID:         common.RoleUser,
		ProfilePicture: identity.Picture,
		LastLoginAt:    &now,
	}
	if err := s.repo.Create(ctx, dbUser); err != nil {
		return nil, false, err
	}
	s.logger.Info("Created user from Google sign-in", zap.Uint("userID", dbUser.ID))
	return DBToShared(dbUser), true, nil
}

// GetUserByID returns a user that has not been deleted.
func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uint) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbUser.IsDeleted {
		return nil, common.ErrNotFound.WithMessage("User not found.")
	}
	return DBToShared(dbUser), nil
}

// GetProfile returns the profile of id. Callers may read their own profile;
// administrators may read any.
func (s *ServiceImplementation) GetProfile(ctx context.Context, id, callerID uint, callerRole int) (*User, error) {
	if id != callerID && callerRole != common.RoleAdmin {
		return nil, common.ErrForbidden.WithMessage("You may only view your own profile.")
	}
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbUser.IsDeleted {
		return nil, common.ErrNotFound.WithMessage("User not found.")
	}
	return dbUser, nil
}

// UpdateProfile changes the display name and, when given, the bio of id.
// The same access rule as GetProfile applies.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id, callerID uint, callerRole int, req UpdateProfileRequest) (*User, error) {
	if id != callerID && callerRole != common.RoleAdmin {
		return nil, common.ErrForbidden.WithMessage("You may only edit your own profile.")
	}
	if req.ID != 0 && req.ID != id {
		return nil, common.ErrBadRequest.WithMessage("User id in the body does not match the path.")
	}
	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		return nil, common.NewValidationAPIError(map[string]string{"UserName": "Username cannot be empty."})
	}

	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbUser.IsDeleted {
		return nil, common.ErrNotFound.WithMessage("User not found.")
	}
	dbUser.UserName = userName
	if req.Bio != nil {
		dbUser.Bio = strings.TrimSpace(*req.Bio)
	}
	if err := s.repo.Update(ctx, dbUser); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err), zap.Uint("userID", id))
		return nil, err
	}
	s.logger.Info("Profile updated", zap.Uint("userID", id), zap.Uint("callerID", callerID))
	return dbUser, nil
}

func (s *ServiceImplementation) touchLastLogin(ctx context.Context, dbUser *User) {
	now := s.now()
	dbUser.LastLoginAt = &now
	if err := s.repo.Update(ctx, dbUser); err != nil {
		s.logger.Error("Failed to update last login time", zap.Error(err), zap.Uint("userID", dbUser.ID))
	}
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
