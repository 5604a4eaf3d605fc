package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"guestreport_client/internal/config"
	"guestreport_client/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "guestreport_dev_backend"

type JWTService struct {
	secret []byte
	expiry time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg *config.Config, logger *zap.Logger) (shared.TokenService, error) {
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY must be set for the dev backend")
	}
	expiry := cfg.JWTAccessTokenExpiryMinutes
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &JWTService{
		secret: []byte(cfg.JWTSecretKey),
		expiry: expiry,
		logger: logger.Named("jwt"),
		now:    time.Now,
	}, nil
}

// GenerateAccessToken issues an HS256 token carrying email, userName, nameid and roleId.
func (s *JWTService) GenerateAccessToken(userData shared.UserDataForToken) (string, time.Time, error) {
	now := s.now()
	expirationTime := now.Add(s.expiry)
	id := strconv.FormatUint(uint64(userData.GetID()), 10)

	claims := &shared.Claims{
		Email:    userData.GetEmail(),
		UserName: userData.GetUserName(),
		NameID:   id,
		RoleID:   userData.GetRoleID(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   id,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign access token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken validates a JWT token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.Debug("Failed to validate token", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
