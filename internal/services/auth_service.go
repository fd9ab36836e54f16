package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/promoloop/campaigns-backend/internal/config"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates operator accounts and issues session tokens
type AuthService struct {
	adminUsers repositories.AdminUserRepository
	cfg        *config.Config
	logger     *slog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(adminUsers repositories.AdminUserRepository, cfg *config.Config, logger *slog.Logger) *AuthService {
	return &AuthService{
		adminUsers: adminUsers,
		cfg:        cfg,
		logger:     logger,
	}
}

// Login verifies operator credentials and returns a signed session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	user, err := s.adminUsers.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up operator account: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("failed login attempt", "email", email)
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.JWT.ExpiresIn) * time.Second)
	claims := jwt.MapClaims{
		"sub":   user.ID.Hex(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	s.logger.Info("operator logged in", "email", user.Email, "role", user.Role)
	return &models.LoginResponse{Token: signed, ExpiresAt: expiresAt}, nil
}

// CreateAdmin creates an operator account with a bcrypt-hashed password
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, role string) (*models.AdminUser, error) {
	existing, err := s.adminUsers.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up operator account: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("operator account %q already exists", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.AdminUser{
		Email:    email,
		Password: string(hash),
		Role:     role,
	}
	if err := s.adminUsers.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create operator account: %w", err)
	}
	return user, nil
}
