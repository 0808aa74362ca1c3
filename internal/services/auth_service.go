// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/config"
	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type AuthService struct {
	store repository.Store
	cfg   config.JWTConfig
	now   func() time.Time
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Gender   string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
}

// CreateAccountRequest is used by admins to open staff accounts.
type CreateAccountRequest struct {
	RegisterRequest
	Role models.Role `json:"role" validate:"required,role"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

func NewAuthService(store repository.Store, cfg config.JWTConfig) *AuthService {
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 24
	}
	return &AuthService{
		store: store,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Register opens a customer account and signs the customer in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	user, err := s.createUser(ctx, req, models.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

func (s *AuthService) CreateAccount(ctx context.Context, p Principal, req *CreateAccountRequest) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden("only admins can create accounts")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}

	user, err := s.createUser(ctx, &req.RegisterRequest, req.Role)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"role":       user.Role,
		"created_by": p.ID,
	}).Info("Account created")

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}

	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated("invalid email or password")
		}
		return nil, storeError(err, "user")
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, ErrUnauthenticated("invalid email or password")
	}

	now := s.now()
	if err := s.store.Users().TouchLogin(ctx, user.ID, now); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}
	user.LastLoginAt = &now

	return s.issueToken(user)
}

func (s *AuthService) Me(ctx context.Context, p Principal) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, p.ID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin when no admin account exists yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	count, err := s.store.Users().CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return storeError(err, "user")
	}
	if count > 0 {
		return nil
	}
	if cfg.Password == "" {
		logrus.Warn("No admin account exists and ADMIN_PASSWORD is not set; skipping admin bootstrap")
		return nil
	}

	admin := &models.User{
		Name:  "Administrator",
		Email: normalizeEmail(cfg.Email),
		Role:  models.RoleAdmin,
	}
	if err := admin.SetPassword(cfg.Password); err != nil {
		return ErrUnexpected("failed to hash password", err)
	}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return storeError(err, "user")
	}

	logrus.WithField("email", admin.Email).Info("Bootstrap admin account created")
	return nil
}

// Principal resolves the caller behind a validated token.
func (s *AuthService) Principal(claims *utils.JWTClaims) (Principal, error) {
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Principal{}, ErrUnauthenticated("invalid token subject")
	}
	role := models.Role(claims.Role)
	if !role.IsValid() {
		return Principal{}, ErrUnauthenticated("invalid token role")
	}
	return Principal{ID: id, Role: role}, nil
}

func (s *AuthService) createUser(ctx context.Context, req *RegisterRequest, role models.Role) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}

	email := normalizeEmail(req.Email)
	if _, err := s.store.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrConflict("user with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "user")
	}

	user := &models.User{
		Name:   strings.TrimSpace(req.Name),
		Email:  email,
		Phone:  req.Phone,
		Gender: req.Gender,
		Role:   role,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, ErrUnexpected("failed to hash password", err)
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, storeError(err, "user")
	}

	return user, nil
}

func (s *AuthService) issueToken(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, string(user.Role), s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, ErrUnexpected("failed to generate access token", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
