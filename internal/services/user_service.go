// internal/services/user_service.go
package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/insurance-backend/internal/models"
	"github.com/javajoker/insurance-backend/internal/repository"
	"github.com/javajoker/insurance-backend/internal/utils"
)

type UserService struct {
	store repository.Store
}

type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Phone  *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Gender *string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetProfile(ctx context.Context, p Principal) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, p.ID)
	if err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

// UpdateProfile changes the caller's contact details. Email and role are
// not editable here.
func (s *UserService) UpdateProfile(ctx context.Context, p Principal, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrValidation(utils.FirstValidationMessage(err))
	}

	user, err := s.store.Users().GetByID(ctx, p.ID)
	if err != nil {
		return nil, storeError(err, "user")
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}

	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, storeError(err, "user")
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, p Principal, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return ErrValidation(utils.FirstValidationMessage(err))
	}

	user, err := s.store.Users().GetByID(ctx, p.ID)
	if err != nil {
		return storeError(err, "user")
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return ErrValidation("current password is incorrect")
	}
	if req.CurrentPassword == req.NewPassword {
		return ErrValidation("new password must differ from the current one")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return ErrUnexpected("failed to hash password", err)
	}
	if err := s.store.Users().Update(ctx, user); err != nil {
		return storeError(err, "user")
	}

	logrus.WithField("user_id", user.ID).Info("Password changed")
	return nil
}
