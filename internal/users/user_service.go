package users

import (
	"context"
	"strings"

	"churchinventory/pkg/auditlog"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"
	"churchinventory/pkg/security"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and rejects anything longer.
	maxPasswordBytes  = 72
	maxUsernameLength = 100
)

type UserService struct {
	repository UserRepository
	auditLog   *auditlog.Auditlog
	cost       int
}

func NewUserService(r UserRepository, a *auditlog.Auditlog) *UserService {
	return &UserService{repository: r, auditLog: a, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt work factor.
func (s *UserService) WithCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) CreateUser(ctx context.Context, identity security.Identity, req models.CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, custom_error.NewValidationError("username", "username is required")
	}
	if len(username) > maxUsernameLength {
		return nil, custom_error.NewValidationError("username", "username is too long")
	}
	if err := validatePassword(req.Password, req.ConfirmPassword, "password"); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, err
	}

	user, err := s.repository.PersistUser(ctx, username, hash, req.IsAdmin)
	if err != nil {
		return nil, err
	}

	s.auditLog.Log(security.WithIdentity(ctx, identity), "create", map[string]interface{}{"username": user.Username, "is_admin": user.IsAdmin}, user)

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.repository.GetUser(ctx, id)
}

func (s *UserService) GetUsers(ctx context.Context, page models.Page) (*models.PagedResult[models.User], error) {
	return s.repository.GetUsers(ctx, page)
}

func (s *UserService) UpdateUser(ctx context.Context, identity security.Identity, id int, req models.UpdateUserRequest) (*models.User, error) {
	user, err := s.repository.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := &models.UserChanges{IsAdmin: req.IsAdmin}
	if req.Password != nil {
		if err := validatePasswordLength(*req.Password, "password"); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.cost)
		if err != nil {
			return nil, err
		}
		hashed := string(hash)
		changes.PasswordHash = &hashed
	}

	if !changes.HasChanges() {
		return user, nil
	}

	if err := s.repository.UpdateUser(ctx, id, changes); err != nil {
		return nil, err
	}

	s.auditLog.Log(security.WithIdentity(ctx, identity), "update", map[string]interface{}{
		"password_changed": changes.PasswordHash != nil,
		"is_admin":         req.IsAdmin,
	}, user)

	return s.repository.GetUser(ctx, id)
}

// ChangePassword lets the authenticated user replace their own password
// after proving the current one.
func (s *UserService) ChangePassword(ctx context.Context, identity security.Identity, req models.ChangePasswordRequest) error {
	user, err := s.repository.GetUser(ctx, identity.UserID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return custom_error.NewValidationError("current_password", "current password is incorrect")
	}
	if err := validatePassword(req.NewPassword, req.ConfirmPassword, "new_password"); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return err
	}
	hashed := string(hash)

	if err := s.repository.UpdateUser(ctx, user.ID, &models.UserChanges{PasswordHash: &hashed}); err != nil {
		return err
	}

	s.auditLog.Log(security.WithIdentity(ctx, identity), "change_password", nil, user)

	return nil
}

func validatePassword(password, confirm, field string) error {
	if err := validatePasswordLength(password, field); err != nil {
		return err
	}
	if password != confirm {
		return custom_error.NewValidationError("confirm_password", "passwords do not match")
	}
	return nil
}

func validatePasswordLength(password, field string) error {
	if len(password) < minPasswordLength {
		return custom_error.NewValidationError(field, "password must be at least 6 characters")
	}
	if len(password) > maxPasswordBytes {
		return custom_error.NewValidationError(field, "password must be at most 72 bytes")
	}
	return nil
}
