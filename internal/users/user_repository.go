package users

import (
	"context"
	"errors"
	"fmt"

	"churchinventory/internal/repository"
	custom_error "churchinventory/pkg/errors"
	"churchinventory/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

type UserRepository interface {
	PersistUser(ctx context.Context, username string, passwordHash []byte, isAdmin bool) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, page models.Page) (*models.PagedResult[models.User], error)
	UpdateUser(ctx context.Context, id int, changes *models.UserChanges) error
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func (r *userRepositoryImpl) PersistUser(ctx context.Context, username string, passwordHash []byte, isAdmin bool) (*models.User, error) {
	user := &models.User{Username: username, PasswordHash: string(passwordHash), IsAdmin: isAdmin}

	query := r.repository.GoquDBWrapper.Insert("users").
		Rows(goqu.Record{
			"username":      username,
			"password_hash": user.PasswordHash,
			"is_admin":      isAdmin,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &user.ID); err != nil {
		wrapped := custom_error.WrapDBError("failed to insert user", err)
		var conflict *custom_error.UniqueViolationError
		if errors.As(wrapped, &conflict) {
			return nil, custom_error.NewConflictError("username", fmt.Sprintf("username %q is already taken", username))
		}
		return nil, wrapped
	}

	return user, nil
}

func (r *userRepositoryImpl) GetUsers(ctx context.Context, page models.Page) (*models.PagedResult[models.User], error) {
	query := r.repository.GoquDBWrapper.From("users")

	total, err := query.CountContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to count users: %w", err)
	}

	users := []models.User{}
	err = query.Select("id", "username", "is_admin").
		Order(goqu.C("username").Asc()).
		Limit(uint(page.PerPage)).
		Offset(page.Offset()).
		ScanStructsContext(ctx, &users)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return &models.PagedResult[models.User]{
		Items:   users,
		Page:    page.Page,
		PerPage: page.PerPage,
		Total:   total,
	}, nil
}

func (r *userRepositoryImpl) GetUser(ctx context.Context, id int) (*models.User, error) {
	return r.findOne(ctx, goqu.Ex{"id": id}, id)
}

func (r *userRepositoryImpl) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, goqu.Ex{"username": username}, username)
}

func (r *userRepositoryImpl) findOne(ctx context.Context, where goqu.Ex, key any) (*models.User, error) {
	var user models.User
	found, err := r.repository.GoquDBWrapper.Select("id", "username", "password_hash", "is_admin").
		From("users").
		Where(where).
		ScanStructContext(ctx, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("user", key)
	}

	return &user, nil
}

func (r *userRepositoryImpl) UpdateUser(ctx context.Context, id int, changes *models.UserChanges) error {
	record := goqu.Record{}
	if changes.PasswordHash != nil {
		record["password_hash"] = *changes.PasswordHash
	}
	if changes.IsAdmin != nil {
		record["is_admin"] = *changes.IsAdmin
	}
	if len(record) == 0 {
		return nil
	}

	result, err := r.repository.GoquDBWrapper.Update("users").
		Set(record).
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return custom_error.WrapDBError("failed to update user", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return custom_error.NewNotFoundError("user", id)
	}

	return nil
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}
