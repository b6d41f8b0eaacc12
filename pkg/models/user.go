package models

import (
	"time"

	"churchinventory/pkg/roles"
)

type User struct {
	ID           int    `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password_hash"`
	IsAdmin      bool   `json:"is_admin" db:"is_admin"`
}

func (u *User) Role() roles.Role {
	if u.IsAdmin {
		return roles.Admin
	}
	return roles.User
}

func (u *User) CreateLogView() AuditLog {
	return AuditLog{
		ResourceID:   u.ID,
		ResourceType: "user",
	}
}

type CreateUserRequest struct {
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	IsAdmin         bool   `json:"is_admin"`
}

type UpdateUserRequest struct {
	Password *string `json:"password"`
	IsAdmin  *bool   `json:"is_admin"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type UserChanges struct {
	PasswordHash *string
	IsAdmin      *bool
}

func (c *UserChanges) HasChanges() bool {
	return c.PasswordHash != nil || c.IsAdmin != nil
}

// LoginAttempt is an append-only audit record of a credential check.
type LoginAttempt struct {
	ID          int       `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	AttemptTime time.Time `json:"attempt_time" db:"attempt_time"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	Successful  bool      `json:"successful" db:"successful"`
}
