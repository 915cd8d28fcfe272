package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the kind of account a user holds. It does not change after creation.
type Role string

const (
	RoleDriver   Role = "driver"
	RoleResident Role = "resident"
)

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleDriver:
		return RoleDriver, nil
	case RoleResident:
		return RoleResident, nil
	}
	return "", NewValidationError("role", fmt.Sprintf("%q is not one of driver, resident", s))
}

// User is either a driver running routes or a resident living on a street.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	StreetID     *int64    `json:"street_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserRequest is the input for registering a driver or resident.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=20"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"required,oneof=driver resident"`
	StreetID *int64 `json:"street_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateUserStreetRequest assigns a resident to a street.
type UpdateUserStreetRequest struct {
	UserID   int64 `json:"user_id" validate:"required,gt=0"`
	StreetID int64 `json:"street_id" validate:"required,gt=0"`
}

// MaxPasswordBytes is the longest password bcrypt will hash.
const MaxPasswordBytes = 72

// CheckPasswordLength rejects passwords longer than MaxPasswordBytes. The validator's
// max tag counts characters, so multi-byte passwords can pass it and still be too long.
func CheckPasswordLength(password string) error {
	if len(password) > MaxPasswordBytes {
		return NewValidationError("password", fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}
