package domain

import (
	"context"
	"errors"
	"time"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Role      Role      `json:"role"`
}

type CreateUserRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	DriverCode string `json:"driver_code"`
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	// ParseToken validates a bearer token and returns its claims.
	ParseToken(token string) (*Claims, error)
	// EnsureAdmin creates the bootstrap admin account when no user with the
	// given username exists yet.
	EnsureAdmin(ctx context.Context, username, password string) error
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserExists         = errors.New("user_exists")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidPassword    = errors.New("invalid_password")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrUserInactive       = errors.New("user_inactive")
)
