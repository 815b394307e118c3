package auth

import (
	"github.com/angelmondragon/storefront-backend/internal/users"
)

// RegisterRequest contains the payload required to open a customer account.
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email,max=255"`
	Password  string  `json:"password" validate:"required,min=8,max=128"`
	FirstName string  `json:"firstName" validate:"required,notblank,max=100"`
	LastName  string  `json:"lastName" validate:"required,notblank,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token paired with the bearer's jti.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User         *users.UserDTO `json:"user"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}
