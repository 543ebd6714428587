package auth

import (
	"github.com/timebankhq/timebank-backend/internal/accounts"
	"github.com/timebankhq/timebank-backend/pkg/enums"
)

// RegisterRequest captures the payload for creating a new account.
type RegisterRequest struct {
	Email    string            `json:"email" validate:"required,email"`
	Password string            `json:"password" validate:"required,min=8"`
	Name     string            `json:"name" validate:"required"`
	Role     enums.AccountRole `json:"role,omitempty"`
}

// RegisterResponse returns the freshly created account, signup grant included.
type RegisterResponse struct {
	Account *accounts.Profile `json:"account"`
}

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and account produced by a successful login.
type LoginResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	Account      *accounts.Profile `json:"account"`
}

// RefreshRequest carries the expired access token and its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
