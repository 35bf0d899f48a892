package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// SignUpRequest payload for new users.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128,strongpassword"`
}

// Normalize trims the email.
func (r *SignUpRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// SignInRequest payload for login. Only presence is checked so that a
// malformed email fails like any other bad credential.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// SignInResponse carries the access token.
type SignInResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserResponse is the public shape of a user. Credentials never appear.
type UserResponse struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// PageQuery is the pagination query string.
type PageQuery struct {
	Page     int `query:"page" validate:"omitempty,min=1,max=10000"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}
