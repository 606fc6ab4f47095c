package handler

import (
	"time"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Detail string `json:"detail"`
}

// --- Request / Response types ---

type signInRequest struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerRequest struct {
	FirstName   string `json:"first_name"   validate:"required,max=30"`
	LastName    string `json:"last_name"    validate:"required,max=30"`
	Email       string `json:"email"        validate:"required_without=PhoneNumber,omitempty,email,max=255"`
	PhoneNumber string `json:"phone_number" validate:"required_without=Email,omitempty,max=255"`
	Password    string `json:"password"     validate:"required,min=6,max=72"`
}

type updateUserRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id" validate:"required"`
}

type createRoleRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

type userResponse struct {
	ID               string    `json:"id"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            *string   `json:"email"`
	PhoneNumber      *string   `json:"phone_number"`
	IsEmailConfirmed bool      `json:"is_email_confirmed"`
	IsPhoneConfirmed bool      `json:"is_phone_confirmed"`
	UpdatedBy        *string   `json:"updated_by"`
	UpdatedOn        time.Time `json:"updated_on"`
	Roles            []string  `json:"roles"`
}

type roleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy *string   `json:"created_by"`
	CreatedOn time.Time `json:"created_on"`
}

type userRoleResponse struct {
	UserID  string    `json:"user_id"`
	RoleID  string    `json:"role_id"`
	AddedBy *string   `json:"added_by"`
	AddedOn time.Time `json:"added_on"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		PhoneNumber:      u.PhoneNumber,
		IsEmailConfirmed: u.IsEmailConfirmed,
		IsPhoneConfirmed: u.IsPhoneConfirmed,
		UpdatedBy:        u.UpdatedBy,
		UpdatedOn:        u.UpdatedOn,
		Roles:            u.RoleNames(),
	}
}

func toRoleResponse(r *domain.Role) roleResponse {
	return roleResponse{
		ID:        r.ID,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		CreatedOn: r.CreatedOn,
	}
}
