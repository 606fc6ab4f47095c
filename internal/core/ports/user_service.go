package ports

import (
	"context"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

// CreateUserInput is the DTO passed from the transport layer to UserService.
// Empty Email or PhoneNumber are stored as NULL.
type CreateUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Password    string
}

// UpdateUserInput changes one field of a user. ActorID, when set, is recorded
// as updated_by.
type UpdateUserInput struct {
	UserID  string
	Field   domain.UserField
	Value   string
	ActorID string
}

type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, q domain.UserQuery) (*domain.User, error)
	GetUsers(ctx context.Context) ([]domain.User, error)
	UserInfo(ctx context.Context, userID string) (*domain.UserInfo, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) error
	AddUserToRole(ctx context.Context, userID, roleID, addedBy string) (*domain.UserRole, error)
	RemoveUserFromRole(ctx context.Context, userID, roleID string) error
}

type RoleService interface {
	CreateRole(ctx context.Context, name, createdBy string) (*domain.Role, error)
	GetAllRoles(ctx context.Context) ([]domain.Role, error)
}
