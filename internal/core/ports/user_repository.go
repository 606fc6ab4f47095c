package ports

import (
	"context"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

// UserRepository persists users and their role assignments. Every method runs
// in its own transaction.
type UserRepository interface {
	// Create inserts user, assigning its ID and timestamps. Returns
	// domain.ErrUserAlreadyExists when the email or the phone number is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// Find returns the first user matching any key of q, roles included.
	// Returns domain.ErrUserDoesNotExist when nothing matches.
	Find(ctx context.Context, q domain.UserQuery) (*domain.User, error)

	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)

	// UpdateField sets a single column. value is already hashed or converted.
	UpdateField(ctx context.Context, userID string, field domain.UserField, value any, updatedBy *string) error

	// AddRole inserts an assignment. Returns domain.ErrRoleAlreadyAssigned for
	// an existing pair and domain.ErrUserDoesNotExist / domain.ErrRoleDoesNotExist
	// when a referenced row is missing.
	AddRole(ctx context.Context, assignment *domain.UserRole) (*domain.UserRole, error)

	// RemoveRole deletes an assignment. Removing an absent pair is a no-op.
	RemoveRole(ctx context.Context, userID, roleID string) error
}

// RoleRepository persists roles.
type RoleRepository interface {
	// Create returns domain.ErrRoleAlreadyExists when the name is taken.
	Create(ctx context.Context, role *domain.Role) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
}
