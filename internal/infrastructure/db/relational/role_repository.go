package relational

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	rec := roleModel{
		ID:        uuid.NewString(),
		Name:      role.Name,
		CreatedBy: role.CreatedBy,
		CreatedOn: now(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	switch {
	case err == nil:
		created := toDomainRole(rec)
		return &created, nil
	case isUniqueViolation(err):
		return nil, domain.ErrRoleAlreadyExists
	case isForeignKeyViolation(err):
		return nil, domain.ErrUserDoesNotExist
	default:
		return nil, fmt.Errorf("create role: %w", err)
	}
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	var recs []roleModel
	if err := r.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	roles := make([]domain.Role, 0, len(recs))
	for _, rec := range recs {
		roles = append(roles, toDomainRole(rec))
	}
	return roles, nil
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var rec roleModel
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoleDoesNotExist
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	role := toDomainRole(rec)
	return &role, nil
}
