package relational

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

const preloadRoles = "UserRoles.Role"

// UserRepository stores users and role assignments. Each method opens its own
// transaction which commits on success and rolls back on any error.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	var created domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dup := domain.UserQuery{Email: deref(user.Email), PhoneNumber: deref(user.PhoneNumber)}
		if !dup.IsEmpty() {
			var n int64
			where, args := userQueryClause(dup)
			if err := tx.Model(&userModel{}).Where(where, args...).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrUserAlreadyExists
			}
		}

		rec, err := insertUser(tx, user)
		if err != nil {
			return err
		}
		created = toDomainUser(rec)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &created, nil
}

// insertUser writes user with a fresh id. A concurrent insert that passed the
// duplicate pre-check is caught here by the unique constraints.
func insertUser(tx *gorm.DB, user *domain.User) (userModel, error) {
	rec := toUserModel(user)
	rec.ID = uuid.NewString()
	rec.UpdatedOn = now()
	if err := tx.Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return userModel{}, domain.ErrUserAlreadyExists
		}
		return userModel{}, err
	}
	return rec, nil
}

func (r *UserRepository) Find(ctx context.Context, q domain.UserQuery) (*domain.User, error) {
	if q.IsEmpty() {
		return nil, domain.ErrEmptyUserQuery
	}

	var rec userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		where, args := userQueryClause(q)
		return tx.Preload(preloadRoles).Where(where, args...).First(&rec).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserDoesNotExist
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	u := toDomainUser(rec)
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var recs []userModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Preload(preloadRoles).Order("id").Find(&recs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.User, 0, len(recs))
	for _, rec := range recs {
		users = append(users, toDomainUser(rec))
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) UpdateField(ctx context.Context, userID string, field domain.UserField, value any, updatedBy *string) error {
	if !field.IsUpdatable() {
		return fmt.Errorf("%w: %s", domain.ErrFieldNotUpdatable, field)
	}

	updates := map[string]any{
		string(field): value,
		"updated_on":  now(),
	}
	if updatedBy != nil {
		updates["updated_by"] = *updatedBy
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userModel{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserDoesNotExist
		}
		return nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUserDoesNotExist):
		return err
	case isUniqueViolation(err):
		return domain.ErrUserAlreadyExists
	case isForeignKeyViolation(err):
		return domain.ErrUserDoesNotExist
	default:
		return fmt.Errorf("update user %s: %w", field, err)
	}
}

func (r *UserRepository) AddRole(ctx context.Context, assignment *domain.UserRole) (*domain.UserRole, error) {
	rec := userRoleModel{
		UserID:  assignment.UserID,
		RoleID:  assignment.RoleID,
		AddedBy: assignment.AddedBy,
		AddedOn: now(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&userModel{}).Where("id = ?", rec.UserID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrUserDoesNotExist
		}

		var role roleModel
		if err := tx.Where("id = ?", rec.RoleID).Take(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRoleDoesNotExist
			}
			return err
		}

		if err := tx.Omit("Role").Create(&rec).Error; err != nil {
			return err
		}
		rec.Role = &role
		return nil
	})
	switch {
	case err == nil:
		ur := toDomainUserRole(rec)
		return &ur, nil
	case errors.Is(err, domain.ErrUserDoesNotExist), errors.Is(err, domain.ErrRoleDoesNotExist):
		return nil, err
	case isUniqueViolation(err):
		return nil, domain.ErrRoleAlreadyAssigned
	case isForeignKeyViolation(err):
		return nil, domain.ErrUserDoesNotExist
	default:
		return nil, fmt.Errorf("add user to role: %w", err)
	}
}

func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&userRoleModel{}).Error
	})
	if err != nil {
		return fmt.Errorf("remove user from role: %w", err)
	}
	return nil
}

// userQueryClause ORs together every non-empty key of q.
func userQueryClause(q domain.UserQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.ID != "" {
		clauses = append(clauses, "id = ?")
		args = append(args, q.ID)
	}
	if q.Email != "" {
		clauses = append(clauses, "email = ?")
		args = append(args, q.Email)
	}
	if q.PhoneNumber != "" {
		clauses = append(clauses, "phone_number = ?")
		args = append(args, q.PhoneNumber)
	}
	return strings.Join(clauses, " OR "), args
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
