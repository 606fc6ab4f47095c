package relational

import (
	"time"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

type userModel struct {
	ID               string          `gorm:"column:id;primaryKey"`
	FirstName        string          `gorm:"column:first_name"`
	LastName         string          `gorm:"column:last_name"`
	Email            *string         `gorm:"column:email"`
	PhoneNumber      *string         `gorm:"column:phone_number"`
	Password         string          `gorm:"column:password"`
	IsEmailConfirmed bool            `gorm:"column:is_email_confirmed"`
	IsPhoneConfirmed bool            `gorm:"column:is_phone_confirmed"`
	UpdatedBy        *string         `gorm:"column:updated_by"`
	UpdatedOn        time.Time       `gorm:"column:updated_on;autoUpdateTime"`
	UserRoles        []userRoleModel `gorm:"foreignKey:UserID;references:ID"`
}

func (userModel) TableName() string { return "users" }

type roleModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name"`
	CreatedOn time.Time `gorm:"column:created_on"`
	CreatedBy *string   `gorm:"column:created_by"`
}

func (roleModel) TableName() string { return "roles" }

type userRoleModel struct {
	UserID  string     `gorm:"column:user_id;primaryKey"`
	RoleID  string     `gorm:"column:role_id;primaryKey"`
	AddedBy *string    `gorm:"column:added_by"`
	AddedOn time.Time  `gorm:"column:added_on"`
	Role    *roleModel `gorm:"foreignKey:RoleID;references:ID"`
}

func (userRoleModel) TableName() string { return "user_roles" }

func toUserModel(u *domain.User) userModel {
	return userModel{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		PhoneNumber:      u.PhoneNumber,
		Password:         u.PasswordHash,
		IsEmailConfirmed: u.IsEmailConfirmed,
		IsPhoneConfirmed: u.IsPhoneConfirmed,
		UpdatedBy:        u.UpdatedBy,
		UpdatedOn:        u.UpdatedOn,
	}
}

func toDomainUser(m userModel) domain.User {
	u := domain.User{
		ID:               m.ID,
		FirstName:        m.FirstName,
		LastName:         m.LastName,
		Email:            m.Email,
		PhoneNumber:      m.PhoneNumber,
		PasswordHash:     m.Password,
		IsEmailConfirmed: m.IsEmailConfirmed,
		IsPhoneConfirmed: m.IsPhoneConfirmed,
		UpdatedBy:        m.UpdatedBy,
		UpdatedOn:        m.UpdatedOn.UTC(),
		Roles:            make([]domain.UserRole, 0, len(m.UserRoles)),
	}
	for _, ur := range m.UserRoles {
		u.Roles = append(u.Roles, toDomainUserRole(ur))
	}
	return u
}

func toDomainRole(m roleModel) domain.Role {
	return domain.Role{
		ID:        m.ID,
		Name:      m.Name,
		CreatedBy: m.CreatedBy,
		CreatedOn: m.CreatedOn.UTC(),
	}
}

func toDomainUserRole(m userRoleModel) domain.UserRole {
	ur := domain.UserRole{
		UserID:  m.UserID,
		RoleID:  m.RoleID,
		AddedBy: m.AddedBy,
		AddedOn: m.AddedOn.UTC(),
	}
	if m.Role != nil {
		role := toDomainRole(*m.Role)
		ur.Role = &role
	}
	return ur
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
