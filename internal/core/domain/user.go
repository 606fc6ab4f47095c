package domain

import (
	"sort"
	"time"
)

// RoleAdmin is the role seeded for the first user of a fresh deployment.
const RoleAdmin = "ADMIN"

// NotConfirmed replaces contact details that have not been verified yet.
const NotConfirmed = "Not confirmed"

// User models a registered identity. PasswordHash never leaves the service.
type User struct {
	ID               string     `json:"id"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            *string    `json:"email"`
	PhoneNumber      *string    `json:"phone_number"`
	PasswordHash     string     `json:"-"`
	IsEmailConfirmed bool       `json:"is_email_confirmed"`
	IsPhoneConfirmed bool       `json:"is_phone_confirmed"`
	UpdatedBy        *string    `json:"updated_by"`
	UpdatedOn        time.Time  `json:"updated_on"`
	Roles            []UserRole `json:"roles"`
}

// RoleNames returns the sorted names of every role assigned to the user.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, ur := range u.Roles {
		if ur.Role != nil {
			names = append(names, ur.Role.Name)
		}
	}
	sort.Strings(names)
	return names
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, ur := range u.Roles {
		if ur.Role != nil && ur.Role.Name == name {
			return true
		}
	}
	return false
}

// UserInfo is the public summary of a user. Unconfirmed contact details are
// masked.
type UserInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Info builds the public summary for u.
func (u *User) Info() UserInfo {
	info := UserInfo{
		FullName: u.FirstName + " " + u.LastName,
		Email:    NotConfirmed,
		Phone:    NotConfirmed,
	}
	if u.IsEmailConfirmed && u.Email != nil {
		info.Email = *u.Email
	}
	if u.IsPhoneConfirmed && u.PhoneNumber != nil {
		info.Phone = *u.PhoneNumber
	}
	return info
}

// Role is a named permission group.
type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy *string   `json:"created_by"`
	CreatedOn time.Time `json:"created_on"`
}

// UserRole assigns a Role to a User. The (UserID, RoleID) pair is unique.
type UserRole struct {
	UserID  string    `json:"user_id"`
	RoleID  string    `json:"role_id"`
	AddedBy *string   `json:"added_by"`
	AddedOn time.Time `json:"added_on"`
	Role    *Role     `json:"role,omitempty"`
}

// UserQuery selects users by the OR of every non-empty key. A query with no
// keys is rejected rather than matching an arbitrary row.
type UserQuery struct {
	ID          string
	Email       string
	PhoneNumber string
}

// IsEmpty reports whether no lookup key is set.
func (q UserQuery) IsEmpty() bool {
	return q.ID == "" && q.Email == "" && q.PhoneNumber == ""
}

// UserField names a column that may be changed through UpdateUser.
type UserField string

const (
	FieldPassword         UserField = "password"
	FieldEmail            UserField = "email"
	FieldPhoneNumber      UserField = "phone_number"
	FieldFirstName        UserField = "first_name"
	FieldLastName         UserField = "last_name"
	FieldIsEmailConfirmed UserField = "is_email_confirmed"
	FieldIsPhoneConfirmed UserField = "is_phone_confirmed"
)

var updatableFields = map[UserField]struct{}{
	FieldPassword:         {},
	FieldEmail:            {},
	FieldPhoneNumber:      {},
	FieldFirstName:        {},
	FieldLastName:         {},
	FieldIsEmailConfirmed: {},
	FieldIsPhoneConfirmed: {},
}

// IsUpdatable reports whether f is on the update allow-list.
func (f UserField) IsUpdatable() bool {
	_, ok := updatableFields[f]
	return ok
}

// IsFlag reports whether f holds a boolean confirmation flag.
func (f UserField) IsFlag() bool {
	return f == FieldIsEmailConfirmed || f == FieldIsPhoneConfirmed
}

// IsNullable reports whether an empty value clears the column.
func (f UserField) IsNullable() bool {
	return f == FieldEmail || f == FieldPhoneNumber
}
