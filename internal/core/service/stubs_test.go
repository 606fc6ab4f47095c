package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users    map[string]*domain.User
	roles    *stubRoleRepo
	seq      int
	findErr  error // if set, Find returns this error
	updates  []string
	lastByID map[string]*string // updated_by per user
}

func newStubUserRepo(roles *stubRoleRepo) *stubUserRepo {
	return &stubUserRepo{
		users:    make(map[string]*domain.User),
		roles:    roles,
		lastByID: make(map[string]*string),
	}
}

func cloneUser(u *domain.User) *domain.User {
	clone := *u
	clone.Roles = append([]domain.UserRole(nil), u.Roles...)
	return &clone
}

func sameString(p *string, s string) bool {
	return p != nil && s != "" && *p == s
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.users {
		if sameString(u.Email, derefString(user.Email)) || sameString(u.PhoneNumber, derefString(user.PhoneNumber)) {
			return nil, domain.ErrUserAlreadyExists
		}
	}
	r.seq++
	stored := cloneUser(user)
	stored.ID = fmt.Sprintf("user-%d", r.seq)
	r.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (r *stubUserRepo) Find(_ context.Context, q domain.UserQuery) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	if q.IsEmpty() {
		return nil, domain.ErrEmptyUserQuery
	}
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		u := r.users[id]
		if (q.ID != "" && u.ID == q.ID) || sameString(u.Email, q.Email) || sameString(u.PhoneNumber, q.PhoneNumber) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserDoesNotExist
}

func (r *stubUserRepo) List(_ context.Context) ([]domain.User, error) {
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *stubUserRepo) UpdateField(_ context.Context, userID string, field domain.UserField, value any, updatedBy *string) error {
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserDoesNotExist
	}
	switch field {
	case domain.FieldPassword:
		u.PasswordHash = value.(string)
	case domain.FieldFirstName:
		u.FirstName = value.(string)
	case domain.FieldLastName:
		u.LastName = value.(string)
	case domain.FieldEmail:
		u.Email = asOptional(value)
	case domain.FieldPhoneNumber:
		u.PhoneNumber = asOptional(value)
	case domain.FieldIsEmailConfirmed:
		u.IsEmailConfirmed = value.(bool)
	case domain.FieldIsPhoneConfirmed:
		u.IsPhoneConfirmed = value.(bool)
	default:
		return domain.ErrFieldNotUpdatable
	}
	u.UpdatedBy = updatedBy
	r.updates = append(r.updates, string(field))
	r.lastByID[userID] = updatedBy
	return nil
}

func asOptional(v any) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}

func (r *stubUserRepo) AddRole(_ context.Context, a *domain.UserRole) (*domain.UserRole, error) {
	u, ok := r.users[a.UserID]
	if !ok {
		return nil, domain.ErrUserDoesNotExist
	}
	role, ok := r.roles.byID[a.RoleID]
	if !ok {
		return nil, domain.ErrRoleDoesNotExist
	}
	for _, ur := range u.Roles {
		if ur.RoleID == a.RoleID {
			return nil, domain.ErrRoleAlreadyAssigned
		}
	}
	rc := *role
	stored := domain.UserRole{UserID: a.UserID, RoleID: a.RoleID, AddedBy: a.AddedBy, Role: &rc}
	u.Roles = append(u.Roles, stored)
	return &stored, nil
}

func (r *stubUserRepo) RemoveRole(_ context.Context, userID, roleID string) error {
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	kept := u.Roles[:0]
	for _, ur := range u.Roles {
		if ur.RoleID != roleID {
			kept = append(kept, ur)
		}
	}
	u.Roles = kept
	return nil
}

type stubRoleRepo struct {
	byID map[string]*domain.Role
	seq  int
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{byID: make(map[string]*domain.Role)}
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) (*domain.Role, error) {
	for _, existing := range r.byID {
		if existing.Name == role.Name {
			return nil, domain.ErrRoleAlreadyExists
		}
	}
	r.seq++
	stored := *role
	stored.ID = fmt.Sprintf("role-%d", r.seq)
	r.byID[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (r *stubRoleRepo) List(_ context.Context) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(r.byID))
	for _, role := range r.byID {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	for _, role := range r.byID {
		if role.Name == name {
			out := *role
			return &out, nil
		}
	}
	return nil, domain.ErrRoleDoesNotExist
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

// prefixHasher is a fast, deterministic stand-in for bcrypt.
type prefixHasher struct {
	err error
}

func (h prefixHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + password, nil
}

func (h prefixHasher) Verify(password, hash string) bool {
	return strings.TrimPrefix(hash, "hashed:") == password && strings.HasPrefix(hash, "hashed:")
}

type recordingQueue struct {
	mu     sync.Mutex
	events []domain.Event
}

func (q *recordingQueue) Enqueue(e domain.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

func (q *recordingQueue) types() []domain.EventType {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.EventType, len(q.events))
	for i, e := range q.events {
		out[i] = e.Type
	}
	return out
}

type stubLimiter struct {
	locked   bool
	err      error
	failures map[string]int
	resets   map[string]int
}

func newStubLimiter() *stubLimiter {
	return &stubLimiter{failures: map[string]int{}, resets: map[string]int{}}
}

func (l *stubLimiter) Locked(_ context.Context, _ string) (bool, error) {
	return l.locked, l.err
}

func (l *stubLimiter) RecordFailure(_ context.Context, id string) error {
	l.failures[id]++
	return l.err
}

func (l *stubLimiter) Reset(_ context.Context, id string) error {
	l.resets[id]++
	return l.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var errBoom = errors.New("boom")

func sampleInput(email, phone string) ports.CreateUserInput {
	return ports.CreateUserInput{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       email,
		PhoneNumber: phone,
		Password:    "s3cret",
	}
}
