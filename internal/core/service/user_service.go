package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
	"github.com/kitchenhelper/users-service/internal/pkg/metrics"
)

type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	events ports.EventQueue
	logger zerolog.Logger
}

func NewUserService(repo ports.UserRepository, hasher ports.PasswordHasher, events ports.EventQueue, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, events: events, logger: logger}
}

// CreateUser registers a new user. At least one of email and phone number is
// required; duplicates on either fail with domain.ErrUserAlreadyExists.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (user *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.CreateUser")
	defer func() { endSpan(span, err) }()

	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	switch {
	case in.FirstName == "" || in.LastName == "":
		return nil, fmt.Errorf("%w: first and last name are required", domain.ErrInvalidInput)
	case in.Email == "" && in.PhoneNumber == "":
		return nil, fmt.Errorf("%w: email or phone number is required", domain.ErrInvalidInput)
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err = s.repo.Create(ctx, &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        optional(in.Email),
		PhoneNumber:  optional(in.PhoneNumber),
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	metrics.UsersCreatedTotal.Inc()
	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	s.publish(domain.EventUserRegistered, user.ID, map[string]string{
		"first_name":   user.FirstName,
		"last_name":    user.LastName,
		"email":        derefString(user.Email),
		"phone_number": derefString(user.PhoneNumber),
	})
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, q domain.UserQuery) (user *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.GetUser")
	defer func() { endSpan(span, err) }()
	return s.repo.Find(ctx, q)
}

func (s *UserService) GetUsers(ctx context.Context) (users []domain.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.GetUsers")
	defer func() { endSpan(span, err) }()
	return s.repo.List(ctx)
}

func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// UserInfo returns the public summary of a user with unconfirmed contact
// details masked.
func (s *UserService) UserInfo(ctx context.Context, userID string) (*domain.UserInfo, error) {
	user, err := s.GetUser(ctx, domain.UserQuery{ID: userID})
	if err != nil {
		return nil, err
	}
	info := user.Info()
	return &info, nil
}

// UpdateUser changes a single field. Passwords are hashed, confirmation flags
// parsed as booleans and an empty email or phone number clears the column.
func (s *UserService) UpdateUser(ctx context.Context, in ports.UpdateUserInput) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateUser")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("user.id", in.UserID), attribute.String("user.field", string(in.Field)))

	if !in.Field.IsUpdatable() {
		return fmt.Errorf("%w: %q", domain.ErrFieldNotUpdatable, in.Field)
	}

	value, err := s.fieldValue(in.Field, in.Value)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateField(ctx, in.UserID, in.Field, value, optional(in.ActorID)); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", in.UserID).Str("field", string(in.Field)).Str("actor_id", in.ActorID).Msg("user updated")
	s.publish(domain.EventUserUpdated, in.UserID, map[string]string{
		"field":      string(in.Field),
		"updated_by": in.ActorID,
	})
	return nil
}

func (s *UserService) fieldValue(field domain.UserField, raw string) (any, error) {
	switch {
	case field == domain.FieldPassword:
		if err := checkPassword(raw); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(raw)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		return hash, nil
	case field.IsFlag():
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects a boolean", domain.ErrInvalidInput, field)
		}
		return b, nil
	case field.IsNullable():
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		return raw, nil
	default:
		if raw == "" {
			return nil, fmt.Errorf("%w: %s must not be empty", domain.ErrInvalidInput, field)
		}
		return raw, nil
	}
}

// maxPasswordBytes is the longest input bcrypt accepts. The limit is in bytes,
// not characters.
const maxPasswordBytes = 72

func checkPassword(pw string) error {
	switch {
	case pw == "":
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	case len(pw) > maxPasswordBytes:
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

// AddUserToRole assigns a role. addedBy may be empty.
func (s *UserService) AddUserToRole(ctx context.Context, userID, roleID, addedBy string) (assignment *domain.UserRole, err error) {
	ctx, span := tracer.Start(ctx, "UserService.AddUserToRole")
	defer func() { endSpan(span, err) }()

	assignment, err = s.repo.AddRole(ctx, &domain.UserRole{
		UserID:  userID,
		RoleID:  roleID,
		AddedBy: optional(addedBy),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", userID).Str("role_id", roleID).Msg("role assigned")
	s.publish(domain.EventUserRoleAssigned, userID, map[string]string{
		"role_id":  roleID,
		"added_by": addedBy,
	})
	return assignment, nil
}

// RemoveUserFromRole deletes an assignment. Removing an absent assignment
// succeeds.
func (s *UserService) RemoveUserFromRole(ctx context.Context, userID, roleID string) (err error) {
	ctx, span := tracer.Start(ctx, "UserService.RemoveUserFromRole")
	defer func() { endSpan(span, err) }()

	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.publish(domain.EventUserRoleRemoved, userID, map[string]string{"role_id": roleID})
	return nil
}

func (s *UserService) publish(t domain.EventType, key string, data map[string]string) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(newEvent(t, key, data))
}

func newEvent(t domain.EventType, key string, data map[string]string) domain.Event {
	return domain.Event{
		ID:         uuid.NewString(),
		Type:       t,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
