package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
)

// Seeder provisions the first administrator of an empty deployment.
type Seeder struct {
	users  *UserService
	roles  *RoleService
	logger zerolog.Logger
}

func NewSeeder(users *UserService, roles *RoleService, logger zerolog.Logger) *Seeder {
	return &Seeder{users: users, roles: roles, logger: logger}
}

// SeedDefaultUser makes sure the configured user exists and holds the ADMIN
// role it owns. Each step is skipped when already done, so a start that failed
// halfway is completed by the next one. Nothing happens when the user is
// absent and other users already exist, or when ADMIN belongs to someone else.
// Returns the seeded user, or nil when nothing changed.
func (s *Seeder) SeedDefaultUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if in.Email == "" && in.PhoneNumber == "" {
		s.logger.Debug().Msg("no default user configured, skipping seed")
		return nil, nil
	}

	admin, err := s.roles.FindRole(ctx, domain.RoleAdmin)
	switch {
	case errors.Is(err, domain.ErrRoleDoesNotExist):
		admin = nil
	case err != nil:
		return nil, fmt.Errorf("find %s role: %w", domain.RoleAdmin, err)
	}

	user, err := s.users.GetUser(ctx, domain.UserQuery{Email: in.Email, PhoneNumber: in.PhoneNumber})
	switch {
	case errors.Is(err, domain.ErrUserDoesNotExist):
		if user, err = s.createFirstUser(ctx, in, admin); user == nil || err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("find default user: %w", err)
	}

	if user.HasRole(domain.RoleAdmin) {
		s.logger.Debug().Str("user_id", user.ID).Msg("default user already seeded")
		return nil, nil
	}

	if admin == nil {
		if admin, err = s.roles.CreateRole(ctx, domain.RoleAdmin, user.ID); err != nil {
			return nil, fmt.Errorf("seed %s role: %w", domain.RoleAdmin, err)
		}
	} else if admin.CreatedBy == nil || *admin.CreatedBy != user.ID {
		s.logger.Debug().Str("role_id", admin.ID).Msg("ADMIN role managed elsewhere, skipping seed")
		return nil, nil
	}

	if _, err := s.users.AddUserToRole(ctx, user.ID, admin.ID, user.ID); err != nil {
		return nil, fmt.Errorf("assign %s role: %w", domain.RoleAdmin, err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("default user seeded")
	return s.users.GetUser(ctx, domain.UserQuery{ID: user.ID})
}

// createFirstUser creates the default user only into an empty deployment
// without an ADMIN role. It returns nil when seeding should be skipped.
func (s *Seeder) createFirstUser(ctx context.Context, in ports.CreateUserInput, admin *domain.Role) (*domain.User, error) {
	if admin != nil {
		s.logger.Debug().Msg("ADMIN role exists, skipping seed")
		return nil, nil
	}
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		s.logger.Debug().Int64("users", n).Msg("users exist, skipping seed")
		return nil, nil
	}
	user, err := s.users.CreateUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("seed default user: %w", err)
	}
	return user, nil
}
