package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
)

type RoleService struct {
	repo   ports.RoleRepository
	events ports.EventQueue
	logger zerolog.Logger
}

func NewRoleService(repo ports.RoleRepository, events ports.EventQueue, logger zerolog.Logger) *RoleService {
	return &RoleService{repo: repo, events: events, logger: logger}
}

// CreateRole inserts a role. Names are unique; createdBy may be empty.
func (s *RoleService) CreateRole(ctx context.Context, name, createdBy string) (role *domain.Role, err error) {
	ctx, span := tracer.Start(ctx, "RoleService.CreateRole")
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", domain.ErrInvalidInput)
	}

	role, err = s.repo.Create(ctx, &domain.Role{Name: name, CreatedBy: optional(createdBy)})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("role_id", role.ID).Str("name", role.Name).Msg("role created")
	if s.events != nil {
		s.events.Enqueue(newEvent(domain.EventRoleCreated, role.ID, map[string]string{
			"name":       role.Name,
			"created_by": createdBy,
		}))
	}
	return role, nil
}

func (s *RoleService) GetAllRoles(ctx context.Context) (roles []domain.Role, err error) {
	ctx, span := tracer.Start(ctx, "RoleService.GetAllRoles")
	defer func() { endSpan(span, err) }()
	return s.repo.List(ctx)
}

// FindRole looks a role up by name.
func (s *RoleService) FindRole(ctx context.Context, name string) (*domain.Role, error) {
	return s.repo.FindByName(ctx, name)
}
