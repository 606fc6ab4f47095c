package ports

import (
	"context"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

type AuthService interface {
	SignIn(ctx context.Context, identifier, password string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}
