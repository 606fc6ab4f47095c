package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kitchenhelper/users-service/internal/core/domain"
	"github.com/kitchenhelper/users-service/internal/core/ports"
	"github.com/kitchenhelper/users-service/internal/pkg/metrics"
)

// AuthService signs users in and renews access tokens.
type AuthService struct {
	users   ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter ports.SignInLimiter
	logger  zerolog.Logger
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithSignInLimiter enables lockout after repeated wrong passwords.
func WithSignInLimiter(l ports.SignInLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, logger zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{users: users, hasher: hasher, tokens: tokens, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn verifies password for the user whose email or phone number equals
// identifier and issues an access/refresh token pair.
func (s *AuthService) SignIn(ctx context.Context, identifier, password string) (pair *domain.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.SignIn")
	defer func() { endSpan(span, err) }()

	if s.isLocked(ctx, identifier) {
		metrics.SignInTotal.WithLabelValues("locked").Inc()
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	if password == "" || !s.hasher.Verify(password, user.PasswordHash) {
		metrics.SignInTotal.WithLabelValues("wrong_credentials").Inc()
		s.recordFailure(ctx, identifier)
		s.logger.Info().Str("user_id", user.ID).Msg("sign-in rejected: wrong credentials")
		return nil, domain.ErrWrongCredentials
	}
	s.resetFailures(ctx, identifier)

	return s.issue(user)
}

// SignInWithoutPassword issues tokens for the user matching identifier without
// checking credentials. It is meant for trusted in-process callers only and is
// not exposed over HTTP.
func (s *AuthService) SignInWithoutPassword(ctx context.Context, identifier string) (pair *domain.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.SignInWithoutPassword")
	defer func() { endSpan(span, err) }()

	user, err := s.lookup(ctx, identifier)
	if err != nil {
		return nil, err
	}
	s.logger.Warn().Str("user_id", user.ID).Msg("passwordless sign-in")
	return s.issue(user)
}

// Refresh redeems a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (token string, err error) {
	_, span := tracer.Start(ctx, "AuthService.Refresh")
	defer func() { endSpan(span, err) }()

	if refreshToken == "" {
		metrics.TokenRenewalsTotal.WithLabelValues("missing").Inc()
		return "", domain.ErrRefreshTokenMissing
	}

	token, err = s.tokens.RenewAccessToken(refreshToken)
	switch {
	case err == nil:
		metrics.TokenRenewalsTotal.WithLabelValues("success").Inc()
		metrics.TokensIssuedTotal.WithLabelValues(string(domain.TokenUseAccess)).Inc()
		return token, nil
	case errors.Is(err, domain.ErrRefreshTokenExpired):
		metrics.TokenRenewalsTotal.WithLabelValues("expired").Inc()
		return "", domain.ErrRefreshTokenExpired
	default:
		metrics.TokenRenewalsTotal.WithLabelValues("invalid").Inc()
		s.logger.Debug().Err(err).Msg("refresh token rejected")
		return "", domain.ErrRefreshTokenInvalid
	}
}

func (s *AuthService) lookup(ctx context.Context, identifier string) (*domain.User, error) {
	if identifier == "" {
		metrics.SignInTotal.WithLabelValues("unknown_user").Inc()
		return nil, domain.ErrUserDoesNotExist
	}
	user, err := s.users.Find(ctx, domain.UserQuery{Email: identifier, PhoneNumber: identifier})
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, domain.ErrUserDoesNotExist):
		metrics.SignInTotal.WithLabelValues("unknown_user").Inc()
		return nil, err
	default:
		metrics.SignInTotal.WithLabelValues("error").Inc()
		return nil, err
	}
}

func (s *AuthService) issue(user *domain.User) (*domain.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user.ID, user.RoleNames())
	if err != nil {
		metrics.SignInTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		metrics.SignInTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.TokenUseAccess)).Inc()
	metrics.TokensIssuedTotal.WithLabelValues(string(domain.TokenUseRefresh)).Inc()
	metrics.SignInTotal.WithLabelValues("success").Inc()
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) isLocked(ctx context.Context, identifier string) bool {
	if s.limiter == nil || identifier == "" {
		return false
	}
	locked, err := s.limiter.Locked(ctx, identifier)
	if err != nil {
		s.logger.Warn().Err(err).Msg("sign-in limiter unavailable")
		return false
	}
	return locked
}

func (s *AuthService) recordFailure(ctx context.Context, identifier string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, identifier); err != nil {
		s.logger.Warn().Err(err).Msg("sign-in limiter unavailable")
	}
}

func (s *AuthService) resetFailures(ctx context.Context, identifier string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, identifier); err != nil {
		s.logger.Warn().Err(err).Msg("sign-in limiter unavailable")
	}
}
