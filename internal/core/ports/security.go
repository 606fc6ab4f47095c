package ports

import "github.com/kitchenhelper/users-service/internal/core/domain"

// PasswordHasher produces salted one-way password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A malformed hash never
	// matches.
	Verify(password, hash string) bool
}

// TokenIssuer mints and validates signed tokens.
type TokenIssuer interface {
	IssueAccessToken(subject string, roles []string) (string, error)
	IssueRefreshToken(subject string) (string, error)

	// RenewAccessToken validates a refresh token and mints a new access token
	// for the same subject. Fails with domain.ErrRefreshTokenExpired or
	// domain.ErrRefreshTokenInvalid.
	RenewAccessToken(refreshToken string) (string, error)

	// ParseAccessToken validates an access token and returns its claims.
	ParseAccessToken(token string) (*domain.Claims, error)
}

// TokenVerifier is the subset of TokenIssuer needed by request middleware.
type TokenVerifier interface {
	ParseAccessToken(token string) (*domain.Claims, error)
}
