package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

const (
	DefaultAccessTTL  = 60 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	errMissingSubject = errors.New("token has no subject")
	errWrongTokenUse  = errors.New("token used for the wrong purpose")
)

// TokenConfig is loaded once at startup and never mutated.
type TokenConfig struct {
	Key        string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// JWTIssuer signs and validates HMAC JWTs.
type JWTIssuer struct {
	key        []byte
	method     *jwt.SigningMethodHMAC
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// IssuerOption customises a JWTIssuer.
type IssuerOption func(*JWTIssuer)

// WithClock replaces time.Now as the source of issue and validation times.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *JWTIssuer) { i.now = now }
}

type tokenClaims struct {
	Roles []string        `json:"roles,omitempty"`
	Use   domain.TokenUse `json:"token_use"`
	jwt.RegisteredClaims
}

// NewJWTIssuer validates cfg and builds an issuer. Only HMAC algorithms
// (HS256, HS384, HS512) are accepted since the key is a shared secret.
func NewJWTIssuer(cfg TokenConfig, opts ...IssuerOption) (*JWTIssuer, error) {
	if cfg.Key == "" {
		return nil, errors.New("jwt key is required")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", alg)
	}

	i := &JWTIssuer{
		key:        []byte(cfg.Key),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	if i.accessTTL <= 0 {
		i.accessTTL = DefaultAccessTTL
	}
	if i.refreshTTL <= 0 {
		i.refreshTTL = DefaultRefreshTTL
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueAccessToken mints an access token. The roles claim is omitted when
// roles is empty.
func (i *JWTIssuer) IssueAccessToken(subject string, roles []string) (string, error) {
	return i.sign(subject, roles, domain.TokenUseAccess, i.accessTTL)
}

// IssueRefreshToken mints a refresh token. Refresh tokens never carry roles.
func (i *JWTIssuer) IssueRefreshToken(subject string) (string, error) {
	return i.sign(subject, nil, domain.TokenUseRefresh, i.refreshTTL)
}

// RenewAccessToken returns a fresh access token for the subject of a valid
// refresh token. The new token carries no roles.
func (i *JWTIssuer) RenewAccessToken(refreshToken string) (string, error) {
	claims, err := i.parse(refreshToken, domain.TokenUseRefresh)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrRefreshTokenExpired
		}
		return "", fmt.Errorf("%w: %s", domain.ErrRefreshTokenInvalid, err)
	}
	return i.IssueAccessToken(claims.Subject, nil)
}

func (i *JWTIssuer) ParseAccessToken(token string) (*domain.Claims, error) {
	claims, err := i.parse(token, domain.TokenUseAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccessTokenInvalid, err)
	}
	return toDomainClaims(claims), nil
}

func (i *JWTIssuer) sign(subject string, roles []string, use domain.TokenUse, ttl time.Duration) (string, error) {
	now := i.now().UTC()
	claims := tokenClaims{
		Roles: roles,
		Use:   use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(i.method, claims).SignedString(i.key)
}

func (i *JWTIssuer) parse(raw string, use domain.TokenUse) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errMissingSubject
	}
	if claims.Use != use {
		return nil, errWrongTokenUse
	}
	return claims, nil
}

func toDomainClaims(c *tokenClaims) *domain.Claims {
	out := &domain.Claims{
		Subject: c.Subject,
		Roles:   c.Roles,
		Use:     c.Use,
		ID:      c.ID,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return out
}
