package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kitchenhelper/users-service/internal/core/domain"
)

const testKey = "test-signing-key"

func newIssuer(t *testing.T, opts ...IssuerOption) *JWTIssuer {
	t.Helper()
	i, err := NewJWTIssuer(TokenConfig{Key: testKey, Algorithm: "HS256"}, opts...)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return i
}

func fixedClock(ts time.Time) IssuerOption {
	return WithClock(func() time.Time { return ts })
}

func decode(t *testing.T, raw string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(testKey), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return claims
}

func expiry(t *testing.T, claims jwt.MapClaims) time.Time {
	t.Helper()
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		t.Fatalf("missing exp: %v", err)
	}
	return exp.Time
}

func TestJWTIssuer_AccessTokenClaims(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := newIssuer(t, fixedClock(now))

	token, err := i.IssueAccessToken("user-1", []string{"ADMIN", "COOK"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims := decode(t, token)
	if claims["sub"] != "user-1" {
		t.Fatalf("unexpected sub: %v", claims["sub"])
	}
	if claims["token_use"] != string(domain.TokenUseAccess) {
		t.Fatalf("unexpected token_use: %v", claims["token_use"])
	}
	roles, ok := claims["roles"].([]any)
	if !ok || len(roles) != 2 || roles[0] != "ADMIN" || roles[1] != "COOK" {
		t.Fatalf("unexpected roles: %v", claims["roles"])
	}
	if got := expiry(t, claims); !got.Equal(now.Add(60 * time.Minute)) {
		t.Fatalf("expected exp %v, got %v", now.Add(60*time.Minute), got)
	}
}

func TestJWTIssuer_AccessTokenOmitsEmptyRoles(t *testing.T) {
	i := newIssuer(t)
	token, err := i.IssueAccessToken("user-1", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, present := decode(t, token)["roles"]; present {
		t.Fatalf("roles claim must be omitted")
	}
}

func TestJWTIssuer_RefreshTokenClaims(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i := newIssuer(t, fixedClock(now))

	token, err := i.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims := decode(t, token)
	if claims["sub"] != "user-1" {
		t.Fatalf("unexpected sub: %v", claims["sub"])
	}
	if _, present := claims["roles"]; present {
		t.Fatalf("refresh token must not carry roles")
	}
	if got := expiry(t, claims); !got.Equal(now.Add(7 * 24 * time.Hour)) {
		t.Fatalf("expected exp %v, got %v", now.Add(7*24*time.Hour), got)
	}
}

func TestJWTIssuer_RenewAccessToken_FreshExpiry(t *testing.T) {
	issuedAt := time.Now().Add(-3 * time.Hour).Truncate(time.Second)
	renewedAt := time.Now().Truncate(time.Second)

	refresh, err := newIssuer(t, fixedClock(issuedAt)).IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	renewer := newIssuer(t, fixedClock(renewedAt))
	access, err := renewer.RenewAccessToken(refresh)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}

	claims, err := renewer.ParseAccessToken(access)
	if err != nil {
		t.Fatalf("parse renewed token: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject: %s", claims.Subject)
	}
	if !claims.ExpiresAt.Equal(renewedAt.Add(60 * time.Minute).UTC()) {
		t.Fatalf("expected fresh expiry %v, got %v", renewedAt.Add(60*time.Minute), claims.ExpiresAt)
	}
	if len(claims.Roles) != 0 {
		t.Fatalf("renewed token must not carry roles, got %v", claims.Roles)
	}
}

func TestJWTIssuer_RenewAccessToken_Expired(t *testing.T) {
	old := time.Now().Add(-8 * 24 * time.Hour)
	refresh, err := newIssuer(t, fixedClock(old)).IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := newIssuer(t).RenewAccessToken(refresh); !errors.Is(err, domain.ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
}

func TestJWTIssuer_RenewAccessToken_InvalidSignature(t *testing.T) {
	other, err := NewJWTIssuer(TokenConfig{Key: "another-key"})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	refresh, err := other.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	if _, err := newIssuer(t).RenewAccessToken(refresh); !errors.Is(err, domain.ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid, got %v", err)
	}
}

func TestJWTIssuer_RenewAccessToken_Garbage(t *testing.T) {
	if _, err := newIssuer(t).RenewAccessToken("not-a-token"); !errors.Is(err, domain.ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid, got %v", err)
	}
}

func TestJWTIssuer_RenewAccessToken_RejectsAccessToken(t *testing.T) {
	i := newIssuer(t)
	access, err := i.IssueAccessToken("user-1", nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := i.RenewAccessToken(access); !errors.Is(err, domain.ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid, got %v", err)
	}
}

func TestJWTIssuer_RenewAccessToken_MissingSubject(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":       time.Now().Add(time.Hour).Unix(),
		"token_use": "refresh",
	})
	raw, err := token.SignedString([]byte(testKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := newIssuer(t).RenewAccessToken(raw); !errors.Is(err, domain.ErrRefreshTokenInvalid) {
		t.Fatalf("expected ErrRefreshTokenInvalid, got %v", err)
	}
}

func TestJWTIssuer_ParseAccessToken_RejectsRefreshToken(t *testing.T) {
	i := newIssuer(t)
	refresh, err := i.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := i.ParseAccessToken(refresh); !errors.Is(err, domain.ErrAccessTokenInvalid) {
		t.Fatalf("expected ErrAccessTokenInvalid, got %v", err)
	}
}

func TestNewJWTIssuer_Validation(t *testing.T) {
	if _, err := NewJWTIssuer(TokenConfig{}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := NewJWTIssuer(TokenConfig{Key: "k", Algorithm: "RS256"}); err == nil {
		t.Fatalf("expected error for non-HMAC algorithm")
	}
	if _, err := NewJWTIssuer(TokenConfig{Key: "k", Algorithm: "HS512"}); err != nil {
		t.Fatalf("HS512 should be accepted: %v", err)
	}
}
