package domain

import "time"

// TokenUse distinguishes access tokens from refresh tokens.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// TokenPair is returned by a successful sign-in.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Claims is the decoded content of a signed token.
type Claims struct {
	Subject   string
	Roles     []string
	Use       TokenUse
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
