package ports

import "context"

// SignInLimiter tracks failed sign-in attempts per identifier.
type SignInLimiter interface {
	Locked(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}
