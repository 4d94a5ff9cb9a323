package auth

import "context"

// Api is the login surface the rest of the module depends on.
type Api interface {
	FetchChallenge(ctx context.Context, username string) (Challenge, error)
	Login(ctx context.Context, username string, password string, otpCode string) (*Session, error)
}

var _ Api = (*Client)(nil)
