package errors

import "errors"

// Common error types for the session gateway
var (
	// Token errors
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Identity service errors
	ErrUnauthenticated = errors.New("not authenticated")
	ErrUserDeactivated = errors.New("user deactivated")
	ErrIdentityService = errors.New("identity service unavailable")
)

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
