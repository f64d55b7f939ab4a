package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Inspector answers liveness questions about a bearer token by decoding its
// payload without verifying the signature. It must never be used for an
// authorization decision: a forged but well-formed token passes inspection.
// Real authorization is enforced by the identity service on every
// privileged call.
type Inspector struct {
	nowFunc func() time.Time // nowFunc function (injectable for testing)
}

// InspectorOption defines a function type to modify the Inspector instance.
type InspectorOption func(*Inspector)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) InspectorOption {
	return func(i *Inspector) {
		i.nowFunc = now
	}
}

// NewInspector creates a token Inspector.
func NewInspector(options ...InspectorOption) *Inspector {
	i := &Inspector{nowFunc: time.Now}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Expired reports whether the token is expired, missing, or malformed.
// Anything that cannot be decoded to an expiry counts as expired, so a
// broken cookie always fails closed.
func (i *Inspector) Expired(rawToken string) bool {
	expiresAt, err := i.ExpiresAt(rawToken)
	if err != nil {
		return true
	}
	return !expiresAt.After(i.nowFunc())
}

// ExpiresAt extracts the expiry instant from the token's payload.
func (i *Inspector) ExpiresAt(rawToken string) (time.Time, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return time.Time{}, errors.New("[Inspector.ExpiresAt] empty token")
	}
	if len(strings.Split(rawToken, ".")) != 3 {
		return time.Time{}, errors.New("[Inspector.ExpiresAt] token must have 3 segments")
	}

	unverifiedToken, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, errors.Wrap(err, "[Inspector.ExpiresAt] ParseUnverified")
	}

	claims, ok := unverifiedToken.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, errors.New("[Inspector.ExpiresAt] error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, errors.New("[Inspector.ExpiresAt] token missing exp claim")
	}

	return time.Unix(int64(exp), 0), nil
}
