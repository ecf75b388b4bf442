package provider

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// IsNotFound reports whether err is a provider NotFound result.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// IsAuthFailed reports whether err is a credential failure.
func IsAuthFailed(err error) bool {
	var af *ErrAuthFailed
	return errors.As(err, &af)
}

// IsCatalogAuthFailed reports whether err is a credential failure of the
// primary catalog. Without its token no track can be analyzed, whereas a
// rejected secondary key only costs that provider's signal.
func IsCatalogAuthFailed(err error) bool {
	var af *ErrAuthFailed
	return errors.As(err, &af) && !af.Provider.IsSecondary()
}

// IsRateLimited reports whether err is a provider backoff request.
func IsRateLimited(err error) bool {
	var rl *ErrRateLimited
	return errors.As(err, &rl)
}

// IsUnavailable reports whether err is a transient provider or network fault.
func IsUnavailable(err error) bool {
	var pu *ErrProviderUnavailable
	return errors.As(err, &pu)
}

// RetryAfter parses a Retry-After header given in seconds, returning fallback
// when the header is absent or malformed.
func RetryAfter(header string, fallback time.Duration) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
