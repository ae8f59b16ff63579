package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")

	ErrCorpusEmpty            = errors.New("corpus empty")
	ErrAllProvidersExhausted  = errors.New("all providers exhausted")
	ErrResponseParseFailure   = errors.New("response parse failure")
	ErrProviderRateLimited    = errors.New("provider rate limited")
	ErrProviderQuotaExhausted = errors.New("provider quota exhausted")
	ErrProviderInvalidCred    = errors.New("provider invalid credential")
	ErrProviderPermission     = errors.New("provider permission denied")
	ErrProviderTransient      = errors.New("provider transient error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
