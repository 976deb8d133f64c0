package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidActivity      = errors.New("invalid activity")
	ErrSourceUnavailable    = errors.New("source unavailable")
	ErrDeliveryFailed       = errors.New("delivery failed")
	ErrInvalidState         = errors.New("invalid oauth state")
	ErrStateNotFound        = errors.New("oauth state not found")
	ErrMissingCode          = errors.New("missing authorization code")
	ErrExchangeFailed       = errors.New("oauth code exchange failed")
	ErrInstallationNotFound = errors.New("installation not found")
	ErrSecretNotFound       = errors.New("secret not found")
)

// DeliveryError carries the sink's rejection of a digest.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery rejected with status %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Is(target error) bool {
	return target == ErrDeliveryFailed
}
