package setup

import (
	"errors"
	"fmt"
)

// Kind classifies setup failures.
type Kind int

const (
	// KindAlreadySetup means setup already ran; nothing was changed.
	KindAlreadySetup Kind = iota + 1
	// KindRegistration means the identity provider rejected or failed the
	// client registration; nothing was persisted.
	KindRegistration
	// KindValidation means the server settings cannot produce redirect URIs.
	KindValidation
	// KindStore means reading or writing the secret store failed.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindAlreadySetup:
		return "already_setup"
	case KindRegistration:
		return "registration_failed"
	case KindValidation:
		return "invalid_settings"
	case KindStore:
		return "store_error"
	default:
		return "unknown"
	}
}

// Error is returned by Controller operations.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("setup: %s", e.Kind)
	}
	return fmt.Sprintf("setup: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a setup error, or 0 if err is not one.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return 0
}

// IsAlreadySetup checks if err reports a repeated setup.
func IsAlreadySetup(err error) bool {
	return KindOf(err) == KindAlreadySetup
}
