package auth

import (
	"errors"
	"fmt"
)

// RegistrationError reports a failed client registration. Step names the
// part of the exchange that failed.
type RegistrationError struct {
	Step string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("client registration failed during %s: %v", e.Step, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// IsRegistrationError checks if err is a RegistrationError.
func IsRegistrationError(err error) bool {
	var target *RegistrationError
	return errors.As(err, &target)
}
