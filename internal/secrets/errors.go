package secrets

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("secret store is closed")

// StoreError wraps a failure of the backing storage with the key involved.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("secrets: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("secrets: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// StatusConflictError is returned by Transition when the persisted status is
// not the expected one at commit time.
type StatusConflictError struct {
	Expected AppStatus
	Actual   AppStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("secrets: app status is %s, expected %s", e.Actual, e.Expected)
}

// IsStatusConflict reports whether err is (or wraps) a StatusConflictError.
func IsStatusConflict(err error) bool {
	var target *StatusConflictError
	return errors.As(err, &target)
}
