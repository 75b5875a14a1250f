package chattemplate

import (
	"errors"
	"fmt"
)

// Kind classifies resolution failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindParse
	KindValidation
	KindUnknownAlias
	KindDownload
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindUnknownAlias:
		return "unknown_alias"
	case KindDownload:
		return "download"
	default:
		return "unknown"
	}
}

// Error is returned by Resolver operations. Err holds the underlying hub or
// chat error.
type Error struct {
	Kind   Kind
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("chat template %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a resolver error, or 0 if err is not one.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return 0
}
