package request

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks a descriptor that breaks a precondition of the
	// layer it describes.
	ErrInvalidRequest = errors.New("invalid_request")
	// ErrUnsupported marks a well-formed descriptor that has no kernel.
	ErrUnsupported = errors.New("unsupported")
)

type requestError struct {
	kind error
	msg  string
}

func (e requestError) Error() string {
	return e.msg
}

func (e requestError) Unwrap() error {
	return e.kind
}

func invalidf(format string, args ...any) error {
	return requestError{kind: ErrInvalidRequest, msg: fmt.Sprintf(format, args...)}
}

func unsupportedf(format string, args ...any) error {
	return requestError{kind: ErrUnsupported, msg: fmt.Sprintf(format, args...)}
}
