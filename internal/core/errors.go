package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a CoreError against the sentinel of its code.
func (e *CoreError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == ErrCodeNotFound
	case ErrBadRequest:
		return e.Code == ErrCodeBadRequest
	case ErrUnauthorized:
		return e.Code == ErrCodeUnauthorized
	case ErrForbidden:
		return e.Code == ErrCodeForbidden
	}
	return false
}

func coreError(code, msg string, err error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: err}
}

// NotFound reports a lookup by id that yielded no document. cause may be nil.
func NotFound(msg string, cause error) *CoreError {
	return coreError(ErrCodeNotFound, msg, cause)
}

// BadRequest reports caller input the operation cannot act on.
func BadRequest(msg string) *CoreError {
	return coreError(ErrCodeBadRequest, msg, nil)
}

// Unauthorized reports a request without a valid bearer token.
func Unauthorized(msg string, cause error) *CoreError {
	return coreError(ErrCodeUnauthorized, msg, cause)
}

// Forbidden reports an operation the requester may not perform.
func Forbidden(msg string) *CoreError {
	return coreError(ErrCodeForbidden, msg, nil)
}

// CodeOf returns the code of the first CoreError in err's chain, or "".
func CodeOf(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsNotFound reports whether err is a NotFound domain error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
