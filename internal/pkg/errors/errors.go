package errors

import "errors"

var (
	ErrInvalid        = errors.New("invalid")
	ErrNotFound       = errors.New("not found")
	ErrUnavailable    = errors.New("service unavailable")
	ErrIndexNotReady  = errors.New("index not ready")
	ErrGenerateFailed = errors.New("generation failed")
	ErrTooMany        = errors.New("too many requests")
	ErrInternal       = errors.New("internal")
)

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func IsIndexNotReady(err error) bool {
	return errors.Is(err, ErrIndexNotReady)
}
