package ai

import "errors"

// ServiceError wraps any failure of the completion provider. Callers surface
// it to the user as text instead of failing the request.
type ServiceError struct {
	Provider string
	Cause    error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return "completion service failed"
	}
	return e.Cause.Error()
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func IsServiceError(err error) bool {
	var target *ServiceError
	return errors.As(err, &target)
}

var errEmptyReply = errors.New("completion service returned an empty reply")
