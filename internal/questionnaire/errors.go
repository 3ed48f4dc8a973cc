package questionnaire

import "errors"

// ValidationError aggregates everything blocking submission into a single
// display-ready message. It is always correctable in place, unlike the
// transport errors returned when delivering the payload fails.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is a questionnaire validation
// failure rather than a transport failure
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
