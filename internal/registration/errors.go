package registration

import "errors"

var (
	ErrMissingFields    = errors.New("registration: missing required fields")
	ErrPasswordMismatch = errors.New("registration: passwords do not match")
	ErrPasswordTooShort = errors.New("registration: password too short")
	ErrInvalidBloodType = errors.New("registration: invalid blood type")
	ErrSubmitInFlight   = errors.New("registration: submission already in progress")
	ErrWrongStep        = errors.New("registration: action not available on this step")
)

// ValidationError is a rejected form. Message is the text shown to the user;
// errors.Is matches Err (one of the sentinels above).
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
