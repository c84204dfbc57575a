package errs

import "fmt"

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

type NotFoundError struct {
	ErrorMessage
}

type ValidationError struct {
	ErrorMessage
}

// CrossTenantError is returned when a transaction and a booking belong to
// different tenants. Kept distinct from NotFoundError so callers can tell
// the two apart.
type CrossTenantError struct {
	ErrorMessage
}

type UnsupportedFormatError struct {
	ErrorMessage
	Filename    string
	ContentType string
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewCrossTenantError(message string) *CrossTenantError {
	return &CrossTenantError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewUnsupportedFormatError(filename, contentType string) *UnsupportedFormatError {
	return &UnsupportedFormatError{
		ErrorMessage: ErrorMessage{
			Message: fmt.Sprintf("unsupported statement format (filename=%q, content type=%q)", filename, contentType),
		},
		Filename:    filename,
		ContentType: contentType,
	}
}
