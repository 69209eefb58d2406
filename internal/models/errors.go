package models

import "fmt"

// ErrorKind classifies a failure recorded against a project or bucket.
type ErrorKind string

const (
	ErrorKindValidation   ErrorKind = "validation"
	ErrorKindAccessDenied ErrorKind = "access_denied"
	ErrorKindNotFound     ErrorKind = "not_found"
	ErrorKindTransient    ErrorKind = "transient"
)

// FetchError is the error value every collaborator call resolves to.
// The pipeline branches on Kind; Message is preserved verbatim in the report.
type FetchError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewFetchError builds a FetchError with a formatted message.
func NewFetchError(kind ErrorKind, format string, args ...interface{}) *FetchError {
	return &FetchError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Label returns the human-readable name of the kind.
func (k ErrorKind) Label() string {
	switch k {
	case ErrorKindValidation:
		return "Validation Error"
	case ErrorKindAccessDenied:
		return "Access Denied"
	case ErrorKindNotFound:
		return "Not Found"
	case ErrorKindTransient:
		return "Error"
	default:
		return string(k)
	}
}
