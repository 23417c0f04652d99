package core

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// GenericErrorMessage is shown to users when an error carries nothing more useful.
const GenericErrorMessage = "Something went wrong. Please try again."

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// APIError is a non-2xx response of the remote API.
type APIError struct {
	Status int
	Detail string              // server-provided `detail`
	Fields map[string][]string // DRF style field errors
	Body   string
}

func (err *APIError) Error() string {
	if err.Detail != "" {
		return fmt.Sprintf("api: %d: %s", err.Status, err.Detail)
	}
	if msg := err.fieldsMessage(); msg != "" {
		return fmt.Sprintf("api: %d: %s", err.Status, msg)
	}
	return fmt.Sprintf("api: %d %s", err.Status, http.StatusText(err.Status))
}

func (err *APIError) fieldsMessage() string {
	if len(err.Fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(err.Fields))
	for _, fld := range sortedKeys(err.Fields) {
		parts = append(parts, fld+": "+strings.Join(err.Fields[fld], " "))
	}
	return strings.Join(parts, "; ")
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// ErrorMessage extracts the message to show to a user for err:
// validation message, else the server `detail`, else server field errors, else a generic fallback.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	switch origErr := errors.Cause(err).(type) {
	case *ValidationError:
		if msg := origErr.Error(); msg != "" {
			return msg
		}
	case *APIError:
		if origErr.Detail != "" {
			return origErr.Detail
		}
		if msg := origErr.fieldsMessage(); msg != "" {
			return msg
		}
	}
	return GenericErrorMessage
}

type ArgumentError struct {
	msg string
}

func NewArgumentError(msg string) *ArgumentError {
	return &ArgumentError{msg}
}

func (err *ArgumentError) Error() string {
	return err.msg
}
