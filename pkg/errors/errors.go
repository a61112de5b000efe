package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation         = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal           = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrServiceUnavailable = NewError("SERVICE_UNAVAILABLE", "service unavailable", http.StatusServiceUnavailable)
	ErrParse              = NewError("PARSE_ERROR", "malformed registry push event", http.StatusBadRequest)
	ErrConfig             = NewError("CONFIG_ERROR", "invalid matcher configuration", http.StatusInternalServerError)
	ErrInvalidRequest     = NewError("INVALID_REQUEST", "request rejected by control plane", http.StatusUnprocessableEntity)
)

// terminalCodes are never worth retrying: the same input fails the same way.
var terminalCodes = map[string]bool{
	ErrValidation.Code:     true,
	ErrNotFound.Code:       true,
	ErrParse.Code:          true,
	ErrConfig.Code:         true,
	ErrInvalidRequest.Code: true,
}

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return !terminalCodes[e.Code]
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return terminalCodes[e.Code]
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}

func IsParse(err error) bool {
	return hasCode(err, ErrParse.Code)
}

func IsConfig(err error) bool {
	return hasCode(err, ErrConfig.Code)
}

func IsInvalidRequest(err error) bool {
	return hasCode(err, ErrInvalidRequest.Code)
}

func IsServiceUnavailable(err error) bool {
	return hasCode(err, ErrServiceUnavailable.Code)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Message,
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
