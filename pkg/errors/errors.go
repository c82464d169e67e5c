package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure. The same code is reported over HTTP, in broker
// dead letters and by the CLI.
type Code string

const (
	CodeNotFound    Code = "NOT_FOUND"
	CodeValidation  Code = "VALIDATION_ERROR"
	CodeInput       Code = "INPUT_ERROR"
	CodeConflict    Code = "CONFLICT"
	CodePersistence Code = "PERSISTENCE_ERROR"
	CodeInternal    Code = "INTERNAL_ERROR"
)

// Permanent codes describe requests that fail the same way however often they
// are replayed.
var permanent = map[Code]bool{
	CodeNotFound:   true,
	CodeValidation: true,
	CodeInput:      true,
}

var (
	ErrNotFound    = NewError(CodeNotFound, "resource not found", http.StatusNotFound)
	ErrValidation  = NewError(CodeValidation, "validation failed", http.StatusBadRequest)
	ErrInput       = NewError(CodeInput, "invalid import input", http.StatusBadRequest)
	ErrConflict    = NewError(CodeConflict, "resource conflict", http.StatusConflict)
	ErrPersistence = NewError(CodePersistence, "failed to persist import data", http.StatusInternalServerError)
	ErrInternal    = NewError(CodeInternal, "internal server error", http.StatusInternalServerError)
)

// FatalError is satisfied by any error that knows whether replaying it is
// pointless. Error implements it, and so do the retry package's wrappers.
type FatalError interface {
	error
	IsFatal() bool
}

// Error is the coded error shared by the importer, the vocabulary service and
// the HTTP layer. Sentinels are never mutated: every With* method returns a copy.
type Error struct {
	Code    Code
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error

	fatal *bool
}

func NewError(code Code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: map[string]interface{}{},
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if detail, ok := e.Details["message"].(string); ok && detail != "" {
		msg = detail
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so errors.Is(err, ErrInput) holds
// for every copy derived from the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// IsFatal prefers an explicit AsFatal/AsRetryable mark, then a fatal-aware
// cause, then the code.
func (e *Error) IsFatal() bool {
	if e.fatal != nil {
		return *e.fatal
	}
	var causeErr FatalError
	if e.Cause != nil && errors.As(e.Cause, &causeErr) {
		return causeErr.IsFatal()
	}
	return permanent[e.Code]
}

func (e *Error) IsRetryable() bool {
	return !e.IsFatal()
}

func (e *Error) clone() *Error {
	c := *e
	c.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		c.Details[k] = v
	}
	return &c
}

func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	c := e.clone()
	c.Details[key] = value
	return c
}

// WithDetails merges details over the existing ones.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	c := e.clone()
	for k, v := range details {
		c.Details[k] = v
	}
	return c
}

func (e *Error) AsRetryable() *Error {
	return e.withFatal(false)
}

func (e *Error) AsFatal() *Error {
	return e.withFatal(true)
}

func (e *Error) withFatal(fatal bool) *Error {
	c := e.clone()
	c.fatal = &fatal
	return c
}

// Wrap attaches err as the cause of appErr. A nil err stays nil.
func Wrap(err error, appErr *Error) error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// HasCode reports whether err's chain contains an *Error with the given code.
func HasCode(err error, code Code) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool   { return HasCode(err, CodeNotFound) }
func IsValidation(err error) bool { return HasCode(err, CodeValidation) }
func IsInput(err error) bool      { return HasCode(err, CodeInput) }
func IsConflict(err error) bool   { return HasCode(err, CodeConflict) }

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the JSON body shared by every handler. The failing import
// phase, when known, is reported under details.phase.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	ErrorCode string                 `json:"error_code"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

func ToErrorResponse(err error) ErrorResponse {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := ErrorResponse{
		Error:     appErr.Message,
		ErrorCode: string(appErr.Code),
	}

	details := make(map[string]interface{}, len(appErr.Details)+1)
	for k, v := range appErr.Details {
		details[k] = v
	}
	if phase, ok := PhaseOf(err); ok {
		details["phase"] = phase
	}
	if len(details) > 0 {
		response.Details = details
	}
	return response
}
