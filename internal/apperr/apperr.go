// Package apperr defines the error taxonomy shared by the generation pipeline
// and the HTTP boundary.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"google.golang.org/genai"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation    Code = "VALIDATION"
	CodeInvalidPhase  Code = "INVALID_PHASE"
	CodeNotFound      Code = "NOT_FOUND"
	CodeExtraction    Code = "EXTRACTION"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeTransient     Code = "TRANSIENT"
	CodeTimeout       Code = "TIMEOUT"
	CodePartialBatch  Code = "PARTIAL_BATCH"
	CodeEmptyResponse Code = "EMPTY_RESPONSE"
	CodeGeneration    Code = "GENERATION"
)

// Error is the domain error type. Two errors match under errors.Is when their
// codes are equal.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation    = &Error{Code: CodeValidation}
	ErrInvalidPhase  = &Error{Code: CodeInvalidPhase}
	ErrNotFound      = &Error{Code: CodeNotFound}
	ErrExtraction    = &Error{Code: CodeExtraction}
	ErrRateLimited   = &Error{Code: CodeRateLimited}
	ErrTransient     = &Error{Code: CodeTransient}
	ErrTimeout       = &Error{Code: CodeTimeout}
	ErrPartialBatch  = &Error{Code: CodePartialBatch}
	ErrEmptyResponse = &Error{Code: CodeEmptyResponse}
	ErrGeneration    = &Error{Code: CodeGeneration}
)

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Validation is shorthand for a client-input error.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// HTTPError is returned by REST clients for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// Category groups errors by how callers should retry them.
type Category int

const (
	CategoryOther Category = iota
	CategoryRateLimit
	CategoryTransient
	CategoryEmptyResponse
)

func (c Category) String() string {
	switch c {
	case CategoryRateLimit:
		return "rate_limit"
	case CategoryTransient:
		return "transient"
	case CategoryEmptyResponse:
		return "empty_response"
	default:
		return "other"
	}
}

var (
	rateLimitPattern = regexp.MustCompile(`(?i)\b429\b|resource_exhausted|quota|rate[ _-]?limit`)
	transientPattern = regexp.MustCompile(`\b(500|502|503|504)\b|(?i)\bunavailable\b|internal server error`)
)

// Classify inspects the error chain and message to decide its retry category.
func Classify(err error) Category {
	if err == nil {
		return CategoryOther
	}

	var domainErr *Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case CodeRateLimited:
			return CategoryRateLimit
		case CodeTransient:
			return CategoryTransient
		case CodeEmptyResponse:
			return CategoryEmptyResponse
		case CodeValidation, CodeInvalidPhase, CodeNotFound:
			return CategoryOther
		}
	}

	if code, status, ok := apiErrorCode(err); ok {
		if status == "RESOURCE_EXHAUSTED" {
			return CategoryRateLimit
		}
		if c := classifyStatus(code); c != CategoryOther {
			return c
		}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if c := classifyStatus(httpErr.StatusCode); c != CategoryOther {
			return c
		}
	}

	msg := err.Error()
	if rateLimitPattern.MatchString(msg) {
		return CategoryRateLimit
	}
	if transientPattern.MatchString(msg) {
		return CategoryTransient
	}
	return CategoryOther
}

// IsRateLimit reports whether err is a rate-limit class error.
func IsRateLimit(err error) bool {
	return Classify(err) == CategoryRateLimit
}

// CodeFor picks the code for a terminal failure caused by err, using fallback
// when the cause is not a rate-limit, transient or empty-response error.
func CodeFor(err error, fallback Code) Code {
	switch Classify(err) {
	case CategoryRateLimit:
		return CodeRateLimited
	case CategoryTransient:
		return CodeTransient
	case CategoryEmptyResponse:
		return CodeEmptyResponse
	default:
		return fallback
	}
}

func classifyStatus(code int) Category {
	switch {
	case code == http.StatusTooManyRequests:
		return CategoryRateLimit
	case code == http.StatusInternalServerError,
		code == http.StatusBadGateway,
		code == http.StatusServiceUnavailable,
		code == http.StatusGatewayTimeout:
		return CategoryTransient
	default:
		return CategoryOther
	}
}

func apiErrorCode(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Status, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Status, true
	}
	return 0, "", false
}

// HTTPStatus maps an error onto the status code returned at the HTTP boundary.
func HTTPStatus(err error) int {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case CodeValidation, CodeInvalidPhase:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeRateLimited:
			return http.StatusTooManyRequests
		case CodeTimeout:
			return http.StatusGatewayTimeout
		case CodeExtraction, CodeGeneration, CodeEmptyResponse, CodeTransient:
			if IsRateLimit(err) {
				return http.StatusTooManyRequests
			}
			return http.StatusBadGateway
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	if IsRateLimit(err) {
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
