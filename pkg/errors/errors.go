package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType classifies a DomainError
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeNoResult   ErrorType = "no_result"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeProtocol   ErrorType = "protocol"
	ErrorTypeCancelled  ErrorType = "cancelled"
	ErrorTypeInternal   ErrorType = "internal"
)

// DomainError is the error type returned by all hsu-siat packages
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// NewDomainError creates a new domain error of the given type
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

func (e *DomainError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Type))
	sb.WriteString(": ")
	sb.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Context[k])
		}
		sb.WriteString("]")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair for diagnostics and returns the same error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

// NewConfigError reports an unknown environment, modality or a bad configuration value
func NewConfigError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeConfig, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

// NewNoResultError reports a call that completed but produced nothing usable
func NewNoResultError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNoResult, message, cause)
}

// NewTimeoutError reports a call that did not finish within its budget
func NewTimeoutError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeTimeout, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewNetworkError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNetwork, message, cause)
}

func NewProtocolError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeProtocol, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

// IsErrorType reports whether any error in err's chain is a DomainError of the given type
func IsErrorType(err error, errorType ErrorType) bool {
	for err != nil {
		var domainErr *DomainError
		if !errors.As(err, &domainErr) {
			return false
		}
		if domainErr.Type == errorType {
			return true
		}
		err = domainErr.Cause
	}
	return false
}

func IsValidationError(err error) bool { return IsErrorType(err, ErrorTypeValidation) }
func IsConfigError(err error) bool     { return IsErrorType(err, ErrorTypeConfig) }
func IsNotFoundError(err error) bool   { return IsErrorType(err, ErrorTypeNotFound) }
func IsNoResultError(err error) bool   { return IsErrorType(err, ErrorTypeNoResult) }
func IsTimeoutError(err error) bool    { return IsErrorType(err, ErrorTypeTimeout) }
func IsIOError(err error) bool         { return IsErrorType(err, ErrorTypeIO) }
func IsNetworkError(err error) bool    { return IsErrorType(err, ErrorTypeNetwork) }
func IsProtocolError(err error) bool   { return IsErrorType(err, ErrorTypeProtocol) }
func IsCancelledError(err error) bool  { return IsErrorType(err, ErrorTypeCancelled) }
func IsInternalError(err error) bool   { return IsErrorType(err, ErrorTypeInternal) }

// Is is re-exported so callers need a single errors import
func Is(err, target error) bool { return errors.Is(err, target) }

func New(message string) error {
	return errors.New(message)
}
