package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeConfigFetch ErrorType = "CONFIG_FETCH"
	ErrTypeMissingEnv  ErrorType = "MISSING_ENV"
	ErrTypeDataFetch   ErrorType = "DATA_FETCH"
	ErrTypeDataParse   ErrorType = "DATA_PARSE"
	ErrTypeRender      ErrorType = "RENDER"
	ErrTypeStorage     ErrorType = "STORAGE"
	ErrTypeAuth        ErrorType = "AUTH"
	ErrTypeDelivery    ErrorType = "DELIVERY"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewConfigFetchError reports an unreachable or unreadable remote config table.
func NewConfigFetchError(source string, cause error) *AppError {
	return NewAppError(ErrTypeConfigFetch, "failed to fetch remote config", cause).
		WithContext("source", source)
}

// NewMissingEnvironmentError lists required settings that were not provided.
func NewMissingEnvironmentError(keys []string) *AppError {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return NewAppError(ErrTypeMissingEnv,
		fmt.Sprintf("missing required environment variables: %s", strings.Join(sorted, ", ")), nil).
		WithContext("keys", sorted)
}

// NewDataFetchError reports a transport failure while reading the class feed.
func NewDataFetchError(location string, cause error) *AppError {
	return NewAppError(ErrTypeDataFetch, "failed to fetch class data", cause).
		WithContext("location", location)
}

// NewDataParseError reports a payload that is not a well-formed table.
func NewDataParseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDataParse, message, cause)
}

// NewRenderError reports a failure building the spreadsheet artifact.
func NewRenderError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRender, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAuthError reports credentials rejected by the mail server.
func NewAuthError(cause error) *AppError {
	return NewAppError(ErrTypeAuth, "mail server rejected credentials", cause)
}

// NewDeliveryError reports any other mail transport or protocol failure.
func NewDeliveryError(stage string, cause error) *AppError {
	return NewAppError(ErrTypeDelivery, fmt.Sprintf("mail delivery failed during %s", stage), cause).
		WithContext("stage", stage)
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
