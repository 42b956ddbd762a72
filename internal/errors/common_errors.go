package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeMalformedInput       ErrorType = "MALFORMED_INPUT"
	ErrTypeDegenerateArithmetic ErrorType = "DEGENERATE_ARITHMETIC"
	ErrTypeDegenerateClustering ErrorType = "DEGENERATE_CLUSTERING"
	ErrTypeIO                   ErrorType = "IO"
	ErrTypeConfig               ErrorType = "CONFIG"
)

// Kind sentinels. errors.Is(err, ErrConfig) holds for any CONFIG AppError
// in err's chain.
var (
	ErrMalformedInput       = &AppError{Type: ErrTypeMalformedInput}
	ErrDegenerateArithmetic = &AppError{Type: ErrTypeDegenerateArithmetic}
	ErrDegenerateClustering = &AppError{Type: ErrTypeDegenerateClustering}
	ErrIO                   = &AppError{Type: ErrTypeIO}
	ErrConfig               = &AppError{Type: ErrTypeConfig}
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

// Is matches a kind sentinel of the same type
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Message != "" || t.Cause != nil {
		return false
	}
	return t.Type == e.Type
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

// TypeOf returns the ErrorType of the first AppError in err's chain, or ""
// when the chain holds none.
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

// Violation describes one invalid field of one input record.
type Violation struct {
	Row      int    `json:"row"`
	MasterID string `json:"master_id,omitempty"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

func (v Violation) String() string {
	if v.MasterID != "" {
		return fmt.Sprintf("row %d (%s): %s: %s", v.Row, v.MasterID, v.Field, v.Reason)
	}
	return fmt.Sprintf("row %d: %s: %s", v.Row, v.Field, v.Reason)
}

// Violations is the full list of input problems found in one pass.
type Violations []Violation

// maxListedViolations caps how many violations Error() spells out.
const maxListedViolations = 5

// Error implements the error interface
func (vs Violations) Error() string {
	if len(vs) == 0 {
		return "no violations"
	}
	parts := make([]string, 0, maxListedViolations)
	for i, v := range vs {
		if i == maxListedViolations {
			parts = append(parts, fmt.Sprintf("and %d more", len(vs)-maxListedViolations))
			break
		}
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}

// Rows returns the number of distinct rows with at least one violation.
func (vs Violations) Rows() int {
	seen := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		seen[v.Row] = struct{}{}
	}
	return len(seen)
}

// Helper functions for common error types

// NewMalformedInputError creates an input validation error listing every violation
func NewMalformedInputError(violations Violations) *AppError {
	msg := fmt.Sprintf("%d invalid field(s) in %d record(s)", len(violations), violations.Rows())
	return NewAppError(ErrTypeMalformedInput, msg, violations).
		WithContext("violations", []Violation(violations))
}

// NewInputError creates a malformed input error that is not tied to one field
func NewInputError(message string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedInput, message, cause)
}

// NewDegenerateArithmeticError creates an error for undefined ratios
func NewDegenerateArithmeticError(message string, cause error) *AppError {
	return NewAppError(ErrTypeDegenerateArithmetic, message, cause)
}

// NewDegenerateClusteringError creates an error for clustering requests the data cannot satisfy
func NewDegenerateClusteringError(message string) *AppError {
	return NewAppError(ErrTypeDegenerateClustering, message, nil)
}

// NewIOError creates a file system error
func NewIOError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIO, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
