package fault

import (
	"errors"
	"fmt"
)

// Fault codes for the categories of pipeline failures.
const (
	// Normalization errors
	CodeUnterminatedContinuation = "UNTERMINATED_CONTINUATION"

	// Member resolution errors
	CodeMemberNotFound         = "MEMBER_NOT_FOUND"
	CodeCyclicInclude          = "CYCLIC_INCLUDE"
	CodeRecursionLimitExceeded = "RECURSION_LIMIT_EXCEEDED"

	// Symbol resolution errors
	CodeSymbolExpansionDivergence = "SYMBOL_EXPANSION_DIVERGENCE"

	// Statement classification errors (recoverable, per statement)
	CodeParseError = "PARSE_ERROR"

	// Collaborator errors
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeStoreFailure  = "STORE_FAILURE"
)

// Fault is a structured error with a stable code and optional context.
type Fault struct {
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", f.Code, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Unwrap allows error unwrapping.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// New creates a Fault with the given code and formatted message.
func New(code, format string, args ...interface{}) *Fault {
	return &Fault{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Context: make(map[string]interface{}),
	}
}

// Wrap creates a Fault wrapping an underlying cause.
func Wrap(code string, cause error, format string, args ...interface{}) *Fault {
	return &Fault{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext attaches a context value and returns the fault for chaining.
func (f *Fault) WithContext(key string, value interface{}) *Fault {
	f.Context[key] = value
	return f
}

// GetContext returns a context value by key.
func (f *Fault) GetContext(key string) (interface{}, bool) {
	v, ok := f.Context[key]
	return v, ok
}

// HasCode reports whether err is (or wraps) a Fault with the given code.
func HasCode(err error, code string) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code == code
	}
	return false
}
