package errors

import (
	"fmt"
	"sort"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code, so the
// sentinels below work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	ErrDanglingDependency   = &AppError{Code: ErrCodeDanglingDependency}
	ErrDuplicatePackage     = &AppError{Code: ErrCodeDuplicatePackage}
	ErrUnknownPackage       = &AppError{Code: ErrCodeUnknownPackage}
	ErrCycleDetected        = &AppError{Code: ErrCodeCycleDetected}
	ErrInvalidFilterPattern = &AppError{Code: ErrCodeInvalidFilterPattern}
	ErrProcessSpawn         = &AppError{Code: ErrCodeProcessSpawn}
	ErrTimeout              = &AppError{Code: ErrCodeTimeout}
	ErrInvalidInput         = &AppError{Code: ErrCodeInvalidInput}
	ErrValidation           = &AppError{Code: ErrCodeValidation}
	ErrConfig               = &AppError{Code: ErrCodeConfig}
)

// --- Graph errors ---

// DanglingDependency reports a dependency on a package outside the workspace.
func DanglingDependency(pkg, dependency string) *AppError {
	return &AppError{
		Code:    ErrCodeDanglingDependency,
		Message: fmt.Sprintf("package %q depends on %q, which is not in the workspace", pkg, dependency),
		Details: map[string]any{"package": pkg, "dependency": dependency},
	}
}

// DuplicatePackage reports two packages with the same name.
func DuplicatePackage(name string) *AppError {
	return &AppError{
		Code:    ErrCodeDuplicatePackage,
		Message: fmt.Sprintf("package name %q is not unique", name),
		Details: map[string]any{"package": name},
	}
}

// UnknownPackage reports a package name that is not part of the graph.
func UnknownPackage(name string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownPackage,
		Message: fmt.Sprintf("package %q is not in the workspace", name),
		Details: map[string]any{"package": name},
	}
}

// CycleDetected reports packages that take part in, or are blocked by, a
// dependency cycle. The names are stored sorted.
func CycleDetected(packages []string) *AppError {
	names := append([]string(nil), packages...)
	sort.Strings(names)
	return &AppError{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("dependency cycle detected between: %s", strings.Join(names, ", ")),
		Details: map[string]any{"packages": names},
	}
}

// Cycles reports the elementary cycles found in a subset. Each cycle is
// rendered as a path "a -> b -> a".
func Cycles(cycles [][]string) *AppError {
	seen := make(map[string]bool)
	var names []string
	paths := make([]string, 0, len(cycles))
	for _, c := range cycles {
		for _, n := range c {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
		if len(c) > 0 {
			paths = append(paths, strings.Join(append(append([]string(nil), c...), c[0]), " -> "))
		}
	}
	err := CycleDetected(names)
	err.Message = fmt.Sprintf("dependency cycle detected: %s", strings.Join(paths, "; "))
	err.Details["cycles"] = cycles
	return err
}

// Packages returns the package names attached to an error, if any.
func Packages(err error) []string {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Details == nil {
		return nil
	}
	names, _ := appErr.Details["packages"].([]string)
	return names
}

// --- Filter errors ---

// InvalidFilterPattern reports a malformed glob in a filter.
func InvalidFilterPattern(pattern string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidFilterPattern,
		Message: fmt.Sprintf("invalid filter pattern %q", pattern),
		Details: map[string]any{"pattern": pattern},
		Cause:   cause,
	}
}

// --- Execution errors ---

// ProcessSpawn reports that the shell could not be started for a package.
func ProcessSpawn(pkg string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProcessSpawn,
		Message: fmt.Sprintf("failed to start process for %q", pkg),
		Details: map[string]any{"package": pkg},
		Cause:   cause,
	}
}

// Timeout creates a new AppError for an operation that exceeded its deadline.
func Timeout(operation string) *AppError {
	return &AppError{
		Code:    ErrCodeTimeout,
		Message: "operation timed out",
		Details: map[string]any{"operation": operation},
	}
}

// --- Input errors ---

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// Config creates a new AppError for configuration loading errors.
func Config(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeConfig, Message: message, Cause: cause}
}

// --- Internal errors ---

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "an unexpected error occurred",
		Cause:   cause,
	}
}

// ExternalServiceError creates a new AppError for a failing collaborator.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeExternalService,
		Message: fmt.Sprintf("the %s collaborator failed", service),
		Details: map[string]any{"service": service},
		Cause:   cause,
	}
}
