package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Graph errors
const (
	// ErrCodeDanglingDependency indicates a dependency edge to a package that is not in the workspace.
	ErrCodeDanglingDependency ErrorCode = "DANGLING_DEPENDENCY"
	// ErrCodeDuplicatePackage indicates two packages share a name.
	ErrCodeDuplicatePackage ErrorCode = "DUPLICATE_PACKAGE"
	// ErrCodeUnknownPackage indicates a lookup of a package that is not in the graph.
	ErrCodeUnknownPackage ErrorCode = "UNKNOWN_PACKAGE"
	// ErrCodeCycleDetected indicates the dependency graph contains a cycle.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
)

// Filter errors
const (
	// ErrCodeInvalidFilterPattern indicates a malformed scope or ignore glob.
	ErrCodeInvalidFilterPattern ErrorCode = "INVALID_FILTER_PATTERN"
)

// Execution errors
const (
	// ErrCodeProcessSpawn indicates the OS failed to launch the shell.
	ErrCodeProcessSpawn ErrorCode = "PROCESS_SPAWN_FAILED"
	// ErrCodeTimeout indicates an operation exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Input errors
const (
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeConfig       ErrorCode = "CONFIG_ERROR"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates a collaborator (git, a dashboard) failed.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// planTimeCodes are the codes that abort a run before any task executes.
var planTimeCodes = map[ErrorCode]bool{
	ErrCodeDanglingDependency:   true,
	ErrCodeDuplicatePackage:     true,
	ErrCodeUnknownPackage:       true,
	ErrCodeCycleDetected:        true,
	ErrCodeInvalidFilterPattern: true,
	ErrCodeInvalidInput:         true,
	ErrCodeValidation:           true,
	ErrCodeConfig:               true,
}

// IsPlanTimeCode returns true if the code describes a structural error that is
// reported before execution starts.
func IsPlanTimeCode(code ErrorCode) bool {
	return planTimeCodes[code]
}
