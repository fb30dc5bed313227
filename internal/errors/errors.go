package errors

import (
	"errors"
	"fmt"
)

// Input and parsing errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON     = errors.New("invalid JSON format")
	ErrMultipleJSON    = errors.New("multiple JSON values found at the root, only one is allowed")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrScalarRoot      = errors.New("document root must be an object or an array")
)

// Tree errors. Apply treats all of these as no-ops; ApplyChecked reports them.
var (
	ErrUnknownPath   = errors.New("no node has this path")
	ErrNotContainer  = errors.New("node has no children")
	ErrNotScalar     = errors.New("node is not a scalar")
	ErrKindMismatch  = errors.New("value kind does not match node kind")
	ErrInvalidScalar = errors.New("text is not a valid value for this kind")
)

// Project errors
var (
	ErrNameRequired          = errors.New("name is required")
	ErrEmptyDocument         = errors.New("configuration has no document")
	ErrProjectNotFound       = errors.New("project not found")
	ErrConfigurationNotFound = errors.New("configuration not found")
	ErrLastProject           = errors.New("cannot delete the last project")
	ErrNoConfigurations      = errors.New("project has no configurations")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput   ErrorType = "input"
	ErrorTypeParsing ErrorType = "parsing"
	ErrorTypeTree    ErrorType = "tree"
	ErrorTypeProject ErrorType = "project"
	ErrorTypeStorage ErrorType = "storage"
	ErrorTypeOutput  ErrorType = "output"
	ErrorTypeUnknown ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInput,
		Message: message,
		Err:     err,
	}
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParsing,
		Message: message,
		Err:     err,
	}
}

// NewTreeError creates a new error related to a tree operation
func NewTreeError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTree,
		Message: message,
		Err:     err,
	}
}

// NewProjectError creates a new error related to projects and configurations
func NewProjectError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeProject,
		Message: message,
		Err:     err,
	}
}

// NewStorageError creates a new error related to persistence
func NewStorageError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStorage,
		Message: message,
		Err:     err,
	}
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeOutput,
		Message: message,
		Err:     err,
	}
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", appErr.Message)
		case ErrorTypeTree:
			return fmt.Sprintf("Tree error: %s", detail(appErr))
		case ErrorTypeProject:
			return fmt.Sprintf("Project error: %s", detail(appErr))
		case ErrorTypeStorage:
			return fmt.Sprintf("Storage error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	// Handle standard errors
	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrInvalidJSON) {
		return "Error: The input contains invalid JSON. Please check your JSON syntax."
	}
	if errors.Is(err, ErrMultipleJSON) {
		return "Error: Multiple JSON values found. Please provide a single JSON object or array."
	}
	if errors.Is(err, ErrScalarRoot) {
		return "Error: The document must be a JSON object or array, not a bare value."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty. Please provide a file with valid JSON content."
	}
	if errors.Is(err, ErrInvalidFilePath) {
		return "Error: Invalid file path. Please provide a valid file path."
	}

	return fmt.Sprintf("Error: %v", err)
}

// detail appends the sentinel reason for tree and project errors, since
// their message alone rarely says what went wrong.
func detail(e *AppError) string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s (%v)", e.Message, e.Err)
}
