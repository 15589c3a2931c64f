package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidFormat      = errors.New("invalid token format")

	// Authorization errors
	ErrPermissionDenied = errors.New("permission denied")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrBadRequest       = errors.New("bad request")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Catalog errors. Every not-found error wraps ErrResourceNotFound so callers can
// match either the specific or the generic sentinel.
var (
	ErrInstitutionNotFound  = NewCustomError(ErrResourceNotFound, "institution not found").WithCode("INSTITUTION_NOT_FOUND")
	ErrCurriculumNotFound   = NewCustomError(ErrResourceNotFound, "curriculum not found").WithCode("CURRICULUM_NOT_FOUND")
	ErrSourceCourseNotFound = NewCustomError(ErrResourceNotFound, "source course not found").WithCode("SOURCE_COURSE_NOT_FOUND")
	ErrTargetCourseNotFound = NewCustomError(ErrResourceNotFound, "target course not found").WithCode("TARGET_COURSE_NOT_FOUND")
	ErrCourseCodeExists     = NewCustomError(ErrConflict, "course code already exists").WithCode("COURSE_CODE_EXISTS")
	ErrCatalogHasRelations  = NewCustomError(ErrConflict, "record is referenced by transfer requests and cannot be deleted").WithCode("CATALOG_IN_USE")
)

// Transfer errors
var (
	ErrRequestNotFound     = NewCustomError(ErrResourceNotFound, "transfer request not found").WithCode("REQUEST_NOT_FOUND")
	ErrRequestItemNotFound = NewCustomError(ErrResourceNotFound, "request item not found").WithCode("REQUEST_ITEM_NOT_FOUND")
)

// Matching errors
var (
	// ErrNoCandidates signals a target curriculum without courses. It is a
	// defined outcome of matching, not a failure of the request.
	ErrNoCandidates = errors.New("no candidate target courses")
	// ErrEmbeddingUnavailable covers model load, inference and timeout failures.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// NewConflictError creates a new custom error for conflict situations with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewForbiddenError creates a new custom error for permission denied with a message
func NewForbiddenError(message string) error {
	return &CustomError{
		Err:     ErrPermissionDenied,
		Message: message,
	}
}

// NewValidationError creates a new custom error for invalid input with a message
func NewValidationError(message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
	}
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
