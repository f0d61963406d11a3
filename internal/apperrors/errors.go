package apperrors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeNotFound         ErrCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited      ErrCode = "RATE_LIMITED"
	ErrCodeInternal         ErrCode = "INTERNAL_ERROR"
	ErrCodeBadRequest       ErrCode = "BAD_REQUEST"
	ErrCodeForbidden        ErrCode = "FORBIDDEN"
	ErrCodeBudgetInfeasible ErrCode = "BUDGET_INFEASIBLE"
	ErrCodeCollectionFailed ErrCode = "COLLECTION_FAILED"
	ErrCodeTransport        ErrCode = "TRANSPORT_ERROR"
)

// AppError represents an application error. Repository, Resource and
// Options are filled on collection-path errors so a caller can retry a
// narrower collection without re-parsing the message
type AppError struct {
	Code       ErrCode
	Message    string
	Repository string
	Resource   string
	Options    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithOptions records a summary of the collection options that were active
// when the error occurred
func (e *AppError) WithOptions(summary string) *AppError {
	e.Options = summary
	return e
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeRateLimited,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: message,
	}
}

// NewBudgetInfeasibleError reports that a collection would cost more calls
// than the remaining rate budget allows
func NewBudgetInfeasibleError(estimated, remaining int) *AppError {
	return &AppError{
		Code:    ErrCodeBudgetInfeasible,
		Message: fmt.Sprintf("estimated %d calls exceeds remaining budget of %d", estimated, remaining),
	}
}

// NewCollectionFailedError reports that one resource fetch failed for one
// repository
func NewCollectionFailedError(repository, resource string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeCollectionFailed,
		Message:    fmt.Sprintf("failed to collect %s for %s", resource, repository),
		Repository: repository,
		Resource:   resource,
		Err:        err,
	}
}

// NewAllRepositoriesFailedError reports that no repository in the project
// yielded any data
func NewAllRepositoriesFailedError(projectID string) *AppError {
	return &AppError{
		Code:    ErrCodeCollectionFailed,
		Message: fmt.Sprintf("no repository in project %s yielded any data", projectID),
	}
}

// NewTransportError wraps a network-level failure with the repository and
// resource that triggered it
func NewTransportError(repository, resource string, err error) *AppError {
	return &AppError{
		Code:       ErrCodeTransport,
		Message:    fmt.Sprintf("transport failure fetching %s for %s", resource, repository),
		Repository: repository,
		Resource:   resource,
		Err:        err,
	}
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// IsBudgetInfeasible checks if the error is a budget infeasibility error
func IsBudgetInfeasible(err error) bool {
	return hasCode(err, ErrCodeBudgetInfeasible)
}

// IsCollectionFailed checks if the error is a collection failure
func IsCollectionFailed(err error) bool {
	return hasCode(err, ErrCodeCollectionFailed)
}

// IsTransport checks if the error is a transport failure
func IsTransport(err error) bool {
	return hasCode(err, ErrCodeTransport)
}

func hasCode(err error, code ErrCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
