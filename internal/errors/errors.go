// internal/errors/errors.go
package appErrors

import (
    "errors"
    "fmt"
    "net/http"
)

// ErrCycleInProgress is returned when a dispatch cycle is requested while one is already running.
var ErrCycleInProgress = errors.New("dispatch cycle already running")

// ValidationError reports malformed or empty input.
type ValidationError struct {
    Field  string
    Reason string
}

func (e *ValidationError) Error() string {
    if e.Field == "" {
        return fmt.Sprintf("validation failed: %s", e.Reason)
    }
    return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
    return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing platform, workflow or post.
type NotFoundError struct {
    Resource string
    ID       int64
}

func (e *NotFoundError) Error() string {
    return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

func NewNotFound(resource string, id int64) error {
    return &NotFoundError{Resource: resource, ID: id}
}

// UpstreamPublishError is a single platform leg that rejected or timed out.
type UpstreamPublishError struct {
    PlatformID int64
    Reason     string
    Err        error
}

func (e *UpstreamPublishError) Error() string {
    return fmt.Sprintf("publish to platform %d failed: %s", e.PlatformID, e.Reason)
}

func (e *UpstreamPublishError) Unwrap() error { return e.Err }

func NewUpstreamPublish(platformID int64, err error) error {
    reason := "unknown error"
    if err != nil {
        reason = err.Error()
    }
    return &UpstreamPublishError{PlatformID: platformID, Reason: reason, Err: err}
}

// StoreUnavailableError means persistence could not be reached; it aborts a whole cycle.
type StoreUnavailableError struct {
    Op  string
    Err error
}

func (e *StoreUnavailableError) Error() string {
    return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func NewStoreUnavailable(op string, err error) error {
    return &StoreUnavailableError{Op: op, Err: err}
}

func IsValidation(err error) bool {
    var target *ValidationError
    return errors.As(err, &target)
}

func IsNotFound(err error) bool {
    var target *NotFoundError
    return errors.As(err, &target)
}

func IsUpstreamPublish(err error) bool {
    var target *UpstreamPublishError
    return errors.As(err, &target)
}

func IsStoreUnavailable(err error) bool {
    var target *StoreUnavailableError
    return errors.As(err, &target)
}

// HTTPStatus maps an error onto the status code the API reports for it.
func HTTPStatus(err error) int {
    switch {
    case err == nil:
        return http.StatusOK
    case errors.Is(err, ErrCycleInProgress):
        return http.StatusConflict
    case IsValidation(err):
        return http.StatusBadRequest
    case IsNotFound(err):
        return http.StatusNotFound
    case IsUpstreamPublish(err):
        return http.StatusBadGateway
    case IsStoreUnavailable(err):
        return http.StatusServiceUnavailable
    default:
        return http.StatusInternalServerError
    }
}
