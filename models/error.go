package models

import (
	"errors"
	"fmt"
)

var (
	// Another mutation for the same request id is still in flight. The duplicate
	// submission is suppressed, never sent concurrently.
	ErrTransitionInFlight = errors.New("transition already in flight for request")
	// A review is already attached to the request.
	ErrAlreadyRated    = errors.New("request already rated")
	ErrRequestNotFound = errors.New("request not found")
	// The persistence call exceeded its deadline. Distinguishable from a backend
	// rejection so the UI can offer a retry.
	ErrBackendTimeout = errors.New("backend call timed out")
)

// TransitionError reports an operation that is not legal from the request's current
// status. The request is left unmodified.
type TransitionError struct {
	RequestId string
	From      RequestStatus
	Op        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition: cannot %s request %s from status %s", e.Op, e.RequestId, e.From)
}

// BackendRejectedError is a non-success response from the persistence layer. Any
// optimistic local update must be reverted when one of these surfaces.
type BackendRejectedError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *BackendRejectedError) Error() string {
	return fmt.Sprintf("backend rejected %s: status=%d, body=%s", e.Op, e.StatusCode, e.Body)
}
