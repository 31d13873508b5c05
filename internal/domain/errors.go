package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthenticationMissing is returned when no usable bearer token exists.
	ErrAuthenticationMissing = errors.New("not signed in")
	// ErrNetworkFailure is returned when a remote call did not succeed.
	ErrNetworkFailure = errors.New("network failure")
	// ErrInvalidState is returned when an operation is not valid in the current state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrInvalidOption indicates a selection outside the current question's options.
	ErrInvalidOption = fmt.Errorf("%w: option out of range", ErrInvalidState)
	// ErrSelectionRequired indicates an advance without a selection.
	ErrSelectionRequired = fmt.Errorf("%w: select an option first", ErrInvalidState)
	// ErrSessionClosed indicates the session was torn down.
	ErrSessionClosed = fmt.Errorf("%w: session closed", ErrInvalidState)
	// ErrMalformedQuiz indicates the fetched quiz does not carry the A-D options.
	ErrMalformedQuiz = fmt.Errorf("%w: malformed quiz", ErrNetworkFailure)

	// ErrQuizNotFound indicates no question bank exists for the requested day.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound indicates an unknown or foreign attempt id.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAlreadySubmitted indicates the attempt was graded before.
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

// StatusError is a non-2xx response from the remote quiz service.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrNetworkFailure
}

// Is lets 401 and 403 responses match ErrAuthenticationMissing.
func (e *StatusError) Is(target error) bool {
	if target == ErrAuthenticationMissing {
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}
