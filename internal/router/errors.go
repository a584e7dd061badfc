package router

import (
	"errors"
	"fmt"

	"github.com/af-corp/aireader-gateway/internal/types"
)

var (
	// ErrNoCredentialsConfigured is returned before any attempt when the
	// credential list is empty.
	ErrNoCredentialsConfigured = errors.New("no API credentials configured")
	// ErrNoModelsConfigured is returned before any attempt when the resolved
	// model stack is empty.
	ErrNoModelsConfigured = errors.New("no models configured")
	// ErrAllAttemptsExhausted matches every *ExhaustedError.
	ErrAllAttemptsExhausted = errors.New("all attempts exhausted")
)

// AttemptError describes one failed attempt. Credential is the credential's
// index in the list at the time of the call.
type AttemptError struct {
	Outcome    OutcomeKind
	Model      string
	Credential int
	Status     int
	Message    string
}

func (e *AttemptError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Model, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d (%s)", e.Model, e.Status, e.Outcome)
	case e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Model, e.Outcome, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Model, e.Outcome)
	}
}

// ExhaustedError is the final failure after every credential and model
// combination was tried. Last is the most recent attempt failure.
type ExhaustedError struct {
	Kind     types.Kind
	Attempts int
	Last     *AttemptError
}

func (e *ExhaustedError) Error() string {
	last := "none"
	if e.Last != nil {
		last = e.Last.Error()
	}
	return fmt.Sprintf("AI %s generation failed after %d attempts. Last error: %s", e.Kind, e.Attempts, last)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrAllAttemptsExhausted
}

func (e *ExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}
