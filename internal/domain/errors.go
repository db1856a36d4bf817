package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrResultNotFound is returned when no completed result is cached for a quiz.
	ErrResultNotFound = errors.New("quiz result not found")
	// ErrSessionComplete is wrapped by InvalidStateError for operations on a finished session.
	ErrSessionComplete = errors.New("quiz session already complete")
	// ErrAnswerRequired is wrapped by ValidationError when a required question is left empty.
	ErrAnswerRequired = errors.New("please answer to continue")
)

// DefinitionError is a fatal, load-time problem with a quiz definition.
type DefinitionError struct {
	QuizID string
	Field  string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("quiz %q: invalid definition: %s", e.QuizID, e.Reason)
	}
	return fmt.Sprintf("quiz %q: invalid definition at %s: %s", e.QuizID, e.Field, e.Reason)
}

// ValidationError is a recoverable per-interaction input problem.
// Field names the offending question id or request field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidStateError reports an operation attempted against a session in the wrong state.
type InvalidStateError struct {
	Op    string
	State string
	Err   error
}

func (e *InvalidStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid in state %s: %v", e.Op, e.State, e.Err)
	}
	return fmt.Sprintf("%s: invalid in state %s", e.Op, e.State)
}

func (e *InvalidStateError) Unwrap() error { return e.Err }

// DeliveryError reports a failed email or partner callback dispatch.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDefinitionError reports whether err is or wraps a DefinitionError.
func IsDefinitionError(err error) bool {
	var target *DefinitionError
	return errors.As(err, &target)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsInvalidStateError reports whether err is or wraps an InvalidStateError.
func IsInvalidStateError(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}

// IsDeliveryError reports whether err is or wraps a DeliveryError.
func IsDeliveryError(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}
