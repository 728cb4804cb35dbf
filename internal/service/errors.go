package service

import (
	"errors"
	"fmt"

	"github.com/evently/scheduling-engine/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidArgument is returned when a request violates a structural
// precondition (self-dependency, duplicate capacity config, malformed enum).
var ErrInvalidArgument = errors.New("invalid argument")

// ErrCapacityExceeded is returned when a session can accept neither a
// confirmed seat nor a waitlist slot. Distinct from ErrNotFound so callers
// can offer alternatives.
var ErrCapacityExceeded = errors.New("session capacity exceeded")

// ErrAlreadyRegistered is returned when a registrant already holds an active
// registration for the session.
var ErrAlreadyRegistered = errors.New("registrant already registered for this session")

// ValidationFailedError carries the structured list of unmet prerequisites
// that blocked an admission.
type ValidationFailedError struct {
	Unmet []model.UnmetPrerequisite
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("prerequisite validation failed: %d unmet", len(e.Unmet))
}
