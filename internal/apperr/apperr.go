// Package apperr defines the error categories shared by every service.
//
// Domain packages declare their own sentinel errors that wrap one of these
// categories, so callers can match either the precise error or its category:
//
//	errors.Is(err, testsession.ErrAlreadyCompleted) // precise
//	errors.Is(err, apperr.ErrConflict)              // category
package apperr

import "errors"

var (
	// ErrNotFound is returned when a test, session, skill, user or event is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an operation collides with existing state.
	ErrConflict = errors.New("conflict")

	// ErrForbidden is returned when a caller acts on a resource it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned for malformed references or definitions.
	ErrInvalidInput = errors.New("invalid input")
)

// Kind returns the category of err, or nil if err matches none of them.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrForbidden, ErrInvalidInput} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
