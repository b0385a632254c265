package testsession

import (
	"fmt"

	"github.com/abhisek/skillcert/internal/apperr"
)

var (
	ErrTestNotFound     = fmt.Errorf("%w: test", apperr.ErrNotFound)
	ErrSessionNotFound  = fmt.Errorf("%w: session", apperr.ErrNotFound)
	ErrForbidden        = fmt.Errorf("%w: session belongs to another user", apperr.ErrForbidden)
	ErrAlreadyCompleted = fmt.Errorf("%w: test already completed", apperr.ErrConflict)
	ErrInvalidAnswer    = fmt.Errorf("%w: answer does not belong to the test", apperr.ErrInvalidInput)
)
