package allocator

import (
	"errors"
	"fmt"

	"github.com/viant/carealloc/service/dao"
)

var (
	// ErrAllocationNotFound is returned when releasing an unknown allocation.
	ErrAllocationNotFound = fmt.Errorf("allocation %w", dao.ErrNotFound)

	// ErrAlreadyReleased is returned when releasing a closed allocation.
	ErrAlreadyReleased = errors.New("allocation already released")
)

// ValidationError reports malformed caller input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation returns true when err carries a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// compensate runs undo steps after cause, failed steps are joined to cause.
func compensate(cause error, steps ...func() error) error {
	errs := []error{cause}
	for _, step := range steps {
		if err := step(); err != nil {
			errs = append(errs, fmt.Errorf("failed to compensate: %w", err))
		}
	}
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}
