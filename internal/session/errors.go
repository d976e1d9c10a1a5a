package session

import (
	"fmt"

	"psfd/internal/services"
)

// InvalidTransitionError reports a requested stage change that is not an
// edge of the progression graph. Its message is stable and surfaces
// verbatim through the API.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Invalid state transition: %s → %s", e.From, e.To)
}

// Is lets errors.Is(err, services.ErrConflict) classify the failure
// without disturbing the literal message.
func (e *InvalidTransitionError) Is(target error) bool {
	return target == services.ErrConflict
}
