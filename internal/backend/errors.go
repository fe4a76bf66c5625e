package backend

import (
	"errors"
	"fmt"

	"github.com/liliang-cn/policychat/internal/domain"
)

// LogicalError is a failure the backend reported in an `error` field
type LogicalError struct {
	Status  int
	Message string
}

func (e *LogicalError) Error() string {
	return e.Message
}

// TransportError covers network failures, non-2xx statuses and unparseable bodies
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend transport error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("backend transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage maps a backend failure to the text shown to the user.
// Logical errors pass through verbatim; everything else gets the generic message.
func UserMessage(err error) string {
	var logical *LogicalError
	if errors.As(err, &logical) && logical.Message != "" {
		return logical.Message
	}
	return domain.GenericFailureMessage
}
