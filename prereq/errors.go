package prereq

import (
	"errors"
	"fmt"
)

// ErrInvalidRequirement marks a structurally invalid requirement: a
// comparison with no bounds, an empty collection name, an unknown wire
// variant, and so on. It is returned from construction and
// deserialization, never from a Check over a well-formed tree.
var ErrInvalidRequirement = errors.New("invalid requirement")

// invalidf wraps ErrInvalidRequirement with context.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequirement, fmt.Sprintf(format, args...))
}

// ProviderError wraps a failure from the underlying fact source during
// evaluation. The engine performs no retries; callers that want retry
// behavior own it.
type ProviderError struct {
	// Op describes the query that failed, e.g. `trait "strength"`.
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("fact provider: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
