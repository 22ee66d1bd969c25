package domain

import (
	"errors"
	"fmt"
)

// Error kinds handlers report back to the model as tool results. They are
// explicit variants so callers and tests can branch on the cause instead of
// matching message strings.
var (
	ErrAlreadyOnboarded = errors.New("whatsapp id is already onboarded")
	ErrNotOnboarded     = errors.New("user has not been onboarded yet")
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidQuery     = errors.New("invalid query")
)

// ProviderError reports a failed payment-provider call: any non-2xx status
// or a body that did not decode.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider request failed [%d]: %s", e.Status, e.Body)
}

// IsProviderError reports whether err wraps a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
