package similarity

import (
	"fmt"

	"sedori/internal/services"
)

// ImageDecodeError reports an unreadable or corrupt image. It is scoped to a
// single comparison and never aborts a batch.
type ImageDecodeError struct {
	Role string // "source" or "candidate"
	Ref  string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode %s image %s: %v", e.Role, e.Ref, e.Err)
}

func (e *ImageDecodeError) Unwrap() []error {
	return []error{services.ErrImageDecode, e.Err}
}

// InvalidInputError reports malformed numeric input or configuration. Price
// and weight checks run before any image is decoded; weights that leave no
// computable metric for a pair are reported after scoring.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return services.ErrInvalidInput
}

func invalidInput(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
