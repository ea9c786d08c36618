package alerts

import (
	"fmt"
	"strings"

	"sedori/internal/services"
)

// NotFoundError reports an operation on an id that is not in the collection.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("alert %d not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return services.ErrNotFound }

// IllegalTransitionError reports a requested state that is not a legal
// successor of the current one.
type IllegalTransitionError struct {
	ID        int64
	Current   State
	Requested State
	Legal     []State
}

func (e *IllegalTransitionError) Error() string {
	legal := "none, state is terminal"
	if len(e.Legal) > 0 {
		names := make([]string, len(e.Legal))
		for i, s := range e.Legal {
			names[i] = string(s)
		}
		legal = strings.Join(names, ", ")
	}
	return fmt.Sprintf("alert %d: cannot move from %s to %s (legal: %s)", e.ID, e.Current, e.Requested, legal)
}

func (e *IllegalTransitionError) Unwrap() error { return services.ErrIllegalTransition }

// PersistenceError reports that the backing store could not be read or
// written. The in-memory collection is unchanged when a save fails.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("alert store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{services.ErrPersistence, e.Err}
}

// BulkFailure attributes an error to one id in a bulk operation.
type BulkFailure struct {
	ID  int64
	Err error
}

// BulkReport is the per-id outcome of a bulk operation.
type BulkReport struct {
	Succeeded []int64
	Failed    []BulkFailure
}

// OK reports whether every id succeeded.
func (r BulkReport) OK() bool { return len(r.Failed) == 0 }
