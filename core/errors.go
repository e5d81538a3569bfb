package core

import (
	"errors"
	"fmt"
)

// ErrMissingUserContext reports a turn invoked without a user id.
var ErrMissingUserContext = errors.New("missing user id in invocation context")

// ErrMissingToolCallID reports a reconciliation node entered while the last
// assistant message carries no tool call. Nodes are only reachable through
// the controller's routing transition, so hitting this is a programming
// error, not a model error.
var ErrMissingToolCallID = errors.New("last assistant message carries no tool call")

// InvalidRoutingDecisionError reports a routing tool call whose update_type
// value is outside the known enum. It is never silently defaulted.
type InvalidRoutingDecisionError struct {
	Value string
}

func (e *InvalidRoutingDecisionError) Error() string {
	return fmt.Sprintf("invalid routing decision %q (want user, todo, or instructions)", e.Value)
}

// ExtractionError wraps a failure raised by the extraction engine. It is
// propagated, not retried here; retry policy belongs to the model client.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return "extraction: " + e.Err.Error() }
func (e *ExtractionError) Unwrap() error { return e.Err }

// StoreError wraps a persistence failure. Writes already issued before the
// failure stay committed; there is no cross-record rollback.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store " + e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }
