// SPDX-License-Identifier: MPL-2.0

// Package health implements liveness monitoring for the application's
// health endpoint, with the same semantics as a container HEALTHCHECK:
// a startup grace period, periodic probes, and a consecutive-failure
// threshold before a runtime is declared unhealthy.
package health

import (
	"errors"
	"fmt"
)

const (
	// StateStarting is the initial state. Probe failures during the grace
	// period do not count against the failure threshold.
	StateStarting State = iota

	// StateHealthy means the most recent probe succeeded.
	StateHealthy

	// StateUnhealthy means the failure threshold was reached.
	StateUnhealthy

	// StateTerminated means monitoring has stopped. Terminal.
	StateTerminated
)

// ErrInvalidState is the sentinel error wrapped by InvalidStateError.
var ErrInvalidState = errors.New("invalid health state")

type (
	// State is the lifecycle state of a monitored runtime.
	State int32

	// InvalidStateError is returned when a State value is not one of the
	// defined states. It wraps ErrInvalidState for errors.Is() compatibility.
	InvalidStateError struct {
		Value State
	}
)

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateHealthy:
		return "healthy"
	case StateUnhealthy:
		return "unhealthy"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Validate returns an error if the State is not one of the defined states.
func (s State) Validate() error {
	switch s {
	case StateStarting, StateHealthy, StateUnhealthy, StateTerminated:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// Error implements the error interface for InvalidStateError.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid health state %d", int32(e.Value))
}

// Unwrap returns ErrInvalidState for errors.Is() compatibility.
func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }
