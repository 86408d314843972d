package services

import (
	"fmt"
	"strings"

	computeTypes "github.com/celestiaorg/shelver/internal/compute/types"
)

// InvalidActionError is returned for an action outside start, stop and status
type InvalidActionError struct {
	Action string
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("invalid action %q, allowed: %s", e.Action, strings.Join(AllowedActions(), ", "))
}

// MissingParametersError is returned when the region or the instance id cannot be resolved
type MissingParametersError struct {
	Missing []string
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("missing parameters: %s", strings.Join(e.Missing, ", "))
}

// InvalidStateError is returned when the stop policy refuses the current state
type InvalidStateError struct {
	Action Action
	State  computeTypes.InstanceState
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s an instance in state %s", e.Action, e.State)
}
