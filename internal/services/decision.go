package services

import (
	"fmt"

	computeTypes "github.com/celestiaorg/shelver/internal/compute/types"
	"github.com/celestiaorg/shelver/internal/config"
)

// Decision is what to do with an instance given the requested action and its state
type Decision struct {
	// Command is nil when no control call is needed
	Command *computeTypes.ActionCommand
	Message string
	// ReportFromState adds the prior state to the response
	ReportFromState bool
}

// Decide maps an action and the current instance state to at most one control call.
//
//	start: SHELVED, SHELVED_OFFLOADED -> unshelve; ACTIVE -> nothing; else -> os-start
//	stop:  SHELVED, SHELVED_OFFLOADED -> nothing; ACTIVE -> shelve;
//	       SHUTOFF and anything else -> shelve, or rejected under StopPolicyReject
func Decide(action Action, state computeTypes.InstanceState, stopPolicy config.StopPolicy) (Decision, error) {
	switch action {
	case ActionStatus:
		return Decision{}, nil

	case ActionStart:
		switch {
		case state.IsShelved():
			return requested(computeTypes.ActionUnshelve, "unshelve requested"), nil
		case state == computeTypes.StateActive:
			return Decision{Message: "already active"}, nil
		default:
			return requested(computeTypes.ActionStart, "start requested"), nil
		}

	case ActionStop:
		switch {
		case state.IsShelved():
			return Decision{Message: "already shelved"}, nil
		case state == computeTypes.StateActive:
			return requested(computeTypes.ActionShelve, "shelve requested from ACTIVE"), nil
		case stopPolicy == config.StopPolicyReject:
			return Decision{}, &InvalidStateError{Action: action, State: state}
		case state == computeTypes.StateShutoff:
			return requested(computeTypes.ActionShelve, "shelve requested from SHUTOFF"), nil
		default:
			return requested(computeTypes.ActionShelve, "shelve requested"), nil
		}
	}

	return Decision{}, &InvalidActionError{Action: string(action)}
}

func requested(name computeTypes.ActionName, message string) Decision {
	return Decision{
		Command:         &computeTypes.ActionCommand{Name: name},
		Message:         message,
		ReportFromState: true,
	}
}

// String renders the decision for logs
func (d Decision) String() string {
	if d.Command == nil {
		return fmt.Sprintf("no-op (%s)", d.Message)
	}
	return fmt.Sprintf("%s (%s)", d.Command.Name, d.Message)
}
