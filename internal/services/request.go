package services

import (
	"strings"
)

// Action is a power action requested by a caller
type Action string

// Supported actions
const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionStatus Action = "status"
)

// AllowedActions lists the supported actions in the order they are reported to callers
func AllowedActions() []string {
	return []string{string(ActionStart), string(ActionStop), string(ActionStatus)}
}

// ParseAction normalises a raw action parameter. An empty value means status.
func ParseAction(raw string) (Action, error) {
	action := Action(strings.ToLower(strings.TrimSpace(raw)))
	switch action {
	case "":
		return ActionStatus, nil
	case ActionStart, ActionStop, ActionStatus:
		return action, nil
	default:
		return "", &InvalidActionError{Action: raw}
	}
}

// ActionRequest is one validated power request against one instance
type ActionRequest struct {
	Action     Action
	Region     string
	InstanceID string
}

// Validate reports the target fields that could not be resolved
func (r ActionRequest) Validate() error {
	var missing []string
	if r.Region == "" {
		missing = append(missing, "region")
	}
	if r.InstanceID == "" {
		missing = append(missing, "instance_id")
	}
	if len(missing) > 0 {
		return &MissingParametersError{Missing: missing}
	}
	return nil
}
