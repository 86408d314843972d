package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InstanceState is the status string reported by the compute API.
// Only a handful of values are recognised; anything else is passed through as is.
type InstanceState string

// Recognised instance states
const (
	StateActive           InstanceState = "ACTIVE"
	StateShutoff          InstanceState = "SHUTOFF"
	StateShelved          InstanceState = "SHELVED"
	StateShelvedOffloaded InstanceState = "SHELVED_OFFLOADED"
)

// NormalizeState upper-cases a raw status value
func NormalizeState(status string) InstanceState {
	return InstanceState(strings.ToUpper(strings.TrimSpace(status)))
}

// IsShelved reports whether the instance is shelved, offloaded or not
func (s InstanceState) IsShelved() bool {
	return s == StateShelved || s == StateShelvedOffloaded
}

// Server is the part of the compute server representation we read
type Server struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ServerStatusResponse is the body of GET /servers/{id}
type ServerStatusResponse struct {
	Server *Server `json:"server"`
}

// ActionName is the key of a server action body
type ActionName string

// Server actions issued by shelver
const (
	ActionUnshelve ActionName = "unshelve"
	ActionStart    ActionName = "os-start"
	ActionShelve   ActionName = "shelve"
)

// ActionCommand is the body of POST /servers/{id}/action.
// None of the actions we send take parameters, so it always encodes as {"<name>": null}.
type ActionCommand struct {
	Name ActionName
}

// Validate checks the command names a supported action
func (c ActionCommand) Validate() error {
	switch c.Name {
	case ActionUnshelve, ActionStart, ActionShelve:
		return nil
	default:
		return fmt.Errorf("unsupported server action %q", c.Name)
	}
}

// MarshalJSON implements json.Marshaler
func (c ActionCommand) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{string(c.Name): nil})
}

// Session is a freshly issued project scoped token together with the compute
// endpoint it was resolved for. Sessions are never cached between invocations.
type Session struct {
	Token      string
	ComputeURL string
	Region     string
}
