// Package types holds the JSON bodies returned by the power endpoint
package types

// ErrorKind is the machine-readable "error" field of an error response.
// Clients switch on it to understand the type of failure.
type ErrorKind string

// nolint:gochecknoglobals
const (
	InvalidActionKind      ErrorKind = "invalid_action"
	MissingParametersKind  ErrorKind = "missing_parameters"
	InvalidStateKind       ErrorKind = "invalid_state"
	UnauthorizedKind       ErrorKind = "unauthorized"
	InstanceNotFoundKind   ErrorKind = "instance_not_found"
	ConfigurationErrorKind ErrorKind = "configuration_error"
	InternalErrorKind      ErrorKind = "internal_error"

	// NotFoundKind is answered for paths outside the API
	NotFoundKind ErrorKind = "not_found"
)

// PowerResponse is returned for every successful request.
// Example: {"instance_id":"8a7d...","message":"unshelve requested","from_state":"SHELVED_OFFLOADED"}
type PowerResponse struct {
	InstanceID string `json:"instance_id"`

	// State is only set for status requests
	State string `json:"state,omitempty"`

	// Message describes what was done for start and stop
	Message string `json:"message,omitempty"`

	// FromState is the state the instance was in when a control command was sent
	FromState string `json:"from_state,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error          ErrorKind `json:"error"`
	Message        string    `json:"message,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	Allowed        []string  `json:"allowed,omitempty"`
	Missing        []string  `json:"missing,omitempty"`
	InstanceID     string    `json:"instance_id,omitempty"`
	State          string    `json:"state,omitempty"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
}

// ErrInvalidAction returns the response for an action outside the allowed set
func ErrInvalidAction(action string, allowed []string) ErrorResponse {
	return ErrorResponse{
		Error:   InvalidActionKind,
		Message: "unsupported action " + action,
		Allowed: allowed,
	}
}

// ErrMissingParameters returns the response for an unresolvable target
func ErrMissingParameters(missing []string) ErrorResponse {
	return ErrorResponse{
		Error:   MissingParametersKind,
		Missing: missing,
	}
}

// ErrInvalidState returns the response for a transition refused by the stop policy
func ErrInvalidState(state, msg string) ErrorResponse {
	return ErrorResponse{
		Error:   InvalidStateKind,
		State:   state,
		Message: msg,
	}
}

// ErrUnauthorized returns the response for a missing or wrong API key
func ErrUnauthorized(msg string) ErrorResponse {
	return ErrorResponse{
		Error:   UnauthorizedKind,
		Message: msg,
	}
}

// ErrInstanceNotFound returns the response for an unknown instance id
func ErrInstanceNotFound(instanceID string) ErrorResponse {
	return ErrorResponse{
		Error:      InstanceNotFoundKind,
		InstanceID: instanceID,
	}
}

// ErrConfiguration returns the response for missing or invalid environment
func ErrConfiguration(detail string, missing []string) ErrorResponse {
	return ErrorResponse{
		Error:   ConfigurationErrorKind,
		Detail:  detail,
		Missing: missing,
	}
}

// ErrInternal returns the response for an upstream or unexpected failure.
// upstreamStatus is zero when no HTTP status was received.
func ErrInternal(detail string, upstreamStatus int) ErrorResponse {
	return ErrorResponse{
		Error:          InternalErrorKind,
		Detail:         detail,
		UpstreamStatus: upstreamStatus,
	}
}
