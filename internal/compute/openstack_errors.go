package compute

import (
	"errors"
	"fmt"

	"github.com/gophercloud/gophercloud"
)

// ErrInstanceNotFound is returned when the compute API has no server for the requested id
var ErrInstanceNotFound = errors.New("instance not found")

// AuthError is returned when a token or a compute endpoint could not be obtained
type AuthError struct {
	Reason string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("authentication failed: %s", e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError is returned when the compute API answers a call with a non-2xx status
// or cannot be reached at all
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: compute API returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// statusCode extracts the HTTP status from a gophercloud error, or 0 when the
// request never got a response
func statusCode(err error) int {
	var codeErr gophercloud.StatusCodeError
	if errors.As(err, &codeErr) {
		return codeErr.GetStatusCode()
	}
	return 0
}
