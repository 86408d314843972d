// Package services provides business logic implementation for the API
package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/celestiaorg/shelver/internal/compute"
	computeTypes "github.com/celestiaorg/shelver/internal/compute/types"
	"github.com/celestiaorg/shelver/internal/config"
)

// Authenticator exchanges the configured credentials for a session in a region
type Authenticator interface {
	Authenticate(ctx context.Context, region string) (*computeTypes.Session, error)
}

// ServerClient reads and changes servers with one session
type ServerClient interface {
	GetServer(id string) (*computeTypes.Server, error)
	Act(id string, cmd computeTypes.ActionCommand) (map[string]interface{}, error)
}

// ServerClientFactory opens a ServerClient bound to ctx for a session
type ServerClientFactory func(ctx context.Context, session *computeTypes.Session) ServerClient

// OpenStackServers returns a factory backed by the compute API client
func OpenStackServers(httpClient *http.Client) ServerClientFactory {
	return func(ctx context.Context, session *computeTypes.Session) ServerClient {
		return compute.NewServersClient(ctx, session, httpClient)
	}
}

// Outcome is the result of a successful power request
type Outcome struct {
	InstanceID string
	Action     Action
	State      computeTypes.InstanceState
	Message    string
	// FromState is set when a control call was issued
	FromState computeTypes.InstanceState
	// Command is empty when nothing was sent to the compute API
	Command computeTypes.ActionName
}

// Power provides the start, stop and status operations for a single instance
type Power struct {
	auth       Authenticator
	servers    ServerClientFactory
	stopPolicy config.StopPolicy
	log        logrus.FieldLogger
}

// NewPowerService creates a new power service instance
func NewPowerService(auth Authenticator, servers ServerClientFactory, stopPolicy config.StopPolicy, log logrus.FieldLogger) *Power {
	return &Power{
		auth:       auth,
		servers:    servers,
		stopPolicy: stopPolicy,
		log:        log,
	}
}

// Execute authenticates, reads the instance state and issues at most one control call.
// Every call re-authenticates; tokens are not reused across requests.
func (s *Power) Execute(ctx context.Context, req ActionRequest) (*Outcome, error) {
	if req.Action == "" {
		req.Action = ActionStatus
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"action":      req.Action,
		"instance_id": req.InstanceID,
		"region":      req.Region,
	})

	session, err := s.auth.Authenticate(ctx, req.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	log.WithField("compute_url", session.ComputeURL).Debug("token obtained")

	servers := s.servers(ctx, session)

	server, err := servers.GetServer(req.InstanceID)
	if err != nil {
		return nil, err
	}

	state := computeTypes.NormalizeState(server.Status)
	log = log.WithField("state", state)
	log.Info("instance state")

	decision, err := Decide(req.Action, state, s.stopPolicy)
	if err != nil {
		log.WithError(err).Warn("action refused")
		return nil, err
	}
	log.WithField("decision", decision.String()).Debug("decided")

	outcome := &Outcome{
		InstanceID: req.InstanceID,
		Action:     req.Action,
		State:      state,
		Message:    decision.Message,
	}
	if decision.ReportFromState {
		outcome.FromState = state
	}
	if decision.Command == nil {
		return outcome, nil
	}

	if _, err := servers.Act(req.InstanceID, *decision.Command); err != nil {
		return nil, err
	}
	outcome.Command = decision.Command.Name
	log.WithField("command", decision.Command.Name).Info("control command accepted")

	return outcome, nil
}
