// Package client provides the API client for a deployed shelver endpoint
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/celestiaorg/shelver/internal/api/v1/handlers"
	"github.com/celestiaorg/shelver/internal/api/v1/routes"
	"github.com/celestiaorg/shelver/internal/types"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Power Endpoints
	Status(ctx context.Context, target Target) (types.PowerResponse, error)
	Start(ctx context.Context, target Target) (types.PowerResponse, error)
	Stop(ctx context.Context, target Target) (types.PowerResponse, error)
}

var _ Client = &APIClient{}

// Target names the instance to act on. Empty fields let the server fall back
// to its own environment.
type Target struct {
	Region     string
	InstanceID string
}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration

	// APIKey is sent in the X-API-Key header when set
	APIKey string
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIError is returned for every non-2xx answer
type APIError struct {
	StatusCode int
	Response   types.ErrorResponse
	// Raw is the undecoded body, kept when it is not an error response
	Raw string
}

func (e *APIError) Error() string {
	if e.Response.Error == "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Raw)
	}
	msg := fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Response.Error)
	switch {
	case e.Response.Message != "":
		msg += ": " + e.Response.Message
	case e.Response.Detail != "":
		msg += ": " + e.Response.Detail
	}
	return msg
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
	apiKey  string
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
		apiKey:  opts.APIKey,
	}, nil
}

// createAgent creates a new Fiber Agent for a GET on endpoint
func (c *APIClient) createAgent(ctx context.Context, endpoint string) *fiber.Agent {
	agent := fiber.Get(c.baseURL + endpoint)

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.apiKey != "" {
		agent.Set(handlers.HeaderAPIKey, c.apiKey)
	}

	return agent
}

// doRequest sends the HTTP request and processes the response
func (c *APIClient) doRequest(agent *fiber.Agent, v interface{}) error {
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: statusCode, Raw: string(body)}
		// If we can't decode the error response, the raw body is the message
		_ = json.Unmarshal(body, &apiErr.Response)
		return apiErr
	}

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, endpoint string, response interface{}) error {
	return c.doRequest(c.createAgent(ctx, endpoint), response)
}

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	var response map[string]string
	if err := c.executeRequest(ctx, routes.HealthCheckURL(), &response); err != nil {
		return map[string]string{}, err
	}
	return response, nil
}

// Status reports the current state of the target instance
func (c *APIClient) Status(ctx context.Context, target Target) (types.PowerResponse, error) {
	return c.power(ctx, "status", target)
}

// Start unshelves or starts the target instance
func (c *APIClient) Start(ctx context.Context, target Target) (types.PowerResponse, error) {
	return c.power(ctx, "start", target)
}

// Stop shelves the target instance
func (c *APIClient) Stop(ctx context.Context, target Target) (types.PowerResponse, error) {
	return c.power(ctx, "stop", target)
}

func (c *APIClient) power(ctx context.Context, action string, target Target) (types.PowerResponse, error) {
	q := url.Values{}
	q.Set(handlers.QueryAction, action)
	if target.Region != "" {
		q.Set(handlers.QueryRegion, target.Region)
	}
	if target.InstanceID != "" {
		q.Set(handlers.QueryInstanceID, target.InstanceID)
	}

	var response types.PowerResponse
	if err := c.executeRequest(ctx, routes.PowerURL(q), &response); err != nil {
		return types.PowerResponse{}, err
	}
	return response, nil
}
