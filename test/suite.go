package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/shelver/internal/api/v1/client"
	"github.com/celestiaorg/shelver/internal/app"
	"github.com/celestiaorg/shelver/internal/config"
	"github.com/celestiaorg/shelver/internal/logger"
	"github.com/celestiaorg/shelver/test/mocks"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 30 * time.Second

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// Suite encapsulates all components needed for end-to-end testing:
//   - Fake OpenStack cloud
//   - Real API server
//   - Real API client
type Suite struct {
	t *testing.T

	// Fake cloud
	Cloud *mocks.OpenStackCloud

	// Server components
	Config   *config.Config
	Registry *prometheus.Registry
	App      *fiber.App
	Server   *httptest.Server

	// Client components
	APIClient client.Client

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Option adjusts the server configuration before the app is built
type Option func(*config.Config)

// WithAPIKey requires key on every request
func WithAPIKey(key string) Option {
	return func(cfg *config.Config) {
		cfg.Policy.RequireAPIKey = true
		cfg.APIKey = key
	}
}

// WithStopPolicy sets the stop policy
func WithStopPolicy(policy config.StopPolicy) Option {
	return func(cfg *config.Config) {
		cfg.Policy.StopPolicy = policy
	}
}

// WithEnvTarget only takes the region and instance id from the configuration
func WithEnvTarget() Option {
	return func(cfg *config.Config) {
		cfg.Policy.TargetSource = config.TargetSourceEnv
	}
}

// NewSuite creates a new test suite with the given options.
// The suite must be cleaned up after use by calling Cleanup.
func NewSuite(t *testing.T, opts ...Option) *Suite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	s := &Suite{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
		Cloud:      mocks.NewOpenStackCloud(),
		Registry:   prometheus.NewRegistry(),
	}

	s.Config = &config.Config{
		Credentials: config.Credentials{
			AuthURL:      s.Cloud.AuthURL(),
			Username:     mocks.DefaultOpenStackUsername,
			Password:     mocks.DefaultOpenStackPassword,
			ProjectID:    mocks.DefaultOpenStackProjectID,
			UserDomainID: "default",
		},
		Policy: config.Policy{
			TargetSource: config.TargetSourceQuery,
			StopPolicy:   config.StopPolicyShelve,
		},
		Region:     mocks.DefaultOpenStackRegion,
		InstanceID: mocks.DefaultOpenStackInstanceID,
	}
	for _, opt := range opts {
		opt(s.Config)
	}

	s.App = app.NewApp(s.Config, logger.Discard(), s.Registry, nil)
	s.Server = httptest.NewServer(adaptor.FiberApp(s.App))

	s.APIClient = s.NewClient("")
	if s.Config.Policy.RequireAPIKey {
		s.APIClient = s.NewClient(s.Config.APIKey)
	}

	return s
}

// NewClient returns an API client for the suite server sending apiKey
func (s *Suite) NewClient(apiKey string) client.Client {
	c, err := client.NewClient(&client.Options{
		BaseURL: s.Server.URL,
		Timeout: testClientTimeout,
		APIKey:  apiKey,
	})
	require.NoError(s.t, err)
	return c
}

// Cleanup tears down the test suite, releasing all resources.
// This should be deferred immediately after creating the suite.
func (s *Suite) Cleanup() {
	if s.Server != nil {
		s.Server.Close()
	}
	if s.Cloud != nil {
		s.Cloud.Close()
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// T returns the testing.T instance for this suite
func (s *Suite) T() *testing.T {
	return s.t
}

// Require returns a require.Assertions instance for this suite.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}
