// Package config loads the OpenStack credentials and handler policy from the environment
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/celestiaorg/shelver/internal/constants"
)

// DefaultListenAddr is the address the HTTP server binds to when LISTEN_ADDR is unset
const DefaultListenAddr = ":8080"

// TargetSource selects where the region and instance id of a request come from
type TargetSource string

const (
	// TargetSourceQuery reads region and instance_id from the query string and
	// falls back to OS_REGION_NAME and INSTANCE_ID
	TargetSourceQuery TargetSource = "query"
	// TargetSourceEnv only uses OS_REGION_NAME and INSTANCE_ID
	TargetSourceEnv TargetSource = "env"
)

// StopPolicy selects how a stop request treats instances that are neither
// ACTIVE nor shelved
type StopPolicy string

const (
	// StopPolicyShelve shelves SHUTOFF and unrecognised states as a best effort
	StopPolicyShelve StopPolicy = "shelve"
	// StopPolicyReject refuses to stop SHUTOFF and unrecognised states
	StopPolicyReject StopPolicy = "reject"
)

// Credentials holds what is needed to obtain a project scoped Keystone token
type Credentials struct {
	AuthURL      string
	Username     string
	Password     string
	ProjectID    string
	UserDomainID string
}

// Policy captures the behaviour switches of the handler
type Policy struct {
	RequireAPIKey bool
	TargetSource  TargetSource
	StopPolicy    StopPolicy
}

// Config is the immutable configuration handed to the handler at construction time
type Config struct {
	Credentials Credentials
	Policy      Policy

	// Region and InstanceID are the defaults used when a request does not name a target
	Region     string
	InstanceID string

	// APIKey is the expected shared secret when Policy.RequireAPIKey is set
	APIKey string

	LogLevel   string
	ListenAddr string

	invalid []string
}

// Load reads the configuration from the process environment.
// Problems are not returned here; they are reported by Validate so that every
// invocation can answer with a configuration error instead of the process dying.
func Load() *Config {
	cfg := &Config{
		Credentials: Credentials{
			AuthURL:      os.Getenv(constants.EnvAuthURL),
			Username:     os.Getenv(constants.EnvUsername),
			Password:     os.Getenv(constants.EnvPassword),
			ProjectID:    os.Getenv(constants.EnvProjectID),
			UserDomainID: GetEnv(constants.EnvUserDomainID, constants.DefaultUserDomainID),
		},
		Region:     os.Getenv(constants.EnvRegionName),
		InstanceID: os.Getenv(constants.EnvInstanceID),
		APIKey:     os.Getenv(constants.EnvAPIKey),
		LogLevel:   os.Getenv(constants.EnvLogLevel),
		ListenAddr: GetEnv(constants.EnvListenAddr, DefaultListenAddr),
	}

	cfg.Policy = Policy{
		TargetSource: TargetSourceQuery,
		StopPolicy:   StopPolicyShelve,
	}

	if v := strings.TrimSpace(os.Getenv(constants.EnvAPIKeyRequired)); v != "" {
		required, err := strconv.ParseBool(v)
		if err != nil {
			cfg.invalid = append(cfg.invalid, constants.EnvAPIKeyRequired)
		}
		cfg.Policy.RequireAPIKey = required
	}

	if v := os.Getenv(constants.EnvTargetSource); v != "" {
		source, err := ParseTargetSource(v)
		if err != nil {
			cfg.invalid = append(cfg.invalid, constants.EnvTargetSource)
		} else {
			cfg.Policy.TargetSource = source
		}
	}

	if v := os.Getenv(constants.EnvStopPolicy); v != "" {
		policy, err := ParseStopPolicy(v)
		if err != nil {
			cfg.invalid = append(cfg.invalid, constants.EnvStopPolicy)
		} else {
			cfg.Policy.StopPolicy = policy
		}
	}

	return cfg
}

// ParseTargetSource parses a TARGET_SOURCE value
func ParseTargetSource(s string) (TargetSource, error) {
	switch TargetSource(strings.ToLower(strings.TrimSpace(s))) {
	case TargetSourceQuery:
		return TargetSourceQuery, nil
	case TargetSourceEnv:
		return TargetSourceEnv, nil
	default:
		return "", fmt.Errorf("invalid target source %q, expected %q or %q", s, TargetSourceQuery, TargetSourceEnv)
	}
}

// ParseStopPolicy parses a STOP_POLICY value
func ParseStopPolicy(s string) (StopPolicy, error) {
	switch StopPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case StopPolicyShelve:
		return StopPolicyShelve, nil
	case StopPolicyReject:
		return StopPolicyReject, nil
	default:
		return "", fmt.Errorf("invalid stop policy %q, expected %q or %q", s, StopPolicyShelve, StopPolicyReject)
	}
}

// RequiredEnvs returns the environment variables that must be set for the current policy
func (c *Config) RequiredEnvs() []string {
	required := []string{
		constants.EnvAuthURL,
		constants.EnvUsername,
		constants.EnvPassword,
		constants.EnvProjectID,
	}
	if c.Policy.RequireAPIKey {
		required = append(required, constants.EnvAPIKey)
	}
	if c.Policy.TargetSource == TargetSourceEnv {
		required = append(required, constants.EnvRegionName, constants.EnvInstanceID)
	}
	return required
}

// MissingEnvs returns the required environment variables that are unset or empty
func (c *Config) MissingEnvs() []string {
	values := c.values()
	var missing []string
	for _, key := range c.RequiredEnvs() {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// Validate reports missing or malformed environment variables as an *EnvError
func (c *Config) Validate() error {
	missing := c.MissingEnvs()
	if len(missing) == 0 && len(c.invalid) == 0 {
		return nil
	}
	return &EnvError{Missing: missing, Invalid: c.invalid}
}

// ResolveTarget picks the region and instance id for a request according to the target source
func (c *Config) ResolveTarget(region, instanceID string) (string, string) {
	if c.Policy.TargetSource == TargetSourceEnv {
		return c.Region, c.InstanceID
	}
	region = strings.TrimSpace(region)
	instanceID = strings.TrimSpace(instanceID)
	if region == "" {
		region = c.Region
	}
	if instanceID == "" {
		instanceID = c.InstanceID
	}
	return region, instanceID
}

// GetEnvironmentVars returns the loaded values keyed by environment variable,
// with secrets masked so the map can be logged
func (c *Config) GetEnvironmentVars() map[string]string {
	vars := c.values()
	for _, secret := range []string{constants.EnvPassword, constants.EnvAPIKey} {
		if vars[secret] != "" {
			vars[secret] = "********"
		}
	}
	vars[constants.EnvAPIKeyRequired] = strconv.FormatBool(c.Policy.RequireAPIKey)
	vars[constants.EnvTargetSource] = string(c.Policy.TargetSource)
	vars[constants.EnvStopPolicy] = string(c.Policy.StopPolicy)
	return vars
}

func (c *Config) values() map[string]string {
	return map[string]string{
		constants.EnvAuthURL:      c.Credentials.AuthURL,
		constants.EnvUsername:     c.Credentials.Username,
		constants.EnvPassword:     c.Credentials.Password,
		constants.EnvProjectID:    c.Credentials.ProjectID,
		constants.EnvUserDomainID: c.Credentials.UserDomainID,
		constants.EnvRegionName:   c.Region,
		constants.EnvInstanceID:   c.InstanceID,
		constants.EnvAPIKey:       c.APIKey,
	}
}
