// Package constants provides centralized definitions of constants used throughout the application
package constants

// OpenStack credential environment variable names
const (
	// EnvAuthURL is the Keystone v3 endpoint, e.g. https://keystone.example.com/v3
	EnvAuthURL = "OS_AUTH_URL"
	// EnvUsername is the OpenStack user name
	EnvUsername = "OS_USERNAME"
	// EnvPassword is the OpenStack user password
	EnvPassword = "OS_PASSWORD"
	// EnvProjectID is the id of the project the token is scoped to
	EnvProjectID = "OS_PROJECT_ID"
	// EnvUserDomainID is the domain the user belongs to
	EnvUserDomainID = "OS_USER_DOMAIN_ID"
	// EnvRegionName is the default region used to pick the compute endpoint
	EnvRegionName = "OS_REGION_NAME"
)

// Target and access environment variable names
const (
	// EnvInstanceID is the default instance controlled by the handler
	EnvInstanceID = "INSTANCE_ID"
	// EnvAPIKey is the shared secret callers must present when API keys are required
	EnvAPIKey = "API_KEY"
)

// Policy environment variable names
const (
	// EnvAPIKeyRequired turns API key enforcement on
	EnvAPIKeyRequired = "API_KEY_REQUIRED"
	// EnvTargetSource selects where region and instance id come from (query or env)
	EnvTargetSource = "TARGET_SOURCE"
	// EnvStopPolicy selects how stop treats SHUTOFF and unknown states (shelve or reject)
	EnvStopPolicy = "STOP_POLICY"
)

// Runtime environment variable names
const (
	// EnvLogLevel is the logrus level name
	EnvLogLevel = "LOG_LEVEL"
	// EnvListenAddr is the address the HTTP server binds to
	EnvListenAddr = "LISTEN_ADDR"
)

// DefaultUserDomainID is the Keystone domain used when OS_USER_DOMAIN_ID is unset
const DefaultUserDomainID = "default"
