package compute

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/identity/v3/tokens"

	computeTypes "github.com/celestiaorg/shelver/internal/compute/types"
	"github.com/celestiaorg/shelver/internal/config"
)

const (
	catalogTypeCompute = "compute"
	interfacePublic    = "public"
)

// Identity obtains project scoped tokens from a Keystone v3 service
type Identity struct {
	creds      config.Credentials
	httpClient *http.Client
}

// NewIdentity creates an identity client for the given credentials.
// A nil httpClient uses http.DefaultClient.
func NewIdentity(creds config.Credentials, httpClient *http.Client) *Identity {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Identity{
		creds:      creds,
		httpClient: httpClient,
	}
}

// Authenticate issues a password authentication scoped to the configured project
// and returns the token with the public compute endpoint of region.
// Nothing is cached: every call performs a fresh round trip.
func (i *Identity) Authenticate(ctx context.Context, region string) (*computeTypes.Session, error) {
	provider := newProviderClient(ctx, i.httpClient)

	// The token request goes to <auth_url>/auth/tokens, so the identity client is
	// rooted at the configured URL as is.
	identity := &gophercloud.ServiceClient{
		ProviderClient: provider,
		Endpoint:       gophercloud.NormalizeURL(i.creds.AuthURL),
		Type:           "identity",
	}

	result := i.createToken(identity)
	if result.Err != nil {
		return nil, &AuthError{Reason: "token request rejected", Status: statusCode(result.Err), Err: result.Err}
	}

	token, err := result.ExtractTokenID()
	if err != nil || token == "" {
		return nil, &AuthError{Reason: "no X-Subject-Token header in identity response", Err: err}
	}

	catalog, err := result.ExtractServiceCatalog()
	if err != nil {
		return nil, &AuthError{Reason: "could not decode service catalog", Err: err}
	}

	computeURL, err := FindComputeEndpoint(catalog.Entries, region)
	if err != nil {
		return nil, &AuthError{Reason: "no compute endpoint", Err: err}
	}

	return &computeTypes.Session{
		Token:      token,
		ComputeURL: computeURL,
		Region:     region,
	}, nil
}

// createToken posts the password credentials to <auth_url>/auth/tokens.
// Any 2xx carrying a token is accepted, unlike tokens.Create which expects 201.
func (i *Identity) createToken(identity *gophercloud.ServiceClient) (r tokens.CreateResult) {
	opts := &tokens.AuthOptions{
		Username: i.creds.Username,
		Password: i.creds.Password,
		DomainID: i.creds.UserDomainID,
		Scope: tokens.Scope{
			ProjectID: i.creds.ProjectID,
		},
	}

	scope, err := opts.ToTokenV3ScopeMap()
	if err != nil {
		r.Err = err
		return
	}
	body, err := opts.ToTokenV3CreateMap(scope)
	if err != nil {
		r.Err = err
		return
	}

	resp, err := identity.Post(identity.ServiceURL("auth", "tokens"), body, &r.Body, &gophercloud.RequestOpts{
		OkCodes:     successCodes,
		OmitHeaders: []string{"X-Auth-Token"},
	})
	_, r.Header, r.Err = gophercloud.ParseResponse(resp, err)
	return
}

// FindComputeEndpoint returns the URL of the first public compute endpoint whose
// region equals region exactly. Catalog order decides between several matches.
func FindComputeEndpoint(entries []tokens.CatalogEntry, region string) (string, error) {
	for _, entry := range entries {
		if entry.Type != catalogTypeCompute {
			continue
		}
		for _, endpoint := range entry.Endpoints {
			if endpoint.Interface == interfacePublic && endpointRegion(endpoint) == region && endpoint.URL != "" {
				return endpoint.URL, nil
			}
		}
	}
	return "", fmt.Errorf("no public %s endpoint for region %q in service catalog", catalogTypeCompute, region)
}

// endpointRegion prefers region_id and falls back to the legacy region field
// for catalogs that do not send region_id
func endpointRegion(endpoint tokens.Endpoint) string {
	if endpoint.RegionID != "" {
		return endpoint.RegionID
	}
	return endpoint.Region
}

// newProviderClient builds a gophercloud provider bound to ctx.
// No ReauthFunc and no retry hooks are set, so a failed call is final.
func newProviderClient(ctx context.Context, httpClient *http.Client) *gophercloud.ProviderClient {
	provider := &gophercloud.ProviderClient{
		HTTPClient: *httpClient,
		Context:    ctx,
	}
	provider.UserAgent.Prepend(userAgent)
	provider.UseTokenLock()
	return provider
}

const userAgent = "shelver"
