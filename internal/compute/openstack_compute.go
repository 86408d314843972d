package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gophercloud/gophercloud"

	computeTypes "github.com/celestiaorg/shelver/internal/compute/types"
)

// successCodes accepts any 2xx; the response body decides what we do next
var successCodes = []int{
	http.StatusOK,
	http.StatusCreated,
	http.StatusAccepted,
	http.StatusNonAuthoritativeInfo,
	http.StatusNoContent,
	http.StatusResetContent,
	http.StatusPartialContent,
}

// ServersClient reads and changes the state of servers through the compute API
type ServersClient struct {
	client *gophercloud.ServiceClient
}

// NewServersClient creates a compute client for session. Requests are bound to ctx.
// A nil httpClient uses http.DefaultClient.
func NewServersClient(ctx context.Context, session *computeTypes.Session, httpClient *http.Client) *ServersClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	provider := newProviderClient(ctx, httpClient)
	provider.SetToken(session.Token)

	return &ServersClient{
		client: &gophercloud.ServiceClient{
			ProviderClient: provider,
			Endpoint:       gophercloud.NormalizeURL(session.ComputeURL),
			Type:           catalogTypeCompute,
		},
	}
}

// GetServer fetches a server by id. A 404, an empty body or a body without a
// server object all map to ErrInstanceNotFound.
func (c *ServersClient) GetServer(id string) (*computeTypes.Server, error) {
	serverID, err := escapeServerID(id)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Get(c.client.ServiceURL("servers", serverID), nil, &gophercloud.RequestOpts{
		OkCodes:          successCodes,
		KeepResponseBody: true,
	})
	if err != nil {
		status := statusCode(err)
		if status == http.StatusNotFound {
			return nil, ErrInstanceNotFound
		}
		return nil, &UpstreamError{Op: "get server", Status: status, Err: err}
	}

	raw, err := readBody(resp)
	if err != nil {
		return nil, &UpstreamError{Op: "get server", Status: resp.StatusCode, Err: err}
	}
	if len(raw) == 0 {
		return nil, ErrInstanceNotFound
	}

	var body computeTypes.ServerStatusResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &UpstreamError{Op: "get server", Status: resp.StatusCode, Err: fmt.Errorf("error unmarshaling response: %w", err)}
	}
	if body.Server == nil {
		return nil, ErrInstanceNotFound
	}

	return body.Server, nil
}

// Act issues a server action. A 204 or an empty body yields a nil payload;
// any other 2xx body is decoded and returned.
func (c *ServersClient) Act(id string, cmd computeTypes.ActionCommand) (map[string]interface{}, error) {
	op := fmt.Sprintf("server action %s", cmd.Name)
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	serverID, err := escapeServerID(id)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Post(c.client.ServiceURL("servers", serverID, "action"), cmd, nil, &gophercloud.RequestOpts{
		OkCodes:          successCodes,
		KeepResponseBody: true,
	})
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: statusCode(err), Err: err}
	}

	raw, err := readBody(resp)
	if err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return nil, nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("error unmarshaling response: %w", err)}
	}
	return payload, nil
}

// escapeServerID makes id a single path segment. Dot segments can never name
// a server and are reported as not found.
func escapeServerID(id string) (string, error) {
	if id == "" || id == "." || id == ".." {
		return "", ErrInstanceNotFound
	}
	return url.PathEscape(id), nil
}

func readBody(resp *http.Response) ([]byte, error) {
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	return bytes.TrimSpace(raw), nil
}
