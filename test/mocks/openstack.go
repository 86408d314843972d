package mocks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Defaults served by the fake cloud
const (
	DefaultOpenStackToken      = "gAAAAAB-test-token"
	DefaultOpenStackRegion     = "GRA7"
	DefaultOpenStackInstanceID = "8a7d2f1e-0c4b-4b7e-9f55-2f1c3e9d6a01"
	DefaultOpenStackProjectID  = "7d5b1c9e2f4a4f0b8c3e6a1d2b9f0e47"
	DefaultOpenStackUsername   = "user-shelver"
	DefaultOpenStackPassword   = "s3cret"

	identityPrefix = "/v3"
	computePrefix  = "/compute/v2.1"
)

// OpenStackCloud is a fake Keystone v3 + Nova endpoint backed by httptest.
// It records every call so tests can assert which requests were made.
type OpenStackCloud struct {
	Server *httptest.Server

	mu sync.Mutex

	token      string
	region     string
	instanceID string
	status     string

	tokenStatus  int
	omitToken    bool
	omitServer   bool
	getStatus    int
	actionStatus int
	actionBody   string

	authCalls   int
	getCalls    int
	actions     []string
	authRequest map[string]interface{}
	authHeaders []string
	paths       []string
}

// NewOpenStackCloud starts a fake cloud with a single ACTIVE instance
func NewOpenStackCloud() *OpenStackCloud {
	c := &OpenStackCloud{
		token:        DefaultOpenStackToken,
		region:       DefaultOpenStackRegion,
		instanceID:   DefaultOpenStackInstanceID,
		status:       "ACTIVE",
		tokenStatus:  http.StatusCreated,
		getStatus:    http.StatusOK,
		actionStatus: http.StatusAccepted,
	}
	c.Server = httptest.NewServer(http.HandlerFunc(c.serveHTTP))
	return c
}

// Close shuts the fake cloud down
func (c *OpenStackCloud) Close() {
	c.Server.Close()
}

// AuthURL is the value to use for OS_AUTH_URL
func (c *OpenStackCloud) AuthURL() string {
	return c.Server.URL + identityPrefix
}

// ComputeURL is the public compute endpoint advertised for the default region
func (c *OpenStackCloud) ComputeURL() string {
	return c.Server.URL + computePrefix
}

// SetStatus changes the status reported for the instance
func (c *OpenStackCloud) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// SetTokenStatus makes the token request answer with status
func (c *OpenStackCloud) SetTokenStatus(status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenStatus = status
}

// OmitTokenHeader drops the X-Subject-Token header from token responses
func (c *OpenStackCloud) OmitTokenHeader() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.omitToken = true
}

// OmitServer makes GET /servers/{id} answer 200 with a body lacking the server key
func (c *OpenStackCloud) OmitServer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.omitServer = true
}

// SetGetStatus makes GET /servers/{id} answer with status
func (c *OpenStackCloud) SetGetStatus(status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getStatus = status
}

// SetActionResponse makes POST /servers/{id}/action answer with status and body
func (c *OpenStackCloud) SetActionResponse(status int, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actionStatus = status
	c.actionBody = body
}

// AuthCalls returns the number of token requests received
func (c *OpenStackCloud) AuthCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authCalls
}

// GetCalls returns the number of server reads received
func (c *OpenStackCloud) GetCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getCalls
}

// Actions returns the names of the server actions received, in order
func (c *OpenStackCloud) Actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.actions...)
}

// LastAuthRequest returns the decoded body of the last token request
func (c *OpenStackCloud) LastAuthRequest() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authRequest
}

// ComputePaths returns the escaped request paths seen by the compute API
func (c *OpenStackCloud) ComputePaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

// ComputeAuthHeaders returns the X-Auth-Token values seen by the compute API
func (c *OpenStackCloud) ComputeAuthHeaders() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.authHeaders...)
}

func (c *OpenStackCloud) serveHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == identityPrefix+"/auth/tokens":
		c.handleToken(w, r)
	case strings.HasPrefix(r.URL.EscapedPath(), computePrefix+"/servers/"):
		c.paths = append(c.paths, r.URL.EscapedPath())
		c.authHeaders = append(c.authHeaders, r.Header.Get("X-Auth-Token"))
		if r.Header.Get("X-Auth-Token") != c.token {
			writeJSON(w, http.StatusUnauthorized, `{"error": {"code": 401, "message": "The request you have made requires authentication."}}`)
			return
		}
		rest := strings.TrimPrefix(r.URL.EscapedPath(), computePrefix+"/servers/")
		rawID, sub, _ := strings.Cut(rest, "/")
		id, err := url.PathUnescape(rawID)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		switch {
		case r.Method == http.MethodGet && sub == "":
			c.handleGetServer(w, id)
		case r.Method == http.MethodPost && sub == "action":
			c.handleAction(w, r, id)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

func (c *OpenStackCloud) handleToken(w http.ResponseWriter, r *http.Request) {
	c.authCalls++

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, `{"error": {"code": 400, "message": "malformed request"}}`)
		return
	}
	c.authRequest = body

	if c.tokenStatus < 200 || c.tokenStatus >= 300 {
		writeJSON(w, c.tokenStatus, `{"error": {"code": 401, "message": "The request you have made requires authentication.", "title": "Unauthorized"}}`)
		return
	}

	if !c.omitToken {
		w.Header().Set("X-Subject-Token", c.token)
	}
	resp := map[string]interface{}{
		"token": map[string]interface{}{
			"methods":    []string{"password"},
			"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			"project":    map[string]interface{}{"id": DefaultOpenStackProjectID, "name": "shelver"},
			"catalog":    c.catalog(),
		},
	}
	raw, _ := json.Marshal(resp)
	writeJSON(w, c.tokenStatus, string(raw))
}

// catalog lists decoys before the matching endpoint so that selection by
// type, interface and region is exercised
func (c *OpenStackCloud) catalog() []map[string]interface{} {
	base := c.Server.URL
	return []map[string]interface{}{
		{
			"type": "identity",
			"name": "keystone",
			"endpoints": []map[string]string{
				{"id": "e0", "interface": "public", "region_id": c.region, "region": c.region, "url": base + identityPrefix},
			},
		},
		{
			"type": "compute",
			"name": "nova",
			"endpoints": []map[string]string{
				{"id": "e1", "interface": "internal", "region_id": c.region, "region": c.region, "url": base + "/internal/compute"},
				{"id": "e2", "interface": "public", "region_id": "SBG5", "region": "SBG5", "url": base + "/sbg5/compute"},
				{"id": "e3", "interface": "public", "region_id": strings.ToLower(c.region), "region": strings.ToLower(c.region), "url": base + "/lower/compute"},
				{"id": "e4", "interface": "public", "region_id": c.region, "region": c.region, "url": base + computePrefix},
				{"id": "e5", "interface": "public", "region_id": c.region, "region": c.region, "url": base + "/second/compute"},
			},
		},
	}
}

func (c *OpenStackCloud) handleGetServer(w http.ResponseWriter, id string) {
	c.getCalls++

	if c.getStatus != http.StatusOK {
		writeJSON(w, c.getStatus, `{"computeFault": {"code": 500, "message": "boom"}}`)
		return
	}
	if id != c.instanceID {
		writeJSON(w, http.StatusNotFound, `{"itemNotFound": {"code": 404, "message": "Instance could not be found."}}`)
		return
	}
	if c.omitServer {
		writeJSON(w, http.StatusOK, `{}`)
		return
	}

	raw, _ := json.Marshal(map[string]interface{}{
		"server": map[string]string{
			"id":     c.instanceID,
			"name":   "shelver-test",
			"status": c.status,
		},
	})
	writeJSON(w, http.StatusOK, string(raw))
}

func (c *OpenStackCloud) handleAction(w http.ResponseWriter, r *http.Request, id string) {
	if id != c.instanceID {
		writeJSON(w, http.StatusNotFound, `{"itemNotFound": {"code": 404, "message": "Instance could not be found."}}`)
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) != 1 {
		writeJSON(w, http.StatusBadRequest, `{"badRequest": {"code": 400, "message": "malformed action"}}`)
		return
	}
	for name, params := range body {
		if params != nil {
			writeJSON(w, http.StatusBadRequest, `{"badRequest": {"code": 400, "message": "unexpected action parameters"}}`)
			return
		}
		c.actions = append(c.actions, name)
	}

	if c.actionStatus == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, c.actionStatus, c.actionBody)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	if body != "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
