// Package mocks provides fakes for the services shelver talks to.
//
// OpenStackCloud serves the Keystone v3 token endpoint and the Nova server
// endpoints from a single httptest server. It records every call so tests can
// assert how many tokens were requested and which actions were sent.
//
// Example usage:
//
//	cloud := mocks.NewOpenStackCloud()
//	defer cloud.Close()
//	cloud.SetStatus("SHELVED_OFFLOADED")
//	// point OS_AUTH_URL at cloud.AuthURL()
package mocks
