// Package test provides infrastructure for end-to-end testing of shelver.
//
// Suite runs the real fiber application behind an httptest server, pointed at
// a fake OpenStack cloud, and exposes the API client used by shelverctl.
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    suite := test.NewSuite(t)
//	    defer suite.Cleanup()
//
//	    // Use suite.APIClient to make requests
//	    // Use suite.Cloud to configure the instance
//	}
package test
