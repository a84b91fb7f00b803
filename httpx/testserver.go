package httpx

import (
	"net/http"
	"net/http/httptest"
)

// TestServer runs a local HTTP server for exercising the platform clients
// against canned payloads without touching the real chess APIs.
type TestServer struct{ *httptest.Server }

// NewTestServer starts a TestServer from an http.Handler.
func NewTestServer(handler http.Handler) *TestServer {
	return &TestServer{httptest.NewServer(handler)}
}

// BaseURL returns the server's base URL.
func (ts *TestServer) BaseURL() string {
	if ts == nil || ts.Server == nil {
		return ""
	}
	return ts.URL
}

// ClientOption points a Client at this server instead of a platform API.
func (ts *TestServer) ClientOption() ClientOption {
	return WithBaseURL(ts.BaseURL())
}
