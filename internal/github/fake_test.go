package github

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResponse struct {
	status  int
	body    string
	headers map[string]string
}

// fakeTransport serves canned responses keyed by "METHOD /path"
type fakeTransport struct {
	mu       sync.Mutex
	routes   map[string]fakeResponse
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: make(map[string]fakeResponse)}
}

func (f *fakeTransport) on(method, path string, status int, body string, headers ...string) {
	h := make(map[string]string)
	for i := 0; i+1 < len(headers); i += 2 {
		h[headers[i]] = headers[i+1]
	}
	f.routes[method+" "+path] = fakeResponse{status: status, body: body, headers: h}
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body string
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	f.requests = append(f.requests, recordedRequest{
		Method: req.Method, Path: req.URL.Path, Query: req.URL.RawQuery, Body: body,
	})

	resp, ok := f.routes[req.Method+" "+req.URL.Path]
	if !ok {
		resp = fakeResponse{status: http.StatusNotFound, body: `{"message": "Not Found"}`}
	}

	header := http.Header{"Content-Type": []string{"application/json; charset=utf-8"}}
	for k, v := range resp.headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: resp.status,
		Status:     http.StatusText(resp.status),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(resp.body)),
		Request:    req,
	}, nil
}

func (f *fakeTransport) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, ft *fakeTransport) *Client {
	t.Helper()
	client, err := NewClient(
		WithHost("github.com"),
		WithAuthToken("test-token"),
		WithTransport(ft),
		WithRepository("acme", "widgets"),
	)
	require.NoError(t, err)
	return client
}
