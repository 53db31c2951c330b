package api

import (
	"io"
	"net/url"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/bogdanfinn/tls-client/bandwidth"
)

// MockResponseBody is a ReadCloser that simulates reading response data
type MockResponseBody struct {
	data []byte
	pos  int
}

// NewMockResponseBody creates a new MockResponseBody with the given data
func NewMockResponseBody(data []byte) *MockResponseBody {
	return &MockResponseBody{data: data, pos: 0}
}

// Read implements the io.Reader interface
func (m *MockResponseBody) Read(p []byte) (n int, err error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n = copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

// Close implements the io.Closer interface
func (m *MockResponseBody) Close() error {
	return nil
}

// recordedRequest is what the mock saw, with the body already drained
type recordedRequest struct {
	Method string
	Path   string
	Header fhttp.Header
	Body   []byte
	Req    *fhttp.Request
}

// MockHttpClient is a mock implementation of tls_client.HttpClient for testing
type MockHttpClient struct {
	mu       sync.Mutex
	doFunc   func(req *fhttp.Request) (*fhttp.Response, error)
	requests []recordedRequest
}

func (m *MockHttpClient) GetCookies(u *url.URL) []*fhttp.Cookie          { return nil }
func (m *MockHttpClient) SetCookies(u *url.URL, cookies []*fhttp.Cookie) {}
func (m *MockHttpClient) SetCookieJar(jar fhttp.CookieJar)               {}
func (m *MockHttpClient) GetCookieJar() fhttp.CookieJar                  { return nil }
func (m *MockHttpClient) SetProxy(proxyUrl string) error                 { return nil }
func (m *MockHttpClient) GetProxy() string                               { return "" }
func (m *MockHttpClient) SetFollowRedirect(followRedirect bool)          {}
func (m *MockHttpClient) GetFollowRedirect() bool                        { return false }
func (m *MockHttpClient) CloseIdleConnections()                          {}
func (m *MockHttpClient) Get(url string) (*fhttp.Response, error)        { return nil, nil }
func (m *MockHttpClient) Head(url string) (*fhttp.Response, error)       { return nil, nil }
func (m *MockHttpClient) Post(url, contentType string, body io.Reader) (*fhttp.Response, error) {
	return nil, nil
}
func (m *MockHttpClient) GetBandwidthTracker() bandwidth.BandwidthTracker { return nil }

// Do records the request and delegates to doFunc
func (m *MockHttpClient) Do(req *fhttp.Request) (*fhttp.Response, error) {
	rec := recordedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Header: req.Header,
		Req:    req,
	}
	if req.Body != nil {
		rec.Body, _ = io.ReadAll(req.Body)
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	m.mu.Unlock()

	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return newResponse(200, "{}"), nil
}

// Requests returns a copy of every recorded request
func (m *MockHttpClient) Requests() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or panics when none was made
func (m *MockHttpClient) LastRequest() recordedRequest {
	reqs := m.Requests()
	return reqs[len(reqs)-1]
}

func newResponse(status int, body string) *fhttp.Response {
	return &fhttp.Response{
		StatusCode: status,
		Body:       NewMockResponseBody([]byte(body)),
		Header:     make(fhttp.Header),
	}
}

// NewMockHttpClient creates a MockHttpClient that always answers with body
func NewMockHttpClient(body []byte, statusCode int) *MockHttpClient {
	return &MockHttpClient{
		doFunc: func(req *fhttp.Request) (*fhttp.Response, error) {
			return newResponse(statusCode, string(body)), nil
		},
	}
}

// NewMockHttpClientWithError creates a MockHttpClient that fails every request
func NewMockHttpClientWithError(err error) *MockHttpClient {
	return &MockHttpClient{
		doFunc: func(req *fhttp.Request) (*fhttp.Response, error) {
			return nil, err
		},
	}
}
