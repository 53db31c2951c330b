// Package api provides the HTTP client for the manual Q&A server.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/config"
	apierrors "github.com/diogo/manualqa/internal/errors"
	"github.com/diogo/manualqa/internal/models"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics
const maxErrorBody = 2048

// ClientInterface is the set of server calls used by the session adapters
type ClientInterface interface {
	Chat(ctx context.Context, query string, history []models.HistoryEntry) (reply string, found bool, err error)
	SearchModel(ctx context.Context, fileName string, data []byte) (model string, found bool, err error)
	ListConversations(ctx context.Context) ([]ConversationSummary, error)
	CreateConversation(ctx context.Context, title string) (ConversationSummary, error)
	DeleteConversation(ctx context.Context, id models.ConversationID) error
	ListMessages(ctx context.Context, id models.ConversationID) ([]models.Message, error)
	SendMessage(ctx context.Context, id models.ConversationID, message string) (*SendMessageResult, error)
}

var _ ClientInterface = (*Client)(nil)

// Client talks to the Q&A server over a browser-like TLS client
type Client struct {
	httpClient     tls_client.HttpClient
	baseURL        string
	cookies        *config.Cookies
	timeoutSeconds int
	logger         *zap.Logger
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying transport, mostly for tests
func WithHTTPClient(hc tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCookies attaches the session cookies sent on every request
func WithCookies(cookies *config.Cookies) ClientOption {
	return func(c *Client) {
		c.cookies = cookies
	}
}

// WithTimeoutSeconds bounds each request
func WithTimeoutSeconds(seconds int) ClientOption {
	return func(c *Client) {
		if seconds > 0 {
			c.timeoutSeconds = seconds
		}
	}
}

// WithLogger sets the logger for request tracing
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}

	client := &Client{
		baseURL:        baseURL,
		timeoutSeconds: 300,
		logger:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.httpClient == nil {
		options := []tls_client.HttpClientOption{
			tls_client.WithTimeoutSeconds(client.timeoutSeconds),
			tls_client.WithClientProfile(profiles.Chrome_120),
			tls_client.WithNotFollowRedirects(),
		}

		httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// BaseURL returns the server base URL without trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsAuthenticated reports whether session cookies are attached
func (c *Client) IsAuthenticated() bool {
	if c.cookies == nil {
		return false
	}
	sessionID, _ := c.cookies.Snapshot()
	return sessionID != ""
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// do sends one request and returns the body of a 2xx response. Transport
// failures become NetworkError, other statuses APIError.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apierrors.NewNetworkError(path, fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.addSessionCookies(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, apierrors.NewNetworkError(path, err)
	}
	defer func() {
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.NewNetworkError(path, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apierrors.NewAPIError(resp.StatusCode, path, errorMessage(respBody, resp.StatusCode))
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		apiErr.Body = string(respBody)
		return nil, apiErr
	}

	return respBody, nil
}

func (c *Client) addSessionCookies(req *http.Request) {
	if c.cookies == nil {
		return
	}
	sessionID, csrfToken := c.cookies.Snapshot()
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: config.CookieSessionID, Value: sessionID})
	}
	if csrfToken != "" {
		req.AddCookie(&http.Cookie{Name: config.CookieCSRFToken, Value: csrfToken})
		req.Header.Set("X-CSRFToken", csrfToken)
	}
}

// errorMessage extracts the server's error text, falling back to the status text
func errorMessage(body []byte, status int) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"error", "detail", "message"} {
			if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return "unexpected status"
}
