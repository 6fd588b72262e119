package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const userAgent = "msservices/0.1"

// TokenProvider yields a bearer token for one logical operation.
// auth.Session is the production implementation.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client is an HTTP client for the Microsoft Graph API bound to a single
// access token. It is cheap to build and holds no state between requests,
// so callers build one per operation rather than sharing it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     *slog.Logger
}

// NewClient creates a Graph API client.
// baseURL is typically "https://graph.microsoft.com/v1.0".
func NewClient(baseURL string, httpClient *http.Client, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		token:      token,
		logger:     logger,
	}
}

// Connect acquires a token from tokens and returns a client bound to it.
func Connect(
	ctx context.Context, baseURL string, httpClient *http.Client, tokens TokenProvider, logger *slog.Logger,
) (*Client, error) {
	tok, err := tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("graph: obtaining token: %w", err)
	}

	return NewClient(baseURL, httpClient, tok, logger), nil
}

// BaseURL returns the API root this client addresses.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes an authenticated request against the Graph API. The path is
// appended to the client's base URL. For non-nil bodies Content-Type
// defaults to application/json; headers override it. Non-2xx responses are
// returned as *apierr.Error. The caller closes the body on success.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, headers http.Header) (*http.Response, error) {
	return c.DoURL(ctx, method, c.baseURL+path, body, headers)
}

// DoURL is Do for an absolute URL, such as a server-issued next link.
func (c *Client) DoURL(ctx context.Context, method, url string, body io.Reader, headers http.Header) (*http.Response, error) {
	return c.send(ctx, method, url, body, -1, headers, true)
}

// SendRaw PUTs or POSTs an opaque body of known size to an absolute URL
// without an Authorization header. Upload session URLs are
// pre-authenticated and reject a bearer token.
func (c *Client) SendRaw(
	ctx context.Context, method, url string, body io.Reader, size int64, headers http.Header,
) (*http.Response, error) {
	return c.send(ctx, method, url, body, size, headers, false)
}

// DoJSON marshals in (when non-nil) as the request body, executes the
// request and decodes a 2xx response into out (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("graph: encoding %s %s body: %w", method, path, err)
		}

		body = bytes.NewReader(b)
	}

	resp, err := c.Do(ctx, method, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

// decodeResponse decodes resp's body into out, or drains it when out is nil.
func decodeResponse(resp *http.Response, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transportError(resp.Request.Method, resp.Request.URL.Path, fmt.Errorf("decoding response: %w", err))
	}

	return nil
}

func (c *Client) send(
	ctx context.Context, method, url string, body io.Reader, size int64, headers http.Header, authenticated bool,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("graph: creating request: %w", err)
	}

	requestID := uuid.NewString()

	if authenticated {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("client-request-id", requestID)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case size == 0:
		req.Body = http.NoBody
		req.ContentLength = 0
	case size > 0:
		req.ContentLength = size
	}

	for k, vs := range headers {
		req.Header.Del(k)

		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	// Pre-authenticated URLs carry credentials in the query string.
	logTarget := req.URL.Path
	c.logger.Debug("graph request",
		slog.String("method", method),
		slog.String("path", logTarget),
		slog.String("client_request_id", requestID),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, transportError(method, logTarget, fmt.Errorf("request canceled: %w", ctx.Err()))
		}

		return nil, transportError(method, logTarget, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", logTarget),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	apiErr := responseError(resp)

	c.logger.Debug("request failed",
		slog.String("method", method),
		slog.String("path", logTarget),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", apiErr.RequestID),
		slog.String("client_request_id", requestID),
	)

	return nil, apiErr
}
