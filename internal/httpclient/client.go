package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// HttpClientWrapper wraps http.Client with the request shapes the series API uses
type HttpClientWrapper interface {
	// DoGET fetches urlStr and decodes a JSON response into out
	DoGET(ctx context.Context, urlStr string, out any) error
	// DoGETRaw fetches urlStr and returns the raw body with its content type
	DoGETRaw(ctx context.Context, urlStr string) (body []byte, contentType string, err error)
	// DoPOST sends body with contentType and decodes a JSON response into out.
	// A nil out discards the response body.
	DoPOST(ctx context.Context, urlStr, contentType string, body []byte, out any) (http.Header, error)
	// DoDELETE sends a DELETE request and expects 200 or 204
	DoDELETE(ctx context.Context, urlStr string) error
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(urlStr, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewHttpClientWrapper creates a new client wrapper with basic auth and logging.
// Relative request URLs are resolved under baseURL, which is treated as a directory.
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}

// do sends req and checks the status against ok. Non-matching responses are
// turned into a *StatusError and the body is closed.
func (c *httpClientWrapper) do(req *http.Request, ok ...int) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("failed to send %s request: %w", req.Method, err)
	}

	c.logger.Debug("received response", "method", req.Method, "status", resp.Status)

	for _, code := range ok {
		if resp.StatusCode == code {
			return resp, nil
		}
	}

	defer resp.Body.Close()
	c.logger.Debug("unexpected status code",
		"status_code", resp.StatusCode,
		"status", resp.Status)
	return nil, newStatusError(resp)
}

func (c *httpClientWrapper) newRequest(ctx context.Context, method, urlStr string, body io.Reader) (*http.Request, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, err
	}

	c.logger.Debug("resolved URL", "method", method, "url", resolvedURL.String())

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	return req, nil
}

func decodeBody(resp *http.Response, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
