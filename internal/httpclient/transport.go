package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

var (
	ErrEmptyUsername = errors.New("basic auth username cannot be empty")
	ErrEmptyPassword = errors.New("basic auth password cannot be empty")
)

// maxLoggedBody caps request and response bodies in debug logs
const maxLoggedBody = 4 << 10

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds Basic Auth
// credentials to a clone of the request and delegates to the underlying transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, ErrEmptyUsername
	}
	if t.Password == "" {
		return nil, ErrEmptyPassword
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	req = req.Clone(req.Context())
	var reqBody string
	if req.Body != nil {
		reqBody, req.Body = peekBody(req.Body)
	}

	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", reqBody)

	req.SetBasicAuth(t.Username, t.Password)
	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	var respBody string
	if resp.Body != nil {
		respBody, resp.Body = peekBody(resp.Body)
	}
	t.Logger.Debug("incoming response",
		"status", resp.Status,
		"headers", resp.Header,
		"body", respBody)

	return resp, nil
}

// peekBody reads body for logging and returns a replacement reader with the same content
func peekBody(body io.ReadCloser) (string, io.ReadCloser) {
	raw, err := io.ReadAll(body)
	body.Close()
	replay := io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", replay
	}
	if len(raw) > maxLoggedBody {
		return string(raw[:maxLoggedBody]) + "...", replay
	}
	return string(raw), replay
}
