package client

import (
	"context"
	"encoding/json"
	"net/http"
)

// mockHTTPClient records the last request and replays a canned JSON body
type mockHTTPClient struct {
	getBody   string
	getErr    error
	lastURL   string
	lastBody  []byte
	lastCType string
}

func (m *mockHTTPClient) DoGET(ctx context.Context, urlStr string, out any) error {
	m.lastURL = urlStr
	if m.getErr != nil {
		return m.getErr
	}
	return json.Unmarshal([]byte(m.getBody), out)
}

func (m *mockHTTPClient) DoGETRaw(ctx context.Context, urlStr string) ([]byte, string, error) {
	m.lastURL = urlStr
	return []byte(m.getBody), "text/calendar", m.getErr
}

func (m *mockHTTPClient) DoPOST(ctx context.Context, urlStr, contentType string, body []byte, out any) (http.Header, error) {
	m.lastURL = urlStr
	m.lastBody = body
	m.lastCType = contentType
	if m.getErr != nil {
		return nil, m.getErr
	}
	return http.Header{}, json.Unmarshal([]byte(m.getBody), out)
}

func (m *mockHTTPClient) DoDELETE(ctx context.Context, urlStr string) error {
	m.lastURL = urlStr
	return m.getErr
}
