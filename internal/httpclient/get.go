package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

func (c *httpClientWrapper) DoGET(ctx context.Context, urlStr string, out any) error {
	c.logger.Debug("starting GET request", "url", urlStr)

	req, err := c.newRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, http.StatusOK)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeBody(resp, out)
}

func (c *httpClientWrapper) DoGETRaw(ctx context.Context, urlStr string) ([]byte, string, error) {
	c.logger.Debug("starting GET request", "url", urlStr)

	req, err := c.newRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.do(req, http.StatusOK)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}
