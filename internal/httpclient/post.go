package httpclient

import (
	"bytes"
	"context"
	"net/http"
)

func (c *httpClientWrapper) DoPOST(ctx context.Context, urlStr, contentType string, body []byte, out any) (http.Header, error) {
	c.logger.Debug("starting POST request",
		"url", urlStr,
		"content_type", contentType,
		"data_length", len(body))

	req, err := c.newRequest(ctx, http.MethodPost, urlStr, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := decodeBody(resp, out); err != nil {
		return resp.Header, err
	}

	c.logger.Debug("POST request complete", "status", resp.Status)
	return resp.Header, nil
}
