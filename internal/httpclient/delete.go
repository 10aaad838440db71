package httpclient

import (
	"context"
	"net/http"
)

// DoDELETE treats 200 and 204 as success; the series API answers deletes of
// absent events with 204 as well
func (c *httpClientWrapper) DoDELETE(ctx context.Context, urlStr string) error {
	c.logger.Debug("starting DELETE request", "url", urlStr)

	req, err := c.newRequest(ctx, http.MethodDelete, urlStr, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req, http.StatusNoContent, http.StatusOK)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("DELETE request complete", "status", resp.Status)
	return nil
}
