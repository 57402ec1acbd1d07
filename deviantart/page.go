package deviantart

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/html/charset"

	"storynav/common"
)

// FetchHTML downloads public web page converting it to UTF-8. Access token
// is not sent.
func (c *Client) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: unable to prepare request for %s: %w", common.ErrRequestFailed, pageURL, err)
	}
	req.Header.Set("Accept", "text/html")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: failed to fetch gallery page %s: %w", common.ErrRequestFailed, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: failed to fetch gallery page %s: HTTP %d", common.ErrRequestFailed, pageURL, resp.StatusCode)
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("%w: unable to detect encoding of %s: %w", common.ErrRequestFailed, pageURL, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: unable to read gallery page %s: %w", common.ErrRequestFailed, pageURL, err)
	}
	return string(data), nil
}
