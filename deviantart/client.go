// Package deviantart is a thin client for DeviantArt REST API. It knows how
// to call endpoints and classify failures, everything else is up to callers.
package deviantart

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"storynav/common"
	"storynav/config"
)

// Client calls API on behalf of a single access token.
type Client struct {
	BaseURL   string
	Token     string
	HTTP      *http.Client
	UserAgent string
	// Mature requests mature deviations in gallery listings.
	Mature bool
}

// NewClient prepares client from configuration. Requests are logged at debug
// level with access token redacted.
func NewClient(cfg *config.APIConfig, log *zap.Logger) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		HTTP:      NewHTTPClient(cfg, log),
		UserAgent: cfg.UserAgent,
		Mature:    cfg.MatureContent,
	}
}

// NewHTTPClient returns client bounded by configured timeout which logs
// requests and identifies itself with configured user agent. OAuth2 token
// requests go through it too.
func NewHTTPClient(cfg *config.APIConfig, log *zap.Logger) *http.Client {
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: NewLoggingTransport(http.DefaultTransport, cfg.UserAgent, log),
	}
}

// WithToken returns copy of the client using different access token. HTTP
// client is shared.
func (c *Client) WithToken(token string) *Client {
	cc := *c
	cc.Token = token
	return &cc
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values) (*http.Request, error) {
	values := url.Values{}
	for k, v := range params {
		values[k] = v
	}
	values.Set("access_token", c.Token)

	var (
		req *http.Request
		err error
	)
	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path+"?"+values.Encode(), nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: unable to prepare request for %s: %w", common.ErrRequestFailed, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return req, nil
}

// call performs request and returns JSON object from response body.
func (c *Client) call(ctx context.Context, method, path string, params url.Values) (gjson.Result, error) {
	req, err := c.newRequest(ctx, method, path, params)
	if err != nil {
		return gjson.Result{}, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return gjson.Result{}, ctx.Err()
		}
		return gjson.Result{}, fmt.Errorf("%w: API request for %s: %w", common.ErrRequestFailed, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: unable to read API response for %s: %w", common.ErrRequestFailed, path, err)
	}
	if err := ensureOK(path, resp.StatusCode, body); err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: API response for %s was not valid JSON", common.ErrRequestFailed, path)
	}
	payload := gjson.ParseBytes(body)
	if !payload.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: API response for %s had unexpected shape", common.ErrRequestFailed, path)
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (gjson.Result, error) {
	return c.call(ctx, http.MethodGet, path, params)
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (gjson.Result, error) {
	return c.call(ctx, http.MethodPost, path, form)
}
