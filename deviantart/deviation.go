package deviantart

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"storynav/common"
)

// Metadata is deviation description as returned by API, kept raw.
type Metadata struct {
	raw gjson.Result
}

// NewMetadata wraps raw JSON object.
func NewMetadata(raw string) Metadata {
	return Metadata{raw: gjson.Parse(raw)}
}

func (m Metadata) Title() string {
	return m.raw.Get("title").String()
}

func (m Metadata) IsMature() bool {
	return m.raw.Get("is_mature").Bool()
}

// Snapshot returns indented JSON with sorted keys, suitable for diffing
// between runs.
func (m Metadata) Snapshot() []byte {
	if !m.raw.Exists() {
		return []byte("{}\n")
	}
	return []byte(m.raw.Get(`@pretty:{"sortKeys":true}`).Raw)
}

// Deviation fetches deviation metadata.
func (c *Client) Deviation(ctx context.Context, id string) (Metadata, error) {
	payload, err := c.get(ctx, "/deviation/"+url.PathEscape(id), nil)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{raw: payload}, nil
}

// Content fetches HTML body of literature deviation.
func (c *Client) Content(ctx context.Context, id string) (string, error) {
	const path = "/deviation/content"
	payload, err := c.get(ctx, path, url.Values{"deviationid": {id}})
	if err != nil {
		return "", err
	}
	html := payload.Get("html")
	if html.Exists() && html.Type != gjson.String && html.Type != gjson.Null {
		return "", fmt.Errorf("%w: API response for %s has unexpected html field", common.ErrRequestFailed, path)
	}
	return html.String(), nil
}

// UpdateLiterature replaces title, body and mature flag of literature
// deviation.
func (c *Client) UpdateLiterature(ctx context.Context, id, title, body string, mature bool) error {
	path := "/deviation/literature/update/" + url.PathEscape(id)
	payload, err := c.post(ctx, path, url.Values{
		"title":     {title},
		"body":      {body},
		"is_mature": {strconv.FormatBool(mature)},
	})
	if err != nil {
		return err
	}
	if payload.Get("status").String() == "error" {
		return fmt.Errorf("%w: update of %s rejected: %s", common.ErrRequestFailed, id, payload.Get("error_description").String())
	}
	return nil
}

// Placebo checks that access token is accepted.
func (c *Client) Placebo(ctx context.Context) error {
	const path = "/placebo"
	payload, err := c.get(ctx, path, nil)
	if err != nil {
		return err
	}
	if status := payload.Get("status").String(); status != "success" {
		return fmt.Errorf("%w: %s returned status %q", common.ErrRequestFailed, path, status)
	}
	return nil
}
