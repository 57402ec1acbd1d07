package deviantart

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"storynav/common"
	"storynav/gallery"
)

// folderPageSize is the maximum API allows for folder listing.
const folderPageSize = 50

func results(path string, payload gjson.Result) ([]gjson.Result, error) {
	r := payload.Get("results")
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: API response for %s is missing a 'results' list", common.ErrRequestFailed, path)
	}
	return r.Array(), nil
}

func nextOffset(payload gjson.Result) *int {
	r := payload.Get("next_offset")
	if r.Type != gjson.Number {
		return nil
	}
	n := int(r.Int())
	return &n
}

// GalleryPage requests single page of gallery listing, whole gallery when
// folderID is empty.
func (c *Client) GalleryPage(ctx context.Context, folderID, username string, offset, limit int) (*gallery.Page, error) {
	path := "/gallery/all"
	if folderID != "" {
		path = "/gallery/" + url.PathEscape(folderID)
	}
	payload, err := c.get(ctx, path, url.Values{
		"username":       {username},
		"offset":         {strconv.Itoa(offset)},
		"limit":          {strconv.Itoa(limit)},
		"mature_content": {strconv.FormatBool(c.Mature)},
	})
	if err != nil {
		return nil, err
	}
	records, err := results(path, payload)
	if err != nil {
		return nil, err
	}
	return &gallery.Page{
		Records:    records,
		HasMore:    payload.Get("has_more").Bool(),
		NextOffset: nextOffset(payload),
	}, nil
}

// Folders lists all gallery folders of the user.
func (c *Client) Folders(ctx context.Context, username string) ([]gallery.Folder, error) {
	const path = "/gallery/folders"

	var (
		folders []gallery.Folder
		offset  int
	)
	for {
		payload, err := c.get(ctx, path, url.Values{
			"username": {username},
			"offset":   {strconv.Itoa(offset)},
			"limit":    {strconv.Itoa(folderPageSize)},
		})
		if err != nil {
			return nil, err
		}
		records, err := results(path, payload)
		if err != nil {
			return nil, err
		}
		folders = append(folders, gallery.ParseFolders(records)...)

		if !payload.Get("has_more").Bool() || len(records) == 0 {
			return folders, nil
		}
		if next := nextOffset(payload); next != nil {
			offset = *next
			continue
		}
		offset += len(records)
	}
}
