package gallery

import (
	"context"

	"github.com/tidwall/gjson"
)

// Page is single page of gallery listing.
type Page struct {
	Records []gjson.Result
	HasMore bool
	// NextOffset is nil when server did not supply it.
	NextOffset *int
}

// API is what resolver needs from remote service. folderID is empty for
// whole gallery.
type API interface {
	GalleryPage(ctx context.Context, folderID, username string, offset, limit int) (*Page, error)
	Folders(ctx context.Context, username string) ([]Folder, error)
}

// PageFetcher retrieves gallery web page for HTML order fallback.
type PageFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}
