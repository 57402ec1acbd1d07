package auth

import (
	"context"

	"storynav/deviantart"
	"storynav/gallery"
)

// API is DeviantArt client whose every call goes through session: rejected
// access token is refreshed and the call repeated once.
type API struct {
	sess   *Session
	client *deviantart.Client
}

func NewAPI(sess *Session, client *deviantart.Client) *API {
	return &API{sess: sess, client: client}
}

func (a *API) GalleryPage(ctx context.Context, folderID, username string, offset, limit int) (*gallery.Page, error) {
	return Do(ctx, a.sess, func(ctx context.Context, token string) (*gallery.Page, error) {
		return a.client.WithToken(token).GalleryPage(ctx, folderID, username, offset, limit)
	})
}

func (a *API) Folders(ctx context.Context, username string) ([]gallery.Folder, error) {
	return Do(ctx, a.sess, func(ctx context.Context, token string) ([]gallery.Folder, error) {
		return a.client.WithToken(token).Folders(ctx, username)
	})
}

func (a *API) Deviation(ctx context.Context, id string) (deviantart.Metadata, error) {
	return Do(ctx, a.sess, func(ctx context.Context, token string) (deviantart.Metadata, error) {
		return a.client.WithToken(token).Deviation(ctx, id)
	})
}

func (a *API) Content(ctx context.Context, id string) (string, error) {
	return Do(ctx, a.sess, func(ctx context.Context, token string) (string, error) {
		return a.client.WithToken(token).Content(ctx, id)
	})
}

func (a *API) UpdateLiterature(ctx context.Context, id, title, body string, mature bool) error {
	_, err := Do(ctx, a.sess, func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, a.client.WithToken(token).UpdateLiterature(ctx, id, title, body, mature)
	})
	return err
}

func (a *API) Placebo(ctx context.Context) error {
	_, err := Do(ctx, a.sess, func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, a.client.WithToken(token).Placebo(ctx)
	})
	return err
}

// FetchHTML does not need token, web pages are public.
func (a *API) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	return a.client.FetchHTML(ctx, pageURL)
}
