package deviantart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"storynav/common"
	"storynav/config"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(&config.APIConfig{
		BaseURL:       srv.URL + "/api/v1/oauth2/",
		UserAgent:     "storynav-test/1",
		Timeout:       5 * time.Second,
		MatureContent: true,
	}, zaptest.NewLogger(t))
	return c.WithToken("tok-123")
}

func TestGalleryPage(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		fmt.Fprint(w, `{"has_more": true, "next_offset": 24, "results": [{"deviationid": "A"}, {"deviationid": "B"}]}`)
	}))

	page, err := c.GalleryPage(context.Background(), "", "zoec98", 0, 24)
	if err != nil {
		t.Fatalf("GalleryPage() error = %v", err)
	}
	if got.URL.Path != "/api/v1/oauth2/gallery/all" {
		t.Errorf("path = %s", got.URL.Path)
	}
	q := got.URL.Query()
	want := url.Values{
		"access_token":   {"tok-123"},
		"username":       {"zoec98"},
		"offset":         {"0"},
		"limit":          {"24"},
		"mature_content": {"true"},
	}
	for k, v := range want {
		if q.Get(k) != v[0] {
			t.Errorf("query %s = %q, want %q", k, q.Get(k), v[0])
		}
	}
	if ua := got.Header.Get("User-Agent"); ua != "storynav-test/1" {
		t.Errorf("User-Agent = %q", ua)
	}
	if len(page.Records) != 2 || !page.HasMore {
		t.Errorf("page = %+v", page)
	}
	if page.NextOffset == nil || *page.NextOffset != 24 {
		t.Errorf("NextOffset = %v, want 24", page.NextOffset)
	}
}

func TestGalleryPage_FolderAndNoOffset(t *testing.T) {
	var path string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		fmt.Fprint(w, `{"has_more": false, "next_offset": null, "results": []}`)
	}))

	page, err := c.GalleryPage(context.Background(), "F1-F2", "zoec98", 48, 24)
	if err != nil {
		t.Fatalf("GalleryPage() error = %v", err)
	}
	if path != "/api/v1/oauth2/gallery/F1-F2" {
		t.Errorf("path = %s", path)
	}
	if page.HasMore || page.NextOffset != nil {
		t.Errorf("page = %+v", page)
	}
}

func TestGalleryPage_BadPayload(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   `<html>oops</html>`,
		"array":      `[1, 2]`,
		"no results": `{"has_more": false}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			_, err := c.GalleryPage(context.Background(), "", "zoec98", 0, 24)
			if !errors.Is(err, common.ErrRequestFailed) {
				t.Errorf("error = %v, want ErrRequestFailed", err)
			}
		})
	}
}

func TestFolders_Pagination(t *testing.T) {
	var offsets []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/oauth2/gallery/folders" {
			http.NotFound(w, r)
			return
		}
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)
		switch offset {
		case "0":
			fmt.Fprint(w, `{"has_more": true, "next_offset": 2, "results": [{"folderid": "F-1", "name": "Featured"}, {"folderid": "F-2", "name": ""}]}`)
		default:
			fmt.Fprint(w, `{"has_more": false, "results": [{"folderid": "F-3", "name": "Test Gallery"}]}`)
		}
	}))

	folders, err := c.Folders(context.Background(), "zoec98")
	if err != nil {
		t.Fatalf("Folders() error = %v", err)
	}
	if len(folders) != 2 || folders[0].FolderID != "F-1" || folders[1].Name != "Test Gallery" {
		t.Errorf("folders = %+v", folders)
	}
	if strings.Join(offsets, ",") != "0,2" {
		t.Errorf("offsets = %v", offsets)
	}
}

func TestFolders_EmptyPageStops(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 3 {
			t.Errorf("request %d for offset %s", calls, r.URL.Query().Get("offset"))
			http.Error(w, "too many requests", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"has_more": true, "next_offset": 0, "results": []}`)
	}))

	folders, err := c.Folders(context.Background(), "zoec98")
	if err != nil {
		t.Fatalf("Folders() error = %v", err)
	}
	if len(folders) != 0 || calls != 1 {
		t.Errorf("folders = %+v after %d calls, want none after 1", folders, calls)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		expired bool
	}{
		{name: "invalid token", status: 401, body: `{"error": "invalid_token", "error_description": "Expired oAuth2 user token."}`, expired: true},
		{name: "expired in text", status: 403, body: `token has expired`, expired: true},
		{name: "plain unauthorized", status: 401, body: `{"error": "unauthorized"}`},
		{name: "forbidden scope", status: 403, body: `{"error": "insufficient_scope"}`},
		{name: "server error", status: 500, body: `invalid_token`},
		{name: "not found", status: 404, body: `missing`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			err := c.Placebo(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, common.ErrAuthExpired); got != tt.expired {
				t.Errorf("errors.Is(ErrAuthExpired) = %v, want %v (%v)", got, tt.expired, err)
			}
			if got := errors.Is(err, common.ErrRequestFailed); got == tt.expired {
				t.Errorf("errors.Is(ErrRequestFailed) = %v (%v)", got, err)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Errorf("expected APIError with status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestClient_ErrorSnippet(t *testing.T) {
	body := strings.Repeat("line\n", 200)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, body)
	}))
	err := c.Placebo(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.Snippet) > snippetLen || strings.Contains(apiErr.Snippet, "\n") {
		t.Errorf("snippet not shortened: %q", apiErr.Snippet)
	}
	if !strings.Contains(err.Error(), "/placebo") {
		t.Errorf("error does not mention path: %v", err)
	}
}

func TestTokenRejected(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   bool
	}{
		{401, `{"error":"invalid_token"}`, true},
		{401, `{"error_description":"Token EXPIRED"}`, true},
		{403, `invalid_token`, true},
		{401, `{"error":"invalid_request"}`, false},
		{400, `{"error":"invalid_token"}`, false},
		{200, `expired`, false},
	}
	for _, tt := range tests {
		if got := TokenRejected(tt.status, []byte(tt.body)); got != tt.want {
			t.Errorf("TokenRejected(%d, %s) = %v, want %v", tt.status, tt.body, got, tt.want)
		}
	}
}

func TestDeviationAndContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/oauth2/deviation/ABC-1":
			fmt.Fprint(w, `{"title": "Chapter 1", "is_mature": true, "author": {"username": "zoec98", "type": "regular"}, "deviationid": "ABC-1"}`)
		case "/api/v1/oauth2/deviation/content":
			if r.URL.Query().Get("deviationid") != "ABC-1" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, `{"html": "<p>Hello world</p>"}`)
		default:
			http.NotFound(w, r)
		}
	}))

	meta, err := c.Deviation(context.Background(), "ABC-1")
	if err != nil {
		t.Fatalf("Deviation() error = %v", err)
	}
	if meta.Title() != "Chapter 1" || !meta.IsMature() {
		t.Errorf("metadata title = %q mature = %v", meta.Title(), meta.IsMature())
	}
	snap := string(meta.Snapshot())
	if !strings.HasPrefix(snap, "{\n  \"author\": {\n    \"type\": \"regular\",\n    \"username\": \"zoec98\"\n  },\n  \"deviationid\"") {
		t.Errorf("Snapshot() is not sorted and indented:\n%s", snap)
	}

	html, err := c.Content(context.Background(), "ABC-1")
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if html != "<p>Hello world</p>" {
		t.Errorf("Content() = %q", html)
	}
}

func TestMetadata_Defaults(t *testing.T) {
	var m Metadata
	if m.Title() != "" || m.IsMature() {
		t.Error("zero metadata should have no title and not be mature")
	}
	if string(m.Snapshot()) != "{}\n" {
		t.Errorf("Snapshot() = %q", m.Snapshot())
	}
	if NewMetadata(`{"title": "T"}`).Title() != "T" {
		t.Error("NewMetadata() lost title")
	}
}

func TestUpdateLiterature(t *testing.T) {
	var (
		method string
		form   url.Values
	)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		form = r.PostForm
		if r.URL.Path != "/api/v1/oauth2/deviation/literature/update/ABC-1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"status": "success", "deviationid": "ABC-1"}`)
	}))

	if err := c.UpdateLiterature(context.Background(), "ABC-1", "Chapter 1", "<p>body & more</p>\n", false); err != nil {
		t.Fatalf("UpdateLiterature() error = %v", err)
	}
	if method != http.MethodPost {
		t.Errorf("method = %s", method)
	}
	if form.Get("title") != "Chapter 1" || form.Get("body") != "<p>body & more</p>\n" || form.Get("is_mature") != "false" {
		t.Errorf("form = %v", form)
	}
	if form.Get("access_token") != "tok-123" {
		t.Errorf("access token not sent in form: %v", form)
	}
}

func TestUpdateLiterature_Rejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "error", "error_description": "not literature"}`)
	}))
	err := c.UpdateLiterature(context.Background(), "X", "t", "b", true)
	if !errors.Is(err, common.ErrRequestFailed) {
		t.Errorf("error = %v, want ErrRequestFailed", err)
	}
}

func TestFetchHTML_Charset(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("access_token") {
			t.Error("access token must not be sent to web pages")
		}
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "café" in latin-1
		w.Write([]byte("<p>caf\xe9</p>"))
	}))

	page, err := c.FetchHTML(context.Background(), strings.TrimSuffix(c.BaseURL, "/api/v1/oauth2")+"/zoec98/gallery/1/x")
	if err != nil {
		t.Fatalf("FetchHTML() error = %v", err)
	}
	if page != "<p>café</p>" {
		t.Errorf("FetchHTML() = %q", page)
	}
}

func TestFetchHTML_Status(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	_, err := c.FetchHTML(context.Background(), c.BaseURL+"/page")
	if !errors.Is(err, common.ErrRequestFailed) {
		t.Errorf("error = %v, want ErrRequestFailed", err)
	}
}

func TestRedactURL(t *testing.T) {
	u, _ := url.Parse("https://www.deviantart.com/api/v1/oauth2/placebo?access_token=abc&username=zoec98")
	got := redactURL(u)
	if strings.Contains(got, "abc") {
		t.Errorf("token leaked: %s", got)
	}
	if !strings.Contains(got, "username=zoec98") {
		t.Errorf("other params lost: %s", got)
	}
	if u.Query().Get("access_token") != "abc" {
		t.Error("original URL modified")
	}
}
