package gallery

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"testing"

	"github.com/tidwall/gjson"
	"go.uber.org/zap/zaptest"

	"storynav/common"
)

type pageCall struct {
	folderID string
	offset   int
	limit    int
}

// fakeAPI serves gallery listing from in-memory records.
type fakeAPI struct {
	records   map[string][]string // folder id -> raw records
	folders   []Folder
	pageSize  int
	noOffset  bool // do not send next_offset
	stuck     bool // claim more data with empty pages and same next_offset
	calls     []pageCall
	folderHit int
	err       error
}

func (f *fakeAPI) GalleryPage(_ context.Context, folderID, _ string, offset, limit int) (*Page, error) {
	f.calls = append(f.calls, pageCall{folderID: folderID, offset: offset, limit: limit})
	if f.err != nil {
		return nil, f.err
	}
	if f.stuck {
		return &Page{HasMore: true, NextOffset: &offset}, nil
	}
	all := f.records[folderID]
	size := limit
	if f.pageSize > 0 {
		size = f.pageSize
	}
	end := min(offset+size, len(all))
	if offset > end {
		offset = end
	}
	p := &Page{HasMore: end < len(all)}
	for _, raw := range all[offset:end] {
		p.Records = append(p.Records, gjson.Parse(raw))
	}
	if p.HasMore && !f.noOffset {
		next := end
		p.NextOffset = &next
	}
	return p, nil
}

func (f *fakeAPI) Folders(context.Context, string) ([]Folder, error) {
	f.folderHit++
	return f.folders, nil
}

type fakePages struct {
	html string
	err  error
	urls []string
}

func (f *fakePages) FetchHTML(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.html, f.err
}

func rec(id string) string {
	return fmt.Sprintf(`{"deviationid": %q, "title": "Title %s", "url": "https://www.deviantart.com/zoec98/art/story-%s", "type": "literature"}`, id, id, id)
}

func recs(ids ...string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = rec(id)
	}
	return out
}

func ids(items []DeviationSummary) []string {
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.DeviationID
	}
	return out
}

func TestResolve_WholeGallery(t *testing.T) {
	api := &fakeAPI{records: map[string][]string{"": recs("1", "2", "3", "4", "5")}}
	r := NewResolver(api, nil, testHost, 2, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), Target{Username: "zoec98"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := ids(res.Deviations); !reflect.DeepEqual(got, []string{"1", "2", "3", "4", "5"}) {
		t.Errorf("Deviations = %v", got)
	}
	if res.FolderID != "" {
		t.Errorf("FolderID = %q, want empty", res.FolderID)
	}
	if len(api.calls) != 3 {
		t.Errorf("made %d page calls, want 3", len(api.calls))
	}
	for _, c := range api.calls {
		if c.limit != 2 {
			t.Errorf("limit = %d, want 2", c.limit)
		}
	}
}

func TestResolve_DirectFolderID(t *testing.T) {
	const folder = "0F1E2D3C-AAAA-BBBB-CCCC-000000000000"
	api := &fakeAPI{records: map[string][]string{folder: recs("7", "8")}}
	r := NewResolver(api, nil, testHost, 0, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), Target{Username: "zoec98"}.WithFolder(folder))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.FolderID != folder {
		t.Errorf("FolderID = %q, want %q", res.FolderID, folder)
	}
	if got := ids(res.Deviations); !reflect.DeepEqual(got, []string{"7", "8"}) {
		t.Errorf("Deviations = %v", got)
	}
	if api.folderHit != 0 {
		t.Error("folder list should not be requested for direct id")
	}
	if api.calls[0].limit != DefaultPageSize {
		t.Errorf("limit = %d, want %d", api.calls[0].limit, DefaultPageSize)
	}
}

func TestResolve_FolderSlug(t *testing.T) {
	api := &fakeAPI{
		records: map[string][]string{"F-1": recs("10", "11"), "": recs("1", "2")},
		folders: []Folder{{FolderID: "F-0", Name: "Featured"}, {FolderID: "F-1", Name: "Test Gallery"}},
	}
	pages := &fakePages{}
	r := NewResolver(api, pages, testHost, 24, zaptest.NewLogger(t))

	target, err := ParseTarget("https://www.deviantart.com/zoec98/gallery/100193480/testgallery", testHost)
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.FolderID != "F-1" {
		t.Errorf("FolderID = %q, want F-1", res.FolderID)
	}
	if got := ids(res.Deviations); !reflect.DeepEqual(got, []string{"10", "11"}) {
		t.Errorf("Deviations = %v", got)
	}
	if len(pages.urls) != 0 {
		t.Error("gallery page should not be fetched when slug resolved")
	}
}

func TestResolve_PageOrderFallback(t *testing.T) {
	api := &fakeAPI{
		records: map[string][]string{"": recs("1", "2", "3", "4")},
		folders: []Folder{{FolderID: "F-0", Name: "Featured"}},
	}
	pages := &fakePages{html: `
<a href="https://www.deviantart.com/zoec98/art/story-3">three</a>
<a href="https://www.deviantart.com/zoec98/art/story-1/">one</a>
<a href="https://www.deviantart.com/zoec98/art/story-3">three again</a>
<a href="https://www.deviantart.com/zoec98/art/story-99">missing in api</a>`}
	r := NewResolver(api, pages, testHost, 24, zaptest.NewLogger(t))

	src := "https://www.deviantart.com/zoec98/gallery/100193480/stories"
	target, err := ParseTarget(src, testHost)
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := ids(res.Deviations); !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Errorf("Deviations = %v, want [3 1]", got)
	}
	if res.FolderID != "" {
		t.Errorf("FolderID = %q, want empty", res.FolderID)
	}
	if !reflect.DeepEqual(pages.urls, []string{src}) {
		t.Errorf("fetched pages = %v", pages.urls)
	}
}

func TestResolve_PageOrderFallbackFailures(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{name: "no links", html: "<p>nothing here</p>"},
		{name: "no matches", html: `<a href="https://www.deviantart.com/zoec98/art/unknown-1">x</a>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{records: map[string][]string{"": recs("1")}}
			r := NewResolver(api, &fakePages{html: tt.html}, testHost, 24, zaptest.NewLogger(t))

			target := Target{Username: "zoec98", FolderRef: "123", Source: "https://www.deviantart.com/zoec98/gallery/123"}
			_, err := r.Resolve(context.Background(), target)
			if !errors.Is(err, common.ErrResolutionFailed) {
				t.Errorf("Resolve() error = %v, want ErrResolutionFailed", err)
			}
		})
	}
}

func TestResolve_NumericFolderWithoutURL(t *testing.T) {
	api := &fakeAPI{records: map[string][]string{"": recs("1", "2")}}
	pages := &fakePages{}
	r := NewResolver(api, pages, testHost, 24, zaptest.NewLogger(t))

	res, err := r.Resolve(context.Background(), Target{Username: "zoec98"}.WithFolder("123"))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(res.Deviations) != 2 || len(pages.urls) != 0 {
		t.Errorf("expected whole gallery without page fetch, got %v", ids(res.Deviations))
	}
}

func TestResolve_PropagatesErrors(t *testing.T) {
	api := &fakeAPI{err: fmt.Errorf("%w: boom", common.ErrAuthExpired)}
	r := NewResolver(api, nil, testHost, 24, zaptest.NewLogger(t))

	_, err := r.Resolve(context.Background(), Target{Username: "zoec98"})
	if !errors.Is(err, common.ErrAuthExpired) {
		t.Errorf("Resolve() error = %v, want ErrAuthExpired", err)
	}
}

func TestFetchAll_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		api       *fakeAPI
		wantIDs   []string
		wantCalls []int
	}{
		{
			name:      "server offsets",
			api:       &fakeAPI{records: map[string][]string{"": recs("1", "2", "3")}},
			wantIDs:   []string{"1", "2", "3"},
			wantCalls: []int{0, 2},
		},
		{
			name:      "offset by item count",
			api:       &fakeAPI{records: map[string][]string{"": recs("1", "2", "3")}, noOffset: true},
			wantIDs:   []string{"1", "2", "3"},
			wantCalls: []int{0, 2},
		},
		{
			name: "malformed records still advance offset",
			api: &fakeAPI{
				records:  map[string][]string{"": {rec("1"), `{"deviationid": "x"}`, rec("2")}},
				noOffset: true,
			},
			wantIDs:   []string{"1", "2"},
			wantCalls: []int{0, 2},
		},
		{
			name: "page of malformed records does not end listing",
			api: &fakeAPI{
				records:  map[string][]string{"": {`{"bad": 1}`, `{"bad": 2}`, rec("3")}},
				noOffset: true,
			},
			wantIDs:   []string{"3"},
			wantCalls: []int{0, 2},
		},
		{
			name:      "more data but empty page with next offset",
			api:       &fakeAPI{stuck: true},
			wantIDs:   nil,
			wantCalls: []int{0},
		},
		{
			name: "duplicates dropped",
			api: &fakeAPI{
				records: map[string][]string{"": recs("1", "2", "2", "1")},
			},
			wantIDs:   []string{"1", "2"},
			wantCalls: []int{0, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.api, nil, testHost, 2, zaptest.NewLogger(t))
			items, err := r.FetchAll(context.Background(), "", "zoec98")
			if err != nil {
				t.Fatalf("FetchAll() error = %v", err)
			}
			if got := ids(items); !slices.Equal(got, tt.wantIDs) {
				t.Errorf("FetchAll() = %v, want %v", got, tt.wantIDs)
			}
			var offsets []int
			for _, c := range tt.api.calls {
				offsets = append(offsets, c.offset)
			}
			if !reflect.DeepEqual(offsets, tt.wantCalls) {
				t.Errorf("offsets = %v, want %v", offsets, tt.wantCalls)
			}
		})
	}
}

func TestFetchAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewResolver(&fakeAPI{}, nil, testHost, 2, zaptest.NewLogger(t))
	if _, err := r.FetchAll(ctx, "", "zoec98"); !errors.Is(err, context.Canceled) {
		t.Errorf("FetchAll() error = %v, want context.Canceled", err)
	}
}
