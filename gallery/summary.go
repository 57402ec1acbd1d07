package gallery

import (
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"storynav/common"
)

const (
	KindLiterature = "literature"
	KindUnknown    = "unknown"
)

// DeviationSummary is single gallery entry as seen in listing.
type DeviationSummary struct {
	DeviationID string
	Title       string
	URL         string
	Kind        string
}

func (d DeviationSummary) IsLiterature() bool {
	return d.Kind == KindLiterature
}

// Folder is gallery folder, only used to map slug to id.
type Folder struct {
	FolderID string
	Name     string
}

// ParseRecord maps raw gallery record. Records without id, title or url are
// rejected.
func ParseRecord(r gjson.Result) (DeviationSummary, bool) {
	if !r.IsObject() {
		return DeviationSummary{}, false
	}
	d := DeviationSummary{
		DeviationID: strings.TrimSpace(r.Get("deviationid").String()),
		Title:       strings.TrimSpace(r.Get("title").String()),
		URL:         strings.TrimSpace(r.Get("url").String()),
		Kind:        strings.ToLower(strings.TrimSpace(r.Get("type").String())),
	}
	if d.Kind == "" {
		if r.Get("text_content").IsObject() {
			d.Kind = KindLiterature
		} else {
			d.Kind = KindUnknown
		}
	}
	if d.DeviationID == "" || d.Title == "" || d.URL == "" {
		return DeviationSummary{}, false
	}
	return d, true
}

// ParseRecords maps raw records silently dropping malformed ones: partial
// catalog entries are normal for this API.
func ParseRecords(records []gjson.Result) []DeviationSummary {
	items := make([]DeviationSummary, 0, len(records))
	for _, r := range records {
		if d, ok := ParseRecord(r); ok {
			items = append(items, d)
		}
	}
	return items
}

// ParseFolders maps raw folder records dropping ones without id or name.
func ParseFolders(records []gjson.Result) []Folder {
	folders := make([]Folder, 0, len(records))
	for _, r := range records {
		if !r.IsObject() {
			continue
		}
		f := Folder{
			FolderID: strings.TrimSpace(r.Get("folderid").String()),
			Name:     strings.TrimSpace(r.Get("name").String()),
		}
		if f.FolderID == "" || f.Name == "" {
			continue
		}
		folders = append(folders, f)
	}
	return folders
}

// Ordered returns copy of API ordered items arranged as requested.
func Ordered(items []DeviationSummary, order common.Order) []DeviationSummary {
	out := slices.Clone(items)
	if order == common.OrderDescending {
		slices.Reverse(out)
	}
	return out
}

// Literature keeps literature entries only, preserving order.
func Literature(items []DeviationSummary) []DeviationSummary {
	out := make([]DeviationSummary, 0, len(items))
	for _, d := range items {
		if d.IsLiterature() {
			out = append(out, d)
		}
	}
	return out
}

// URLs returns entry urls in the same order.
func URLs(items []DeviationSummary) []string {
	urls := make([]string, len(items))
	for i, d := range items {
		urls[i] = d.URL
	}
	return urls
}
