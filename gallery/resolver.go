package gallery

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storynav/common"
)

// DefaultPageSize is what web UI uses for gallery pages.
const DefaultPageSize = 24

// Resolution is outcome of resolving target.
type Resolution struct {
	Target Target
	// Deviations in API order.
	Deviations []DeviationSummary
	// FolderID is empty when whole gallery was listed or folder could not be
	// mapped to id.
	FolderID string
}

// folderStrategy tries to map target to folder id. ok is false when strategy
// does not apply or could not find anything.
type folderStrategy struct {
	name    string
	resolve func(ctx context.Context, r *Resolver, t Target) (id string, ok bool, err error)
}

// Tried in order, first match wins.
var folderStrategies = []folderStrategy{
	{name: "folder id", resolve: byFolderID},
	{name: "folder slug", resolve: byFolderSlug},
}

// Resolver produces definitive ordered gallery listing for target.
type Resolver struct {
	api        API
	pages      PageFetcher
	host       string
	pageSize   int
	log        *zap.Logger
	strategies []folderStrategy
}

// NewResolver creates resolver. pages may be nil, in which case HTML order
// fallback is unavailable.
func NewResolver(api API, pages PageFetcher, host string, pageSize int, log *zap.Logger) *Resolver {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Resolver{
		api:        api,
		pages:      pages,
		host:       host,
		pageSize:   pageSize,
		log:        log,
		strategies: folderStrategies,
	}
}

// Resolve lists deviations for target. Folder id is resolved first, when it
// is not possible gallery page HTML is used to select and order entries from
// whole gallery listing.
func (r *Resolver) Resolve(ctx context.Context, t Target) (*Resolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, s := range r.strategies {
		id, ok, err := s.resolve(ctx, r, t)
		if err != nil {
			return nil, fmt.Errorf("unable to resolve folder by %s: %w", s.name, err)
		}
		if !ok {
			continue
		}
		r.log.Debug("Folder resolved", zap.String("strategy", s.name), zap.String("folder", id))
		items, err := r.FetchAll(ctx, id, t.Username)
		if err != nil {
			return nil, err
		}
		return &Resolution{Target: t, Deviations: items, FolderID: id}, nil
	}

	if t.FolderRef != "" {
		if t.IsURL() && r.pages != nil {
			items, err := r.byPageOrder(ctx, t)
			if err != nil {
				return nil, err
			}
			return &Resolution{Target: t, Deviations: items}, nil
		}
		r.log.Warn("Unable to resolve folder, listing whole gallery", zap.Stringer("target", t))
	}

	items, err := r.FetchAll(ctx, "", t.Username)
	if err != nil {
		return nil, err
	}
	return &Resolution{Target: t, Deviations: items}, nil
}

// FetchAll walks all pages of gallery listing. Duplicated entries are
// dropped, first one wins.
func (r *Resolver) FetchAll(ctx context.Context, folderID, username string) ([]DeviationSummary, error) {
	var (
		items  []DeviationSummary
		seen   = make(map[string]struct{})
		offset int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := r.api.GalleryPage(ctx, folderID, username, offset, r.pageSize)
		if err != nil {
			return nil, err
		}
		batch := ParseRecords(page.Records)
		for _, d := range batch {
			if _, ok := seen[d.DeviationID]; ok {
				r.log.Debug("Duplicate gallery entry ignored", zap.String("id", d.DeviationID))
				continue
			}
			seen[d.DeviationID] = struct{}{}
			items = append(items, d)
		}
		r.log.Debug("Gallery page fetched", zap.Int("offset", offset), zap.Int("records", len(page.Records)), zap.Bool("more", page.HasMore))

		if !page.HasMore || len(page.Records) == 0 {
			// server may claim more data yet return nothing, do not loop forever
			break
		}
		if page.NextOffset != nil {
			offset = *page.NextOffset
			continue
		}
		offset += len(page.Records)
	}
	return items, nil
}

func byFolderID(_ context.Context, _ *Resolver, t Target) (string, bool, error) {
	if strings.Contains(t.FolderRef, "-") {
		return t.FolderRef, true, nil
	}
	return "", false, nil
}

func byFolderSlug(ctx context.Context, r *Resolver, t Target) (string, bool, error) {
	if t.FolderRef == "" || t.FolderSlug == "" {
		return "", false, nil
	}
	folders, err := r.api.Folders(ctx, t.Username)
	if err != nil {
		return "", false, err
	}
	bySlug := make(map[string]string, len(folders))
	for _, f := range folders {
		bySlug[Slugify(f.Name)] = f.FolderID
	}
	id, ok := bySlug[Slugify(t.FolderSlug)]
	return id, ok, nil
}

// byPageOrder selects entries of whole gallery listing in the order they
// appear on gallery web page.
func (r *Resolver) byPageOrder(ctx context.Context, t Target) ([]DeviationSummary, error) {
	page, err := r.pages.FetchHTML(ctx, t.Source)
	if err != nil {
		return nil, err
	}
	urls := ExtractDeviationURLs(page, r.host, t.Username)
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: gallery page %s has no deviation links for user %s", common.ErrResolutionFailed, t.Source, t.Username)
	}
	r.log.Debug("Gallery page links extracted", zap.Int("count", len(urls)))

	all, err := r.FetchAll(ctx, "", t.Username)
	if err != nil {
		return nil, err
	}
	byURL := make(map[string]DeviationSummary, len(all))
	for _, d := range all {
		byURL[normalizeURL(d.URL)] = d
	}

	var (
		items []DeviationSummary
		taken = make(map[string]struct{})
	)
	for _, u := range urls {
		key := normalizeURL(u)
		d, ok := byURL[key]
		if !ok {
			continue
		}
		if _, dup := taken[key]; dup {
			continue
		}
		taken[key] = struct{}{}
		items = append(items, d)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: could not map gallery page links to API entries", common.ErrResolutionFailed)
	}
	return items, nil
}
