// Package navsync rewrites navigation blocks of literature deviations in a
// gallery, keeping every downloaded and produced body in working directory.
package navsync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storynav/config"
	"storynav/deviantart"
	"storynav/gallery"
	"storynav/journal"
	"storynav/nav"
)

// Content is what sync needs from DeviantArt for every entry.
type Content interface {
	Deviation(ctx context.Context, id string) (deviantart.Metadata, error)
	Content(ctx context.Context, id string) (string, error)
	UpdateLiterature(ctx context.Context, id, title, body string, mature bool) error
}

// Summary counts processed entries.
type Summary struct {
	Processed int
	Changed   int
	Uploaded  int
}

// Processor handles ordered literature entries one by one, any failure stops
// the run. Files already written stay in workdir.
type Processor struct {
	Content Content
	// Journal is optional.
	Journal *journal.Journal
	Workdir string
	DryRun  bool
	// PreviewLines limits diff printed for changed entries in dry-run mode.
	PreviewLines int
	Out          io.Writer
	Log          *zap.Logger
}

// entryFiles names artifacts of entry seq (1 based).
type entryFiles struct {
	base string
}

func newEntryFiles(seq int, id string) entryFiles {
	return entryFiles{base: fmt.Sprintf("%03d_%s", seq, config.CleanFileName(id))}
}

func (f entryFiles) meta() string     { return f.base + "_meta.json" }
func (f entryFiles) original() string { return f.base + "_original.html" }
func (f entryFiles) updated() string  { return f.base + "_updated.html" }
func (f entryFiles) diff() string     { return f.base + ".diff" }

// Run processes items, which must be literature entries in final order.
func (p *Processor) Run(ctx context.Context, items []gallery.DeviationSummary) (Summary, error) {
	var sum Summary

	urls := gallery.URLs(items)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		changed, uploaded, err := p.processEntry(ctx, i+1, item, nav.TargetsAt(urls, i))
		if err != nil {
			return sum, fmt.Errorf("entry %03d [%s] %q: %w", i+1, item.DeviationID, item.Title, err)
		}
		sum.Processed++
		if changed {
			sum.Changed++
		}
		if uploaded {
			sum.Uploaded++
		}
	}
	return sum, nil
}

func (p *Processor) processEntry(ctx context.Context, seq int, item gallery.DeviationSummary, targets nav.Targets) (changed, uploaded bool, err error) {
	log := p.Log.With(zap.Int("seq", seq), zap.String("id", item.DeviationID))

	meta, err := p.Content.Deviation(ctx, item.DeviationID)
	if err != nil {
		return false, false, err
	}
	original, err := p.Content.Content(ctx, item.DeviationID)
	if err != nil {
		return false, false, err
	}
	updated := nav.Apply(original, targets)

	expected := original
	if !strings.HasSuffix(expected, "\n") {
		expected += "\n"
	}
	changed = updated != expected

	files := newEntryFiles(seq, item.DeviationID)
	if err := p.write(files.meta(), meta.Snapshot()); err != nil {
		return false, false, err
	}
	if err := p.write(files.original(), []byte(original)); err != nil {
		return false, false, err
	}
	if err := p.write(files.updated(), []byte(updated)); err != nil {
		return false, false, err
	}

	fmt.Fprintf(p.Out, "%03d %s [%s] changed=%s\n", seq, item.Title, item.DeviationID, yesNo(changed))
	if changed {
		diff, err := unifiedDiff(original, updated, files.original(), files.updated())
		if err != nil {
			return false, false, fmt.Errorf("unable to produce diff: %w", err)
		}
		if err := p.write(files.diff(), []byte(diff)); err != nil {
			return false, false, err
		}
		if p.DryRun {
			if pv := preview(diff, p.PreviewLines); pv != "" {
				fmt.Fprintln(p.Out, pv)
			}
		} else {
			title := meta.Title()
			if title == "" {
				title = item.Title
			}
			if err := p.Content.UpdateLiterature(ctx, item.DeviationID, title, updated, meta.IsMature()); err != nil {
				return true, false, err
			}
			uploaded = true
			log.Debug("Uploaded", zap.String("title", title))
		}
	}

	if p.Journal != nil {
		if err := p.Journal.Record(journal.Entry{
			Seq:         seq,
			DeviationID: item.DeviationID,
			Title:       item.Title,
			URL:         item.URL,
			Changed:     changed,
			Uploaded:    uploaded,
		}); err != nil {
			return changed, uploaded, err
		}
	}
	log.Debug("Entry processed", zap.Bool("changed", changed), zap.Bool("uploaded", uploaded))
	return changed, uploaded, nil
}

func (p *Processor) write(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(p.Workdir, name), data, 0644); err != nil {
		return fmt.Errorf("unable to write '%s': %w", name, err)
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
