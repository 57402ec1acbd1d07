// Package listing implements read-only gallery commands.
package listing

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"storynav/auth"
	"storynav/common"
	"storynav/deviantart"
	"storynav/gallery"
	"storynav/navsync"
	"storynav/state"
)

// List prints gallery entries in requested order.
func List(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("list")

	target, err := navsync.TargetFromArgs(cmd, env.Cfg.API.SiteHost, log)
	if err != nil {
		return err
	}
	order := navsync.OrderFromFlags(cmd, env.Cfg.Sync.Order)

	res, _, err := navsync.Resolve(ctx, env, target, log)
	if err != nil {
		return err
	}
	items := gallery.Ordered(res.Deviations, order)
	if cmd.Bool("literature-only") {
		items = gallery.Literature(items)
	}
	WriteList(env.Out, res, items, order)
	return nil
}

// WriteList formats listing of items.
func WriteList(w io.Writer, res *gallery.Resolution, items []gallery.DeviationSummary, order common.Order) {
	scope := " (all)"
	if res.FolderID != "" {
		scope = " folder " + res.FolderID
	}
	fmt.Fprintf(w, "Gallery list for %s%s\n", res.Target.Username, scope)
	fmt.Fprintf(w, "Order: %s\n", order)
	fmt.Fprintf(w, "Total entries: %d\n", len(items))
	for i, d := range items {
		fmt.Fprintf(w, "%03d | %-10s | %s | %s | %s\n", i+1, d.Kind, d.DeviationID, d.Title, d.URL)
	}
	fmt.Fprintf(w, "Literature entries: %d\n", len(gallery.Literature(items)))
}

// Folders prints gallery folders of the user, useful to find folder id.
func Folders(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("folders")

	// gallery URL is accepted too
	target, err := gallery.ParseTarget(cmd.Args().Get(0), env.Cfg.API.SiteHost)
	if err != nil {
		return err
	}
	username := target.Username

	_, sess, err := auth.FromEnv(env, log)
	if err != nil {
		return err
	}
	folders, err := auth.NewAPI(sess, deviantart.NewClient(&env.Cfg.API, log)).Folders(ctx, username)
	if err != nil {
		return err
	}
	log.Debug("Folders listed", zap.String("username", username), zap.Int("count", len(folders)))

	WriteFolders(env.Out, username, folders, cmd.Bool("sort"))
	return nil
}

// WriteFolders formats folder listing, optionally in natural name order.
func WriteFolders(w io.Writer, username string, folders []gallery.Folder, sorted bool) {
	if sorted {
		folders = slices.Clone(folders)
		slices.SortStableFunc(folders, func(a, b gallery.Folder) int {
			switch {
			case natural.Less(a.Name, b.Name):
				return -1
			case natural.Less(b.Name, a.Name):
				return 1
			}
			return 0
		})
	}
	fmt.Fprintf(w, "Gallery folders for %s: %d\n", username, len(folders))
	for _, f := range folders {
		fmt.Fprintf(w, "%s | %s | %s\n", f.FolderID, f.Name, gallery.Slugify(f.Name))
	}
}
