package navsync

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storynav/auth"
	"storynav/common"
	"storynav/deviantart"
	"storynav/gallery"
	"storynav/journal"
	"storynav/state"
)

// OrderFromFlags applies --ascending/--descending over configured order.
func OrderFromFlags(cmd *cli.Command, def common.Order) common.Order {
	switch {
	case cmd.Bool("ascending"):
		return common.OrderAscending
	case cmd.Bool("descending"):
		return common.OrderDescending
	}
	return def
}

// TargetFromArgs parses gallery reference from the first argument, --folder
// flag replaces folder part of it.
func TargetFromArgs(cmd *cli.Command, host string, log *zap.Logger) (gallery.Target, error) {
	raw := cmd.Args().Get(0)
	if raw == "" {
		return gallery.Target{}, fmt.Errorf("%w: no gallery has been specified", common.ErrInvalidInput)
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many galleries", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	target, err := gallery.ParseTarget(raw, host)
	if err != nil {
		return gallery.Target{}, err
	}
	return target.WithFolder(cmd.String("folder")), nil
}

// Resolve lists gallery entries for target refreshing access token when
// necessary.
func Resolve(ctx context.Context, env *state.LocalEnv, target gallery.Target, log *zap.Logger) (*gallery.Resolution, *auth.API, error) {
	_, sess, err := auth.FromEnv(env, log)
	if err != nil {
		return nil, nil, err
	}
	api := auth.NewAPI(sess, deviantart.NewClient(&env.Cfg.API, log))
	res, err := gallery.NewResolver(api, api, env.Cfg.API.SiteHost, env.Cfg.API.PageSize, log).Resolve(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	return res, api, nil
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("sync")

	target, err := TargetFromArgs(cmd, env.Cfg.API.SiteHost, log)
	if err != nil {
		return err
	}
	order := OrderFromFlags(cmd, env.Cfg.Sync.Order)
	dryRun := cmd.Bool("dry-run")

	res, api, err := Resolve(ctx, env, target, log)
	if err != nil {
		return err
	}
	items := gallery.Literature(gallery.Ordered(res.Deviations, order))
	if len(items) == 0 {
		return fmt.Errorf("%w: no literature deviations found in selected gallery scope", common.ErrInvalidInput)
	}

	runID := uuid.NewString()
	workdir := cmd.String("workdir")
	if workdir == "" {
		name, err := WorkdirName(env.Cfg.Sync.WorkdirTemplate, WorkdirValues{
			Username: target.Username,
			Folder:   res.FolderID,
			Order:    order.String(),
			RunID:    runID,
		})
		if err != nil {
			return err
		}
		workdir = filepath.Join(env.Cfg.Sync.WorkdirRoot, name)
	}
	if workdir, err = PrepareWorkdir(workdir); err != nil {
		return err
	}
	log.Debug("Workdir prepared", zap.String("dir", workdir), zap.String("run", runID))

	// workdir goes into debug report after everything is written there
	defer func() {
		if er := env.Rpt.StoreCopy("sync", workdir); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to store workdir in report: %w", er))
		}
	}()

	p := &Processor{
		Content:      api,
		Workdir:      workdir,
		DryRun:       dryRun,
		PreviewLines: env.Cfg.Sync.DiffPreviewLines,
		Out:          env.Out,
		Log:          log,
	}
	var sum Summary
	if env.Cfg.Sync.Journal {
		if p.Journal, err = journal.Open(filepath.Join(workdir, journal.FileName), journal.Run{
			ID:       runID,
			Username: target.Username,
			Folder:   res.FolderID,
			Order:    order.String(),
			DryRun:   dryRun,
		}); err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, p.Journal.Finish(err, sum.Processed, sum.Changed, sum.Uploaded))
			err = multierr.Append(err, p.Journal.Close())
		}()
	}

	mode := "live upload"
	if dryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(env.Out, "Sync workdir: %s\n", workdir)
	fmt.Fprintf(env.Out, "Gallery: %s\n", target.Username)
	fmt.Fprintf(env.Out, "Order: %s\n", order)
	fmt.Fprintf(env.Out, "Literature items: %d\n", len(items))
	fmt.Fprintf(env.Out, "Mode: %s\n", mode)

	sum, err = p.Run(ctx, items)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Sync interrupted", zap.Int("processed", sum.Processed))
		}
		return err
	}

	fmt.Fprintf(env.Out, "Changed items: %d\n", sum.Changed)
	if dryRun {
		fmt.Fprintln(env.Out, "No upload performed (dry-run).")
	} else {
		fmt.Fprintf(env.Out, "Uploaded items: %d\n", sum.Uploaded)
	}
	log.Info("Sync completed", zap.String("workdir", workdir), zap.Int("processed", sum.Processed), zap.Int("changed", sum.Changed), zap.Int("uploaded", sum.Uploaded))
	return nil
}
