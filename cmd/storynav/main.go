package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"storynav/auth"
	"storynav/common"
	"storynav/config"
	"storynav/listing"
	"storynav/misc"
	"storynav/navsync"
	"storynav/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("%w: unable to prepare configuration: %w", common.ErrConfigIncomplete, err)
	}
	env.EnvFile = cmd.String("env")
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			// credentials are never part of configuration
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := config.PanicLogName(env.Cfg.Logging.FileLogger.Destination)
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling, subcommands return regular
// errors and exit code is derived from their kind.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Warn("Unknown command, nothing to do", zap.String("command", name))
	}
}

func orderFlags() []cli.MutuallyExclusiveFlags {
	return []cli.MutuallyExclusiveFlags{{
		Flags: [][]cli.Flag{
			{&cli.BoolFlag{Name: "ascending", Usage: "keep gallery order as shown on DeviantArt (manual order)"}},
			{&cli.BoolFlag{Name: "descending", Usage: "reverse gallery order (useful when chapters were posted over time)"}},
		},
	}}
}

const galleryHelp = `
GALLERY:
    either DeviantArt username (whole gallery) or gallery folder URL:
        https://www.deviantart.com/<user>/gallery/<folder number>/<folder name>

    When folder number cannot be mapped to folder UUID through API, order of
    entries is taken from the gallery web page. Use --folder to specify folder
    UUID directly ("storynav gallery folders USER" lists them).

    Without --ascending or --descending order from configuration is used.
`

func main() {

	// allow graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "maintains first/prev/next/last navigation in DeviantArt literature galleries",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
			&cli.StringFlag{Name: "env", Aliases: []string{"e"}, DefaultText: "", Usage: "read credentials from `FILE` instead of configured one"},
		},
		Commands: []*cli.Command{
			{
				Name:         "check",
				Usage:        "Validates credentials file and shows its (redacted) values",
				OnUsageError: usageErrorHandler,
				Action:       auth.Check,
			},
			{
				Name:            "auth",
				Usage:           "Obtains, refreshes and validates OAuth2 tokens",
				OnUsageError:    usageErrorHandler,
				HideHelpCommand: true,
				Commands: []*cli.Command{
					{
						Name:         "login-url",
						Usage:        "Prints URL to open in browser to authorize application",
						OnUsageError: usageErrorHandler,
						Action:       auth.LoginURL,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "scopes", Value: auth.DefaultScopes, Usage: "space separated OAuth `SCOPES`"},
							&cli.StringFlag{Name: "state", Usage: "OAuth `STATE` value, generated when absent"},
						},
					},
					{
						Name:         "exchange",
						Usage:        "Exchanges authorization code for tokens and stores them",
						OnUsageError: usageErrorHandler,
						Action:       auth.Exchange,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "code", Required: true, Usage: "authorization `CODE` from redirect URL"},
						},
					},
					{
						Name:         "refresh",
						Usage:        "Refreshes access token and stores new tokens",
						OnUsageError: usageErrorHandler,
						Action:       auth.Refresh,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "refresh-token", Usage: "use `TOKEN` instead of one from credentials file"},
						},
					},
					{
						Name:         "token-info",
						Usage:        "Validates access token and shows known scope",
						OnUsageError: usageErrorHandler,
						Action:       auth.TokenInfo,
					},
				},
			},
			{
				Name:            "gallery",
				Usage:           "Lists gallery content",
				OnUsageError:    usageErrorHandler,
				HideHelpCommand: true,
				Commands: []*cli.Command{
					{
						Name:         "list",
						Usage:        "Lists gallery entries in navigation order",
						OnUsageError: usageErrorHandler,
						Action:       listing.List,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "folder", Usage: "gallery folder `ID` (UUID), overrides folder in URL"},
							&cli.BoolFlag{Name: "literature-only", Aliases: []string{"lo"}, Usage: "show literature entries only"},
						},
						MutuallyExclusiveFlags: orderFlags(),
						ArgsUsage:              "GALLERY",
						CustomHelpTemplate:     cli.CommandHelpTemplate + galleryHelp,
					},
					{
						Name:         "folders",
						Usage:        "Lists gallery folders with their IDs",
						OnUsageError: usageErrorHandler,
						Action:       listing.Folders,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "sort", Usage: "sort folders by name (natural order)"},
						},
						ArgsUsage: "USERNAME",
					},
				},
			},
			{
				Name:         "sync",
				Usage:        "Rewrites navigation blocks of all literature entries in gallery",
				OnUsageError: usageErrorHandler,
				Action:       navsync.Run,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "gallery folder `ID` (UUID), overrides folder in URL"},
					&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "do not upload, show planned changes only"},
					&cli.StringFlag{Name: "workdir", Usage: "working `DIRECTORY` for downloaded and edited files (must be empty if exists)"},
				},
				MutuallyExclusiveFlags: orderFlags(),
				ArgsUsage:              "GALLERY",
				CustomHelpTemplate: cli.CommandHelpTemplate + galleryHelp + `
Every entry body, its updated version, metadata and diff are kept in working
directory. Only changed entries are uploaded.
`,
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(common.ExitCode(err))
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
