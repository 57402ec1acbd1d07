// Package state defines shared program state.
package state

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"storynav/config"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// EnvFile overrides credentials.env_file from configuration.
	EnvFile string
	// Creds is loaded on first use, not every command needs credentials.
	Creds *config.Credentials
	// Out receives user facing output (listings, diff previews) which should
	// not be mixed with log messages.
	Out io.Writer

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// CredentialsPath returns location of credentials file in use.
func (e *LocalEnv) CredentialsPath() string {
	if e.EnvFile != "" || e.Cfg == nil {
		return e.EnvFile
	}
	return e.Cfg.Credentials.EnvFile
}

// Credentials loads credentials file once, subsequent calls return the same
// instance so token updates are visible everywhere.
func (e *LocalEnv) Credentials() (*config.Credentials, error) {
	if e.Creds != nil {
		return e.Creds, nil
	}
	bootstrap := e.Cfg != nil && e.Cfg.Credentials.Bootstrap
	creds, err := config.LoadCredentials(e.CredentialsPath(), bootstrap)
	if err != nil {
		return nil, err
	}
	if added := creds.Added(); len(added) > 0 && e.Log != nil {
		e.Log.Warn("Missing keys were added to credentials file", zap.String("file", creds.Path()), zap.Strings("keys", added))
	}
	e.Creds = creds
	return creds, nil
}
