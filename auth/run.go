package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"storynav/config"
	"storynav/deviantart"
	"storynav/state"
)

// FromEnv prepares OAuth client and token session using credentials and
// API configuration of the program environment.
func FromEnv(env *state.LocalEnv, log *zap.Logger) (*OAuth, *Session, error) {
	creds, err := env.Credentials()
	if err != nil {
		return nil, nil, err
	}
	oauth := NewOAuth(env.Cfg.API.OAuthBaseURL, creds, deviantart.NewHTTPClient(&env.Cfg.API, log))
	return oauth, NewSession(oauth, creds, log), nil
}

// Check validates credentials file and shows what is set in it.
func Check(ctx context.Context, _ *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("check")

	creds, err := env.Credentials()
	if err != nil {
		return err
	}
	log.Debug("Checking credentials", zap.String("file", creds.Path()))

	fmt.Fprintf(env.Out, "Credentials file: %s\n", creds.Path())
	for _, st := range creds.Status() {
		mark := "optional"
		if st.Required {
			mark = "required"
		}
		fmt.Fprintf(env.Out, "  %-18s %-8s %s\n", st.Name, mark, st.Display)
	}
	if err := creds.Require(config.RequiredCredentials()...); err != nil {
		return err
	}
	fmt.Fprintln(env.Out, "Configuration looks good.")
	return nil
}

func LoginURL(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	oauth, _, err := FromEnv(env, env.Log.Named("auth"))
	if err != nil {
		return err
	}

	link, st, err := oauth.AuthorizeURL(cmd.String("scopes"), cmd.String("state"))
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, link)
	fmt.Fprintf(env.Out, "\nstate=%s\n", st)
	return nil
}

func Exchange(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("auth")
	oauth, _, err := FromEnv(env, log)
	if err != nil {
		return err
	}

	tokens, err := oauth.Exchange(ctx, cmd.String("code"))
	if err != nil {
		return err
	}
	if err := env.Creds.Update(tokens.Updates()); err != nil {
		return fmt.Errorf("unable to store tokens: %w", err)
	}
	log.Debug("Authorization code exchanged", zap.String("file", env.Creds.Path()))

	fmt.Fprintf(env.Out, "OAuth code exchange succeeded. Updated token values in %s.\n", env.Creds.Path())
	printScope(env, tokens.Scope)
	return nil
}

func Refresh(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("auth")
	oauth, _, err := FromEnv(env, log)
	if err != nil {
		return err
	}

	refreshToken := strings.TrimSpace(cmd.String("refresh-token"))
	if refreshToken == "" {
		if err := env.Creds.Require(config.KeyClientID, config.KeyClientSecret, config.KeyRefreshToken); err != nil {
			return err
		}
		refreshToken = env.Creds.Get(config.KeyRefreshToken)
	}

	tokens, err := oauth.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := env.Creds.Update(tokens.Updates()); err != nil {
		return fmt.Errorf("unable to store tokens: %w", err)
	}
	log.Debug("Tokens refreshed", zap.String("file", env.Creds.Path()))

	fmt.Fprintf(env.Out, "OAuth refresh succeeded. Updated token values in %s.\n", env.Creds.Path())
	printScope(env, tokens.Scope)
	return nil
}

// TokenInfo validates access token (refreshing it if necessary) and reports
// what is known about granted scope.
func TokenInfo(ctx context.Context, _ *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("auth")
	_, sess, err := FromEnv(env, log)
	if err != nil {
		return err
	}
	if err := NewAPI(sess, deviantart.NewClient(&env.Cfg.API, log)).Placebo(ctx); err != nil {
		return err
	}

	fmt.Fprintln(env.Out, "Access token is valid.")
	known := env.Creds.Get(config.KeyOAuthScope)
	if known == "" {
		fmt.Fprintln(env.Out, "Known scope: unavailable")
		fmt.Fprintln(env.Out, "Run `storynav auth refresh` once to capture scope into "+config.KeyOAuthScope+".")
		return nil
	}

	browse, manage := HasScopes(known)
	fmt.Fprintf(env.Out, "Known scope: %s\n", known)
	fmt.Fprintf(env.Out, "Has browse: %s\n", yesNo(browse))
	fmt.Fprintf(env.Out, "Has user.manage: %s\n", yesNo(manage))
	if browse && manage {
		fmt.Fprintln(env.Out, "Scope check: OK for planned read/write operations.")
	} else {
		fmt.Fprintln(env.Out, "Scope check: missing required scopes for full workflow.")
	}
	return nil
}

// HasScopes reports presence of scopes needed for reading galleries and
// updating deviations.
func HasScopes(scope string) (browse, manage bool) {
	fields := strings.Fields(scope)
	return slices.Contains(fields, "browse"), slices.Contains(fields, "user.manage")
}

func printScope(env *state.LocalEnv, scope string) {
	if scope != "" {
		fmt.Fprintf(env.Out, "Scope: %s\n", scope)
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
