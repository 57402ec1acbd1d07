package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storynav/common"
	"storynav/config"
)

// Session hands out current access token and refreshes it at most once per
// operation when service rejects it.
type Session struct {
	oauth *OAuth
	creds *config.Credentials
	log   *zap.Logger
}

func NewSession(oauth *OAuth, creds *config.Credentials, log *zap.Logger) *Session {
	return &Session{oauth: oauth, creds: creds, log: log}
}

type decision int

const (
	decisionReturn decision = iota
	decisionRefresh
	decisionGiveUp
)

func (d decision) String() string {
	switch d {
	case decisionReturn:
		return "return"
	case decisionRefresh:
		return "refresh"
	case decisionGiveUp:
		return "give-up"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// decide is what to do with operation outcome. Only expired token is worth a
// refresh and only once.
func decide(err error, refreshed bool) decision {
	switch {
	case err == nil, !errors.Is(err, common.ErrAuthExpired):
		return decisionReturn
	case refreshed:
		return decisionGiveUp
	default:
		return decisionRefresh
	}
}

// Do runs op with current access token. When token is rejected it is
// refreshed, persisted and op is run one more time.
func Do[T any](ctx context.Context, s *Session, op func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T

	if err := s.creds.Require(config.KeyAccessToken); err != nil {
		return zero, err
	}
	token := s.creds.Get(config.KeyAccessToken)

	for refreshed := false; ; refreshed = true {
		res, err := op(ctx, token)
		switch decide(err, refreshed) {
		case decisionReturn:
			return res, err
		case decisionGiveUp:
			return zero, fmt.Errorf("%w: automatic token refresh was attempted once but the token is still rejected, run `storynav auth refresh` manually and retry the command: %w",
				common.ErrTokenRejected, err)
		}
		if token, err = s.refresh(ctx, err); err != nil {
			return zero, err
		}
	}
}

func (s *Session) refresh(ctx context.Context, cause error) (string, error) {
	if !s.creds.Has(config.KeyClientID, config.KeyClientSecret, config.KeyRefreshToken) {
		return "", fmt.Errorf("%w: access token is invalid or expired and automatic refresh is not configured, set %s, %s, and %s in %s, then run `storynav auth refresh`",
			common.ErrConfigIncomplete, config.KeyClientID, config.KeyClientSecret, config.KeyRefreshToken, s.creds.Path())
	}

	s.log.Info("Access token rejected, refreshing", zap.NamedError("cause", cause))
	tokens, err := s.oauth.Refresh(ctx, s.creds.Get(config.KeyRefreshToken))
	if err != nil {
		return "", err
	}
	if err := s.creds.Update(tokens.Updates()); err != nil {
		return "", fmt.Errorf("unable to store refreshed tokens: %w", err)
	}
	s.log.Debug("Tokens refreshed", zap.String("file", s.creds.Path()), zap.String("scope", tokens.Scope))
	return tokens.Access, nil
}
