// Package auth obtains and refreshes DeviantArt OAuth2 tokens and keeps
// access token in credentials file current.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"storynav/common"
	"storynav/config"
)

// DefaultScopes are enough to list galleries and update literature.
const DefaultScopes = "browse user.manage"

// Tokens is result of successful token request.
type Tokens struct {
	Access  string
	Refresh string
	Scope   string
}

// Updates returns credential file changes for tokens. Scope is kept when
// service did not report one.
func (t *Tokens) Updates() map[string]string {
	updates := map[string]string{
		config.KeyAccessToken:  t.Access,
		config.KeyRefreshToken: t.Refresh,
	}
	if t.Scope != "" {
		updates[config.KeyOAuthScope] = t.Scope
	}
	return updates
}

// OAuth performs authorization code and refresh token grants. Client
// identity is taken from credentials on every call so values changed by
// earlier requests are used.
type OAuth struct {
	baseURL string
	creds   *config.Credentials
	http    *http.Client
}

func NewOAuth(baseURL string, creds *config.Credentials, client *http.Client) *OAuth {
	return &OAuth{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    client,
	}
}

func (o *OAuth) config(scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.creds.Get(config.KeyClientID),
		ClientSecret: o.creds.Get(config.KeyClientSecret),
		RedirectURL:  o.creds.Get(config.KeyRedirectURI),
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.baseURL + "/authorize",
			TokenURL:  o.baseURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (o *OAuth) context(ctx context.Context) context.Context {
	if o.http == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, o.http)
}

// AuthorizeURL builds URL user has to open in browser to grant access.
// Random state is generated when none is given, actual state is returned.
func (o *OAuth) AuthorizeURL(scopes, state string) (string, string, error) {
	if err := o.creds.Require(config.KeyClientID, config.KeyRedirectURI); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(scopes) == "" {
		scopes = DefaultScopes
	}
	if state == "" {
		state = uuid.NewString()
	}
	return o.config(strings.Fields(scopes)...).AuthCodeURL(state), state, nil
}

// Exchange trades authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (*Tokens, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", common.ErrInvalidInput)
	}
	if err := o.creds.Require(config.KeyClientID, config.KeyClientSecret, config.KeyRedirectURI); err != nil {
		return nil, err
	}
	tok, err := o.config().Exchange(o.context(ctx), strings.TrimSpace(code))
	if err != nil {
		return nil, tokenError(ctx, err)
	}
	return tokens(tok)
}

// Refresh mints new access token. DeviantArt rotates refresh tokens, so the
// returned one must replace the old one.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	if err := o.creds.Require(config.KeyClientID, config.KeyClientSecret); err != nil {
		return nil, err
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%w: refresh token is empty", common.ErrInvalidInput)
	}
	// token without access part is never valid, source goes to the server
	src := o.config().TokenSource(o.context(ctx), &oauth2.Token{RefreshToken: strings.TrimSpace(refreshToken)})
	tok, err := src.Token()
	if err != nil {
		return nil, tokenError(ctx, err)
	}
	return tokens(tok)
}

func tokens(tok *oauth2.Token) (*Tokens, error) {
	t := &Tokens{
		Access:  strings.TrimSpace(tok.AccessToken),
		Refresh: strings.TrimSpace(tok.RefreshToken),
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = strings.TrimSpace(scope)
	}
	if t.Access == "" || t.Refresh == "" {
		return nil, fmt.Errorf("%w: OAuth token response was missing access_token or refresh_token", common.ErrRequestFailed)
	}
	return t, nil
}

func tokenError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		body := strings.TrimSpace(strings.ReplaceAll(string(re.Body), "\n", " "))
		if r := []rune(body); len(r) > 300 {
			body = string(r[:300])
		}
		return fmt.Errorf("%w: OAuth token request failed: HTTP %d, response body: %s", common.ErrRequestFailed, re.Response.StatusCode, body)
	}
	return fmt.Errorf("%w: OAuth token request failed: %w", common.ErrRequestFailed, err)
}
