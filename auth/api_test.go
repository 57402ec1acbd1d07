package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"storynav/config"
	"storynav/deviantart"
)

func TestAPI_RefreshesExpiredToken(t *testing.T) {
	ts := newTokenServer(t)
	creds := newCreds(t, testEnv)

	var seen []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("access_token")
		seen = append(seen, r.URL.Path+"@"+token)
		if token != "new-access" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": "invalid_token", "error_description": "Expired oAuth2 user token. The client should request a new one with an access code or a refresh token."}`)
			return
		}
		switch r.URL.Path {
		case "/api/v1/oauth2/deviation/content":
			fmt.Fprint(w, `{"html": "<p>story</p>"}`)
		default:
			fmt.Fprint(w, `{"status": "success"}`)
		}
	}))
	t.Cleanup(api.Close)

	log := zaptest.NewLogger(t)
	client := deviantart.NewClient(&config.APIConfig{BaseURL: api.URL + "/api/v1/oauth2", Timeout: 5 * time.Second}, log)
	a := NewAPI(NewSession(ts.oauth(creds), creds, log), client)

	html, err := a.Content(context.Background(), "ABC")
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if html != "<p>story</p>" {
		t.Errorf("Content() = %q", html)
	}
	if err := a.Placebo(context.Background()); err != nil {
		t.Fatalf("Placebo() error = %v", err)
	}

	want := []string{
		"/api/v1/oauth2/deviation/content@old-access",
		"/api/v1/oauth2/deviation/content@new-access",
		"/api/v1/oauth2/placebo@new-access",
	}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("requests = %v, want %v", seen, want)
	}
	if len(ts.requests()) != 1 {
		t.Errorf("refreshes = %d, want 1", len(ts.requests()))
	}
}
