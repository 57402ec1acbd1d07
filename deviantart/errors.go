package deviantart

import (
	"fmt"
	"net/http"
	"strings"

	"storynav/common"
)

// snippetLen limits how much of error response ends up in messages.
const snippetLen = 300

// APIError is unsuccessful API response. It wraps common.ErrAuthExpired when
// service rejected access token and common.ErrRequestFailed otherwise.
type APIError struct {
	Path    string
	Status  int
	Snippet string
	Expired bool
}

func (e *APIError) Error() string {
	if e.Expired {
		return fmt.Sprintf("access token is invalid or expired (HTTP %d for %s)", e.Status, e.Path)
	}
	if e.Snippet == "" {
		return fmt.Sprintf("API request failed for %s: HTTP %d", e.Path, e.Status)
	}
	return fmt.Sprintf("API request failed for %s: HTTP %d, response body: %s", e.Path, e.Status, e.Snippet)
}

func (e *APIError) Unwrap() error {
	if e.Expired {
		return common.ErrAuthExpired
	}
	return common.ErrRequestFailed
}

func ensureOK(path string, status int, body []byte) error {
	if status >= 200 && status <= 299 {
		return nil
	}
	return &APIError{
		Path:    path,
		Status:  status,
		Snippet: snippet(body),
		Expired: TokenRejected(status, body),
	}
}

// TokenRejected tells expired or invalid access token apart from other
// failures by looking at status code and error body.
func TokenRejected(status int, body []byte) bool {
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return false
	}
	// covers both plain text bodies and JSON "error"/"error_description"
	text := strings.ToLower(string(body))
	return strings.Contains(text, "invalid_token") || strings.Contains(text, "expired")
}

func snippet(body []byte) string {
	s := string(body)
	if r := []rune(s); len(r) > snippetLen {
		s = string(r[:snippetLen])
	}
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
