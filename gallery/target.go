// Package gallery turns user supplied gallery references into ordered lists
// of deviations.
package gallery

import (
	"fmt"
	"net/url"
	"strings"

	"storynav/common"
)

// Target is parsed gallery reference.
type Target struct {
	Username string
	// FolderRef is either numeric folder id from gallery URL or folder UUID
	// (contains dashes) supplied explicitly.
	FolderRef string
	// FolderSlug is lower-cased human readable folder name from gallery URL,
	// only used as a hint.
	FolderSlug string
	// Source keeps original input when it was URL, empty for bare usernames.
	Source string
}

// ParseTarget accepts either bare username or gallery URL on expected host:
//
//	zoec98
//	https://www.deviantart.com/zoec98/gallery/100193480/testgallery
func ParseTarget(raw, host string) (Target, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Target{}, fmt.Errorf("%w: gallery input must not be empty", common.ErrInvalidInput)
	}

	if !strings.Contains(value, "://") {
		return Target{Username: value}, nil
	}

	u, err := url.Parse(value)
	if err != nil {
		return Target{}, fmt.Errorf("%w: unable to parse gallery URL %q: %w", common.ErrInvalidInput, value, err)
	}
	if u.Host != host {
		return Target{}, fmt.Errorf("%w: gallery URL must use host %s, got %q", common.ErrInvalidInput, host, u.Host)
	}

	var parts []string
	for part := range strings.SplitSeq(u.Path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) < 2 || parts[1] != "gallery" {
		return Target{}, fmt.Errorf("%w: gallery URL must look like /<user>/gallery/..., got %q", common.ErrInvalidInput, u.Path)
	}

	t := Target{Username: parts[0], Source: value}
	if len(parts) >= 3 && isDigits(parts[2]) {
		t.FolderRef = parts[2]
	}
	if len(parts) >= 4 {
		t.FolderSlug = strings.ToLower(strings.TrimSpace(parts[3]))
	}
	return t, nil
}

// WithFolder returns copy of target with explicitly requested folder. Empty
// id leaves target unchanged.
func (t Target) WithFolder(id string) Target {
	if id = strings.TrimSpace(id); id != "" {
		t.FolderRef = id
	}
	return t
}

// IsURL reports whether target was produced from gallery URL.
func (t Target) IsURL() bool {
	return t.Source != ""
}

func (t Target) String() string {
	if t.FolderRef == "" {
		return t.Username
	}
	return t.Username + "/" + t.FolderRef
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
