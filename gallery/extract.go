package gallery

import (
	"regexp"
	"strings"
)

// ExtractDeviationURLs finds links to user's deviations in gallery page
// preserving order of first appearance.
func ExtractDeviationURLs(page, host, username string) []string {
	re := regexp.MustCompile(`https://` + regexp.QuoteMeta(host) + `/(?i:` + regexp.QuoteMeta(username) + `)/art/[^"'\s<>]+`)

	var (
		ordered []string
		seen    = make(map[string]struct{})
	)
	for _, u := range re.FindAllString(page, -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		ordered = append(ordered, u)
	}
	return ordered
}

func normalizeURL(u string) string {
	return strings.TrimRight(u, "/")
}
