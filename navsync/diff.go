package navsync

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// splitLines breaks text into lines each terminated by "\n". Final line
// break does not produce empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(strings.TrimSuffix(s, "\n"), "\n")
	lines[len(lines)-1] += "\n"
	return lines
}

// unifiedDiff returns unified diff with 3 lines of context, empty when texts
// have the same lines.
func unifiedDiff(original, updated, fromFile, toFile string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(original),
		B:        splitLines(updated),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	})
}

// preview returns at most n first lines of diff.
func preview(diff string, n int) string {
	if n <= 0 || diff == "" {
		return ""
	}
	lines := strings.SplitAfter(strings.TrimSuffix(diff, "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.TrimSuffix(strings.Join(lines, ""), "\n")
}
