// Package nav maintains managed navigation blocks inside literature bodies.
//
// The body is an opaque HTML fragment owned by the author. The program owns
// exactly two regions in it - one before and one after the text - delimited
// by marker comments which never appear in ordinary content. Everything
// outside of markers is kept as is.
package nav

import (
	"fmt"
	"strings"
	"unicode"

	"storynav/common"
)

// Markers are written into published bodies, never change them.
const (
	TopStart    = "<!-- DA-STORY-EDIT:NAV:TOP:START -->"
	TopEnd      = "<!-- DA-STORY-EDIT:NAV:TOP:END -->"
	BottomStart = "<!-- DA-STORY-EDIT:NAV:BOTTOM:START -->"
	BottomEnd   = "<!-- DA-STORY-EDIT:NAV:BOTTOM:END -->"
)

// Position of navigation block relative to the body text.
type Position string

const (
	Top    Position = "top"
	Bottom Position = "bottom"
)

// Targets holds link destinations for a single entry. Empty string means
// there is nothing to link to.
type Targets struct {
	First string
	Prev  string
	Next  string
	Last  string
}

func link(label, url string) string {
	if url == "" {
		return label
	}
	// verbatim, published blocks must render byte-identical
	return `<a href="` + url + `">` + label + `</a>`
}

// RenderBlock produces complete navigation block including markers.
func RenderBlock(pos Position, t Targets) (string, error) {
	var start, end string
	switch pos {
	case Top:
		start, end = TopStart, TopEnd
	case Bottom:
		start, end = BottomStart, BottomEnd
	default:
		return "", fmt.Errorf("%w: navigation block position must be %q or %q, got %q", common.ErrInvalidInput, Top, Bottom, pos)
	}

	links := strings.Join([]string{
		link("first", t.First),
		link("prev", t.Prev),
		link("next", t.Next),
		link("last", t.Last),
	}, " | ")

	return start + "\n<p>" + links + "</p>\n" + end, nil
}

func mustRender(pos Position, t Targets) string {
	block, err := RenderBlock(pos, t)
	if err != nil {
		// positions are constants here, this should never happen
		panic(err)
	}
	return block
}

// stripBlocks removes every start...end span. When end marker is missing
// everything from start marker onward is dropped.
func stripBlocks(body, start, end string) string {
	current := body
	for {
		from := strings.Index(current, start)
		if from < 0 {
			return current
		}
		to := strings.Index(current[from:], end)
		if to < 0 {
			// malformed block, nothing after it could be trusted
			return strings.TrimRightFunc(current[:from], unicode.IsSpace)
		}
		to += from + len(end)
		current = strings.TrimSpace(current[:from] + current[to:])
	}
}

// Strip removes all managed navigation from the body and returns the
// author's text trimmed of surrounding whitespace.
func Strip(body string) string {
	out := stripBlocks(body, TopStart, TopEnd)
	out = stripBlocks(out, BottomStart, BottomEnd)
	return strings.TrimSpace(out)
}

// Apply replaces managed navigation in the body with freshly rendered blocks.
// Apply(Apply(b, t), t) == Apply(b, t).
func Apply(body string, t Targets) string {
	core := Strip(body)
	top, bottom := mustRender(Top, t), mustRender(Bottom, t)
	if core == "" {
		return top + "\n\n" + bottom + "\n"
	}
	return top + "\n\n" + core + "\n\n" + bottom + "\n"
}
