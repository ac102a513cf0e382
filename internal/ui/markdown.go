package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/text/width"
)

// IsMarkdown reports whether out looks like a rendered report or table.
func IsMarkdown(out string) bool {
	return strings.HasPrefix(out, "# ") || strings.HasPrefix(out, "## ") || strings.HasPrefix(out, "| ")
}

// MarkdownString renders md for the terminal, returning md unchanged when
// rendering fails.
func MarkdownString(md string, wrap int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// RenderMarkdown prints md to stdout. Chinese text is twice as wide as its
// rune count, so the wrap width is halved for mostly-CJK reports.
func RenderMarkdown(md string) {
	wrap := 100
	if wideShare(md) > 0.3 {
		wrap = 50
	}
	fmt.Print(MarkdownString(md, wrap))
}

func wideShare(s string) float64 {
	var wide, total int
	for _, r := range s {
		if r == '\n' || r == ' ' {
			continue
		}
		total++
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			wide++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(wide) / float64(total)
}
