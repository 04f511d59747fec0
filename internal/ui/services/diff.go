// Package services formats run results for the terminal.
package services

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders markdown for a terminal of the given width.
type MarkdownRenderer interface {
	Render(content string, width int) (string, error)
}

// GlamourRenderer renders markdown with a glamour standard style.
type GlamourRenderer struct {
	style string
}

// NewGlamourRenderer returns a renderer using style ("dark", "light" or
// "notty").
func NewGlamourRenderer(style string) *GlamourRenderer {
	return &GlamourRenderer{style: style}
}

// Render implements MarkdownRenderer.
func (g *GlamourRenderer) Render(content string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle(g.style)}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

// RenderDiff highlights a unified diff. The raw diff is returned when
// rendering fails.
func RenderDiff(diff string, width int, renderer MarkdownRenderer) string {
	if diff == "" {
		return ""
	}
	fenced := "```diff\n" + strings.TrimRight(diff, "\n") + "\n```\n"
	out, err := renderer.Render(fenced, width)
	if err != nil {
		return diff
	}
	return out
}

// DiffStat formats added and removed line counts.
func DiffStat(path string, added, removed int) string {
	return fmt.Sprintf("%s: +%d -%d", path, added, removed)
}
