// Package structure separates a text fragment's formatting envelope (surrounding
// newline runs and common indentation) from its content, and puts it back.
//
// Only "\n" is treated as a line break. A "\r" is ordinary content, so CRLF
// input keeps its carriage returns inside Content and is not recognised as part
// of the leading or trailing newline runs.
package structure

import "strings"

// TextStructure is the reversible formatting envelope of a fragment.
// It is a value type and is never mutated after Extract returns it.
type TextStructure struct {
	// LeadingNewlines is the maximal run of "\n" at the start of the fragment.
	LeadingNewlines string
	// TrailingNewlines is the maximal run of "\n" at the end of the fragment.
	// For a fragment made only of newlines it covers the same characters as
	// LeadingNewlines.
	TrailingNewlines string
	// BaseIndent is the run of spaces and tabs prefixing the first line of the
	// newline-stripped fragment.
	BaseIndent string
	// Content is the fragment without the newline runs and with BaseIndent
	// removed from every line that starts with it.
	Content string
}

// Extract splits raw into its content and formatting envelope.
func Extract(raw string) TextStructure {
	leading := raw[:len(raw)-len(strings.TrimLeft(raw, "\n"))]
	trailing := raw[len(strings.TrimRight(raw, "\n")):]

	// The two runs are matched independently, so for an all-newline fragment
	// they overlap and nothing is left in between.
	stripped := ""
	if len(leading) < len(raw) {
		stripped = raw[len(leading) : len(raw)-len(trailing)]
	}

	baseIndent := stripped[:len(stripped)-len(strings.TrimLeft(stripped, " \t"))]

	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		// Shallower lines are kept as they are.
		lines[i] = strings.TrimPrefix(line, baseIndent)
	}

	return TextStructure{
		LeadingNewlines:  leading,
		TrailingNewlines: trailing,
		BaseIndent:       baseIndent,
		Content:          strings.Join(lines, "\n"),
	}
}

// Restore re-applies s to content. Every non-empty line gets BaseIndent; empty
// lines stay empty. The result is wrapped in the original newline runs.
func Restore(content string, s TextStructure) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = s.BaseIndent + line
		}
	}
	return s.LeadingNewlines + strings.Join(lines, "\n") + s.TrailingNewlines
}

// IsBlank reports whether text has no non-whitespace characters.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
