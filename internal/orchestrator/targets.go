package orchestrator

import (
	"fmt"
	"sort"

	"github.com/Cyclone1070/polish/internal/document"
	"github.com/Cyclone1070/polish/internal/structure"
	"gitlab.com/tozd/go/errors"
)

// SelectionTarget is one selection captured when a run starts.
type SelectionTarget struct {
	ID           int
	Range        document.Range
	OriginalText string
	Structure    structure.TextStructure
	IsCursor     bool
}

// selectionSource is the part of the document needed to capture targets.
type selectionSource interface {
	Selections() []document.Selection
	LineRange(line int) (document.Range, error)
	Text(r document.Range) (string, error)
}

// CollectTargets captures every selection of doc, resolving cursors to their
// line, sorted top to bottom.
func CollectTargets(doc selectionSource) ([]SelectionTarget, error) {
	sels := doc.Selections()
	targets := make([]SelectionTarget, 0, len(sels))
	for _, sel := range sels {
		r, err := document.TargetRange(doc, sel)
		if err != nil {
			return nil, errors.Errorf("selection %d: %w", sel.ID, err)
		}
		text, err := doc.Text(r)
		if err != nil {
			return nil, errors.Errorf("selection %d: %w", sel.ID, err)
		}
		targets = append(targets, SelectionTarget{
			ID:           sel.ID,
			Range:        r,
			OriginalText: text,
			Structure:    structure.Extract(text),
			IsCursor:     sel.IsEmpty(),
		})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Range.Start.Compare(targets[j].Range.Start) < 0
	})
	return targets, nil
}

// hasContent reports whether any target has non-whitespace text.
func hasContent(targets []SelectionTarget) bool {
	for _, t := range targets {
		if !structure.IsBlank(t.OriginalText) {
			return true
		}
	}
	return false
}

// Title is the progress title for a run: selections when any target is a
// real selection, lines when every target is a cursor.
func Title(targets []SelectionTarget) string {
	for _, t := range targets {
		if !t.IsCursor {
			return fmt.Sprintf("Improving %d selection(s)...", len(targets))
		}
	}
	return fmt.Sprintf("Improving %d line(s)...", len(targets))
}
