package main

import (
	"math"
	"strconv"
	"strings"

	"github.com/Cyclone1070/polish/internal/document"
	"gitlab.com/tozd/go/errors"
)

// ErrInvalidPosition is returned for a malformed --select or --cursor value.
var ErrInvalidPosition = errors.New("invalid position")

// parsePosition parses a 1-based "LINE[:COL]" into a 0-based position.
// A missing column is the start of the line.
func parsePosition(s string) (document.Position, error) {
	lineStr, colStr, hasCol := strings.Cut(strings.TrimSpace(s), ":")
	line, err := strconv.Atoi(lineStr)
	if err != nil || line < 1 {
		return document.Position{}, errors.Errorf("%q: line must be a number >= 1: %w", s, ErrInvalidPosition)
	}
	col := 1
	if hasCol {
		col, err = strconv.Atoi(colStr)
		if err != nil || col < 1 {
			return document.Position{}, errors.Errorf("%q: column must be a number >= 1: %w", s, ErrInvalidPosition)
		}
	}
	return document.Position{Line: line - 1, Column: col - 1}, nil
}

// parseSelection parses "L:C-L:C". Without columns, "L-L" selects whole
// lines.
func parseSelection(s string) (anchor, active document.Position, err error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return anchor, active, errors.Errorf("%q: want START-END: %w", s, ErrInvalidPosition)
	}
	anchor, err = parsePosition(from)
	if err != nil {
		return anchor, active, err
	}
	active, err = parsePosition(to)
	if err != nil {
		return anchor, active, err
	}
	if !strings.Contains(to, ":") {
		// Columns clamp to the line end.
		active.Column = math.MaxInt32
	}
	return anchor, active, nil
}

// selectionAdder is the part of the document selections are added to.
type selectionAdder interface {
	AddSelection(anchor, active document.Position) (document.Selection, error)
	LineCount() int
	LineRange(line int) (document.Range, error)
}

// addSelections registers the requested selections on doc. With none
// requested, the whole document is selected.
func addSelections(doc selectionAdder, selects, cursors []string) error {
	for _, s := range selects {
		anchor, active, err := parseSelection(s)
		if err != nil {
			return err
		}
		if _, err := doc.AddSelection(anchor, active); err != nil {
			return errors.Errorf("--select %s: %w", s, err)
		}
	}
	for _, c := range cursors {
		p, err := parsePosition(c)
		if err != nil {
			return err
		}
		if _, err := doc.AddSelection(p, p); err != nil {
			return errors.Errorf("--cursor %s: %w", c, err)
		}
	}

	if len(selects) == 0 && len(cursors) == 0 {
		last, err := doc.LineRange(doc.LineCount() - 1)
		if err != nil {
			return err
		}
		if _, err := doc.AddSelection(document.Position{}, last.End); err != nil {
			return err
		}
	}
	return nil
}
