package document

import "fmt"

// Position is a zero-based line and column. Columns count runes, not bytes.
type Position struct {
	Line   int
	Column int
}

// Compare orders positions top to bottom, left to right.
// It returns -1, 0 or +1.
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open span [Start, End) with Start never after End.
type Range struct {
	Start Position
	End   Position
}

// NewRange builds a Range from two positions in either order.
func NewRange(a, b Position) Range {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return Range{Start: a, End: b}
}

// IsEmpty reports whether the range covers no characters.
func (r Range) IsEmpty() bool {
	return r.Start.Compare(r.End) == 0
}

func (r Range) String() string {
	return fmt.Sprintf("(%s) - (%s)", r.Start, r.End)
}

// Selection is a user selection or cursor. ID stays stable while the document
// is edited; the positions move with the text around them.
type Selection struct {
	ID     int
	Anchor Position
	Active Position
}

// IsEmpty reports whether the selection is a bare cursor.
func (s Selection) IsEmpty() bool {
	return s.Anchor.Compare(s.Active) == 0
}

// Range returns the span between anchor and active.
func (s Selection) Range() Range {
	return NewRange(s.Anchor, s.Active)
}

// ReplaceOptions controls how a replace interacts with undo history.
type ReplaceOptions struct {
	// GroupWithUndo closes the current undo group before and after the
	// replace so it undoes as one user-visible step.
	GroupWithUndo bool
}

// lineRanger resolves the full range of a line.
type lineRanger interface {
	LineRange(line int) (Range, error)
}

// TargetRange is the range a selection acts on: the selected span, or the
// whole enclosing line for a cursor.
func TargetRange(doc lineRanger, sel Selection) (Range, error) {
	if !sel.IsEmpty() {
		return sel.Range(), nil
	}
	return doc.LineRange(sel.Active.Line)
}
