// Package document models the text being improved: an in-memory buffer with
// tracked selections and grouped undo, and a file-backed document that
// persists every replace to disk.
package document

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// trackedSelection stores a selection as byte offsets so it can be shifted
// cheaply when text before or inside it changes.
type trackedSelection struct {
	id     int
	anchor int
	active int
}

// edit records one replace so it can be reverted.
type edit struct {
	start   int
	oldText string
	newText string
}

// Buffer is an editable text with selections that follow edits.
// It is safe for concurrent use.
type Buffer struct {
	mu         sync.Mutex
	text       string
	lineStarts []int
	selections []trackedSelection
	nextID     int
	undo       [][]edit
}

// NewBuffer returns a Buffer holding text and no selections.
func NewBuffer(text string) *Buffer {
	b := &Buffer{text: text, nextID: 1}
	b.indexLines()
	return b
}

func (b *Buffer) indexLines() {
	b.lineStarts = b.lineStarts[:0]
	b.lineStarts = append(b.lineStarts, 0)
	for i := 0; i < len(b.text); i++ {
		if b.text[i] == '\n' {
			b.lineStarts = append(b.lineStarts, i+1)
		}
	}
}

// lineBounds returns the byte offsets of a line's content, excluding its
// terminator. Caller holds mu.
func (b *Buffer) lineBounds(line int) (start, end int, err error) {
	if line < 0 || line >= len(b.lineStarts) {
		return 0, 0, errors.Errorf("line %d of %d: %w", line, len(b.lineStarts), ErrPositionOutOfRange)
	}
	start = b.lineStarts[line]
	if line+1 < len(b.lineStarts) {
		end = b.lineStarts[line+1] - 1
		if end > start && b.text[end-1] == '\r' {
			end--
		}
	} else {
		end = len(b.text)
	}
	return start, end, nil
}

// offsetAt converts a position to a byte offset. Columns past the end of the
// line clamp to the end. Caller holds mu.
func (b *Buffer) offsetAt(p Position) (int, error) {
	start, end, err := b.lineBounds(p.Line)
	if err != nil {
		return 0, err
	}
	if p.Column <= 0 {
		return start, nil
	}
	offset := start
	for col := 0; col < p.Column && offset < end; col++ {
		_, size := utf8.DecodeRuneInString(b.text[offset:end])
		offset += size
	}
	return offset, nil
}

// positionAt converts a byte offset to a position. Caller holds mu.
func (b *Buffer) positionAt(offset int) Position {
	line := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	return Position{
		Line:   line,
		Column: utf8.RuneCountInString(b.text[b.lineStarts[line]:offset]),
	}
}

func (b *Buffer) offsets(r Range) (int, int, error) {
	start, err := b.offsetAt(r.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := b.offsetAt(r.End)
	if err != nil {
		return 0, 0, err
	}
	if start > end {
		start, end = end, start
	}
	return start, end, nil
}

// FullText returns the whole buffer.
func (b *Buffer) FullText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// LineCount returns the number of lines. An empty buffer has one empty line.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lineStarts)
}

// LineRange returns the range of a line's content, excluding its terminator.
func (b *Buffer) LineRange(line int) (Range, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start, end, err := b.lineBounds(line)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: b.positionAt(start), End: b.positionAt(end)}, nil
}

// Text returns the text inside r.
func (b *Buffer) Text(r Range) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start, end, err := b.offsets(r)
	if err != nil {
		return "", err
	}
	return b.text[start:end], nil
}

// AddSelection tracks a new selection and returns it with its assigned ID.
// Columns are clamped to their line.
func (b *Buffer) AddSelection(anchor, active Position) (Selection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, err := b.offsetAt(anchor)
	if err != nil {
		return Selection{}, errors.Errorf("anchor: %w", err)
	}
	c, err := b.offsetAt(active)
	if err != nil {
		return Selection{}, errors.Errorf("active: %w", err)
	}
	ts := trackedSelection{id: b.nextID, anchor: a, active: c}
	b.nextID++
	b.selections = append(b.selections, ts)
	return b.toSelection(ts), nil
}

func (b *Buffer) toSelection(ts trackedSelection) Selection {
	return Selection{ID: ts.id, Anchor: b.positionAt(ts.anchor), Active: b.positionAt(ts.active)}
}

// Selections returns the tracked selections in the order they were added.
func (b *Buffer) Selections() []Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Selection, 0, len(b.selections))
	for _, ts := range b.selections {
		out = append(out, b.toSelection(ts))
	}
	return out
}

// Selection returns the live state of the selection with the given ID.
func (b *Buffer) Selection(id int) (Selection, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ts := range b.selections {
		if ts.id == id {
			return b.toSelection(ts), true
		}
	}
	return Selection{}, false
}

// RemoveSelection stops tracking a selection.
func (b *Buffer) RemoveSelection(id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ts := range b.selections {
		if ts.id == id {
			b.selections = append(b.selections[:i], b.selections[i+1:]...)
			return nil
		}
	}
	return errors.Errorf("selection %d: %w", id, ErrUnknownSelection)
}

// Replace swaps the text inside r for text and shifts selections after it.
func (b *Buffer) Replace(_ context.Context, r Range, text string, opts ReplaceOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.replace(r, text, opts)
	return err
}

// replace applies and records an edit. Caller holds mu.
func (b *Buffer) replace(r Range, text string, opts ReplaceOptions) (edit, error) {
	start, end, err := b.offsets(r)
	if err != nil {
		return edit{}, err
	}
	e := edit{start: start, oldText: b.text[start:end], newText: text}
	b.apply(start, end, text)

	if opts.GroupWithUndo || len(b.undo) == 0 {
		b.undo = append(b.undo, []edit{e})
	} else {
		last := len(b.undo) - 1
		b.undo[last] = append(b.undo[last], e)
	}
	return e, nil
}

// apply rewrites text[start:end] and moves selection offsets. An offset
// inside the replaced span moves to the end of the new text. Caller holds mu.
func (b *Buffer) apply(start, end int, text string) {
	var sb strings.Builder
	sb.Grow(len(b.text) - (end - start) + len(text))
	sb.WriteString(b.text[:start])
	sb.WriteString(text)
	sb.WriteString(b.text[end:])
	b.text = sb.String()
	b.indexLines()

	delta := len(text) - (end - start)
	shift := func(o int) int {
		switch {
		case o <= start:
			return o
		case o >= end:
			return o + delta
		default:
			return start + len(text)
		}
	}
	for i := range b.selections {
		b.selections[i].anchor = shift(b.selections[i].anchor)
		b.selections[i].active = shift(b.selections[i].active)
	}
}

// revert undoes a single edit without touching undo history. Caller holds mu.
func (b *Buffer) revert(e edit) {
	b.apply(e.start, e.start+len(e.newText), e.oldText)
}

// dropLast removes e from the end of the undo history after a revert.
// Caller holds mu.
func (b *Buffer) dropLast() {
	last := len(b.undo) - 1
	if last < 0 {
		return
	}
	b.undo[last] = b.undo[last][:len(b.undo[last])-1]
	if len(b.undo[last]) == 0 {
		b.undo = b.undo[:last]
	}
}

// Undo reverts the most recent undo group.
func (b *Buffer) Undo() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.undoLast()
	return err
}

// undoLast pops and reverts the last group, returning it. Caller holds mu.
func (b *Buffer) undoLast() ([]edit, error) {
	if len(b.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	group := b.undo[len(b.undo)-1]
	b.undo = b.undo[:len(b.undo)-1]
	for i := len(group) - 1; i >= 0; i-- {
		b.revert(group[i])
	}
	return group, nil
}

// redoGroup reapplies a group popped by undoLast. Caller holds mu.
func (b *Buffer) redoGroup(group []edit) {
	for _, e := range group {
		b.apply(e.start, e.start+len(e.oldText), e.newText)
	}
	b.undo = append(b.undo, group)
}

// UndoDepth returns the number of undo groups.
func (b *Buffer) UndoDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.undo)
}
