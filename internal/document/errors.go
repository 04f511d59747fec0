package document

import "gitlab.com/tozd/go/errors"

var (
	ErrPositionOutOfRange = errors.New("position out of range")
	ErrUnknownSelection   = errors.New("unknown selection")
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrEditConflict       = errors.New("edit conflict: file changed on disk")
	ErrFileTooLarge       = errors.New("file too large")
	ErrNotRegularFile     = errors.New("not a regular file")
	ErrBinaryFile         = errors.New("binary or non-UTF-8 file")
)
