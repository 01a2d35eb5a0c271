// Package boundary validates and computes edit boundaries in tree
// content: UTF-8 code point boundaries for checked edits, and grapheme
// cluster and word boundaries for caret motion.
//
// All offsets are byte offsets. Gap regions read as spaces, so every
// offset inside a gap is a valid boundary.
package boundary

import (
	"errors"
	"fmt"

	"github.com/sottey/fresh/internal/engine/tree"
)

// ByteOffset re-exports the tree's offset type.
type ByteOffset = tree.ByteOffset

// ErrInvalidBoundary is returned when an offset falls inside a UTF-8
// code point.
var ErrInvalidBoundary = errors.New("offset not on a UTF-8 boundary")

// IsUTF8Start reports whether b can begin a UTF-8 code point.
func IsUTF8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// IsBoundary reports whether offset is a valid code point boundary in
// t. The start and end of the content are always boundaries. Offsets
// outside [0, len] are not boundaries.
func IsBoundary(t tree.Tree, offset ByteOffset) bool {
	if offset == 0 || offset == t.Len() {
		return offset >= 0
	}
	b, err := t.ByteAt(offset)
	if err != nil {
		return false
	}
	return IsUTF8Start(b)
}

// Check returns ErrInvalidBoundary if offset splits a code point.
// Out-of-range offsets are the caller's concern and pass unchecked.
func Check(t tree.Tree, offset ByteOffset) error {
	if offset < 0 || offset > t.Len() {
		return nil
	}
	if !IsBoundary(t, offset) {
		return fmt.Errorf("%w: offset %d", ErrInvalidBoundary, offset)
	}
	return nil
}

// CheckRange validates both ends of [start, end).
func CheckRange(t tree.Tree, start, end ByteOffset) error {
	if err := Check(t, start); err != nil {
		return err
	}
	return Check(t, end)
}
