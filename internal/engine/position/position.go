package position

import "github.com/sottey/fresh/internal/engine/tree"

// ByteOffset is an alias for tree.ByteOffset for convenience.
type ByteOffset = tree.ByteOffset

// Affinity controls how a position behaves when text is inserted
// exactly at it.
type Affinity uint8

const (
	// AffinityRight moves the position to the end of text inserted at
	// it. This is the default: a cursor stays after what was just
	// typed.
	AffinityRight Affinity = iota

	// AffinityLeft keeps the position before text inserted at it.
	// Markers that label a region's start typically want this.
	AffinityLeft
)

// Edit describes a single replacement for position transformation.
// Only the lengths matter here, not the text: Removed bytes at Offset
// were replaced by Inserted bytes.
type Edit struct {
	Offset   ByteOffset
	Removed  ByteOffset
	Inserted ByteOffset
}

// Delta returns the length change the edit causes.
func (e Edit) Delta() ByteOffset {
	return e.Inserted - e.Removed
}

// Selection is a pair of independently tracked endpoints. Anchor is
// where the selection began; Head is the moving end. Head may be
// before Anchor.
type Selection struct {
	Anchor ByteOffset
	Head   ByteOffset
}

// NewSelection creates a selection from anchor to head.
func NewSelection(anchor, head ByteOffset) Selection {
	return Selection{Anchor: anchor, Head: head}
}

// Caret creates an empty selection at the given offset.
func Caret(offset ByteOffset) Selection {
	return Selection{Anchor: offset, Head: offset}
}

// Start returns the lesser endpoint.
func (s Selection) Start() ByteOffset {
	return min(s.Anchor, s.Head)
}

// End returns the greater endpoint.
func (s Selection) End() ByteOffset {
	return max(s.Anchor, s.Head)
}

// IsEmpty returns true if both endpoints coincide. An empty selection
// is a caret, not an error state.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// Len returns the selection's byte length.
func (s Selection) Len() ByteOffset {
	return s.End() - s.Start()
}

// Contains reports whether the offset lies within the selection.
func (s Selection) Contains(offset ByteOffset) bool {
	return offset >= s.Start() && offset < s.End()
}
