package boundary

import (
	"github.com/rivo/uniseg"

	"github.com/sottey/fresh/internal/engine/tree"
)

// segmentWindow bounds the text materialized around an offset for
// segmentation. A cluster longer than the window steps at the window
// edge.
const segmentWindow = 256

// NextGrapheme returns the offset just past the grapheme cluster at
// offset. Offsets at or past the end stay at the end. An offset inside
// a code point degrades to a single-byte step.
func NextGrapheme(t tree.Tree, offset ByteOffset) ByteOffset {
	window, start := forwardWindow(t, offset)
	if window == "" {
		return start
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(window, -1)
	return start + ByteOffset(len(cluster))
}

// PrevGrapheme returns the start of the grapheme cluster ending at
// offset. Offsets at or before the start stay at zero.
func PrevGrapheme(t tree.Tree, offset ByteOffset) ByteOffset {
	window, start := backwardWindow(t, offset)
	if window == "" {
		return start
	}
	pos := start
	state := -1
	var cluster string
	for len(window) > 0 {
		cluster, window, _, state = uniseg.FirstGraphemeClusterInString(window, state)
		if len(window) == 0 {
			return pos
		}
		pos += ByteOffset(len(cluster))
	}
	return pos
}

// NextWordBoundary returns the next word segmentation boundary after
// offset, per Unicode word segmentation. Runs of whitespace form
// their own segments.
func NextWordBoundary(t tree.Tree, offset ByteOffset) ByteOffset {
	window, start := forwardWindow(t, offset)
	if window == "" {
		return start
	}
	word, _, _ := uniseg.FirstWordInString(window, -1)
	return start + ByteOffset(len(word))
}

// PrevWordBoundary returns the closest word segmentation boundary
// before offset.
func PrevWordBoundary(t tree.Tree, offset ByteOffset) ByteOffset {
	window, start := backwardWindow(t, offset)
	if window == "" {
		return start
	}
	pos := start
	state := -1
	var word string
	for len(window) > 0 {
		word, window, state = uniseg.FirstWordInString(window, state)
		if len(window) == 0 {
			return pos
		}
		pos += ByteOffset(len(word))
	}
	return pos
}

// forwardWindow returns up to segmentWindow bytes starting at offset,
// with offset clamped to [0, len].
func forwardWindow(t tree.Tree, offset ByteOffset) (string, ByteOffset) {
	offset = min(max(offset, 0), t.Len())
	end := min(offset+segmentWindow, t.Len())
	window, _ := t.Slice(offset, end)
	return window, offset
}

// backwardWindow returns up to segmentWindow bytes ending at offset,
// snapped forward past any leading continuation bytes so segmentation
// starts on a code point.
func backwardWindow(t tree.Tree, offset ByteOffset) (string, ByteOffset) {
	offset = min(max(offset, 0), t.Len())
	start := max(offset-segmentWindow, 0)
	window, _ := t.Slice(start, offset)
	i := 0
	for i < len(window) && !IsUTF8Start(window[i]) {
		i++
	}
	return window[i:], start + ByteOffset(i)
}
