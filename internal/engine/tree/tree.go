package tree

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrOffsetOutOfRange is returned when an offset exceeds the text length.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeInvalid is returned when a range has start > end.
	ErrRangeInvalid = errors.New("invalid range")
)

// Tree is an immutable text tree. The zero value is an empty tree.
// Edit operations return a new Tree sharing unchanged nodes with the
// receiver.
type Tree struct {
	root *Node
}

// New creates an empty tree.
func New() Tree {
	return Tree{root: newLeafNode()}
}

// NewFromString creates a tree from a string.
func NewFromString(s string) Tree {
	if len(s) == 0 {
		return New()
	}
	return buildFromChunks(splitIntoChunks(s))
}

// NewSized creates a tree of n logically-empty bytes. The content
// reads back as spaces but occupies constant memory until written.
func NewSized(n ByteOffset) Tree {
	if n <= 0 {
		return New()
	}
	return Tree{root: newLeafNodeWithChunks(NewGapChunk(n))}
}

// NewFromReader creates a tree by streaming from a reader.
func NewFromReader(r io.Reader) (Tree, error) {
	var b Builder
	if _, err := b.ReadFrom(r); err != nil {
		return Tree{}, err
	}
	return b.Build(), nil
}

// buildFromChunks assembles a balanced tree over a chunk sequence.
func buildFromChunks(chunks []Chunk) Tree {
	if len(chunks) == 0 {
		return New()
	}

	leaves := make([]*Node, 0, (len(chunks)+MaxChunksPerLeaf-1)/MaxChunksPerLeaf)
	for i := 0; i < len(chunks); i += MaxChunksPerLeaf {
		end := min(i+MaxChunksPerLeaf, len(chunks))
		leaves = append(leaves, newLeafNodeWithChunks(chunks[i:end]...))
	}
	return Tree{root: buildNodeFromChildren(leaves)}
}

// Len returns the total byte length.
func (t Tree) Len() ByteOffset {
	if t.root == nil {
		return 0
	}
	return t.root.summary.Bytes
}

// IsEmpty returns true if the tree contains no text.
func (t Tree) IsEmpty() bool {
	return t.Len() == 0
}

// Summary returns the tree's aggregate metrics.
func (t Tree) Summary() TextSummary {
	if t.root == nil {
		return TextSummary{Flags: FlagASCII}
	}
	return t.root.summary
}

// LineCount returns the number of lines. Empty text has one line.
func (t Tree) LineCount() uint32 {
	return t.Summary().Lines + 1
}

// Insert returns a new tree with text inserted at the given offset.
// Fails if the offset is negative or past the end.
func (t Tree) Insert(offset ByteOffset, text string) (Tree, error) {
	if offset < 0 || offset > t.Len() {
		return Tree{}, fmt.Errorf("%w: insert at %d, length %d", ErrOffsetOutOfRange, offset, t.Len())
	}
	if len(text) == 0 {
		return t, nil
	}

	insert := NewFromString(text)
	switch offset {
	case 0:
		return insert.Concat(t), nil
	case t.Len():
		return t.Concat(insert), nil
	}

	left, right := t.root.split(offset)
	return Tree{root: concat(concat(left, insert.root), right)}, nil
}

// InsertGap returns a new tree with n logically-empty bytes inserted
// at the given offset.
func (t Tree) InsertGap(offset, n ByteOffset) (Tree, error) {
	if offset < 0 || offset > t.Len() {
		return Tree{}, fmt.Errorf("%w: insert at %d, length %d", ErrOffsetOutOfRange, offset, t.Len())
	}
	if n <= 0 {
		return t, nil
	}

	gap := NewSized(n)
	switch offset {
	case 0:
		return gap.Concat(t), nil
	case t.Len():
		return t.Concat(gap), nil
	}

	left, right := t.root.split(offset)
	return Tree{root: concat(concat(left, gap.root), right)}, nil
}

// Delete returns a new tree with bytes in [start, end) removed.
// Fails if start > end or end is past the end of the text.
func (t Tree) Delete(start, end ByteOffset) (Tree, error) {
	if start < 0 || start > end {
		return Tree{}, fmt.Errorf("%w: delete [%d, %d)", ErrRangeInvalid, start, end)
	}
	if end > t.Len() {
		return Tree{}, fmt.Errorf("%w: delete end %d, length %d", ErrOffsetOutOfRange, end, t.Len())
	}
	if start == end {
		return t, nil
	}

	left, rest := t.root.split(start)
	_, right := rest.split(end - start)
	return Tree{root: concat(left, right)}, nil
}

// Replace returns a new tree with [start, end) replaced by text.
func (t Tree) Replace(start, end ByteOffset, text string) (Tree, error) {
	deleted, err := t.Delete(start, end)
	if err != nil {
		return Tree{}, err
	}
	return deleted.Insert(start, text)
}

// Split divides the tree at the given offset. The offset is clamped
// to the valid range.
func (t Tree) Split(offset ByteOffset) (Tree, Tree) {
	offset = max(0, min(offset, t.Len()))
	if t.root == nil {
		return New(), New()
	}
	left, right := t.root.split(offset)
	return Tree{root: left}, Tree{root: right}
}

// Concat joins two trees.
func (t Tree) Concat(other Tree) Tree {
	root := concat(t.root, other.root)
	if root == nil {
		root = newLeafNode()
	}
	return Tree{root: root}
}

// Text materializes the full text. Gaps read back as spaces.
func (t Tree) Text() string {
	if t.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(t.Len()))
	t.root.appendTo(&sb)
	return sb.String()
}

// Slice returns the text in [start, end).
func (t Tree) Slice(start, end ByteOffset) (string, error) {
	if start < 0 || start > end {
		return "", fmt.Errorf("%w: slice [%d, %d)", ErrRangeInvalid, start, end)
	}
	if end > t.Len() {
		return "", fmt.Errorf("%w: slice end %d, length %d", ErrOffsetOutOfRange, end, t.Len())
	}
	if start == end {
		return "", nil
	}

	var sb strings.Builder
	sb.Grow(int(end - start))
	t.root.textInRange(&sb, start, end)
	return sb.String(), nil
}

// ByteAt returns the byte at the given offset.
func (t Tree) ByteAt(offset ByteOffset) (byte, error) {
	if offset < 0 || offset >= t.Len() {
		return 0, fmt.Errorf("%w: byte at %d, length %d", ErrOffsetOutOfRange, offset, t.Len())
	}
	return t.root.byteAt(offset), nil
}

// LineStartOffset returns the byte offset where the given line starts.
func (t Tree) LineStartOffset(line uint32) (ByteOffset, error) {
	if line >= t.LineCount() {
		return 0, fmt.Errorf("%w: line %d, count %d", ErrOffsetOutOfRange, line, t.LineCount())
	}
	if line == 0 {
		return 0, nil
	}
	return t.root.findNewline(line) + 1, nil
}

// LineEndOffset returns the byte offset where the given line ends,
// excluding the trailing newline. For the last line this is the text
// length.
func (t Tree) LineEndOffset(line uint32) (ByteOffset, error) {
	if line >= t.LineCount() {
		return 0, fmt.Errorf("%w: line %d, count %d", ErrOffsetOutOfRange, line, t.LineCount())
	}
	if line == t.Summary().Lines {
		return t.Len(), nil
	}
	return t.root.findNewline(line + 1), nil
}

// LineText returns the text of the given line without its newline.
func (t Tree) LineText(line uint32) (string, error) {
	start, err := t.LineStartOffset(line)
	if err != nil {
		return "", err
	}
	end, err := t.LineEndOffset(line)
	if err != nil {
		return "", err
	}
	return t.Slice(start, end)
}

// LineLen returns the byte length of the given line without its newline.
func (t Tree) LineLen(line uint32) (ByteOffset, error) {
	start, err := t.LineStartOffset(line)
	if err != nil {
		return 0, err
	}
	end, err := t.LineEndOffset(line)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

// LineAt returns the line containing the given offset. An offset
// sitting on a newline belongs to the line that newline terminates;
// the end-of-text offset belongs to the last line.
func (t Tree) LineAt(offset ByteOffset) (uint32, error) {
	if offset < 0 || offset > t.Len() {
		return 0, fmt.Errorf("%w: offset %d, length %d", ErrOffsetOutOfRange, offset, t.Len())
	}
	if t.root == nil {
		return 0, nil
	}
	return t.root.newlinesBefore(offset), nil
}

// OffsetToPoint converts a byte offset to a line/column position.
func (t Tree) OffsetToPoint(offset ByteOffset) (Point, error) {
	line, err := t.LineAt(offset)
	if err != nil {
		return Point{}, err
	}
	start, err := t.LineStartOffset(line)
	if err != nil {
		return Point{}, err
	}
	return Point{Line: line, Column: uint32(offset - start)}, nil
}

// PointToOffset converts a line/column position to a byte offset.
// Columns past the end of the line clamp to the line end.
func (t Tree) PointToOffset(p Point) (ByteOffset, error) {
	start, err := t.LineStartOffset(p.Line)
	if err != nil {
		return 0, err
	}
	end, err := t.LineEndOffset(p.Line)
	if err != nil {
		return 0, err
	}
	return min(start+ByteOffset(p.Column), end), nil
}

// Equals reports whether two trees hold the same bytes. Trees with
// different chunk boundaries or gap layouts still compare equal when
// the materialized text matches.
func (t Tree) Equals(other Tree) bool {
	if t.Len() != other.Len() {
		return false
	}
	if t.root == other.root {
		return true
	}

	a := t.Bytes()
	b := other.Bytes()
	for {
		aok := a.Next()
		bok := b.Next()
		if !aok || !bok {
			return aok == bok
		}
		if a.Byte() != b.Byte() {
			return false
		}
	}
}

// Height returns the tree height. A single leaf has height 0.
func (t Tree) Height() int {
	if t.root == nil {
		return 0
	}
	return int(t.root.height)
}

// ChunkCount returns the number of chunks in the tree.
func (t Tree) ChunkCount() int {
	if t.root == nil {
		return 0
	}
	return countChunks(t.root)
}

func countChunks(n *Node) int {
	if n.isLeaf() {
		return len(n.chunks)
	}
	var count int
	for _, child := range n.children {
		count += countChunks(child)
	}
	return count
}
