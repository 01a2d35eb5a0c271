package document

import "github.com/sottey/fresh/internal/engine/tree"

// Snapshot is a read-only view of the document at one version. It
// remains valid while the document changes, because published trees
// are immutable.
type Snapshot struct {
	tree    tree.Tree
	version Version
	path    string
}

// Text returns the full snapshot content.
func (s Snapshot) Text() string {
	return s.tree.Text()
}

// TextRange returns the text in [start, end).
func (s Snapshot) TextRange(start, end ByteOffset) (string, error) {
	return s.tree.Slice(start, end)
}

// Len returns the snapshot length in bytes.
func (s Snapshot) Len() ByteOffset {
	return s.tree.Len()
}

// LineCount returns the number of lines.
func (s Snapshot) LineCount() uint32 {
	return s.tree.LineCount()
}

// Version returns the store version the snapshot was taken at.
func (s Snapshot) Version() Version {
	return s.version
}

// Path returns the file path associated at snapshot time.
func (s Snapshot) Path() string {
	return s.path
}

// Tree returns the underlying immutable tree.
func (s Snapshot) Tree() tree.Tree {
	return s.tree
}

// Chunks returns a forward iterator over the snapshot's pieces.
func (s Snapshot) Chunks() *tree.ChunkIterator {
	return s.tree.Chunks()
}

// Reader returns a streaming reader over the snapshot.
func (s Snapshot) Reader() *tree.Reader {
	return s.tree.Reader()
}
