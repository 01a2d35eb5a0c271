// Package tree provides an immutable B+ tree of text chunks with
// structural sharing.
//
// Leaf nodes hold chunks: either materialized text or gaps, runs of
// logically empty space that read back as spaces without being stored.
// Internal nodes cache a summary per child (byte count, UTF-16 units,
// line count, longest line), so byte, line, and point seeks all prune
// to a single subtree per level.
//
// Key properties:
//   - O(log n) insertion, deletion, and access
//   - Edits return new trees; the receiver is never modified
//   - Unchanged subtrees are shared between versions, so holding an
//     old root is cheap and always safe to read concurrently
//   - Out-of-range offsets fail with an error rather than clamping
//
// Basic usage:
//
//	t := tree.NewFromString("hello world")
//	t, err := t.Insert(5, ",")      // "hello, world"
//	t, err = t.Delete(0, 6)         // " world"
//	text := t.Text()
//
// Versions that are no longer referenced are reclaimed by the garbage
// collector; no explicit release is needed.
package tree
