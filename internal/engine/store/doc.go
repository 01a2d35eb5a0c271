// Package store wraps a tree with versioning, offset translation, and
// a bounded read cache.
//
// Every applied edit produces a new version and is journaled as an
// (offset, removed, inserted) triple. Translate replays journaled
// edits to map an offset captured at an older version onto the
// current content, which lets asynchronous consumers reconcile
// results computed against a stale snapshot:
//
//	st := store.New(t)
//	snap, ver := st.Snapshot()
//	// ... compute hit at offset 40 against snap ...
//	st.Apply(10, 0, "inserted")
//	now, err := st.Translate(40, ver)
//
// The journal is a fixed ring; translating from a version older than
// its retention fails with ErrStaleVersion and the caller must
// recompute against a fresh snapshot.
//
// Reads go through a block-aligned LRU cache of materialized text.
// Edits invalidate only the blocks they touch when the length is
// unchanged, and everything from the edit onward otherwise.
package store
