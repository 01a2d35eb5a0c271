// Package engine provides the text-storage and editing core of fresh.
//
// The engine package is the main facade, combining persistent tree
// storage, a versioned store, line- and file-aware document access,
// undo/redo history, position tracking, and edit event publication
// into a unified, thread-safe API.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - tree: immutable B+ tree of byte chunks and gaps (O(log n) edits,
//     structural sharing between versions)
//   - store: current root plus edit journal and bounded region cache,
//     versioned by a monotonic counter
//   - document: line queries, streaming search, load/save, modified
//     flag, boundary-checked edits
//   - history: ordered undo log with periodic snapshots, grouping, and
//     JSON-Lines persistence
//   - position: registry of byte positions adjusted across every edit
//   - boundary: UTF-8, grapheme, and word boundary rules
//
// Every edit flows through one pipeline: the tree produces a new root,
// the store journals the edit and invalidates affected cache blocks,
// the document drops line samples from the edit point forward and sets
// its modified flag, the history log appends an invertible entry, all
// registered positions adjust, and the edit descriptor is published on
// the event bus.
//
// # Thread Safety
//
// All Engine operations are safe for concurrent use. Edits are
// serialized by a single write lock; reads run against immutable
// snapshots and never block behind a writer. A reader holding a stale
// offset catches up with Translate instead of locking out edits.
//
// # Basic Usage
//
// Create an engine and perform basic edits:
//
//	e := engine.New()
//
//	// Insert text
//	e.Insert(0, "Hello, World!")
//
//	// Read content
//	text := e.Text() // "Hello, World!"
//
//	// Replace text
//	e.Replace(7, 12, "Go") // "Hello, Go!"
//
//	// Undo the replacement
//	e.Undo() // "Hello, World!"
//
// # Loading Files
//
// Create an engine from existing content:
//
//	// From a string
//	e := engine.New(engine.WithContent("initial content"))
//
//	// From a reader (file, network, etc.)
//	f, _ := os.Open("file.txt")
//	defer f.Close()
//	e, _ := engine.NewFromReader(f)
//
//	// Or load into a live engine; history clears
//	e.Load(ctx, "file.txt")
//	e.Save(ctx)
//
// # Position Tracking
//
// Cursors, selection endpoints, and markers register byte positions
// that survive edits:
//
//	e := engine.New(engine.WithContent("Hello World"))
//	cursor := e.RegisterPosition(11)
//
//	e.Insert(5, " there")
//	off, _ := e.Position(cursor) // 17
//
// A position inside a deleted span collapses to the edit start. Undo
// and redo restore registered positions to their recorded states.
//
// # Undo/Redo
//
// The engine maintains linear undo history; recording a fresh edit
// after an undo discards the redoable tail:
//
//	e := engine.New()
//	e.Insert(0, "Hello")
//	e.Insert(5, " World")
//
//	e.Undo() // Removes " World"
//	e.Undo() // Removes "Hello"
//	e.Redo() // Restores "Hello"
//
// Running out of history is a no-op, not an error: Undo and Redo
// return false at the boundary.
//
// Group multiple operations into a single undo unit:
//
//	e.BeginUndoGroup("format")
//	e.Replace(0, 5, "fn")
//	e.Insert(2, " main()")
//	e.EndUndoGroup()
//
//	e.Undo() // Undoes both operations at once
//
// # Events
//
// Subscribers receive an (offset, removed, inserted, version)
// descriptor after each applied edit, in version order:
//
//	sub := e.Subscribe(func(ed event.Edit) {
//	    // update derived state (render spans, LSP didChange, ...)
//	})
//	defer e.Unsubscribe(sub)
//
// Handlers run synchronously on the editing goroutine; they may read
// the engine but must not edit through it.
//
// # Configuration
//
// Configure the engine at creation time:
//
//	e := engine.New(
//	    engine.WithContent("initial"),
//	    engine.WithMaxUndoEntries(1000),
//	    engine.WithSnapshotInterval(100),
//	    engine.WithRootSnapshots(true),
//	    engine.WithJournalRetention(1024),
//	    engine.WithCacheBudget(16<<20),
//	)
//
// WithRootSnapshots trades memory for undo latency: snapshots retain
// their tree root, and an undo landing exactly on a snapshot swaps the
// root in one step instead of replaying inverse edits.
//
// # Error Handling
//
// The package defines several sentinel errors:
//
//   - ErrOffsetOutOfRange: offset beyond document length
//   - ErrRangeInvalid: end before start
//   - ErrInvalidBoundary: edit off a UTF-8 boundary in checked mode
//   - ErrStaleVersion: version pruned from the journal window
//   - ErrNoPath: save with no associated file path
//   - ErrReadOnly: write on a read-only engine
//
// Structural errors are all-or-nothing: a rejected edit leaves
// content, history, positions, and version untouched. Load and save
// failures wrap the underlying I/O error and leave the in-memory
// document unmodified.
package engine
