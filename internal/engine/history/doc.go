// Package history records applied edits for undo and redo.
//
// The log is a single ordered entry slice with a cursor. Entries before
// the cursor are applied history; entries after it were undone and can
// be redone. Recording a fresh edit after an undo discards the undone
// tail, which is standard linear-history behavior.
//
// # Entries
//
// Each entry carries the removed and inserted text of its edits plus
// the position-holder states before and after, which is enough to
// invert it exactly:
//
//	op := history.NewReplaceOp(5, "World", "Go")
//	log.Record(history.NewEntry(op, version), root)
//
//	if e, ok := log.Undo(); ok {
//		// apply e.Inverse() to the document,
//		// restore e.PositionsBefore
//	}
//
// Undo and redo at the ends of history return false rather than an
// error; running out of history is a normal state.
//
// # Grouping
//
// BeginGroup/EndGroup fold several recorded entries into one unit that
// undoes and redoes atomically:
//
//	log.BeginGroup("replace all")
//	// ... record each replacement ...
//	log.EndGroup()
//
// # Snapshots
//
// Every N entries the log snapshots position-holder state and a content
// fingerprint. With WithRootSnapshots it also retains the tree root, so
// restoring to a snapshot is a pointer swap instead of a replay. The
// oldest entries past the retention cap are pruned, but never past the
// cursor.
//
// # Persistence
//
// SaveTo and LoadFrom stream the log as JSON Lines, one entry per line.
// Replay rebuilds content from a baseline and verifies each entry's
// recorded text along the way.
package history
