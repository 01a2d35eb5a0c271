package engine

import "github.com/sottey/fresh/internal/engine/history"

// Default configuration values.
const (
	DefaultMaxUndoEntries   = history.DefaultMaxEntries
	DefaultSnapshotInterval = history.DefaultSnapshotInterval
)

// Option configures an Engine during creation.
type Option func(*Engine)

// WithContent sets the initial content of the engine.
func WithContent(content string) Option {
	return func(e *Engine) {
		e.initContent = content
	}
}

// WithBoundaryChecks enables or disables UTF-8 boundary validation on
// edits. Checks are on by default; raw byte editing opts out.
func WithBoundaryChecks(enabled bool) Option {
	return func(e *Engine) {
		e.boundaryChecks = enabled
	}
}

// WithMaxUndoEntries sets the maximum number of retained undo units.
func WithMaxUndoEntries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxUndoEntries = n
		}
	}
}

// WithSnapshotInterval sets how many undo units pass between history
// snapshots.
func WithSnapshotInterval(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.snapshotInterval = n
		}
	}
}

// WithRootSnapshots makes history snapshots retain their tree root,
// turning undo across a snapshot point into a root swap at the cost
// of keeping old roots alive.
func WithRootSnapshots(keep bool) Option {
	return func(e *Engine) {
		e.rootSnapshots = keep
	}
}

// WithJournalRetention sets how many applied edits stay translatable
// through Translate before ErrStaleVersion.
func WithJournalRetention(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.journalRetention = n
		}
	}
}

// WithCacheBudget bounds the bytes of decoded text held by the
// region cache.
func WithCacheBudget(bytes int64) Option {
	return func(e *Engine) {
		if bytes > 0 {
			e.cacheBudget = bytes
		}
	}
}

// WithReadOnly creates a read-only engine.
// Write operations will return ErrReadOnly.
func WithReadOnly() Option {
	return func(e *Engine) {
		e.readOnly = true
	}
}
