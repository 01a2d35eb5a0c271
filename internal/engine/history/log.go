package history

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/sottey/fresh/internal/engine/position"
	"github.com/sottey/fresh/internal/engine/tree"
)

const (
	// DefaultMaxEntries is the retained undo depth.
	DefaultMaxEntries = 1000

	// DefaultSnapshotInterval is how many entries apart snapshots are
	// taken.
	DefaultSnapshotInterval = 100
)

// Snapshot records log-position state for bounded replay. Length and
// Sum describe the document content at Index; Root is retained only
// when root snapshots are enabled.
type Snapshot struct {
	Index     int
	Positions []position.State
	Length    ByteOffset
	Sum       uint64
	Root      tree.Tree
	HasRoot   bool
}

// Log is a linear edit history: an ordered entry slice with a cursor
// separating applied entries from undone ones. Recording after an undo
// discards the undone tail.
type Log struct {
	mu        sync.Mutex
	entries   []Entry
	current   int
	snapshots []Snapshot

	interval   int
	maxEntries int
	keepRoots  bool

	grouping  bool
	group     Entry
	groupRoot tree.Tree
}

// Option configures a log.
type Option func(*Log)

// WithMaxEntries caps the retained undo depth.
func WithMaxEntries(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxEntries = n
		}
	}
}

// WithSnapshotInterval sets how many entries apart snapshots are taken.
func WithSnapshotInterval(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.interval = n
		}
	}
}

// WithRootSnapshots makes snapshots retain the tree root they were
// taken at. Undo to a snapshot becomes a pointer swap instead of an
// inverse replay, at the cost of pinning old roots in memory.
func WithRootSnapshots(keep bool) Option {
	return func(l *Log) {
		l.keepRoots = keep
	}
}

// NewLog creates an empty history log.
func NewLog(opts ...Option) *Log {
	l := &Log{
		interval:   DefaultSnapshotInterval,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an entry describing an edit that was just applied.
// root is the tree root after the edit; snapshots capture it on the
// recording that completes each interval. Any undone tail is
// discarded. Inside a group the entry is folded into the pending unit
// instead.
func (l *Log) Record(e Entry, root tree.Tree) {
	if e.IsEmpty() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.grouping {
		if l.group.IsEmpty() {
			l.group.PositionsBefore = e.PositionsBefore
		}
		l.group.Ops = append(l.group.Ops, e.Ops...)
		l.group.PositionsAfter = e.PositionsAfter
		l.group.Version = e.Version
		l.groupRoot = root
		return
	}

	l.appendLocked(e, root)
}

func (l *Log) appendLocked(e Entry, root tree.Tree) {
	if l.current < len(l.entries) {
		l.entries = l.entries[:l.current]
		l.dropSnapshotsAfterLocked(l.current)
	}

	l.entries = append(l.entries, e)
	l.current = len(l.entries)

	if l.current%l.interval == 0 {
		l.takeSnapshotLocked(e, root)
	}
	l.enforceCapLocked()
}

func (l *Log) takeSnapshotLocked(e Entry, root tree.Tree) {
	s := Snapshot{
		Index:     l.current,
		Positions: e.PositionsAfter,
		Length:    root.Len(),
		Sum:       Fingerprint(root),
	}
	if l.keepRoots {
		s.Root = root
		s.HasRoot = true
	}
	l.snapshots = append(l.snapshots, s)
}

func (l *Log) dropSnapshotsAfterLocked(index int) {
	kept := l.snapshots[:0]
	for _, s := range l.snapshots {
		if s.Index <= index {
			kept = append(kept, s)
		}
	}
	l.snapshots = kept
}

// enforceCapLocked prunes oldest entries past the cap. Pruning never
// crosses the cursor: entries the cursor has not consumed as undo
// depth stay, even if that leaves the log over the cap.
func (l *Log) enforceCapLocked() {
	if len(l.entries) <= l.maxEntries {
		return
	}
	drop := len(l.entries) - l.maxEntries
	if drop > l.current {
		drop = l.current
	}
	if drop == 0 {
		return
	}

	l.entries = l.entries[drop:]
	l.current -= drop

	kept := l.snapshots[:0]
	for _, s := range l.snapshots {
		s.Index -= drop
		if s.Index >= 0 {
			kept = append(kept, s)
		}
	}
	l.snapshots = kept
}

// Undo moves the cursor back one unit and returns the entry that was
// applied there. The caller applies its inverse. Returns false at the
// start of history.
func (l *Log) Undo() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == 0 {
		return Entry{}, false
	}
	l.current--
	return l.entries[l.current], true
}

// Redo moves the cursor forward one unit and returns the entry to
// reapply. Returns false at the end of history.
func (l *Log) Redo() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == len(l.entries) {
		return Entry{}, false
	}
	e := l.entries[l.current]
	l.current++
	return e, true
}

// CanUndo reports whether any applied entries remain.
func (l *Log) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current > 0
}

// CanRedo reports whether any undone entries remain.
func (l *Log) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current < len(l.entries)
}

// Len returns the total number of retained entries, applied and
// undone.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Index returns the cursor position: the number of applied entries.
func (l *Log) Index() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Entry returns the retained entry at index i.
func (l *Log) Entry(i int) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[i], true
}

// BeginGroup starts folding recorded entries into one undo unit.
// Nested calls are ignored.
func (l *Log) BeginGroup(label string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.grouping {
		return
	}
	l.grouping = true
	l.group = Entry{Label: label}
	l.groupRoot = tree.Tree{}
}

// EndGroup appends the pending unit. A group with no recorded entries
// appends nothing.
func (l *Log) EndGroup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.grouping {
		return
	}
	l.grouping = false

	if l.group.IsEmpty() {
		l.group = Entry{}
		return
	}
	l.group.Timestamp = time.Now()
	l.appendLocked(l.group, l.groupRoot)
	l.group = Entry{}
	l.groupRoot = tree.Tree{}
}

// CancelGroup discards the pending unit without recording it. Edits
// already applied to the document are not rolled back.
func (l *Log) CancelGroup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.grouping = false
	l.group = Entry{}
	l.groupRoot = tree.Tree{}
}

// IsGrouping reports whether a group is open.
func (l *Log) IsGrouping() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grouping
}

// SnapshotAt returns the most recent snapshot at or before the given
// log index.
func (l *Log) SnapshotAt(index int) (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.snapshots) - 1; i >= 0; i-- {
		if l.snapshots[i].Index <= index {
			return l.snapshots[i], true
		}
	}
	return Snapshot{}, false
}

// SnapshotCount returns the number of retained snapshots.
func (l *Log) SnapshotCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.snapshots)
}

// SetMaxEntries changes the retained undo depth. Shrinking prunes
// oldest entries immediately, subject to the cursor rule.
func (l *Log) SetMaxEntries(n int) {
	if n <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxEntries = n
	l.enforceCapLocked()
}

// MaxEntries returns the retained undo depth.
func (l *Log) MaxEntries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxEntries
}

// Clear discards all entries, snapshots, and any open group.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.current = 0
	l.snapshots = nil
	l.grouping = false
	l.group = Entry{}
	l.groupRoot = tree.Tree{}
}

// Fingerprint hashes a tree's full content. Snapshots store it so
// replay results can be verified without retaining the text.
func Fingerprint(t tree.Tree) uint64 {
	h := xxhash.New()
	r := t.Reader()
	buf := make([]byte, 64<<10)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err != nil {
			return h.Sum64()
		}
	}
}
