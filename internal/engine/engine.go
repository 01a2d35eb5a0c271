package engine

import (
	"context"
	"io"
	"regexp"
	"sync"

	"github.com/google/uuid"

	"github.com/sottey/fresh/internal/engine/document"
	"github.com/sottey/fresh/internal/engine/history"
	"github.com/sottey/fresh/internal/engine/position"
	"github.com/sottey/fresh/internal/engine/store"
	"github.com/sottey/fresh/internal/engine/tree"
	"github.com/sottey/fresh/internal/event"
)

// Re-export commonly used types for convenience.
type (
	// ByteOffset is a byte position in the document.
	ByteOffset = document.ByteOffset

	// Version identifies one applied edit in total order.
	Version = document.Version

	// Edit describes an applied edit in position space.
	Edit = position.Edit

	// EditResult contains information about a completed edit.
	EditResult = document.EditResult

	// Selection is a pair of tracked endpoints.
	Selection = position.Selection

	// PositionID identifies a registered position holder.
	PositionID = uuid.UUID

	// FindOptions configures literal search.
	FindOptions = document.FindOptions

	// RegexpMatch is the span of a regexp match.
	RegexpMatch = document.RegexpMatch

	// LineEstimate is a possibly-inexact line number.
	LineEstimate = document.LineEstimate

	// Entry is one undo unit.
	Entry = history.Entry

	// Op is one recorded edit operation.
	Op = history.Op

	// CacheStats reports region-cache counters.
	CacheStats = store.CacheStats
)

// Stats is a point-in-time summary of engine state.
type Stats struct {
	Version   Version
	Length    ByteOffset
	Lines     uint32
	Positions int
	UndoDepth int
	RedoDepth int
	Cache     CacheStats
	Events    event.Stats
}

// Engine is the main facade for the text core. It combines the
// versioned document, undo/redo history, position tracking, and edit
// event publication into a unified, thread-safe API.
//
// All operations are safe for concurrent use. Reads run against
// immutable snapshots and never block behind a writer.
type Engine struct {
	// mu serializes the edit pipeline: document apply, position
	// adjustment, history record, and event publish are atomic per
	// edit. Reads go straight to the document, which snapshots
	// internally.
	mu sync.Mutex

	doc       *document.Document
	log       *history.Log
	positions *position.Registry
	bus       *event.Bus

	// Configuration
	boundaryChecks   bool
	maxUndoEntries   int
	snapshotInterval int
	rootSnapshots    bool
	journalRetention int
	cacheBudget      int64
	readOnly         bool

	// Initialization
	initContent string
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		boundaryChecks:   true,
		maxUndoEntries:   DefaultMaxUndoEntries,
		snapshotInterval: DefaultSnapshotInterval,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.initContent != "" {
		e.doc = document.NewFromString(e.initContent, e.documentOptions()...)
	} else {
		e.doc = document.New(e.documentOptions()...)
	}
	e.assemble()
	return e
}

// NewFromReader creates an Engine by streaming content from r.
func NewFromReader(r io.Reader, opts ...Option) (*Engine, error) {
	e := &Engine{
		boundaryChecks:   true,
		maxUndoEntries:   DefaultMaxUndoEntries,
		snapshotInterval: DefaultSnapshotInterval,
	}
	for _, opt := range opts {
		opt(e)
	}

	doc, err := document.NewFromReader(r, e.documentOptions()...)
	if err != nil {
		return nil, err
	}
	e.doc = doc
	e.assemble()
	return e, nil
}

func (e *Engine) documentOptions() []document.Option {
	var storeOpts []store.Option
	if e.journalRetention > 0 {
		storeOpts = append(storeOpts, store.WithJournalRetention(e.journalRetention))
	}
	if e.cacheBudget > 0 {
		storeOpts = append(storeOpts, store.WithCacheBudget(e.cacheBudget))
	}

	opts := []document.Option{document.WithBoundaryChecks(e.boundaryChecks)}
	if len(storeOpts) > 0 {
		opts = append(opts, document.WithStoreOptions(storeOpts...))
	}
	return opts
}

func (e *Engine) assemble() {
	e.log = history.NewLog(
		history.WithMaxEntries(e.maxUndoEntries),
		history.WithSnapshotInterval(e.snapshotInterval),
		history.WithRootSnapshots(e.rootSnapshots),
	)
	e.positions = position.NewRegistry()
	e.bus = event.NewBus()
}

// ============================================================================
// Read Operations
// ============================================================================

// Text returns the full document content.
// For large documents, prefer TextRange or Snapshot readers.
func (e *Engine) Text() string {
	return e.doc.Text()
}

// TextRange returns the text in [start, end).
func (e *Engine) TextRange(start, end ByteOffset) (string, error) {
	return e.doc.TextRange(start, end)
}

// Len returns the total byte length of the document.
func (e *Engine) Len() ByteOffset {
	return e.doc.Len()
}

// LineCount returns the number of lines.
func (e *Engine) LineCount() uint32 {
	return e.doc.LineCount()
}

// LineText returns the text of a line without its newline.
func (e *Engine) LineText(line uint32) (string, error) {
	return e.doc.LineText(line)
}

// ByteAt returns the byte at the given offset.
func (e *Engine) ByteAt(offset ByteOffset) (byte, error) {
	return e.doc.ByteAt(offset)
}

// LineOf returns the line number containing offset.
func (e *Engine) LineOf(offset ByteOffset) (uint32, error) {
	return e.doc.LineOf(offset)
}

// LineOfApprox returns the line containing offset, estimated without
// scanning when offset lies beyond the scanned prefix.
func (e *Engine) LineOfApprox(offset ByteOffset) (LineEstimate, error) {
	return e.doc.LineOfApprox(offset)
}

// OffsetOfLine returns the byte offset where line starts.
func (e *Engine) OffsetOfLine(line uint32) (ByteOffset, error) {
	return e.doc.OffsetOfLine(line)
}

// Version returns the version of the last applied edit.
func (e *Engine) Version() Version {
	return e.doc.Version()
}

// Translate maps an offset captured at an older version onto the
// current content. Returns ErrStaleVersion once the journal has been
// pruned past from; the caller re-anchors.
func (e *Engine) Translate(offset ByteOffset, from Version) (ByteOffset, error) {
	return e.doc.Translate(offset, from)
}

// Modified reports whether the document has unsaved edits.
func (e *Engine) Modified() bool {
	return e.doc.Modified()
}

// Path returns the associated file path, if any.
func (e *Engine) Path() string {
	return e.doc.Path()
}

// Checksum returns the hash of the current content.
func (e *Engine) Checksum() uint64 {
	return e.doc.Checksum()
}

// Snapshot returns an immutable view of the current content and
// version. Snapshots stay valid and readable across later edits.
func (e *Engine) Snapshot() document.Snapshot {
	return e.doc.Snapshot()
}

// IsReadOnly reports whether write operations are rejected.
func (e *Engine) IsReadOnly() bool {
	return e.readOnly
}

// ============================================================================
// Write Operations
// ============================================================================

// Insert inserts text at the given offset.
func (e *Engine) Insert(offset ByteOffset, text string) (EditResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return EditResult{}, ErrReadOnly
	}
	return e.applyLocked(offset, offset, text)
}

// Delete removes the bytes in [start, end).
func (e *Engine) Delete(start, end ByteOffset) (EditResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return EditResult{}, ErrReadOnly
	}
	return e.applyLocked(start, end, "")
}

// Replace replaces the bytes in [start, end) with text.
func (e *Engine) Replace(start, end ByteOffset, text string) (EditResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return EditResult{}, ErrReadOnly
	}
	return e.applyLocked(start, end, text)
}

// applyLocked runs the full edit pipeline: document apply, position
// adjustment, history record, event publish. All-or-nothing; a
// rejected edit changes nothing.
func (e *Engine) applyLocked(start, end ByteOffset, text string) (EditResult, error) {
	before := e.positions.States()

	res, err := e.doc.Replace(start, end, text)
	if err != nil {
		return EditResult{}, err
	}
	if res.Edit.Removed == 0 && res.Edit.Inserted == 0 {
		// Validated but changed nothing: no version, no history, no event.
		return res, nil
	}

	e.positions.ApplyEdit(res.Edit)

	entry := history.NewEntry(
		history.NewReplaceOp(start, res.OldText, text),
		uint64(res.Version),
	).WithPositions(before, e.positions.States())
	e.log.Record(entry, e.doc.Snapshot().Tree())

	e.publishLocked(res)
	return res, nil
}

// publishLocked emits the edit descriptor. Publishing under the write
// lock keeps descriptors in version order.
func (e *Engine) publishLocked(res EditResult) {
	e.bus.Publish(event.Edit{
		Offset:      res.Edit.Offset,
		RemovedLen:  res.Edit.Removed,
		InsertedLen: res.Edit.Inserted,
		Version:     uint64(res.Version),
	})
}

// SetContent replaces the whole document and clears history. Tracked
// positions collapse per the standard whole-document adjustment.
func (e *Engine) SetContent(content string) (Version, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return 0, ErrReadOnly
	}

	res, err := e.doc.Replace(0, e.doc.Len(), content)
	if err != nil {
		return 0, err
	}
	e.log.Clear()
	if res.Edit.Removed != 0 || res.Edit.Inserted != 0 {
		e.positions.ApplyEdit(res.Edit)
		e.publishLocked(res)
	}
	return res.Version, nil
}

// Clear removes all content and history.
func (e *Engine) Clear() error {
	_, err := e.SetContent("")
	return err
}

// ============================================================================
// Undo/Redo
// ============================================================================

// Undo reverts the most recent undo unit, restoring content and the
// position-holder states captured before it. Returns false at the
// history boundary; that is a no-op, not an error.
func (e *Engine) Undo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return false, ErrReadOnly
	}

	entry, ok := e.log.Undo()
	if !ok {
		return false, nil
	}

	if snap, found := e.log.SnapshotAt(e.log.Index()); found && snap.HasRoot && snap.Index == e.log.Index() {
		e.swapRootLocked(snap.Root)
	} else if err := e.applyOpsLocked(entry.Inverse().Ops); err != nil {
		e.log.Redo()
		return false, err
	}
	e.positions.Restore(entry.PositionsBefore)
	return true, nil
}

// Redo re-applies the most recently undone unit, restoring the
// position-holder states captured after it. Returns false at the
// history boundary.
func (e *Engine) Redo() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return false, ErrReadOnly
	}

	entry, ok := e.log.Redo()
	if !ok {
		return false, nil
	}

	if snap, found := e.log.SnapshotAt(e.log.Index()); found && snap.HasRoot && snap.Index == e.log.Index() {
		e.swapRootLocked(snap.Root)
	} else if err := e.applyOpsLocked(entry.Ops); err != nil {
		e.log.Undo()
		return false, err
	}
	e.positions.Restore(entry.PositionsAfter)
	return true, nil
}

// applyOpsLocked replays recorded ops against the document without
// re-recording them. Each op publishes its edit descriptor and pushes
// holders registered since the recording through the standard
// adjustment; recorded holders are then restored exactly by the
// caller.
func (e *Engine) applyOpsLocked(ops []history.Op) error {
	for _, op := range ops {
		res, err := e.doc.Replace(op.Offset, op.Offset+ByteOffset(len(op.OldText)), op.NewText)
		if err != nil {
			return err
		}
		e.positions.ApplyEdit(res.Edit)
		e.publishLocked(res)
	}
	return nil
}

// swapRootLocked restores document content from a retained snapshot
// root in one step instead of replaying ops.
func (e *Engine) swapRootLocked(root tree.Tree) {
	oldLen := e.doc.Len()
	v := e.doc.SetContent(root)
	e.positions.ApplyEdit(Edit{Offset: 0, Removed: oldLen, Inserted: root.Len()})
	e.bus.Publish(event.Edit{
		Offset:      0,
		RemovedLen:  oldLen,
		InsertedLen: root.Len(),
		Version:     uint64(v),
	})
}

// CanUndo reports whether undo is available.
func (e *Engine) CanUndo() bool {
	return e.log.CanUndo()
}

// CanRedo reports whether redo is available.
func (e *Engine) CanRedo() bool {
	return e.log.CanRedo()
}

// UndoCount returns the number of available undo units.
func (e *Engine) UndoCount() int {
	return e.log.Index()
}

// RedoCount returns the number of available redo units.
func (e *Engine) RedoCount() int {
	return e.log.Len() - e.log.Index()
}

// BeginUndoGroup starts folding subsequent edits into one undo unit.
func (e *Engine) BeginUndoGroup(label string) {
	e.log.BeginGroup(label)
}

// EndUndoGroup closes the current group and records it.
func (e *Engine) EndUndoGroup() {
	e.log.EndGroup()
}

// CancelUndoGroup discards the current group without recording it.
// The edits themselves remain applied.
func (e *Engine) CancelUndoGroup() {
	e.log.CancelGroup()
}

// ClearHistory removes all undo/redo history.
func (e *Engine) ClearHistory() {
	e.log.Clear()
}

// ============================================================================
// History Persistence
// ============================================================================

// SaveHistory streams the full undo history to w, one JSON object per
// entry.
func (e *Engine) SaveHistory(w io.Writer) error {
	return e.log.SaveTo(w)
}

// LoadHistory replaces the undo history from r. The caller is
// responsible for pairing it with matching content; VerifyHistory
// checks the combination.
func (e *Engine) LoadHistory(r io.Reader) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.LoadFrom(r)
}

// VerifyHistory replays the applied history from an empty document and
// compares the result against current content. It only holds for
// histories recorded from empty, which is what SaveHistory of an
// unpruned log produces.
func (e *Engine) VerifyHistory() error {
	snap := e.doc.Snapshot()
	return e.log.Verify(tree.Tree{}, history.Fingerprint(snap.Tree()))
}

// ============================================================================
// Position Tracking
// ============================================================================

// RegisterPosition starts tracking a byte position through edits and
// returns its ID. Cursor offsets, selection endpoints, and named
// marker anchors all register the same way.
func (e *Engine) RegisterPosition(offset ByteOffset, opts ...position.Option) PositionID {
	return e.positions.Register(offset, opts...)
}

// UnregisterPosition stops tracking a position.
func (e *Engine) UnregisterPosition(id PositionID) bool {
	return e.positions.Unregister(id)
}

// Position returns the current offset of a tracked position.
func (e *Engine) Position(id PositionID) (ByteOffset, bool) {
	return e.positions.Lookup(id)
}

// MovePosition deliberately repositions a tracked position.
func (e *Engine) MovePosition(id PositionID, offset ByteOffset) bool {
	return e.positions.Move(id, offset)
}

// Positions returns a stable-ordered snapshot of all tracked
// positions.
func (e *Engine) Positions() []position.State {
	return e.positions.States()
}

// PositionCount returns the number of tracked positions.
func (e *Engine) PositionCount() int {
	return e.positions.Len()
}

// ============================================================================
// Boundary Motion
// ============================================================================

// NextGrapheme returns the offset just past the grapheme cluster at
// offset.
func (e *Engine) NextGrapheme(offset ByteOffset) ByteOffset {
	return e.doc.NextGrapheme(offset)
}

// PrevGrapheme returns the start of the grapheme cluster ending at
// offset.
func (e *Engine) PrevGrapheme(offset ByteOffset) ByteOffset {
	return e.doc.PrevGrapheme(offset)
}

// NextWordBoundary returns the next word boundary after offset.
func (e *Engine) NextWordBoundary(offset ByteOffset) ByteOffset {
	return e.doc.NextWordBoundary(offset)
}

// PrevWordBoundary returns the closest word boundary before offset.
func (e *Engine) PrevWordBoundary(offset ByteOffset) ByteOffset {
	return e.doc.PrevWordBoundary(offset)
}

// ============================================================================
// Search
// ============================================================================

// Find returns the offset of the first occurrence of pattern at or
// after from. The search streams off an immutable snapshot; edits
// landing mid-search do not disturb it.
func (e *Engine) Find(ctx context.Context, pattern string, from ByteOffset, opts FindOptions) (ByteOffset, bool, error) {
	return e.doc.Find(ctx, pattern, from, opts)
}

// FindRegexp returns the leftmost regexp match at or after from.
func (e *Engine) FindRegexp(ctx context.Context, re *regexp.Regexp, from ByteOffset) (RegexpMatch, bool, error) {
	return e.doc.FindRegexp(ctx, re, from)
}

// ============================================================================
// Files
// ============================================================================

// Load replaces the document with the file at path, clears history,
// and collapses tracked positions per the standard whole-document
// adjustment. The document is untouched on any error. Load works in
// read-only mode; read-only restricts edits, not what is viewed.
func (e *Engine) Load(ctx context.Context, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	oldLen := e.doc.Len()
	if err := e.doc.Load(ctx, path); err != nil {
		return err
	}
	e.log.Clear()

	ed := Edit{Offset: 0, Removed: oldLen, Inserted: e.doc.Len()}
	e.positions.ApplyEdit(ed)
	e.bus.Publish(event.Edit{
		Offset:      0,
		RemovedLen:  ed.Removed,
		InsertedLen: ed.Inserted,
		Version:     uint64(e.doc.Version()),
	})
	return nil
}

// Save writes the document to its associated path. Failures leave the
// document and the modified flag untouched.
func (e *Engine) Save(ctx context.Context) error {
	return e.doc.Save(ctx)
}

// SaveAs writes the document to path and associates it.
func (e *Engine) SaveAs(ctx context.Context, path string) error {
	return e.doc.SaveAs(ctx, path)
}

// ============================================================================
// Events
// ============================================================================

// Subscribe registers a handler for edit descriptors. Handlers run
// synchronously on the editing goroutine in version order; they may
// read the engine but must not edit through it.
func (e *Engine) Subscribe(fn event.HandlerFunc) event.Subscription {
	return e.bus.Subscribe(fn)
}

// Unsubscribe removes a handler.
func (e *Engine) Unsubscribe(s event.Subscription) bool {
	return e.bus.Unsubscribe(s)
}

// ============================================================================
// Stats
// ============================================================================

// Stats returns a point-in-time summary of engine state. Counters are
// gathered without a global pause, so they may straddle a concurrent
// edit.
func (e *Engine) Stats() Stats {
	snap := e.doc.Snapshot()
	return Stats{
		Version:   snap.Version(),
		Length:    snap.Len(),
		Lines:     snap.LineCount(),
		Positions: e.positions.Len(),
		UndoDepth: e.log.Index(),
		RedoDepth: e.log.Len() - e.log.Index(),
		Cache:     e.doc.Stats(),
		Events:    e.bus.Stats(),
	}
}
