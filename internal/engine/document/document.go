package document

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/sottey/fresh/internal/engine/boundary"
	"github.com/sottey/fresh/internal/engine/position"
	"github.com/sottey/fresh/internal/engine/store"
	"github.com/sottey/fresh/internal/engine/tree"
)

// ByteOffset re-exports the tree's offset type.
type ByteOffset = tree.ByteOffset

// Version re-exports the store's version type.
type Version = store.Version

// EditResult describes one applied edit.
type EditResult struct {
	Edit    position.Edit
	OldText string
	Version Version
}

// NewEnd returns the offset just past the inserted text.
func (r EditResult) NewEnd() ByteOffset {
	return r.Edit.Offset + r.Edit.Inserted
}

// Document wraps a versioned store with file identity, a modified
// flag, boundary-checked edits, and lazily scanned line queries.
// All methods are safe for concurrent use.
type Document struct {
	mu              sync.RWMutex
	store           *store.Store
	path            string
	modified        bool
	checkBoundaries bool
	lines           *lineCache
	savedSum        uint64

	storeOpts []store.Option
}

// Option configures a Document.
type Option func(*Document)

// WithBoundaryChecks enables or disables UTF-8 boundary validation on
// edits. Checks are on by default; raw byte editors opt out.
func WithBoundaryChecks(enabled bool) Option {
	return func(d *Document) {
		d.checkBoundaries = enabled
	}
}

// WithPath associates a file path without loading it.
func WithPath(path string) Option {
	return func(d *Document) {
		d.path = path
	}
}

// WithStoreOptions forwards options to the underlying store.
func WithStoreOptions(opts ...store.Option) Option {
	return func(d *Document) {
		d.storeOpts = append(d.storeOpts, opts...)
	}
}

// New creates an empty document.
func New(opts ...Option) *Document {
	return fromTree(tree.Tree{}, xxhash.Sum64String(""), opts...)
}

// NewFromString creates a document with initial content.
func NewFromString(s string, opts ...Option) *Document {
	return fromTree(tree.NewFromString(s), xxhash.Sum64String(s), opts...)
}

func fromTree(t tree.Tree, sum uint64, opts ...Option) *Document {
	d := &Document{
		checkBoundaries: true,
		lines:           newLineCache(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.store = store.New(t, d.storeOpts...)
	d.savedSum = sum
	return d
}

// Read operations

// Text returns the full document content.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Tree().Text()
}

// TextRange returns the text in [start, end), served through the
// store's region cache.
func (d *Document) TextRange(start, end ByteOffset) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.ReadRange(start, end)
}

// Len returns the content length in bytes.
func (d *Document) Len() ByteOffset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Len()
}

// LineCount returns the number of lines.
func (d *Document) LineCount() uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Tree().LineCount()
}

// LineText returns the text of a line without its newline.
func (d *Document) LineText(line uint32) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Tree().LineText(line)
}

// ByteAt returns the byte at offset.
func (d *Document) ByteAt(offset ByteOffset) (byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Tree().ByteAt(offset)
}

// Version returns the current store version.
func (d *Document) Version() Version {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Version()
}

// Translate maps an offset captured at an older version to the
// current content.
func (d *Document) Translate(offset ByteOffset, from Version) (ByteOffset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store.Translate(offset, from)
}

// Modified reports whether the document has unsaved edits.
func (d *Document) Modified() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.modified
}

// Path returns the associated file path, if any.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Stats returns the store's region cache counters.
func (d *Document) Stats() store.CacheStats {
	return d.store.Stats()
}

// Snapshot returns an immutable view of the current content.
func (d *Document) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, v := d.store.Snapshot()
	return Snapshot{tree: t, version: v, path: d.path}
}

// Write operations

// Insert inserts text at offset.
func (d *Document) Insert(offset ByteOffset, text string) (EditResult, error) {
	return d.Replace(offset, offset, text)
}

// Delete removes the bytes in [start, end).
func (d *Document) Delete(start, end ByteOffset) (EditResult, error) {
	return d.Replace(start, end, "")
}

// Replace replaces the bytes in [start, end) with text. With boundary
// checks enabled, both ends must fall on UTF-8 boundaries and text
// must be valid UTF-8.
func (d *Document) Replace(start, end ByteOffset, text string) (EditResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.store.Tree()
	old, err := t.Slice(start, end)
	if err != nil {
		return EditResult{}, err
	}
	if d.checkBoundaries {
		if err := boundary.CheckRange(t, start, end); err != nil {
			return EditResult{}, err
		}
		if pos := tree.ValidateUTF8(text); pos >= 0 {
			return EditResult{}, fmt.Errorf("%w: text invalid at byte %d", boundary.ErrInvalidBoundary, pos)
		}
	}

	v, err := d.store.Apply(start, end-start, text)
	if err != nil {
		return EditResult{}, err
	}

	e := position.Edit{Offset: start, Removed: end - start, Inserted: ByteOffset(len(text))}
	if e.Removed != 0 || e.Inserted != 0 {
		d.modified = true
		d.lines.invalidate(start)
	}
	return EditResult{Edit: e, OldText: old, Version: v}, nil
}

// SetContent replaces the whole document, used by undo restoring a
// root snapshot. The tree is trusted; no boundary check applies.
func (d *Document) SetContent(t tree.Tree) Version {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := d.store.SetTree(t)
	d.modified = true
	d.lines.invalidate(0)
	return v
}

// Boundary motion

// NextGrapheme returns the offset just past the grapheme cluster at
// offset.
func (d *Document) NextGrapheme(offset ByteOffset) ByteOffset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return boundary.NextGrapheme(d.store.Tree(), offset)
}

// PrevGrapheme returns the start of the grapheme cluster ending at
// offset.
func (d *Document) PrevGrapheme(offset ByteOffset) ByteOffset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return boundary.PrevGrapheme(d.store.Tree(), offset)
}

// NextWordBoundary returns the next word segmentation boundary after
// offset.
func (d *Document) NextWordBoundary(offset ByteOffset) ByteOffset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return boundary.NextWordBoundary(d.store.Tree(), offset)
}

// PrevWordBoundary returns the closest word segmentation boundary
// before offset.
func (d *Document) PrevWordBoundary(offset ByteOffset) ByteOffset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return boundary.PrevWordBoundary(d.store.Tree(), offset)
}
