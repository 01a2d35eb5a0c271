package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sottey/fresh/internal/engine/position"
	"github.com/sottey/fresh/internal/engine/tree"
)

// ByteOffset re-exports the tree's offset type.
type ByteOffset = tree.ByteOffset

// Version identifies one state of the store's content. It starts at
// zero for the initial tree and increases by one per applied edit.
type Version uint64

var (
	// ErrStaleVersion is returned when translating from a version
	// whose subsequent edits have been pruned from the journal.
	ErrStaleVersion = errors.New("version pruned from journal")

	// ErrUnknownVersion is returned for versions the store has never
	// produced.
	ErrUnknownVersion = errors.New("unknown version")
)

// Store pairs the current tree with a version counter, a bounded
// journal of applied edits for offset translation, and a block cache
// of materialized text.
//
// A Store expects a single logical writer. Readers may call Snapshot,
// ReadRange, and Translate concurrently with the writer; snapshots
// stay valid indefinitely because trees are immutable.
type Store struct {
	mu      sync.RWMutex
	tree    tree.Tree
	version Version
	journal *journal
	cache   *regionCache

	cacheBudget      int64
	journalRetention int
}

// Option configures a Store.
type Option func(*Store)

// WithCacheBudget bounds the bytes of text held by the region cache.
func WithCacheBudget(bytes int64) Option {
	return func(s *Store) {
		if bytes > 0 {
			s.cacheBudget = bytes
		}
	}
}

// WithJournalRetention sets how many applied edits remain translatable.
func WithJournalRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.journalRetention = n
		}
	}
}

// New creates a store over t at version zero.
func New(t tree.Tree, opts ...Option) *Store {
	s := &Store{
		tree:             t,
		cacheBudget:      DefaultCacheBudget,
		journalRetention: DefaultJournalRetention,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.journal = newJournal(s.journalRetention)
	s.cache = newRegionCache(s.cacheBudget)
	return s
}

// Apply replaces removed bytes at offset with text, producing a new
// version. Bounds errors leave the store unchanged. Edits that remove
// and insert nothing are validated but do not create a version.
func (s *Store) Apply(offset, removed ByteOffset, text string) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.tree.Replace(offset, offset+removed, text)
	if err != nil {
		return s.version, err
	}
	if removed == 0 && len(text) == 0 {
		return s.version, nil
	}

	e := position.Edit{Offset: offset, Removed: removed, Inserted: ByteOffset(len(text))}
	s.tree = next
	s.version++
	s.journal.append(s.version, e)
	s.invalidateLocked(e)
	return s.version, nil
}

// SetTree swaps in a whole new tree, journaled as a full replacement.
// Undo to a root snapshot takes this path.
func (s *Store) SetTree(t tree.Tree) Version {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldLen := s.tree.Len()
	s.tree = t
	s.version++
	s.journal.append(s.version, position.Edit{Offset: 0, Removed: oldLen, Inserted: t.Len()})
	s.cache.purge()
	return s.version
}

func (s *Store) invalidateLocked(e position.Edit) {
	if e.Delta() == 0 {
		last := e.Offset + e.Removed
		if e.Removed > 0 {
			last--
		}
		s.cache.invalidateRange(e.Offset/BlockSize, last/BlockSize)
		return
	}
	// The edit shifted everything after it, so later blocks no
	// longer correspond to their offsets.
	s.cache.invalidateFrom(e.Offset / BlockSize)
}

// Tree returns the current tree.
func (s *Store) Tree() tree.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// Version returns the current version.
func (s *Store) Version() Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current tree and its version as one consistent
// pair.
func (s *Store) Snapshot() (tree.Tree, Version) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree, s.version
}

// Len returns the current content length in bytes.
func (s *Store) Len() ByteOffset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// ReadRange returns the text in [start, end), served from the block
// cache where possible.
func (s *Store) ReadRange(start, end ByteOffset) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if start < 0 || start > end {
		return "", fmt.Errorf("%w: read [%d, %d)", tree.ErrRangeInvalid, start, end)
	}
	if end > s.tree.Len() {
		return "", fmt.Errorf("%w: read end %d in tree of %d bytes", tree.ErrOffsetOutOfRange, end, s.tree.Len())
	}
	if start == end {
		return "", nil
	}

	var sb strings.Builder
	sb.Grow(int(end - start))
	for block := start / BlockSize; block*BlockSize < end; block++ {
		text, err := s.blockText(block)
		if err != nil {
			return "", err
		}
		from := max(start-block*BlockSize, 0)
		to := min(end-block*BlockSize, ByteOffset(len(text)))
		sb.WriteString(text[from:to])
	}
	return sb.String(), nil
}

// blockText returns the materialized text of one block, filling the
// cache on miss. Callers hold at least the read lock; the underlying
// LRU is safe for concurrent fills.
func (s *Store) blockText(block int64) (string, error) {
	if text, ok := s.cache.get(block); ok {
		return text, nil
	}
	start := ByteOffset(block) * BlockSize
	end := min(start+BlockSize, s.tree.Len())
	text, err := s.tree.Slice(start, end)
	if err != nil {
		return "", err
	}
	s.cache.add(block, text)
	return text, nil
}

// Translate maps an offset captured at version from to the current
// version by replaying the journaled edits after it.
func (s *Store) Translate(offset ByteOffset, from Version) (ByteOffset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if from == s.version {
		return offset, nil
	}
	if from > s.version {
		return 0, fmt.Errorf("%w: %d, current %d", ErrUnknownVersion, from, s.version)
	}
	if oldest, ok := s.journal.oldest(); !ok || oldest > from+1 {
		return 0, fmt.Errorf("%w: version %d", ErrStaleVersion, from)
	}

	for i := 0; i < s.journal.len(); i++ {
		entry := s.journal.at(i)
		if entry.version > from {
			offset = position.TransformOffset(offset, entry.edit)
		}
	}
	return offset, nil
}

// Stats returns region cache counters.
func (s *Store) Stats() CacheStats {
	return s.cache.stats()
}
