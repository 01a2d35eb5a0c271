package position

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// State is a snapshot of one tracked position. History snapshots
// capture and restore these across undo and redo.
type State struct {
	ID       uuid.UUID
	Offset   ByteOffset
	Affinity Affinity
}

// Registry tracks live positions by opaque ID. Holders register here
// and the engine pushes each applied edit through; the text layers
// never hold references back to registered positions, so dropping a
// holder is just an Unregister call.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

type entry struct {
	offset   ByteOffset
	affinity Affinity
}

// Option configures a position at registration.
type Option func(*entry)

// WithLeftAffinity makes the position stay put when text is inserted
// exactly at it.
func WithLeftAffinity() Option {
	return func(e *entry) {
		e.affinity = AffinityLeft
	}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*entry)}
}

// Register starts tracking a position and returns its ID.
func (r *Registry) Register(offset ByteOffset, opts ...Option) uuid.UUID {
	e := &entry{offset: offset}
	for _, opt := range opts {
		opt(e)
	}

	id := uuid.New()
	r.mu.Lock()
	r.entries[id] = e
	r.mu.Unlock()
	return id
}

// Unregister stops tracking a position.
// Returns false if the ID is not registered.
func (r *Registry) Unregister(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

// Lookup returns the current offset of a tracked position.
func (r *Registry) Lookup(id uuid.UUID) (ByteOffset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return 0, false
	}
	return e.offset, true
}

// Move repositions a tracked position. This is for deliberate holder
// movement; edits flow through ApplyEdit instead.
// Returns false if the ID is not registered.
func (r *Registry) Move(id uuid.UUID, offset ByteOffset) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.offset = offset
	return true
}

// ApplyEdit adjusts every tracked position for an applied edit.
func (r *Registry) ApplyEdit(ed Edit) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.offset = TransformOffsetAffinity(e.offset, ed, e.affinity)
	}
}

// Len returns the number of tracked positions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// States returns a snapshot of all tracked positions, ordered by ID
// so snapshots of the same registry state compare equal.
func (r *Registry) States() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]State, 0, len(r.entries))
	for id, e := range r.entries {
		states = append(states, State{ID: id, Offset: e.offset, Affinity: e.affinity})
	}
	sort.Slice(states, func(i, j int) bool {
		return bytes.Compare(states[i].ID[:], states[j].ID[:]) < 0
	})
	return states
}

// Restore sets tracked positions from a snapshot. Snapshot entries
// whose holders have since unregistered are ignored; positions
// registered after the snapshot keep their current offsets.
func (r *Registry) Restore(states []State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range states {
		if e, ok := r.entries[s.ID]; ok {
			e.offset = s.Offset
		}
	}
}
