package history

import (
	"time"

	"github.com/sottey/fresh/internal/engine/position"
	"github.com/sottey/fresh/internal/engine/tree"
)

// ByteOffset is an alias for tree.ByteOffset for convenience.
type ByteOffset = tree.ByteOffset

// Op is one applied edit with the text it removed and inserted, which
// is exactly enough to compute its inverse.
type Op struct {
	Offset  ByteOffset
	OldText string // text the edit removed (reinserted on undo)
	NewText string // text the edit inserted (reapplied on redo)
}

// NewInsertOp describes an insertion.
func NewInsertOp(offset ByteOffset, text string) Op {
	return Op{Offset: offset, NewText: text}
}

// NewDeleteOp describes a deletion.
func NewDeleteOp(offset ByteOffset, deleted string) Op {
	return Op{Offset: offset, OldText: deleted}
}

// NewReplaceOp describes a replacement.
func NewReplaceOp(offset ByteOffset, oldText, newText string) Op {
	return Op{Offset: offset, OldText: oldText, NewText: newText}
}

// Edit returns the op as a position-space edit description.
func (op Op) Edit() position.Edit {
	return position.Edit{
		Offset:   op.Offset,
		Removed:  ByteOffset(len(op.OldText)),
		Inserted: ByteOffset(len(op.NewText)),
	}
}

// Inverse returns the op that undoes this one.
func (op Op) Inverse() Op {
	return Op{Offset: op.Offset, OldText: op.NewText, NewText: op.OldText}
}

// IsInsert reports whether the op is a pure insertion.
func (op Op) IsInsert() bool {
	return len(op.OldText) == 0 && len(op.NewText) > 0
}

// IsDelete reports whether the op is a pure deletion.
func (op Op) IsDelete() bool {
	return len(op.OldText) > 0 && len(op.NewText) == 0
}

// IsNoop reports whether the op changes nothing.
func (op Op) IsNoop() bool {
	return len(op.OldText) == 0 && len(op.NewText) == 0
}

// Delta returns the op's change in document length.
func (op Op) Delta() ByteOffset {
	return ByteOffset(len(op.NewText) - len(op.OldText))
}

// Entry is one undo unit. Most entries hold a single op; entries
// recorded through BeginGroup/EndGroup hold every op in the group, and
// the whole unit moves through undo and redo together.
type Entry struct {
	Ops []Op

	// Position-holder states around the unit, for exact restore.
	PositionsBefore []position.State
	PositionsAfter  []position.State

	// Store version after the unit applied.
	Version uint64

	Timestamp time.Time
	Label     string
}

// NewEntry creates a single-op entry stamped with the current time.
func NewEntry(op Op, version uint64) Entry {
	return Entry{Ops: []Op{op}, Version: version, Timestamp: time.Now()}
}

// WithPositions sets the holder states around the entry and returns it
// for chaining.
func (e Entry) WithPositions(before, after []position.State) Entry {
	e.PositionsBefore = before
	e.PositionsAfter = after
	return e
}

// Inverse returns an entry that undoes this one: the ops inverted and
// in reverse order, with the position states swapped.
func (e Entry) Inverse() Entry {
	inv := Entry{
		Ops:             make([]Op, len(e.Ops)),
		PositionsBefore: e.PositionsAfter,
		PositionsAfter:  e.PositionsBefore,
		Version:         e.Version,
		Timestamp:       time.Now(),
		Label:           e.Label,
	}
	for i, op := range e.Ops {
		inv.Ops[len(e.Ops)-1-i] = op.Inverse()
	}
	return inv
}

// Delta returns the entry's total change in document length.
func (e Entry) Delta() ByteOffset {
	var total ByteOffset
	for _, op := range e.Ops {
		total += op.Delta()
	}
	return total
}

// IsEmpty reports whether the entry holds no ops.
func (e Entry) IsEmpty() bool {
	return len(e.Ops) == 0
}
