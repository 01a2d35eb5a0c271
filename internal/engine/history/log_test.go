package history

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/sottey/fresh/internal/engine/position"
	"github.com/sottey/fresh/internal/engine/tree"
)

// recordAppend applies an end-of-document insert to t, records it, and
// returns the new tree. Mirrors how the engine feeds the log.
func recordAppend(t *testing.T, l *Log, tr tree.Tree, text string, version uint64) tree.Tree {
	t.Helper()
	next, err := tr.Replace(tr.Len(), tr.Len(), text)
	if err != nil {
		t.Fatalf("append %q failed: %v", text, err)
	}
	l.Record(NewEntry(NewInsertOp(tr.Len(), text), version), next)
	return next
}

func TestNewLog(t *testing.T) {
	l := NewLog()
	if l.Len() != 0 || l.Index() != 0 {
		t.Errorf("Len, Index = %d, %d, want 0, 0", l.Len(), l.Index())
	}
	if l.CanUndo() || l.CanRedo() {
		t.Error("empty log claims undo or redo available")
	}
	if l.MaxEntries() != DefaultMaxEntries {
		t.Errorf("MaxEntries() = %d, want %d", l.MaxEntries(), DefaultMaxEntries)
	}
	if _, ok := l.Undo(); ok {
		t.Error("Undo() on empty log returned an entry")
	}
	if _, ok := l.Redo(); ok {
		t.Error("Redo() on empty log returned an entry")
	}
}

func TestUndoRedo(t *testing.T) {
	l := NewLog()
	tr := recordAppend(t, l, tree.New(), "a", 1)
	recordAppend(t, l, tr, "b", 2)

	if l.Index() != 2 || !l.CanUndo() || l.CanRedo() {
		t.Fatalf("after records: Index %d, CanUndo %v, CanRedo %v", l.Index(), l.CanUndo(), l.CanRedo())
	}

	e, ok := l.Undo()
	if !ok || e.Ops[0].NewText != "b" {
		t.Fatalf("first Undo = (%q, %v), want b", e.Ops[0].NewText, ok)
	}
	if l.Index() != 1 || !l.CanRedo() {
		t.Errorf("after undo: Index %d, CanRedo %v", l.Index(), l.CanRedo())
	}

	e, ok = l.Undo()
	if !ok || e.Ops[0].NewText != "a" {
		t.Fatalf("second Undo = (%q, %v), want a", e.Ops[0].NewText, ok)
	}
	if l.CanUndo() {
		t.Error("CanUndo() = true at start of history")
	}
	if _, ok := l.Undo(); ok {
		t.Error("Undo() past start returned an entry")
	}

	e, ok = l.Redo()
	if !ok || e.Ops[0].NewText != "a" {
		t.Fatalf("Redo = (%q, %v), want a", e.Ops[0].NewText, ok)
	}
	e, ok = l.Redo()
	if !ok || e.Ops[0].NewText != "b" {
		t.Fatalf("second Redo = (%q, %v), want b", e.Ops[0].NewText, ok)
	}
	if _, ok := l.Redo(); ok {
		t.Error("Redo() past end returned an entry")
	}
}

func TestRecordTruncatesRedo(t *testing.T) {
	l := NewLog(WithSnapshotInterval(2))
	tr := tree.New()
	for i := 0; i < 4; i++ {
		tr = recordAppend(t, l, tr, fmt.Sprintf("%d;", i), uint64(i+1))
	}
	if l.SnapshotCount() != 2 {
		t.Fatalf("SnapshotCount() = %d, want 2", l.SnapshotCount())
	}

	l.Undo()
	l.Undo()
	l.Undo()
	if l.Len() != 4 || l.Index() != 1 {
		t.Fatalf("after undos: Len %d, Index %d", l.Len(), l.Index())
	}

	// Recording now discards the undone tail and its snapshots.
	base := tree.NewFromString("0;")
	recordAppend(t, l, base, "X;", 5)

	if l.Len() != 2 || l.Index() != 2 || l.CanRedo() {
		t.Errorf("after record: Len %d, Index %d, CanRedo %v", l.Len(), l.Index(), l.CanRedo())
	}
	e, _ := l.Entry(1)
	if e.Ops[0].NewText != "X;" {
		t.Errorf("entry 1 inserts %q, want X;", e.Ops[0].NewText)
	}

	// The recording that completed the new interval snapshots the new
	// timeline, not the discarded one.
	snap, ok := l.SnapshotAt(2)
	if !ok || snap.Index != 2 {
		t.Fatalf("SnapshotAt(2) = (%d, %v)", snap.Index, ok)
	}
	if snap.Sum != xxhash.Sum64String("0;X;") {
		t.Error("snapshot fingerprints the discarded timeline")
	}
}

func TestRecordEmptyEntry(t *testing.T) {
	l := NewLog()
	l.Record(Entry{}, tree.New())
	if l.Len() != 0 {
		t.Errorf("Len() = %d after empty record, want 0", l.Len())
	}
}

func TestOpPredicates(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		insert   bool
		delete   bool
		noop     bool
		delta    ByteOffset
		wantEdit position.Edit
	}{
		{"insert", NewInsertOp(3, "ab"), true, false, false, 2, position.Edit{Offset: 3, Inserted: 2}},
		{"delete", NewDeleteOp(3, "ab"), false, true, false, -2, position.Edit{Offset: 3, Removed: 2}},
		{"replace", NewReplaceOp(1, "abc", "d"), false, false, false, -2, position.Edit{Offset: 1, Removed: 3, Inserted: 1}},
		{"noop", Op{Offset: 9}, false, false, true, 0, position.Edit{Offset: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.IsInsert(); got != tt.insert {
				t.Errorf("IsInsert() = %v, want %v", got, tt.insert)
			}
			if got := tt.op.IsDelete(); got != tt.delete {
				t.Errorf("IsDelete() = %v, want %v", got, tt.delete)
			}
			if got := tt.op.IsNoop(); got != tt.noop {
				t.Errorf("IsNoop() = %v, want %v", got, tt.noop)
			}
			if got := tt.op.Delta(); got != tt.delta {
				t.Errorf("Delta() = %d, want %d", got, tt.delta)
			}
			if got := tt.op.Edit(); got != tt.wantEdit {
				t.Errorf("Edit() = %+v, want %+v", got, tt.wantEdit)
			}
		})
	}
}

func TestOpInverse(t *testing.T) {
	op := NewReplaceOp(5, "World", "Go")
	inv := op.Inverse()
	if inv.Offset != 5 || inv.OldText != "Go" || inv.NewText != "World" {
		t.Errorf("Inverse() = %+v", inv)
	}
	if inv.Inverse() != op {
		t.Error("double inverse is not the original")
	}
}

func TestEntryInverse(t *testing.T) {
	before := []position.State{{ID: uuid.New(), Offset: 5}}
	after := []position.State{{ID: before[0].ID, Offset: 8}}
	e := Entry{
		Ops:     []Op{NewInsertOp(0, "ab"), NewDeleteOp(5, "xy")},
		Version: 7,
	}.WithPositions(before, after)

	inv := e.Inverse()
	if len(inv.Ops) != 2 {
		t.Fatalf("inverse has %d ops", len(inv.Ops))
	}
	if inv.Ops[0] != (Op{Offset: 5, NewText: "xy"}) {
		t.Errorf("first inverse op = %+v, want reinsert of xy", inv.Ops[0])
	}
	if inv.Ops[1] != (Op{Offset: 0, OldText: "ab"}) {
		t.Errorf("second inverse op = %+v, want removal of ab", inv.Ops[1])
	}
	if inv.PositionsBefore[0].Offset != 8 || inv.PositionsAfter[0].Offset != 5 {
		t.Error("position states not swapped")
	}
	if e.Delta() != 0 || inv.Delta() != 0 {
		t.Errorf("Delta() = %d, %d, want 0, 0", e.Delta(), inv.Delta())
	}
}

func TestGrouping(t *testing.T) {
	l := NewLog()
	id := uuid.New()

	l.BeginGroup("replace all")
	if !l.IsGrouping() {
		t.Fatal("IsGrouping() = false after BeginGroup")
	}

	tr := tree.New()
	for i, text := range []string{"a", "b", "c"} {
		next, err := tr.Replace(tr.Len(), tr.Len(), text)
		if err != nil {
			t.Fatal(err)
		}
		e := NewEntry(NewInsertOp(tr.Len(), text), uint64(i+1)).WithPositions(
			[]position.State{{ID: id, Offset: tr.Len()}},
			[]position.State{{ID: id, Offset: next.Len()}},
		)
		l.Record(e, next)
		tr = next
	}
	if l.Len() != 0 {
		t.Fatalf("entries recorded before EndGroup: %d", l.Len())
	}

	l.EndGroup()
	if l.IsGrouping() || l.Len() != 1 {
		t.Fatalf("after EndGroup: IsGrouping %v, Len %d", l.IsGrouping(), l.Len())
	}

	e, ok := l.Undo()
	if !ok {
		t.Fatal("Undo() found nothing")
	}
	if len(e.Ops) != 3 || e.Label != "replace all" {
		t.Errorf("unit has %d ops, label %q", len(e.Ops), e.Label)
	}
	if e.PositionsBefore[0].Offset != 0 || e.PositionsAfter[0].Offset != 3 {
		t.Errorf("unit positions = %d..%d, want 0..3",
			e.PositionsBefore[0].Offset, e.PositionsAfter[0].Offset)
	}
	if e.Version != 3 {
		t.Errorf("unit version = %d, want 3", e.Version)
	}
}

func TestGroupEmpty(t *testing.T) {
	l := NewLog()
	l.BeginGroup("nothing")
	l.EndGroup()
	if l.Len() != 0 {
		t.Errorf("empty group recorded an entry")
	}
}

func TestGroupNested(t *testing.T) {
	l := NewLog()
	l.BeginGroup("outer")
	tr := recordAppend(t, l, tree.New(), "a", 1)
	l.BeginGroup("inner")
	recordAppend(t, l, tr, "b", 2)
	l.EndGroup()

	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
	e, _ := l.Entry(0)
	if len(e.Ops) != 2 || e.Label != "outer" {
		t.Errorf("unit has %d ops, label %q, want 2 ops under outer", len(e.Ops), e.Label)
	}
}

func TestCancelGroup(t *testing.T) {
	l := NewLog()
	l.BeginGroup("doomed")
	recordAppend(t, l, tree.New(), "a", 1)
	l.CancelGroup()

	if l.IsGrouping() || l.Len() != 0 {
		t.Errorf("after cancel: IsGrouping %v, Len %d", l.IsGrouping(), l.Len())
	}
	// A later EndGroup with no open group does nothing.
	l.EndGroup()
	if l.Len() != 0 {
		t.Error("stray EndGroup recorded an entry")
	}
}

func TestSnapshots(t *testing.T) {
	l := NewLog(WithSnapshotInterval(3))
	tr := tree.New()
	var want string
	for i := 0; i < 7; i++ {
		text := fmt.Sprintf("%d;", i)
		tr = recordAppend(t, l, tr, text, uint64(i+1))
		want += text
		if i == 2 {
			if l.SnapshotCount() != 1 {
				t.Fatalf("SnapshotCount() = %d after 3 records", l.SnapshotCount())
			}
			snap, ok := l.SnapshotAt(3)
			if !ok || snap.Index != 3 {
				t.Fatalf("SnapshotAt(3) = (%d, %v)", snap.Index, ok)
			}
			if snap.Length != ByteOffset(len(want)) || snap.Sum != xxhash.Sum64String(want) {
				t.Errorf("snapshot state = (%d, %#x), want (%d, %#x)",
					snap.Length, snap.Sum, len(want), xxhash.Sum64String(want))
			}
			if snap.HasRoot {
				t.Error("root retained without WithRootSnapshots")
			}
		}
	}

	if l.SnapshotCount() != 2 {
		t.Fatalf("SnapshotCount() = %d, want 2", l.SnapshotCount())
	}
	tests := []struct {
		index     int
		wantIndex int
		ok        bool
	}{
		{2, 0, false},
		{3, 3, true},
		{5, 3, true},
		{6, 6, true},
		{100, 6, true},
	}
	for _, tt := range tests {
		snap, ok := l.SnapshotAt(tt.index)
		if ok != tt.ok || (ok && snap.Index != tt.wantIndex) {
			t.Errorf("SnapshotAt(%d) = (%d, %v), want (%d, %v)",
				tt.index, snap.Index, ok, tt.wantIndex, tt.ok)
		}
	}
}

func TestSnapshotRoots(t *testing.T) {
	l := NewLog(WithSnapshotInterval(2), WithRootSnapshots(true))
	tr := tree.New()
	for i := 0; i < 4; i++ {
		tr = recordAppend(t, l, tr, fmt.Sprintf("%d;", i), uint64(i+1))
	}

	snap, ok := l.SnapshotAt(2)
	if !ok || !snap.HasRoot {
		t.Fatalf("SnapshotAt(2) = (HasRoot %v, %v)", snap.HasRoot, ok)
	}
	if got := snap.Root.Text(); got != "0;1;" {
		t.Errorf("snapshot root = %q, want %q", got, "0;1;")
	}

	snap, _ = l.SnapshotAt(4)
	if got := snap.Root.Text(); got != "0;1;2;3;" {
		t.Errorf("second snapshot root = %q", got)
	}
}

func TestMaxEntriesPruning(t *testing.T) {
	l := NewLog(WithMaxEntries(3), WithSnapshotInterval(100))
	tr := tree.New()
	for i := 0; i < 5; i++ {
		tr = recordAppend(t, l, tr, fmt.Sprintf("%d;", i), uint64(i+1))
	}

	if l.Len() != 3 || l.Index() != 3 {
		t.Fatalf("Len, Index = %d, %d, want 3, 3", l.Len(), l.Index())
	}
	for _, want := range []string{"4;", "3;", "2;"} {
		e, ok := l.Undo()
		if !ok || e.Ops[0].NewText != want {
			t.Fatalf("Undo = (%q, %v), want %q", e.Ops[0].NewText, ok, want)
		}
	}
	if l.CanUndo() {
		t.Error("undo depth survived pruning")
	}
}

func TestSetMaxEntriesKeepsRedoTail(t *testing.T) {
	l := NewLog(WithSnapshotInterval(100))
	tr := tree.New()
	for i := 0; i < 5; i++ {
		tr = recordAppend(t, l, tr, fmt.Sprintf("%d;", i), uint64(i+1))
	}
	for i := 0; i < 4; i++ {
		l.Undo()
	}

	// Shrinking can only drop the single entry behind the cursor; the
	// undone tail stays reachable even though the log is over the cap.
	l.SetMaxEntries(2)
	if l.MaxEntries() != 2 {
		t.Fatalf("MaxEntries() = %d", l.MaxEntries())
	}
	if l.Len() != 4 || l.Index() != 0 {
		t.Fatalf("Len, Index = %d, %d, want 4, 0", l.Len(), l.Index())
	}
	if l.CanUndo() {
		t.Error("CanUndo() = true with cursor at start")
	}
	for _, want := range []string{"1;", "2;", "3;", "4;"} {
		e, ok := l.Redo()
		if !ok || e.Ops[0].NewText != want {
			t.Fatalf("Redo = (%q, %v), want %q", e.Ops[0].NewText, ok, want)
		}
	}
}

func TestPruningShiftsSnapshots(t *testing.T) {
	l := NewLog(WithMaxEntries(4), WithSnapshotInterval(2))
	tr := tree.New()
	for i := 0; i < 6; i++ {
		tr = recordAppend(t, l, tr, fmt.Sprintf("%d;", i), uint64(i+1))
	}

	// Two entries were pruned, so snapshot indexes shifted down by two
	// and still anchor the same document states.
	if l.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", l.Len())
	}
	snap, ok := l.SnapshotAt(2)
	if !ok || snap.Index != 2 {
		t.Fatalf("SnapshotAt(2) = (%d, %v)", snap.Index, ok)
	}
	if snap.Sum != xxhash.Sum64String("0;1;2;3;") {
		t.Error("shifted snapshot no longer matches its document state")
	}
}

func TestClear(t *testing.T) {
	l := NewLog(WithSnapshotInterval(1))
	recordAppend(t, l, tree.New(), "a", 1)
	l.BeginGroup("open")

	l.Clear()
	if l.Len() != 0 || l.Index() != 0 || l.SnapshotCount() != 0 || l.IsGrouping() {
		t.Errorf("Clear left state: Len %d, Index %d, snapshots %d, grouping %v",
			l.Len(), l.Index(), l.SnapshotCount(), l.IsGrouping())
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint(tree.New()) != xxhash.Sum64String("") {
		t.Error("empty tree fingerprint mismatch")
	}
	if Fingerprint(tree.NewFromString("abc")) != xxhash.Sum64String("abc") {
		t.Error("text fingerprint mismatch")
	}
	if Fingerprint(tree.NewSized(5)) != xxhash.Sum64String("     ") {
		t.Error("gap fingerprint should hash the materialized spaces")
	}
}

func TestReplay(t *testing.T) {
	base := tree.NewFromString("hello world")
	l := NewLog()

	t1, err := base.Replace(5, 5, ",")
	if err != nil {
		t.Fatal(err)
	}
	l.Record(NewEntry(NewInsertOp(5, ","), 1), t1)

	t2, err := t1.Replace(7, 12, "Go")
	if err != nil {
		t.Fatal(err)
	}
	l.Record(NewEntry(NewReplaceOp(7, "world", "Go"), 2), t2)

	got, err := l.Replay(base)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if got.Text() != "hello, Go" {
		t.Errorf("Replay() = %q, want %q", got.Text(), "hello, Go")
	}
	if err := l.Verify(base, xxhash.Sum64String("hello, Go")); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
	if err := l.Verify(base, 0xdead); !errors.Is(err, ErrReplayDiverged) {
		t.Errorf("Verify() with wrong sum = %v, want ErrReplayDiverged", err)
	}

	// Replay stops at the cursor.
	l.Undo()
	got, err = l.Replay(base)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text() != "hello, world" {
		t.Errorf("Replay() after undo = %q, want %q", got.Text(), "hello, world")
	}
}

func TestReplayDiverged(t *testing.T) {
	base := tree.NewFromString("hello world")
	l := NewLog()
	t1, _ := base.Replace(5, 5, ",")
	l.Record(NewEntry(NewInsertOp(5, ","), 1), t1)
	t2, _ := t1.Replace(7, 12, "Go")
	l.Record(NewEntry(NewReplaceOp(7, "world", "Go"), 2), t2)

	_, err := l.Replay(tree.NewFromString("HELLO earth"))
	if !errors.Is(err, ErrReplayDiverged) {
		t.Errorf("Replay() over wrong baseline = %v, want ErrReplayDiverged", err)
	}

	// A baseline too short to hold the edits fails with a range error
	// instead of silently truncating.
	if _, err := l.Replay(tree.NewFromString("hi")); err == nil {
		t.Error("Replay() over short baseline succeeded")
	}
}
