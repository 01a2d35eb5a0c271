package position

// TransformOffset updates an offset after an edit.
//
// Transformation rules:
//   - Position before the edit: unchanged
//   - Position at or after the end of the removed span: shifted by the
//     edit's delta
//   - Position inside the removed span: collapses to the edit's start
//
// A position exactly at the edit start survives a deletion in place
// (it collapses to itself) and moves right past a pure insertion.
func TransformOffset(offset ByteOffset, e Edit) ByteOffset {
	return TransformOffsetAffinity(offset, e, AffinityRight)
}

// TransformOffsetAffinity is TransformOffset with explicit affinity.
// Affinity only matters for a pure insertion exactly at the position:
// left-affinity positions stay put, right-affinity positions move to
// the end of the inserted text. Deletions behave identically for both.
func TransformOffsetAffinity(offset ByteOffset, e Edit, aff Affinity) ByteOffset {
	if offset < e.Offset {
		return offset
	}

	if offset == e.Offset && e.Removed == 0 && aff == AffinityLeft {
		return offset
	}

	if offset >= e.Offset+e.Removed {
		return offset - e.Removed + e.Inserted
	}

	// Inside the removed span: the text the position sat in is gone.
	return e.Offset
}

// TransformSelection updates a selection after an edit. Both endpoints
// are transformed independently; a selection whose span was deleted
// collapses to an empty selection at the edit start.
func TransformSelection(sel Selection, e Edit) Selection {
	return Selection{
		Anchor: TransformOffset(sel.Anchor, e),
		Head:   TransformOffset(sel.Head, e),
	}
}

// TransformOffsetMulti applies a sequence of edits in order.
func TransformOffsetMulti(offset ByteOffset, edits []Edit) ByteOffset {
	for _, e := range edits {
		offset = TransformOffset(offset, e)
	}
	return offset
}
