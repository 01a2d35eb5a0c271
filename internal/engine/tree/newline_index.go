package tree

// MaxInlineNewlines is the number of newline positions stored inline
// before spilling to a heap-allocated slice.
const MaxInlineNewlines = 4

// NewlineIndex records the byte positions of newlines within a chunk.
// Most chunks of source code have few newlines per chunk boundary
// region, so the first few positions are stored inline.
type NewlineIndex struct {
	inline    [MaxInlineNewlines]uint16
	count     uint16
	positions []uint16
}

// ComputeNewlineIndex scans text and records newline positions.
func ComputeNewlineIndex(s string) NewlineIndex {
	var idx NewlineIndex

	var total uint16
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			total++
		}
	}
	if total == 0 {
		return idx
	}

	if total > MaxInlineNewlines {
		idx.positions = make([]uint16, 0, total)
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '\n' {
			continue
		}
		if idx.positions != nil {
			idx.positions = append(idx.positions, uint16(i))
		} else {
			idx.inline[idx.count] = uint16(i)
		}
		idx.count++
	}

	return idx
}

// Count returns the number of newlines in the index.
func (idx NewlineIndex) Count() uint32 {
	return uint32(idx.count)
}

// Position returns the byte position of the i-th newline (0-indexed),
// or -1 if out of range.
func (idx NewlineIndex) Position(i uint32) ByteOffset {
	if i >= uint32(idx.count) {
		return -1
	}
	return ByteOffset(idx.at(int(i)))
}

func (idx NewlineIndex) at(i int) uint16 {
	if idx.positions != nil {
		return idx.positions[i]
	}
	return idx.inline[i]
}

// FindNthNewline returns the byte position of the n-th newline (1-indexed),
// or -1 if there are fewer than n newlines.
func (idx NewlineIndex) FindNthNewline(n uint32) ByteOffset {
	if n == 0 || n > uint32(idx.count) {
		return -1
	}
	return ByteOffset(idx.at(int(n - 1)))
}

// CountBefore returns how many newlines occur strictly before offset.
func (idx NewlineIndex) CountBefore(offset ByteOffset) uint32 {
	n := int(idx.count)
	if n == 0 {
		return 0
	}

	// Linear scan for small counts, binary search otherwise.
	if n <= 8 {
		var count uint32
		for i := 0; i < n; i++ {
			if ByteOffset(idx.at(i)) >= offset {
				break
			}
			count++
		}
		return count
	}

	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if ByteOffset(idx.at(mid)) < offset {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return uint32(lo)
}

// NewlineAfter returns the position of the first newline at or after offset,
// or -1 if none exists.
func (idx NewlineIndex) NewlineAfter(offset ByteOffset) ByteOffset {
	n := int(idx.count)
	for i := 0; i < n; i++ {
		if pos := ByteOffset(idx.at(i)); pos >= offset {
			return pos
		}
	}
	return -1
}

// LastNewlinePosition returns the position of the last newline,
// or -1 if there are none.
func (idx NewlineIndex) LastNewlinePosition() ByteOffset {
	if idx.count == 0 {
		return -1
	}
	return ByteOffset(idx.at(int(idx.count) - 1))
}
