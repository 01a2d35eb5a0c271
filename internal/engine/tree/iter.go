package tree

import (
	"io"
	"unicode/utf8"
)

// chunkIterFrame tracks a position within one node during iteration.
// offset is the absolute byte offset of the node's first byte.
type chunkIterFrame struct {
	node     *Node
	childIdx int
	chunkIdx int
	offset   ByteOffset
}

// ChunkIterator walks a tree's chunks in order without materializing
// text. The iterator holds the path to the current leaf, so Next is
// amortized O(1).
type ChunkIterator struct {
	stack      []chunkIterFrame
	started    bool
	chunk      Chunk
	chunkStart ByteOffset
}

// Chunks returns an iterator over all chunks in the tree.
func (t Tree) Chunks() *ChunkIterator {
	return t.ChunksFrom(0)
}

// ChunksFrom returns an iterator positioned at the chunk containing
// the given offset. The first chunk yielded is the whole containing
// chunk; its start offset may precede the requested offset.
func (t Tree) ChunksFrom(start ByteOffset) *ChunkIterator {
	it := &ChunkIterator{stack: make([]chunkIterFrame, 0, 8)}
	if t.root == nil || start >= t.Len() {
		return it
	}
	it.prime(t.root, max(start, 0))
	return it
}

// prime seeds the path stack so iteration begins at the chunk
// containing start.
func (it *ChunkIterator) prime(root *Node, start ByteOffset) {
	node := root
	var offset ByteOffset
	rel := start

	for !node.isLeaf() {
		idx, childRel := node.findChildByOffset(rel)
		it.stack = append(it.stack, chunkIterFrame{node: node, childIdx: idx, offset: offset})
		for i := 0; i < idx; i++ {
			offset += node.childSummaries[i].Bytes
		}
		node = node.children[idx]
		rel = childRel
	}

	frame := chunkIterFrame{node: node, offset: offset}
	var pos ByteOffset
	for i, c := range node.chunks {
		if rel < pos+c.Len() {
			frame.chunkIdx = i
			break
		}
		pos += c.Len()
	}
	it.stack = append(it.stack, frame)
}

// Next advances to the next chunk.
// Returns true if there is a chunk, false when iteration is complete.
func (it *ChunkIterator) Next() bool {
	if !it.started {
		it.started = true
		return it.findNextChunk()
	}

	if len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		if frame.node.isLeaf() {
			frame.chunkIdx++
		}
	}
	return it.findNextChunk()
}

// findNextChunk walks the stack to the next available chunk.
func (it *ChunkIterator) findNextChunk() bool {
	for len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		node := frame.node

		if node.isLeaf() {
			if frame.chunkIdx < len(node.chunks) {
				chunkOffset := frame.offset
				for i := 0; i < frame.chunkIdx; i++ {
					chunkOffset += node.chunks[i].Len()
				}
				it.chunk = node.chunks[frame.chunkIdx]
				it.chunkStart = chunkOffset
				return true
			}
			it.pop()
			continue
		}

		if frame.childIdx < len(node.children) {
			childOffset := frame.offset
			for i := 0; i < frame.childIdx; i++ {
				childOffset += node.childSummaries[i].Bytes
			}
			it.stack = append(it.stack, chunkIterFrame{
				node:   node.children[frame.childIdx],
				offset: childOffset,
			})
			continue
		}
		it.pop()
	}
	return false
}

// pop removes the top frame and advances the parent to its next child.
func (it *ChunkIterator) pop() {
	it.stack = it.stack[:len(it.stack)-1]
	if len(it.stack) > 0 {
		it.stack[len(it.stack)-1].childIdx++
	}
}

// Chunk returns the current chunk.
func (it *ChunkIterator) Chunk() Chunk {
	return it.chunk
}

// Offset returns the absolute byte offset of the current chunk's start.
func (it *ChunkIterator) Offset() ByteOffset {
	return it.chunkStart
}

// ByteIterator yields the tree's bytes in order. Gap bytes are
// produced without materializing gap text.
type ByteIterator struct {
	chunks *ChunkIterator
	cur    Chunk
	pos    ByteOffset
	clen   ByteOffset
	abs    ByteOffset
}

// Bytes returns an iterator over all bytes in the tree.
func (t Tree) Bytes() *ByteIterator {
	return &ByteIterator{chunks: t.Chunks(), abs: -1}
}

// Next advances to the next byte.
func (it *ByteIterator) Next() bool {
	for it.pos >= it.clen {
		if !it.chunks.Next() {
			return false
		}
		it.cur = it.chunks.Chunk()
		it.pos = 0
		it.clen = it.cur.Len()
	}
	it.abs = it.chunks.Offset() + it.pos
	it.pos++
	return true
}

// Byte returns the current byte.
func (it *ByteIterator) Byte() byte {
	return it.cur.ByteAt(it.pos - 1)
}

// Offset returns the absolute offset of the current byte.
func (it *ByteIterator) Offset() ByteOffset {
	return it.abs
}

// Reader streams a tree's bytes. It implements io.Reader,
// io.ByteReader, and io.RuneReader so it can feed bufio consumers and
// regexp searches directly. Rune sizes reported by ReadRune always
// equal the bytes consumed, including for invalid sequences, so
// callers tracking byte positions stay exact.
type Reader struct {
	chunks *ChunkIterator
	cur    Chunk
	pos    ByteOffset
	clen   ByteOffset
}

// NewReader returns a reader over the tree's bytes starting at the
// given offset. Offsets past the end yield an exhausted reader.
func NewReader(t Tree, offset ByteOffset) *Reader {
	r := &Reader{chunks: t.ChunksFrom(offset)}
	if r.chunks.Next() {
		r.cur = r.chunks.Chunk()
		r.clen = r.cur.Len()
		r.pos = max(offset-r.chunks.Offset(), 0)
	}
	return r
}

// Reader returns a reader over the tree's full contents.
func (t Tree) Reader() *Reader {
	return NewReader(t, 0)
}

// advance ensures the current chunk has unread bytes.
func (r *Reader) advance() bool {
	for r.pos >= r.clen {
		if !r.chunks.Next() {
			return false
		}
		r.cur = r.chunks.Chunk()
		r.pos = 0
		r.clen = r.cur.Len()
	}
	return true
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !r.advance() {
		return 0, io.EOF
	}

	var n int
	for n < len(p) {
		if r.pos >= r.clen && !r.advance() {
			break
		}
		take := min(ByteOffset(len(p)-n), r.clen-r.pos)
		if r.cur.IsGap() {
			for i := ByteOffset(0); i < take; i++ {
				p[n+int(i)] = GapFill
			}
		} else {
			copy(p[n:], r.cur.data[r.pos:r.pos+take])
		}
		r.pos += take
		n += int(take)
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if !r.advance() {
		return 0, io.EOF
	}
	b := r.cur.ByteAt(r.pos)
	r.pos++
	return b, nil
}

// ReadRune implements io.RuneReader. Sequences that span chunk
// boundaries decode correctly; invalid or truncated sequences return
// utf8.RuneError with the consumed byte count as the size.
func (r *Reader) ReadRune() (rune, int, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	if b0 < utf8.RuneSelf {
		return rune(b0), 1, nil
	}

	var want int
	switch {
	case b0&0xE0 == 0xC0:
		want = 2
	case b0&0xF0 == 0xE0:
		want = 3
	case b0&0xF8 == 0xF0:
		want = 4
	default:
		return utf8.RuneError, 1, nil
	}

	buf := [utf8.UTFMax]byte{b0}
	n := 1
	for n < want {
		b, err := r.ReadByte()
		if err != nil {
			break
		}
		if b&0xC0 != 0x80 {
			// Not a continuation byte. It came from the current chunk
			// one position back, so stepping back is safe.
			r.pos--
			break
		}
		buf[n] = b
		n++
	}

	ru, size := utf8.DecodeRune(buf[:n])
	if ru == utf8.RuneError || size != n {
		return utf8.RuneError, n, nil
	}
	return ru, size, nil
}
