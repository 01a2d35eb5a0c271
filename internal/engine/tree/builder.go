package tree

import (
	"io"
	"strings"
)

// gapRunMin is the shortest run of spaces the compacting builder
// stores as a gap instead of materialized text.
const gapRunMin = TargetChunkSize

// Builder constructs a tree incrementally. It buffers writes and
// converts them to properly-sized chunks, so building from many small
// writes costs the same as building from one large string.
//
// The zero value is ready to use.
type Builder struct {
	chunks  []Chunk
	buf     strings.Builder
	total   ByteOffset
	compact bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// CompactGaps controls gap compression. When enabled, long runs of
// spaces in written text are stored as gaps.
func (b *Builder) CompactGaps(enable bool) {
	b.compact = enable
}

// WriteString appends text to the builder.
func (b *Builder) WriteString(s string) (int, error) {
	b.buf.WriteString(s)
	b.total += ByteOffset(len(s))
	if b.buf.Len() >= MaxChunkSize*2 {
		b.flushBuffer()
	}
	return len(s), nil
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	return b.WriteString(string(p))
}

// WriteRune appends a single rune.
func (b *Builder) WriteRune(r rune) (int, error) {
	n, _ := b.buf.WriteRune(r)
	b.total += ByteOffset(n)
	if b.buf.Len() >= MaxChunkSize*2 {
		b.flushBuffer()
	}
	return n, nil
}

// WriteGap appends n logically-empty bytes. The gap reads back as
// spaces but is stored in constant space.
func (b *Builder) WriteGap(n ByteOffset) {
	if n <= 0 {
		return
	}
	b.flushBuffer()
	b.appendGap(n)
	b.total += n
}

// ReadFrom implements io.ReaderFrom, streaming the reader's contents
// into the builder in fixed-size blocks.
func (b *Builder) ReadFrom(r io.Reader) (int64, error) {
	buf := make([]byte, 64*1024)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.WriteString(string(buf[:n]))
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() ByteOffset {
	return b.total
}

// Reset discards all written content.
func (b *Builder) Reset() {
	b.chunks = nil
	b.buf.Reset()
	b.total = 0
}

// Build assembles the written content into a tree and resets the
// builder for reuse.
func (b *Builder) Build() Tree {
	b.flushBuffer()
	t := buildFromChunks(b.chunks)
	b.Reset()
	return t
}

// flushBuffer converts buffered text to chunks. In compacting mode,
// qualifying space runs become gap chunks.
func (b *Builder) flushBuffer() {
	if b.buf.Len() == 0 {
		return
	}
	s := b.buf.String()
	b.buf.Reset()

	if !b.compact {
		b.chunks = append(b.chunks, splitIntoChunks(s)...)
		return
	}

	for len(s) > 0 {
		start, runLen := nextSpaceRun(s, gapRunMin)
		if start < 0 {
			b.chunks = append(b.chunks, splitIntoChunks(s)...)
			return
		}
		if start > 0 {
			b.chunks = append(b.chunks, splitIntoChunks(s[:start])...)
		}
		b.appendGap(ByteOffset(runLen))
		s = s[start+runLen:]
	}
}

// appendGap adds a gap chunk, merging with a trailing gap.
func (b *Builder) appendGap(n ByteOffset) {
	if n <= 0 {
		return
	}
	if last := len(b.chunks) - 1; last >= 0 && b.chunks[last].IsGap() {
		b.chunks[last] = NewGapChunk(b.chunks[last].gap + n)
		return
	}
	b.chunks = append(b.chunks, NewGapChunk(n))
}

// nextSpaceRun finds the first run of spaces at least minLen bytes
// long. Returns the run's start and length, or (-1, 0) if none.
func nextSpaceRun(s string, minLen int) (int, int) {
	runStart := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] == ' ' {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		if runStart >= 0 && i-runStart >= minLen {
			return runStart, i - runStart
		}
		runStart = -1
	}
	return -1, 0
}

// FromChunks builds a tree from an explicit chunk sequence. Useful
// for constructing specific chunk layouts.
func FromChunks(chunks []Chunk) Tree {
	return buildFromChunks(chunks)
}

// Repeat builds a tree of s repeated count times without first
// materializing the full string.
func Repeat(s string, count int) Tree {
	if count <= 0 || len(s) == 0 {
		return New()
	}
	var b Builder
	for i := 0; i < count; i++ {
		b.WriteString(s)
	}
	return b.Build()
}
