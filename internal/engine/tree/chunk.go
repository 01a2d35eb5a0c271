package tree

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinChunkSize is the minimum chunk size in bytes (except the last chunk).
	MinChunkSize = 2048

	// MaxChunkSize is the maximum chunk size in bytes.
	MaxChunkSize = 6144

	// TargetChunkSize is the preferred chunk size for splitting.
	TargetChunkSize = (MinChunkSize + MaxChunkSize) / 2

	// GapFill is the byte a gap piece reads back as.
	GapFill = ' '
)

// gapBlock is a reusable run of fill bytes for streaming gap content.
var gapBlock = strings.Repeat(string(rune(GapFill)), 4096)

// Chunk is an immutable piece of text with a precomputed summary.
// A chunk is either materialized text or a gap: a run of logically
// empty bytes that reads back as spaces without being stored.
type Chunk struct {
	data    string
	gap     ByteOffset
	summary TextSummary
}

// NewChunk creates a materialized chunk from a string, computing its summary.
func NewChunk(data string) Chunk {
	return Chunk{
		data:    data,
		summary: ComputeSummary(data),
	}
}

// NewGapChunk creates a gap chunk of n logically-empty bytes.
func NewGapChunk(n ByteOffset) Chunk {
	if n <= 0 {
		return Chunk{}
	}
	return Chunk{
		gap:     n,
		summary: gapSummary(n),
	}
}

// IsGap reports whether the chunk is a gap piece.
func (c Chunk) IsGap() bool {
	return c.gap > 0
}

// Text returns the chunk's text, materializing gaps as spaces.
func (c Chunk) Text() string {
	if c.gap > 0 {
		return strings.Repeat(string(rune(GapFill)), int(c.gap))
	}
	return c.data
}

// Len returns the byte length of the chunk.
func (c Chunk) Len() ByteOffset {
	if c.gap > 0 {
		return c.gap
	}
	return ByteOffset(len(c.data))
}

// Summary returns the chunk's precomputed summary.
func (c Chunk) Summary() TextSummary {
	return c.summary
}

// IsEmpty returns true if the chunk has no content.
func (c Chunk) IsEmpty() bool {
	return c.gap == 0 && len(c.data) == 0
}

// ByteAt returns the byte at the given offset within the chunk.
func (c Chunk) ByteAt(offset ByteOffset) byte {
	if c.gap > 0 {
		return GapFill
	}
	return c.data[offset]
}

// Split divides the chunk at the given byte offset.
// Returns two chunks; gap chunks split into smaller gaps.
func (c Chunk) Split(offset ByteOffset) (Chunk, Chunk) {
	if offset <= 0 {
		return Chunk{}, c
	}
	if offset >= c.Len() {
		return c, Chunk{}
	}
	if c.gap > 0 {
		return NewGapChunk(offset), NewGapChunk(c.gap - offset)
	}
	return NewChunk(c.data[:offset]), NewChunk(c.data[offset:])
}

// Append combines this chunk with another if the result fits size limits.
// Adjacent gaps always merge. A gap and a data chunk never combine.
// Returns the resulting chunks (may be 1 or 2 chunks).
func (c Chunk) Append(other Chunk) []Chunk {
	if c.IsEmpty() {
		if other.IsEmpty() {
			return nil
		}
		return []Chunk{other}
	}
	if other.IsEmpty() {
		return []Chunk{c}
	}

	if c.gap > 0 && other.gap > 0 {
		return []Chunk{NewGapChunk(c.gap + other.gap)}
	}
	if c.gap > 0 || other.gap > 0 {
		return []Chunk{c, other}
	}

	combined := len(c.data) + len(other.data)
	if combined <= MaxChunkSize {
		return []Chunk{NewChunk(c.data + other.data)}
	}

	return splitIntoChunks(c.data + other.data)
}

// appendTo writes the chunk's full content to the builder.
func (c Chunk) appendTo(sb *strings.Builder) {
	if c.gap > 0 {
		appendGapBytes(sb, c.gap)
		return
	}
	sb.WriteString(c.data)
}

// appendRange writes chunk bytes in [start, end) to the builder.
// Bounds must already be clamped to the chunk.
func (c Chunk) appendRange(sb *strings.Builder, start, end ByteOffset) {
	if start >= end {
		return
	}
	if c.gap > 0 {
		appendGapBytes(sb, end-start)
		return
	}
	sb.WriteString(c.data[start:end])
}

// appendGapBytes writes n fill bytes in fixed-size blocks.
func appendGapBytes(sb *strings.Builder, n ByteOffset) {
	block := ByteOffset(len(gapBlock))
	for n >= block {
		sb.WriteString(gapBlock)
		n -= block
	}
	if n > 0 {
		sb.WriteString(gapBlock[:n])
	}
}

// Newlines returns the newline index for the chunk's text.
// Gap chunks contain no newlines. The index is computed on demand
// rather than cached; callers that scan repeatedly should hold on
// to the result.
func (c Chunk) Newlines() NewlineIndex {
	if c.gap > 0 || c.summary.Flags&FlagHasNewlines == 0 {
		return NewlineIndex{}
	}
	return ComputeNewlineIndex(c.data)
}

// splitIntoChunks divides text into chunks of appropriate size,
// respecting UTF-8 boundaries and preferring line boundaries.
func splitIntoChunks(data string) []Chunk {
	if len(data) == 0 {
		return nil
	}

	var chunks []Chunk
	remaining := data

	for len(remaining) > 0 {
		if len(remaining) <= MaxChunkSize {
			chunks = append(chunks, NewChunk(remaining))
			break
		}

		splitAt := findUTF8Boundary(remaining, TargetChunkSize)
		chunks = append(chunks, NewChunk(remaining[:splitAt]))
		remaining = remaining[splitAt:]
	}

	return chunks
}

// findUTF8Boundary finds a valid UTF-8 boundary near the target offset.
// Prefers positions just after a newline within a small window.
func findUTF8Boundary(s string, target int) int {
	if target >= len(s) {
		return len(s)
	}

	// Look for a newline near the target, preferring to split after it
	searchStart := target - MinChunkSize/4
	if searchStart < 1 {
		searchStart = 1
	}
	searchEnd := target + MinChunkSize/4
	if searchEnd > len(s) {
		searchEnd = len(s)
	}

	// Search forward from target for newline
	for i := target; i < searchEnd; i++ {
		if s[i-1] == '\n' && isUTF8Start(s[i]) {
			return i
		}
	}

	// Search backward from target for newline
	for i := target; i > searchStart; i-- {
		if s[i-1] == '\n' && isUTF8Start(s[i]) {
			return i
		}
	}

	// No newline found, just find a valid UTF-8 boundary
	for i := target; i < len(s); i++ {
		if isUTF8Start(s[i]) {
			return i
		}
	}

	// Fallback: search backward
	for i := target; i > 0; i-- {
		if isUTF8Start(s[i]) {
			return i
		}
	}

	return len(s)
}

// isUTF8Start returns true if the byte can start a UTF-8 sequence.
func isUTF8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// ValidateUTF8 checks if a string contains valid UTF-8.
// Returns the byte position of the first invalid sequence, or -1 if valid.
func ValidateUTF8(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
