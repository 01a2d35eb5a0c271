package document

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sottey/fresh/internal/engine/tree"
)

const (
	// sampleStride is the spacing between cached line samples laid
	// down while scanning.
	sampleStride = 64 << 10

	// assumedLineLen is the bytes-per-line guess used for estimates
	// before any newline has been scanned.
	assumedLineLen = 80
)

// LineEstimate is a possibly-inexact line number. Callers render
// inexact values with a leading "~".
type LineEstimate struct {
	Line  uint32
	Exact bool
}

// lineSample maps the start offset of a line to its line number.
type lineSample struct {
	offset ByteOffset
	line   uint32
}

// lineCache holds sparse line-start samples over the scanned prefix
// of the document. Samples at or after an edit offset are dropped on
// every edit; line numbers before an edit never change.
type lineCache struct {
	mu        sync.Mutex
	samples   []lineSample // strictly increasing in both fields
	scannedTo ByteOffset
}

func newLineCache() *lineCache {
	return &lineCache{}
}

func (c *lineCache) invalidate(offset ByteOffset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := sort.Search(len(c.samples), func(i int) bool {
		return c.samples[i].offset >= offset
	})
	c.samples = c.samples[:i]
	c.scannedTo = min(c.scannedTo, max(offset, 0))
}

// nearestBefore returns the sample with the greatest offset <= offset.
// The implicit base sample is (0, 0).
func (c *lineCache) nearestBefore(offset ByteOffset) lineSample {
	i := sort.Search(len(c.samples), func(i int) bool {
		return c.samples[i].offset > offset
	})
	if i == 0 {
		return lineSample{}
	}
	return c.samples[i-1]
}

// nearestLine returns the sample with the greatest line <= line.
func (c *lineCache) nearestLine(line uint32) lineSample {
	i := sort.Search(len(c.samples), func(i int) bool {
		return c.samples[i].line > line
	})
	if i == 0 {
		return lineSample{}
	}
	return c.samples[i-1]
}

// record inserts a line-start sample, keeping the list sorted and at
// least sampleStride apart.
func (c *lineCache) record(s lineSample) {
	i := sort.Search(len(c.samples), func(i int) bool {
		return c.samples[i].offset >= s.offset
	})
	if i < len(c.samples) && c.samples[i].offset == s.offset {
		return
	}
	if i > 0 && s.offset-c.samples[i-1].offset < sampleStride {
		return
	}
	if i < len(c.samples) && c.samples[i].offset-s.offset < sampleStride {
		return
	}
	c.samples = append(c.samples, lineSample{})
	copy(c.samples[i+1:], c.samples[i:])
	c.samples[i] = s
}

// lineOf returns the line containing offset, scanning forward from
// the nearest sample and recording samples along the way.
func (c *lineCache) lineOf(t tree.Tree, offset ByteOffset) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, _ := c.scanToOffset(t, offset)
	return line
}

// scanToOffset counts newlines from the nearest sample up to target
// and returns the containing line and its start. Caller holds c.mu.
func (c *lineCache) scanToOffset(t tree.Tree, target ByteOffset) (uint32, ByteOffset) {
	base := c.nearestBefore(target)
	line := base.line
	lineStart := base.offset

	it := t.ChunksFrom(base.offset)
	for it.Next() {
		cstart := it.Offset()
		if cstart >= target {
			break
		}
		chunk := it.Chunk()
		lo := max(base.offset-cstart, 0)
		hi := min(target-cstart, chunk.Len())
		idx := chunk.Newlines()
		upto := idx.CountBefore(hi)
		if n := upto - idx.CountBefore(lo); n > 0 {
			line += n
			lineStart = cstart + idx.FindNthNewline(upto) + 1
			c.record(lineSample{offset: lineStart, line: line})
		}
	}
	c.scannedTo = max(c.scannedTo, target)
	return line, lineStart
}

// offsetOfLine returns the start offset of line, scanning forward
// from the nearest sample at or before it.
func (c *lineCache) offsetOfLine(t tree.Tree, line uint32) ByteOffset {
	c.mu.Lock()
	defer c.mu.Unlock()

	base := c.nearestLine(line)
	if base.line == line {
		return base.offset
	}
	need := line - base.line
	seen := base.line
	scanned := base.offset

	it := t.ChunksFrom(base.offset)
	for it.Next() {
		cstart := it.Offset()
		chunk := it.Chunk()
		lo := max(base.offset-cstart, 0)
		idx := chunk.Newlines()
		skip := idx.CountBefore(lo)
		avail := idx.Count() - skip
		if avail >= need {
			start := cstart + idx.FindNthNewline(skip+need) + 1
			c.record(lineSample{offset: start, line: line})
			c.scannedTo = max(c.scannedTo, start)
			return start
		}
		if avail > 0 {
			seen += avail
			last := cstart + idx.LastNewlinePosition() + 1
			c.record(lineSample{offset: last, line: seen})
		}
		need -= avail
		scanned = cstart + chunk.Len()
	}
	// line count was validated by the caller, so the scan always
	// lands inside the loop for lines > 0
	c.scannedTo = max(c.scannedTo, scanned)
	return scanned
}

// approx estimates the line containing offset without extending the
// scan. Offsets inside the scanned prefix resolve exactly.
func (c *lineCache) approx(t tree.Tree, offset ByteOffset) LineEstimate {
	c.mu.Lock()
	defer c.mu.Unlock()

	if offset <= c.scannedTo {
		line, _ := c.scanToOffset(t, offset)
		return LineEstimate{Line: line, Exact: true}
	}

	base := c.nearestBefore(offset)
	perLine := ByteOffset(assumedLineLen)
	if base.line > 0 {
		perLine = base.offset / ByteOffset(base.line)
	}
	if perLine < 1 {
		perLine = 1
	}
	est := base.line + uint32((offset-base.offset)/perLine)
	if maxLine := t.LineCount() - 1; est > maxLine {
		est = maxLine
	}
	return LineEstimate{Line: est}
}

// Document line queries

// LineOf returns the line number containing offset. The scan extends
// to offset; cost is proportional to the distance from the nearest
// cached sample.
func (d *Document) LineOf(offset ByteOffset) (uint32, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t := d.store.Tree()
	if offset < 0 || offset > t.Len() {
		return 0, fmt.Errorf("%w: offset %d, length %d", tree.ErrOffsetOutOfRange, offset, t.Len())
	}
	return d.lines.lineOf(t, offset), nil
}

// LineOfApprox returns the line containing offset, estimated without
// scanning when offset lies beyond the scanned prefix of a large
// file. The estimate resolves to exact once a LineOf or OffsetOfLine
// scan reaches that far.
func (d *Document) LineOfApprox(offset ByteOffset) (LineEstimate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t := d.store.Tree()
	if offset < 0 || offset > t.Len() {
		return LineEstimate{}, fmt.Errorf("%w: offset %d, length %d", tree.ErrOffsetOutOfRange, offset, t.Len())
	}
	return d.lines.approx(t, offset), nil
}

// OffsetOfLine returns the byte offset where line starts.
func (d *Document) OffsetOfLine(line uint32) (ByteOffset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t := d.store.Tree()
	if line >= t.LineCount() {
		return 0, fmt.Errorf("%w: line %d, count %d", tree.ErrOffsetOutOfRange, line, t.LineCount())
	}
	if line == 0 {
		return 0, nil
	}
	return d.lines.offsetOfLine(t, line), nil
}
