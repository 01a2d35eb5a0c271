package document

import (
	"context"
	"regexp"
	"strings"

	"github.com/sottey/fresh/internal/engine/tree"
)

// findWindow is the size of each streamed search window. Windows
// overlap by len(pattern)-1 bytes so matches spanning a window edge
// are found.
const findWindow = 64 << 10

// cancelCheckEvery is how many runes a streamed regexp match reads
// between cancellation checks.
const cancelCheckEvery = 4096

// FindOptions controls Find behavior.
type FindOptions struct {
	// Wrap continues the search from the start of the document when
	// no match exists at or after the starting offset.
	Wrap bool
}

// RegexpMatch is the span of a regexp match.
type RegexpMatch struct {
	Start ByteOffset
	End   ByteOffset
}

// Find returns the offset of the first occurrence of pattern at or
// after from. The search streams fixed windows off an immutable
// snapshot, so the document is never fully materialized and
// concurrent edits do not disturb it. The boolean is false when there
// is no match. Cancellation is checked between windows.
func (d *Document) Find(ctx context.Context, pattern string, from ByteOffset, opts FindOptions) (ByteOffset, bool, error) {
	d.mu.RLock()
	t, _ := d.store.Snapshot()
	d.mu.RUnlock()

	n := t.Len()
	from = min(max(from, 0), n)
	if pattern == "" {
		return from, true, nil
	}
	if ByteOffset(len(pattern)) > n {
		return 0, false, nil
	}

	off, found, err := findInRange(ctx, t, pattern, from, n)
	if err != nil || found {
		return off, found, err
	}
	if !opts.Wrap || from == 0 {
		return 0, false, nil
	}
	// Wrapped pass: matches starting before from, which may extend
	// past it.
	end := min(from+ByteOffset(len(pattern))-1, n)
	return findInRange(ctx, t, pattern, 0, end)
}

// findInRange returns the first match of pattern lying entirely
// within [start, end).
func findInRange(ctx context.Context, t tree.Tree, pattern string, start, end ByteOffset) (ByteOffset, bool, error) {
	plen := ByteOffset(len(pattern))
	end = min(end, t.Len())
	for base := start; base+plen <= end; base += findWindow {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		wend := min(base+findWindow+plen-1, end)
		window, err := t.Slice(base, wend)
		if err != nil {
			return 0, false, err
		}
		if i := strings.Index(window, pattern); i >= 0 {
			return base + ByteOffset(i), true, nil
		}
	}
	return 0, false, nil
}

// FindRegexp returns the leftmost regexp match at or after from,
// streaming runes to the matcher off an immutable snapshot. The
// search does not wrap; callers wanting wrap-around re-invoke from
// zero.
func (d *Document) FindRegexp(ctx context.Context, re *regexp.Regexp, from ByteOffset) (RegexpMatch, bool, error) {
	d.mu.RLock()
	t, _ := d.store.Snapshot()
	d.mu.RUnlock()

	from = min(max(from, 0), t.Len())
	cr := &cancelReader{ctx: ctx, r: tree.NewReader(t, from)}
	loc := re.FindReaderIndex(cr)
	if cr.err != nil {
		return RegexpMatch{}, false, cr.err
	}
	if loc == nil {
		return RegexpMatch{}, false, nil
	}
	return RegexpMatch{
		Start: from + ByteOffset(loc[0]),
		End:   from + ByteOffset(loc[1]),
	}, true, nil
}

// cancelReader feeds runes to a regexp matcher, surfacing context
// cancellation as end of input.
type cancelReader struct {
	ctx context.Context
	r   *tree.Reader
	n   int
	err error
}

func (cr *cancelReader) ReadRune() (rune, int, error) {
	cr.n++
	if cr.n%cancelCheckEvery == 0 {
		if err := cr.ctx.Err(); err != nil {
			cr.err = err
			return 0, 0, err
		}
	}
	return cr.r.ReadRune()
}
