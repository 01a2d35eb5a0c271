package history

import (
	"errors"
	"fmt"

	"github.com/sottey/fresh/internal/engine/tree"
)

// ErrReplayDiverged means an entry's recorded old text did not match
// the content it was replayed over. The baseline does not correspond
// to this log.
var ErrReplayDiverged = errors.New("replay diverged from recorded text")

// Replay applies every entry up to the cursor over baseline and
// returns the resulting tree. The baseline must be the content from
// before the oldest retained entry, such as a loaded file or a
// snapshot root. Each op's recorded old text is checked against the
// content it replaces, so a mismatched baseline fails fast instead of
// producing silently wrong text.
func (l *Log) Replay(baseline tree.Tree) (tree.Tree, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t := baseline
	for i := 0; i < l.current; i++ {
		for _, op := range l.entries[i].Ops {
			end := op.Offset + ByteOffset(len(op.OldText))
			if len(op.OldText) > 0 {
				got, err := t.Slice(op.Offset, end)
				if err != nil {
					return tree.Tree{}, fmt.Errorf("replay entry %d: %w", i, err)
				}
				if got != op.OldText {
					return tree.Tree{}, fmt.Errorf("replay entry %d: %w", i, ErrReplayDiverged)
				}
			}
			next, err := t.Replace(op.Offset, end, op.NewText)
			if err != nil {
				return tree.Tree{}, fmt.Errorf("replay entry %d: %w", i, err)
			}
			t = next
		}
	}
	return t, nil
}

// Verify replays the applied history over baseline and checks the
// result against a content fingerprint.
func (l *Log) Verify(baseline tree.Tree, sum uint64) error {
	t, err := l.Replay(baseline)
	if err != nil {
		return err
	}
	if got := Fingerprint(t); got != sum {
		return fmt.Errorf("%w: fingerprint %#x, want %#x", ErrReplayDiverged, got, sum)
	}
	return nil
}
