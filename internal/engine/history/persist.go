package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/sottey/fresh/internal/engine/position"
)

// ErrInvalidEntry means a persisted history line could not be decoded.
var ErrInvalidEntry = errors.New("invalid history entry")

// SaveTo streams the log as JSON Lines, one entry per line. All
// retained entries are written, including any undone tail.
func (l *Log) SaveTo(w io.Writer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bw := bufio.NewWriter(w)
	for i := range l.entries {
		line, err := encodeEntry(&l.entries[i])
		if err != nil {
			return fmt.Errorf("encode entry %d: %w", i, err)
		}
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadFrom replaces the log's contents with entries read from r.
// Blank lines are skipped. The cursor lands at the end, so every
// loaded entry is applied history; snapshots are not persisted and
// accumulate again as new entries are recorded.
func (l *Log) LoadFrom(r io.Reader) error {
	var entries []Entry
	br := bufio.NewReaderSize(r, 64<<10)
	lineNo := 0
	for {
		line, err := br.ReadString('\n')
		if s := strings.TrimSpace(line); s != "" {
			lineNo++
			e, decErr := decodeEntry(s)
			if decErr != nil {
				return fmt.Errorf("line %d: %w", lineNo, decErr)
			}
			entries = append(entries, e)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.current = len(entries)
	l.snapshots = nil
	l.grouping = false
	l.group = Entry{}
	return nil
}

// jsonLine accumulates sjson edits, keeping the first error.
type jsonLine struct {
	s   string
	err error
}

func (j *jsonLine) set(path string, value any) {
	if j.err != nil {
		return
	}
	j.s, j.err = sjson.Set(j.s, path, value)
}

func encodeEntry(e *Entry) (string, error) {
	j := jsonLine{s: "{}"}
	j.set("version", e.Version)
	j.set("time", e.Timestamp.UTC().Format(time.RFC3339Nano))
	if e.Label != "" {
		j.set("label", e.Label)
	}
	for i, op := range e.Ops {
		base := "ops." + strconv.Itoa(i)
		j.set(base+".offset", int64(op.Offset))
		if op.OldText != "" {
			j.set(base+".old", op.OldText)
		}
		if op.NewText != "" {
			j.set(base+".new", op.NewText)
		}
	}
	encodeStates(&j, "before", e.PositionsBefore)
	encodeStates(&j, "after", e.PositionsAfter)
	return j.s, j.err
}

func encodeStates(j *jsonLine, key string, states []position.State) {
	for i, s := range states {
		base := key + "." + strconv.Itoa(i)
		j.set(base+".id", s.ID.String())
		j.set(base+".offset", int64(s.Offset))
		if s.Affinity != position.AffinityRight {
			j.set(base+".affinity", int(s.Affinity))
		}
	}
}

func decodeEntry(line string) (Entry, error) {
	if !gjson.Valid(line) {
		return Entry{}, fmt.Errorf("%w: not valid JSON", ErrInvalidEntry)
	}
	res := gjson.Parse(line)

	e := Entry{
		Version: res.Get("version").Uint(),
		Label:   res.Get("label").String(),
	}
	if ts := res.Get("time"); ts.Exists() {
		parsed, err := time.Parse(time.RFC3339Nano, ts.String())
		if err != nil {
			return Entry{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidEntry, ts.String())
		}
		e.Timestamp = parsed
	}

	ops := res.Get("ops")
	if !ops.IsArray() {
		return Entry{}, fmt.Errorf("%w: missing ops", ErrInvalidEntry)
	}
	ops.ForEach(func(_, op gjson.Result) bool {
		e.Ops = append(e.Ops, Op{
			Offset:  ByteOffset(op.Get("offset").Int()),
			OldText: op.Get("old").String(),
			NewText: op.Get("new").String(),
		})
		return true
	})

	var err error
	if e.PositionsBefore, err = decodeStates(res.Get("before")); err != nil {
		return Entry{}, err
	}
	if e.PositionsAfter, err = decodeStates(res.Get("after")); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func decodeStates(res gjson.Result) ([]position.State, error) {
	if !res.Exists() {
		return nil, nil
	}
	var (
		states []position.State
		err    error
	)
	res.ForEach(func(_, s gjson.Result) bool {
		id, perr := uuid.Parse(s.Get("id").String())
		if perr != nil {
			err = fmt.Errorf("%w: bad position id %q", ErrInvalidEntry, s.Get("id").String())
			return false
		}
		states = append(states, position.State{
			ID:       id,
			Offset:   ByteOffset(s.Get("offset").Int()),
			Affinity: position.Affinity(s.Get("affinity").Uint()),
		})
		return true
	})
	return states, err
}
