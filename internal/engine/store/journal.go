package store

import "github.com/sottey/fresh/internal/engine/position"

// DefaultJournalRetention is the default number of applied edits kept
// for offset translation before the oldest are pruned.
const DefaultJournalRetention = 1024

// journalEntry pairs an edit descriptor with the version it produced.
type journalEntry struct {
	version Version
	edit    position.Edit
}

// journal is a bounded ring of applied edits, oldest first.
type journal struct {
	entries []journalEntry
	head    int // index of oldest entry
	count   int
}

func newJournal(capacity int) *journal {
	if capacity < 1 {
		capacity = 1
	}
	return &journal{entries: make([]journalEntry, capacity)}
}

// append records an edit, pruning the oldest entry once full.
func (j *journal) append(version Version, e position.Edit) {
	idx := (j.head + j.count) % len(j.entries)
	if j.count < len(j.entries) {
		j.count++
	} else {
		j.head = (j.head + 1) % len(j.entries)
	}
	j.entries[idx] = journalEntry{version: version, edit: e}
}

func (j *journal) len() int {
	return j.count
}

// at returns the i-th entry in version order.
func (j *journal) at(i int) journalEntry {
	return j.entries[(j.head+i)%len(j.entries)]
}

// oldest returns the earliest journaled version.
func (j *journal) oldest() (Version, bool) {
	if j.count == 0 {
		return 0, false
	}
	return j.entries[j.head].version, true
}
