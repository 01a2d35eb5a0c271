package tree

import (
	"math"
	"unicode/utf8"
)

// ByteOffset represents an absolute byte position in the tree.
type ByteOffset = int64

// Point represents a line/column position.
// Line and Column are both 0-indexed; Column is in bytes.
type Point struct {
	Line   uint32
	Column uint32
}

// TextSummary holds aggregated metrics for a text span.
// This is the summary type for the tree, implementing monoid operations.
type TextSummary struct {
	// Bytes is the UTF-8 byte count.
	Bytes ByteOffset

	// UTF16Units is the UTF-16 code unit count (for LSP compatibility).
	UTF16Units uint64

	// Lines is the number of newline characters.
	Lines uint32

	// LongestLine is the byte length of the longest line.
	LongestLine uint32

	// FirstLineLen is the byte length of the first line (excluding newline).
	FirstLineLen uint32

	// LastLineLen is the byte length of the last line (excluding newline).
	LastLineLen uint32

	// Flags indicate text properties for fast paths.
	Flags TextFlags
}

// TextFlags indicate text properties for optimization fast paths.
type TextFlags uint8

const (
	// FlagASCII indicates all characters are ASCII (< 128).
	FlagASCII TextFlags = 1 << iota

	// FlagHasNewlines indicates the text contains newline characters.
	FlagHasNewlines

	// FlagHasTabs indicates the text contains tab characters.
	FlagHasTabs
)

// Add combines two summaries (monoid operation).
// This is called when concatenating tree sections.
func (s TextSummary) Add(other TextSummary) TextSummary {
	if s.Bytes == 0 {
		return other
	}
	if other.Bytes == 0 {
		return s
	}

	result := TextSummary{
		Bytes:      s.Bytes + other.Bytes,
		UTF16Units: s.UTF16Units + other.UTF16Units,
		Lines:      s.Lines + other.Lines,
		Flags:      s.Flags & other.Flags,
	}

	// The line spanning the join is s's last line extended by other's
	// first line. It replaces both as a length candidate.
	joint := s.LastLineLen + other.FirstLineLen

	if s.Lines == 0 {
		result.FirstLineLen = joint
	} else {
		result.FirstLineLen = s.FirstLineLen
	}
	if other.Lines == 0 {
		result.LastLineLen = joint
	} else {
		result.LastLineLen = other.LastLineLen
	}
	result.LongestLine = max(s.LongestLine, other.LongestLine, joint)

	if s.Flags&FlagHasNewlines != 0 || other.Flags&FlagHasNewlines != 0 {
		result.Flags |= FlagHasNewlines
	}
	if s.Flags&FlagHasTabs != 0 || other.Flags&FlagHasTabs != 0 {
		result.Flags |= FlagHasTabs
	}

	return result
}

// Zero returns the identity element for the summary monoid.
func (TextSummary) Zero() TextSummary {
	return TextSummary{Flags: FlagASCII}
}

// IsZero returns true if this is the zero/identity summary.
func (s TextSummary) IsZero() bool {
	return s.Bytes == 0
}

// ComputeSummary calculates metrics for a string.
func ComputeSummary(s string) TextSummary {
	if len(s) == 0 {
		return TextSummary{Flags: FlagASCII}
	}

	var sum TextSummary
	sum.Bytes = ByteOffset(len(s))
	sum.Flags = FlagASCII

	var lineLen uint32

	for _, r := range s {
		if r <= 0xFFFF {
			sum.UTF16Units++
		} else {
			sum.UTF16Units += 2 // Surrogate pair
		}

		if r > 127 {
			sum.Flags &^= FlagASCII
		}

		if r == '\n' {
			sum.Lines++
			if lineLen > sum.LongestLine {
				sum.LongestLine = lineLen
			}
			if sum.Lines == 1 {
				sum.FirstLineLen = lineLen
			}
			lineLen = 0
			sum.Flags |= FlagHasNewlines
		} else {
			lineLen += uint32(utf8.RuneLen(r))
			if r == '\t' {
				sum.Flags |= FlagHasTabs
			}
		}
	}

	sum.LastLineLen = lineLen
	if sum.Lines == 0 {
		sum.FirstLineLen = lineLen
		sum.LongestLine = lineLen
	} else if lineLen > sum.LongestLine {
		sum.LongestLine = lineLen
	}

	return sum
}

// gapSummary returns the summary for a gap of n logically-empty bytes.
// A gap reads back as n spaces, so its metrics match what n spaces
// would produce: one line of n ASCII bytes, n UTF-16 units.
func gapSummary(n ByteOffset) TextSummary {
	if n <= 0 {
		return TextSummary{Flags: FlagASCII}
	}
	lineLen := clampUint32(n)
	return TextSummary{
		Bytes:        n,
		UTF16Units:   uint64(n),
		LongestLine:  lineLen,
		FirstLineLen: lineLen,
		LastLineLen:  lineLen,
		Flags:        FlagASCII,
	}
}

// clampUint32 narrows a byte count to uint32 for line-length metrics.
func clampUint32(n ByteOffset) uint32 {
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// CountLines returns the number of newlines in a string.
func CountLines(s string) uint32 {
	var count uint32
	for _, c := range s {
		if c == '\n' {
			count++
		}
	}
	return count
}
