package tree

import (
	"strings"
	"testing"
)

func TestNewlineIndexEmpty(t *testing.T) {
	idx := ComputeNewlineIndex("")
	if idx.Count() != 0 {
		t.Errorf("expected count 0, got %d", idx.Count())
	}
	if pos := idx.Position(0); pos != -1 {
		t.Errorf("expected position -1, got %d", pos)
	}
}

func TestNewlineIndexNoNewlines(t *testing.T) {
	idx := ComputeNewlineIndex("hello world")
	if idx.Count() != 0 {
		t.Errorf("expected count 0, got %d", idx.Count())
	}
}

func TestNewlineIndexInline(t *testing.T) {
	idx := ComputeNewlineIndex("a\nb\nc\nd\ne")
	if idx.Count() != 4 {
		t.Errorf("expected count 4, got %d", idx.Count())
	}

	expected := []ByteOffset{1, 3, 5, 7}
	for i, exp := range expected {
		if pos := idx.Position(uint32(i)); pos != exp {
			t.Errorf("position %d: expected %d, got %d", i, exp, pos)
		}
	}
}

func TestNewlineIndexSpilled(t *testing.T) {
	// More than MaxInlineNewlines (4)
	idx := ComputeNewlineIndex("a\nb\nc\nd\ne\nf\ng")
	if idx.Count() != 6 {
		t.Errorf("expected count 6, got %d", idx.Count())
	}

	expected := []ByteOffset{1, 3, 5, 7, 9, 11}
	for i, exp := range expected {
		if pos := idx.Position(uint32(i)); pos != exp {
			t.Errorf("position %d: expected %d, got %d", i, exp, pos)
		}
	}
}

func TestNewlineIndexManyNewlines(t *testing.T) {
	// A full-size chunk of blank lines overflows a uint8 counter;
	// the index must track them all.
	s := strings.Repeat("\n", 300)
	idx := ComputeNewlineIndex(s)
	if idx.Count() != 300 {
		t.Errorf("expected count 300, got %d", idx.Count())
	}
	if pos := idx.Position(299); pos != 299 {
		t.Errorf("last position: expected 299, got %d", pos)
	}
}

func TestNewlineIndexFindNthNewline(t *testing.T) {
	idx := ComputeNewlineIndex("abc\ndef\nghi\njkl")

	tests := []struct {
		n        uint32
		expected ByteOffset
	}{
		{0, -1}, // 0 is invalid (1-indexed)
		{1, 3},
		{2, 7},
		{3, 11},
		{4, -1}, // out of range
	}

	for _, tt := range tests {
		if pos := idx.FindNthNewline(tt.n); pos != tt.expected {
			t.Errorf("FindNthNewline(%d): expected %d, got %d", tt.n, tt.expected, pos)
		}
	}
}

func TestNewlineIndexCountBefore(t *testing.T) {
	idx := ComputeNewlineIndex("a\nb\nc\nd\ne\nf\ng\nh\ni\nj")

	tests := []struct {
		offset   ByteOffset
		expected uint32
	}{
		{0, 0},
		{1, 0},  // at the first newline, not past it
		{2, 1},
		{3, 1},
		{4, 2},
		{17, 8},
		{18, 9},
		{100, 9},
	}

	for _, tt := range tests {
		if got := idx.CountBefore(tt.offset); got != tt.expected {
			t.Errorf("CountBefore(%d): expected %d, got %d", tt.offset, tt.expected, got)
		}
	}
}

func TestNewlineIndexNewlineAfter(t *testing.T) {
	idx := ComputeNewlineIndex("ab\ncd\nef")

	tests := []struct {
		offset   ByteOffset
		expected ByteOffset
	}{
		{0, 2},
		{2, 2},
		{3, 5},
		{5, 5},
		{6, -1},
	}

	for _, tt := range tests {
		if got := idx.NewlineAfter(tt.offset); got != tt.expected {
			t.Errorf("NewlineAfter(%d): expected %d, got %d", tt.offset, tt.expected, got)
		}
	}
}

func TestNewlineIndexLastNewlinePosition(t *testing.T) {
	if got := ComputeNewlineIndex("abc").LastNewlinePosition(); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
	if got := ComputeNewlineIndex("a\nb\nc").LastNewlinePosition(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}
