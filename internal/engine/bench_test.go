package engine

import (
	"context"
	"strings"
	"testing"
)

// ============================================================================
// Setup Helpers
// ============================================================================

func setupLargeEngine(b *testing.B, lines int) *Engine {
	b.Helper()
	var sb strings.Builder
	line := strings.Repeat("x", 80) + "\n"
	for i := 0; i < lines; i++ {
		sb.WriteString(line)
	}
	return New(WithContent(sb.String()))
}

// ============================================================================
// Read Operation Benchmarks
// ============================================================================

func BenchmarkEngineText(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = e.Text()
	}
}

func BenchmarkEngineTextRange(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = e.TextRange(1000, 2000)
	}
}

func BenchmarkEngineLen(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = e.Len()
	}
}

func BenchmarkEngineLineCount(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = e.LineCount()
	}
}

func BenchmarkEngineLineText(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = e.LineText(5000)
	}
}

func BenchmarkEngineLineOf(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	mid := e.Len() / 2
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = e.LineOf(mid)
	}
}

func BenchmarkEngineOffsetOfLine(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = e.OffsetOfLine(5000)
	}
}

// ============================================================================
// Write Operation Benchmarks
// ============================================================================

func BenchmarkEngineInsert(b *testing.B) {
	for i := 0; i < b.N; i++ {
		e := New()
		for j := 0; j < 1000; j++ {
			e.Insert(ByteOffset(j), "x")
		}
	}
}

func BenchmarkEngineInsertMiddle(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	mid := e.Len() / 2
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.Insert(mid, "x")
	}
}

func BenchmarkEngineDelete(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e := New(WithContent(strings.Repeat("x", 10000)))
		b.StartTimer()

		for j := 0; j < 100; j++ {
			e.Delete(0, 10)
		}
	}
}

func BenchmarkEngineReplace(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e := New(WithContent(strings.Repeat("x", 10000)))
		b.StartTimer()

		for j := 0; j < 100; j++ {
			e.Replace(500, 510, "yyyyyyyyyy")
		}
	}
}

// ============================================================================
// Undo/Redo Benchmarks
// ============================================================================

func BenchmarkEngineUndo(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e := New()
		for j := 0; j < 100; j++ {
			e.Insert(ByteOffset(j), "x")
		}
		b.StartTimer()

		for j := 0; j < 100; j++ {
			e.Undo()
		}
	}
}

func BenchmarkEngineRedo(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e := New()
		for j := 0; j < 100; j++ {
			e.Insert(ByteOffset(j), "x")
		}
		for j := 0; j < 100; j++ {
			e.Undo()
		}
		b.StartTimer()

		for j := 0; j < 100; j++ {
			e.Redo()
		}
	}
}

func BenchmarkEngineUndoGroup(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e := New()
		for j := 0; j < 10; j++ {
			e.BeginUndoGroup("group")
			for k := 0; k < 10; k++ {
				e.Insert(ByteOffset(j*10+k), "x")
			}
			e.EndUndoGroup()
		}
		b.StartTimer()

		for j := 0; j < 10; j++ {
			e.Undo()
		}
	}
}

func BenchmarkEngineUndoWithRootSnapshots(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e := New(WithSnapshotInterval(10), WithRootSnapshots(true))
		for j := 0; j < 100; j++ {
			e.Insert(ByteOffset(j), "x")
		}
		b.StartTimer()

		for j := 0; j < 100; j++ {
			e.Undo()
		}
	}
}

// ============================================================================
// Position Tracking Benchmarks
// ============================================================================

func BenchmarkEngineRegisterPosition(b *testing.B) {
	e := New(WithContent(strings.Repeat("x", 10000)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		id := e.RegisterPosition(ByteOffset(i % 10000))
		b.StopTimer()
		e.UnregisterPosition(id)
		b.StartTimer()
	}
}

func BenchmarkEngineEditWith100Positions(b *testing.B) {
	e := New(WithContent(strings.Repeat("x", 10000)))
	for i := 0; i < 100; i++ {
		e.RegisterPosition(ByteOffset(i * 100))
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		e.Insert(5000, "x")
	}
}

func BenchmarkEnginePositions(b *testing.B) {
	e := New(WithContent(strings.Repeat("x", 10000)))
	for i := 0; i < 100; i++ {
		e.RegisterPosition(ByteOffset(i * 100))
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = e.Positions()
	}
}

// ============================================================================
// Snapshot Benchmarks
// ============================================================================

func BenchmarkEngineSnapshot(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = e.Snapshot()
	}
}

// ============================================================================
// Translation Benchmarks
// ============================================================================

func BenchmarkEngineTranslate(b *testing.B) {
	e := New(WithContent(strings.Repeat("x", 10000)))
	from := e.Version()
	for i := 0; i < 100; i++ {
		e.Insert(ByteOffset(i*7), "y")
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = e.Translate(5000, from)
	}
}

// ============================================================================
// Search Benchmarks
// ============================================================================

func BenchmarkEngineFind(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	e.Insert(e.Len(), "needle")
	ctx := context.Background()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _, _ = e.Find(ctx, "needle", 0, FindOptions{})
	}
}

// ============================================================================
// Combined Workflow Benchmarks
// ============================================================================

func BenchmarkEngineTypicalEditWorkflow(b *testing.B) {
	// Simulates typical editing: insert, navigate, delete, undo
	for i := 0; i < b.N; i++ {
		e := New()

		// Type a line
		for j := 0; j < 80; j++ {
			e.Insert(ByteOffset(j), "x")
		}
		e.Insert(80, "\n")

		// Navigate and edit
		line, _ := e.LineOf(40)
		offset, _ := e.OffsetOfLine(line)
		e.Delete(offset, offset+5)

		// Undo
		e.Undo()
	}
}

// ============================================================================
// Memory Benchmarks
// ============================================================================

func BenchmarkEngineMemorySnapshots(b *testing.B) {
	e := setupLargeEngine(b, 10000)
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		// Snapshots share structure with the live tree
		for j := 0; j < 100; j++ {
			_ = e.Snapshot()
		}
	}
}

func BenchmarkEngineMemoryEdits(b *testing.B) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		e := New()
		for j := 0; j < 1000; j++ {
			e.Insert(ByteOffset(j), "x")
		}
	}
}
