package engine

import (
	"errors"

	"github.com/sottey/fresh/internal/engine/boundary"
	"github.com/sottey/fresh/internal/engine/document"
	"github.com/sottey/fresh/internal/engine/history"
	"github.com/sottey/fresh/internal/engine/store"
	"github.com/sottey/fresh/internal/engine/tree"
)

// Errors returned by engine operations. The structural sentinels are
// the same values the storage layers return, so errors.Is matches at
// every level.
var (
	// ErrOffsetOutOfRange indicates an offset beyond the document length.
	ErrOffsetOutOfRange = tree.ErrOffsetOutOfRange

	// ErrRangeInvalid indicates an invalid range (end < start).
	ErrRangeInvalid = tree.ErrRangeInvalid

	// ErrInvalidBoundary indicates an edit off a UTF-8 boundary in
	// boundary-checked mode.
	ErrInvalidBoundary = boundary.ErrInvalidBoundary

	// ErrStaleVersion indicates a version pruned from the journal
	// retention window; the caller re-anchors.
	ErrStaleVersion = store.ErrStaleVersion

	// ErrUnknownVersion indicates a version that has not been applied.
	ErrUnknownVersion = store.ErrUnknownVersion

	// ErrNoPath indicates a save on a document with no file path.
	ErrNoPath = document.ErrNoPath

	// ErrReplayDiverged indicates history that does not match the
	// content it is replayed against.
	ErrReplayDiverged = history.ErrReplayDiverged

	// ErrReadOnly indicates a write on a read-only engine.
	ErrReadOnly = errors.New("engine is read-only")
)
