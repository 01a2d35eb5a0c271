// Package position tracks byte positions across edits.
//
// A position is adjusted by each edit under a single rule: text before
// it leaves it alone, text removed or inserted before it shifts it by
// the delta, and deleting the text it sat in collapses it to the
// deletion's start. Selections are pairs of endpoints adjusted
// independently, so a fully deleted selection becomes an empty
// selection rather than an error.
//
// The Registry tracks positions for holders (cursors, markers,
// diagnostics) by opaque ID, keeping the text layers free of
// back-references.
package position
