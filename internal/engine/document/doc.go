// Package document layers file identity, boundary-checked editing,
// line queries, search, and load/save onto a versioned store.
//
// A Document is the unit an editor opens: it tracks a path and a
// modified flag, validates that edits land on UTF-8 boundaries
// (optional), and answers line-number queries through a sparse cache
// of line-start samples that grows as queries scan the file. Queries
// beyond the scanned prefix of a large file can be answered as cheap
// estimates with LineOfApprox instead of forcing a scan.
//
// Reads run against immutable snapshots, so Find and Save stream
// without blocking writers:
//
//	d := document.NewFromString("hello world\n")
//	res, _ := d.Insert(5, ",")
//	off, ok, _ := d.Find(ctx, "world", 0, document.FindOptions{})
//	line, _ := d.LineOf(off)
//	_ = d.SaveAs(ctx, "/tmp/hello.txt")
//	_ = res.Version
//
// Edits invalidate cached line samples at or after the edit offset;
// samples before it stay valid because earlier line numbers cannot
// change.
package document
