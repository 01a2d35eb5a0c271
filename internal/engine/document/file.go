package document

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/sottey/fresh/internal/engine/tree"
)

// ErrNoPath is returned by Save when the document has no file path.
var ErrNoPath = errors.New("document has no file path")

const (
	// ioChunkSize is the unit of streaming for load, save, and
	// checksums, and the spacing of cancellation checks.
	ioChunkSize = 64 << 10

	// smallFileLimit is the size below which load reads the whole
	// file in one call instead of streaming through the builder.
	smallFileLimit = 1 << 20
)

// NewFromReader creates a document by streaming content from r.
// Space runs of at least a chunk are stored as gaps.
func NewFromReader(r io.Reader, opts ...Option) (*Document, error) {
	t, sum, err := buildTree(context.Background(), r)
	if err != nil {
		return nil, err
	}
	return fromTree(t, sum, opts...), nil
}

// Load replaces the document content with the file at path. The
// document is untouched on any error, including cancellation.
// Loading clears the modified flag and resets the line cache.
func (d *Document) Load(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	var (
		t   tree.Tree
		sum uint64
	)
	if info, statErr := f.Stat(); statErr == nil && info.Size() < smallFileLimit {
		data, readErr := io.ReadAll(f)
		if readErr != nil {
			return fmt.Errorf("load %s: %w", path, readErr)
		}
		t = tree.NewFromString(string(data))
		sum = xxhash.Sum64(data)
	} else {
		t, sum, err = buildTree(ctx, f)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.store.SetTree(t)
	d.path = path
	d.modified = false
	d.savedSum = sum
	d.lines.invalidate(0)
	return nil
}

// Save writes the document to its associated path.
func (d *Document) Save(ctx context.Context) error {
	d.mu.RLock()
	path := d.path
	d.mu.RUnlock()
	if path == "" {
		return ErrNoPath
	}
	return d.SaveAs(ctx, path)
}

// SaveAs streams the document to path, replacing the file atomically.
// The modified flag clears only when the write succeeds and no edit
// landed while it was in flight. Failures leave both the document and
// any existing file content intact.
func (d *Document) SaveAs(ctx context.Context, path string) error {
	d.mu.RLock()
	t, v := d.store.Snapshot()
	d.mu.RUnlock()

	sum, err := writeFile(ctx, path, t)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
	d.savedSum = sum
	if _, cur := d.store.Snapshot(); cur == v {
		d.modified = false
	}
	return nil
}

// Checksum returns the hash of the current content.
func (d *Document) Checksum() uint64 {
	d.mu.RLock()
	t, _ := d.store.Snapshot()
	d.mu.RUnlock()
	return contentSum(t)
}

// SavedChecksum returns the hash of the content at the last load or
// save, for cheap comparison against on-disk state.
func (d *Document) SavedChecksum() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.savedSum
}

// buildTree streams r into a gap-compacting builder, hashing as it
// reads. Cancellation aborts between chunks.
func buildTree(ctx context.Context, r io.Reader) (tree.Tree, uint64, error) {
	b := tree.NewBuilder()
	b.CompactGaps(true)
	h := xxhash.New()
	buf := make([]byte, ioChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return tree.Tree{}, 0, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			b.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return tree.Tree{}, 0, err
		}
	}
	return b.Build(), h.Sum64(), nil
}

// writeFile streams t into a temporary file and renames it over path.
func writeFile(ctx context.Context, path string, t tree.Tree) (uint64, error) {
	dir, base := filepath.Split(path)
	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmp := f.Name()
	if info, statErr := os.Stat(path); statErr == nil {
		_ = f.Chmod(info.Mode().Perm())
	}

	sum, err := streamTo(ctx, f, t)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, err
	}
	return sum, nil
}

func streamTo(ctx context.Context, w io.Writer, t tree.Tree) (uint64, error) {
	h := xxhash.New()
	bw := bufio.NewWriterSize(w, ioChunkSize)
	r := t.Reader()
	buf := make([]byte, ioChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			if _, err := bw.Write(buf[:n]); err != nil {
				return 0, err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, rerr
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func contentSum(t tree.Tree) uint64 {
	h := xxhash.New()
	r := t.Reader()
	buf := make([]byte, ioChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err != nil {
			return h.Sum64()
		}
	}
}
