package tree

import "strings"

const (
	// MinChildren is the minimum number of children for internal nodes.
	MinChildren = 4

	// MaxChildren is the maximum number of children for internal nodes.
	MaxChildren = 8

	// MaxChunksPerLeaf is the maximum number of chunks in a leaf node.
	MaxChunksPerLeaf = 4
)

// Node is an immutable tree node. Leaf nodes hold chunks; internal
// nodes hold children along with a cached summary per child so that
// seeks never touch more than one child's subtree.
type Node struct {
	height         uint8
	summary        TextSummary
	children       []*Node
	childSummaries []TextSummary
	chunks         []Chunk
}

// newLeafNode creates an empty leaf node.
func newLeafNode() *Node {
	return &Node{
		summary: TextSummary{Flags: FlagASCII},
	}
}

// newLeafNodeWithChunks creates a leaf node holding the given chunks.
// Empty chunks are dropped and adjacent gap chunks merge.
func newLeafNodeWithChunks(chunks ...Chunk) *Node {
	chunks = normalizeChunks(chunks)
	n := &Node{chunks: chunks}
	n.recomputeSummary()
	return n
}

// newInternalNode creates an internal node over same-height children.
func newInternalNode(children []*Node) *Node {
	n := &Node{
		height:         children[0].height + 1,
		children:       children,
		childSummaries: make([]TextSummary, len(children)),
	}
	for i, child := range children {
		n.childSummaries[i] = child.summary
	}
	n.recomputeSummary()
	return n
}

// normalizeChunks drops empty chunks and merges adjacent gaps.
// Allocates a new slice only when normalization changes something.
func normalizeChunks(chunks []Chunk) []Chunk {
	clean := true
	for i, c := range chunks {
		if c.IsEmpty() || (i > 0 && c.IsGap() && chunks[i-1].IsGap()) {
			clean = false
			break
		}
	}
	if clean {
		return chunks
	}

	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.IsEmpty() {
			continue
		}
		if n := len(out); n > 0 && c.IsGap() && out[n-1].IsGap() {
			out[n-1] = NewGapChunk(out[n-1].gap + c.gap)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (n *Node) isLeaf() bool {
	return n.height == 0
}

func (n *Node) isEmpty() bool {
	return n == nil || (len(n.children) == 0 && len(n.chunks) == 0)
}

// recomputeSummary rebuilds the node's summary from its contents.
func (n *Node) recomputeSummary() {
	sum := TextSummary{Flags: FlagASCII}
	if n.isLeaf() {
		for _, c := range n.chunks {
			sum = sum.Add(c.summary)
		}
	} else {
		for _, cs := range n.childSummaries {
			sum = sum.Add(cs)
		}
	}
	n.summary = sum
}

// appendTo writes the node's full text to the builder.
func (n *Node) appendTo(sb *strings.Builder) {
	if n.isLeaf() {
		for _, c := range n.chunks {
			c.appendTo(sb)
		}
		return
	}
	for _, child := range n.children {
		child.appendTo(sb)
	}
}

// textInRange writes bytes in [start, end) to the builder.
// Bounds are relative to the node and must already be clamped.
func (n *Node) textInRange(sb *strings.Builder, start, end ByteOffset) {
	if n.isLeaf() {
		var pos ByteOffset
		for _, c := range n.chunks {
			if pos >= end {
				break
			}
			cl := c.Len()
			if pos+cl > start {
				c.appendRange(sb, max(start-pos, 0), min(end-pos, cl))
			}
			pos += cl
		}
		return
	}

	var pos ByteOffset
	for i, child := range n.children {
		if pos >= end {
			break
		}
		cl := n.childSummaries[i].Bytes
		if pos+cl > start {
			child.textInRange(sb, max(start-pos, 0), min(end-pos, cl))
		}
		pos += cl
	}
}

// byteAt returns the byte at the given offset within the node.
// The offset must be in range.
func (n *Node) byteAt(offset ByteOffset) byte {
	if n.isLeaf() {
		for _, c := range n.chunks {
			cl := c.Len()
			if offset < cl {
				return c.ByteAt(offset)
			}
			offset -= cl
		}
		return 0
	}
	idx, rel := n.findChildByOffset(offset)
	return n.children[idx].byteAt(rel)
}

// findChildByOffset locates the child containing the given offset.
// Returns the child index and the offset relative to that child.
// An offset equal to the node's length lands at the end of the last
// child so end-of-text splits work without a special case.
func (n *Node) findChildByOffset(offset ByteOffset) (int, ByteOffset) {
	var pos ByteOffset
	for i, cs := range n.childSummaries {
		if offset < pos+cs.Bytes {
			return i, offset - pos
		}
		pos += cs.Bytes
	}
	last := len(n.childSummaries) - 1
	return last, offset - (pos - n.childSummaries[last].Bytes)
}

// findNewline returns the byte offset of the k-th newline (1-indexed),
// or -1 if the node contains fewer than k newlines. The per-child
// summaries prune all but one subtree at each level.
func (n *Node) findNewline(k uint32) ByteOffset {
	if k == 0 || k > n.summary.Lines {
		return -1
	}

	if n.isLeaf() {
		var pos ByteOffset
		var seen uint32
		for _, c := range n.chunks {
			if seen+c.summary.Lines >= k {
				return pos + c.Newlines().FindNthNewline(k-seen)
			}
			seen += c.summary.Lines
			pos += c.Len()
		}
		return -1
	}

	var pos ByteOffset
	var seen uint32
	for i, cs := range n.childSummaries {
		if seen+cs.Lines >= k {
			return pos + n.children[i].findNewline(k-seen)
		}
		seen += cs.Lines
		pos += cs.Bytes
	}
	return -1
}

// newlinesBefore counts newlines strictly before the given offset.
func (n *Node) newlinesBefore(offset ByteOffset) uint32 {
	if offset <= 0 {
		return 0
	}
	if offset >= n.summary.Bytes {
		return n.summary.Lines
	}

	if n.isLeaf() {
		var pos ByteOffset
		var count uint32
		for _, c := range n.chunks {
			if offset <= pos {
				break
			}
			cl := c.Len()
			if offset >= pos+cl {
				count += c.summary.Lines
			} else {
				count += c.Newlines().CountBefore(offset - pos)
			}
			pos += cl
		}
		return count
	}

	var pos ByteOffset
	var count uint32
	for i, cs := range n.childSummaries {
		if offset <= pos {
			break
		}
		if offset >= pos+cs.Bytes {
			count += cs.Lines
		} else {
			count += n.children[i].newlinesBefore(offset - pos)
		}
		pos += cs.Bytes
	}
	return count
}

// split divides the node at the given offset into two subtrees.
func (n *Node) split(offset ByteOffset) (*Node, *Node) {
	if n.isLeaf() {
		return n.splitLeaf(offset)
	}
	return n.splitInternal(offset)
}

func (n *Node) splitLeaf(offset ByteOffset) (*Node, *Node) {
	var leftChunks, rightChunks []Chunk
	var pos ByteOffset

	for _, c := range n.chunks {
		cl := c.Len()
		switch {
		case pos+cl <= offset:
			leftChunks = append(leftChunks, c)
		case pos >= offset:
			rightChunks = append(rightChunks, c)
		default:
			l, r := c.Split(offset - pos)
			if !l.IsEmpty() {
				leftChunks = append(leftChunks, l)
			}
			if !r.IsEmpty() {
				rightChunks = append(rightChunks, r)
			}
		}
		pos += cl
	}

	return newLeafNodeWithChunks(leftChunks...), newLeafNodeWithChunks(rightChunks...)
}

func (n *Node) splitInternal(offset ByteOffset) (*Node, *Node) {
	idx, rel := n.findChildByOffset(offset)
	childLeft, childRight := n.children[idx].split(rel)

	left := buildNodeFromChildren(n.children[:idx])
	if !childLeft.isEmpty() {
		left = concat(left, childLeft)
	}

	right := childRight
	if idx+1 < len(n.children) {
		right = concat(right, buildNodeFromChildren(n.children[idx+1:]))
	}

	if left == nil {
		left = newLeafNode()
	}
	if right == nil {
		right = newLeafNode()
	}
	return left, right
}

// buildNodeFromChildren assembles a subtree over same-height children,
// grouping into balanced internal nodes when the count exceeds the
// maximum fan-out.
func buildNodeFromChildren(children []*Node) *Node {
	switch {
	case len(children) == 0:
		return nil
	case len(children) == 1:
		return children[0]
	case len(children) <= MaxChildren:
		return newInternalNode(children)
	}

	groups := (len(children) + MaxChildren - 1) / MaxChildren
	per := (len(children) + groups - 1) / groups
	parents := make([]*Node, 0, groups)
	for i := 0; i < len(children); i += per {
		end := min(i+per, len(children))
		parents = append(parents, newInternalNode(children[i:end]))
	}
	return buildNodeFromChildren(parents)
}

// concat joins two subtrees, recursing down the taller side so the
// result stays balanced. Either argument may be nil or empty.
func concat(a, b *Node) *Node {
	if a.isEmpty() {
		if b != nil {
			return b
		}
		return a
	}
	if b.isEmpty() {
		return a
	}

	switch {
	case a.height == b.height:
		if a.isLeaf() {
			return concatLeaves(a, b)
		}
		return mergeNodes(a, b)

	case a.height > b.height:
		last := len(a.children) - 1
		splice := spliceChildren(concat(a.children[last], b), a.height)
		children := make([]*Node, 0, last+len(splice))
		children = append(children, a.children[:last]...)
		children = append(children, splice...)
		return buildNodeFromChildren(children)

	default:
		splice := spliceChildren(concat(a, b.children[0]), b.height)
		children := make([]*Node, 0, len(splice)+len(b.children)-1)
		children = append(children, splice...)
		children = append(children, b.children[1:]...)
		return buildNodeFromChildren(children)
	}
}

// spliceChildren returns the nodes to insert in place of a merged
// subtree at a parent of the given height. A merge that grew to the
// parent's own height contributes its children instead of itself.
func spliceChildren(merged *Node, parentHeight uint8) []*Node {
	if merged.height == parentHeight {
		return merged.children
	}
	return []*Node{merged}
}

// concatLeaves joins two leaf nodes. Undersized or gap boundary chunks
// merge so that repeated small edits do not accumulate fragments.
func concatLeaves(a, b *Node) *Node {
	last := a.chunks[len(a.chunks)-1]
	first := b.chunks[0]

	bothGaps := last.IsGap() && first.IsGap()
	undersized := !last.IsGap() && !first.IsGap() &&
		(last.Len() < MinChunkSize || first.Len() < MinChunkSize)

	if bothGaps || undersized || len(a.chunks)+len(b.chunks) <= MaxChunksPerLeaf {
		chunks := make([]Chunk, 0, len(a.chunks)+len(b.chunks))
		chunks = append(chunks, a.chunks[:len(a.chunks)-1]...)
		chunks = append(chunks, last.Append(first)...)
		chunks = append(chunks, b.chunks[1:]...)
		chunks = normalizeChunks(chunks)

		if len(chunks) <= MaxChunksPerLeaf {
			return newLeafNodeWithChunks(chunks...)
		}
		mid := len(chunks) / 2
		return newInternalNode([]*Node{
			newLeafNodeWithChunks(chunks[:mid]...),
			newLeafNodeWithChunks(chunks[mid:]...),
		})
	}

	return newInternalNode([]*Node{a, b})
}

// mergeNodes joins two same-height internal nodes.
func mergeNodes(a, b *Node) *Node {
	children := make([]*Node, 0, len(a.children)+len(b.children))
	children = append(children, a.children...)
	children = append(children, b.children...)
	return buildNodeFromChildren(children)
}
