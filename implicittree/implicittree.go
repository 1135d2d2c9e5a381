// Package implicittree implements the implicit static array engine: a
// flat, pointer-free interval index addressed entirely by position
// arithmetic over a slice sorted by (contig, start). Records for a given
// contig occupy a contiguous run of the slice; within that run, the
// local sub-range [lo, hi) rooted at the whole contig is a balanced
// binary search tree built by the standard sorted-array split: the node
// for [lo, hi) sits at position mid = lo + (hi-lo)/2, its left subtree
// is [lo, mid), and its right subtree is [mid+1, hi). This is the
// "implicit" part: no child pointers are stored, every descent step
// re-derives mid from the range it is given, and the recursion is exact
// for any record count, not only ones of the form 2^m - 1.
//
// Index must be called after any Add before FindOverlaps is used; the
// tree is "dirty" in between.
package implicittree

import (
	"log"
	"sort"

	"github.com/go-itree/itree/contig"
	"github.com/go-itree/itree/coord"
	"github.com/go-itree/itree/instrumentation"
	"github.com/go-itree/itree/iter"
)

// record is one stored interval. Unlike the dynamic engines, records
// live in a single flat slice rather than behind pointers; contigID and
// the coordinates are kept as plain typed fields rather than packed into
// a single machine word, trading a few extra bytes per record for a
// representation that needs no bit-twiddling to get right in a language
// without cheap compile-time bounds proofs.
type record[C coord.Ordered, P any] struct {
	contigID contig.ID
	start    C
	end      C
	maxEnd   C // subtree max end; valid only after Index
	payload  P
}

// contigMeta records where one contig's records live in the shared slice
// and how many there are. The root of a contig's implicit tree is always
// at local position count/2, so it needs no separate field.
type contigMeta struct {
	offset int
	count  int
}

// Tree is the implicit static interval engine. The zero value is not
// usable; use New.
type Tree[C coord.Ordered, P any] struct {
	names   *contig.Table
	metas   []contigMeta
	records []record[C, P]
	dirty   bool

	// Debug gates the warning logged when a query is made against a
	// dirty tree. Release builds typically leave this false and pay
	// only the cost of a silent re-index.
	Debug bool

	Counter instrumentation.Counter
}

// New returns an empty implicit tree.
func New[C coord.Ordered, P any]() *Tree[C, P] {
	return &Tree[C, P]{names: contig.New()}
}

// Node is a handle to a stored element, addressed by its position in the
// backing slice. A handle returned by Add is only valid until the next
// call to Index, which reorders the slice; a handle returned by
// FindOverlaps remains valid until the next Add or Index.
type Node[C coord.Ordered, P any] struct {
	tree *Tree[C, P]
	idx  int
}

// Valid reports whether this handle refers to a real record.
func (h Node[C, P]) Valid() bool { return h.tree != nil }

// Start returns the interval's start coordinate.
func (h Node[C, P]) Start() C { return h.tree.records[h.idx].start }

// End returns the interval's end coordinate.
func (h Node[C, P]) End() C { return h.tree.records[h.idx].end }

// Lo implements coord.Bounds.
func (h Node[C, P]) Lo() C { return h.Start() }

// Hi implements coord.Bounds.
func (h Node[C, P]) Hi() C { return h.End() }

// Payload returns the value associated with this node.
func (h Node[C, P]) Payload() P { return h.tree.records[h.idx].payload }

// ContigID returns the id of the contig name, registering it if this is
// the first time it has been seen.
func (t *Tree[C, P]) ContigID(name string) contig.ID {
	return t.addContig(name, 0)
}

// AddContigHint registers name (if not already present) and reserves
// capacity in the backing slice for at least hintLen additional records.
// Records for many contigs share one slice, so a caller that knows it is
// about to add a large contig can avoid several doublings.
func (t *Tree[C, P]) AddContigHint(name string, hintLen int) contig.ID {
	return t.addContig(name, hintLen)
}

func (t *Tree[C, P]) addContig(name string, hintLen int) contig.ID {
	id := t.names.Add(name)
	for len(t.metas) <= int(id) {
		t.metas = append(t.metas, contigMeta{})
	}
	if hintLen > 0 && cap(t.records)-len(t.records) < hintLen {
		grown := make([]record[C, P], len(t.records), len(t.records)+hintLen)
		copy(grown, t.records)
		t.records = grown
	}
	return id
}

// LookupContig returns the id assigned to name, and whether it has been
// seen before.
func (t *Tree[C, P]) LookupContig(name string) (contig.ID, bool) {
	return t.names.ID(name)
}

// Add appends the interval [start, end) with payload to contigName,
// registering the contig if it is new. The tree becomes dirty: Index
// must run before the next FindOverlaps, and the handle this returns is
// only valid until that happens.
func (t *Tree[C, P]) Add(contigName string, start, end C, payload P) Node[C, P] {
	if start > end {
		panic("implicittree: interval start must not be greater than end")
	}
	id := t.addContig(contigName, 0)
	idx := len(t.records)
	t.records = append(t.records, record[C, P]{
		contigID: id, start: start, end: end, maxEnd: end, payload: payload,
	})
	t.dirty = true
	return Node[C, P]{tree: t, idx: idx}
}

// Len returns the total number of stored intervals, across all contigs.
func (t *Tree[C, P]) Len() int {
	return len(t.records)
}

// buildIndex computes maxEnd for every record in a, bottom-up, following
// the same mid = lo + (hi-lo)/2 split overlapsInContig uses to descend:
// leaves take their own End; interior nodes take the max of their own
// End and both children's maxEnd. The root of the tree over a is always
// at the top-level mid, len(a)/2, so no separate root position needs to
// be recorded.
func buildIndex[C coord.Ordered, P any](a []record[C, P]) C {
	mid := len(a) / 2
	maxEnd := a[mid].end
	if mid > 0 {
		if m := buildIndex(a[:mid]); m > maxEnd {
			maxEnd = m
		}
	}
	if right := a[mid+1:]; len(right) > 0 {
		if m := buildIndex(right); m > maxEnd {
			maxEnd = m
		}
	}
	a[mid].maxEnd = maxEnd
	return maxEnd
}

// Index rebuilds the implicit tree over every contig: it stable-sorts
// all records by (contig, start), partitions the result into per-contig
// runs, and computes each run's max-end augmentation. It must be called
// after any Add and before the next FindOverlaps.
func (t *Tree[C, P]) Index() {
	sort.SliceStable(t.records, func(i, j int) bool {
		if t.records[i].contigID != t.records[j].contigID {
			return t.records[i].contigID < t.records[j].contigID
		}
		return t.records[i].start < t.records[j].start
	})

	for i := range t.metas {
		t.metas[i] = contigMeta{}
	}

	offset := 0
	for offset < len(t.records) {
		id := t.records[offset].contigID
		count := 1
		for offset+count < len(t.records) && t.records[offset+count].contigID == id {
			count++
		}
		buildIndex(t.records[offset : offset+count])
		t.metas[id] = contigMeta{offset: offset, count: count}
		offset += count
	}

	t.dirty = false
}

// overlapFrame is one level of the simulated recursion FindOverlaps
// performs in place of real call-stack recursion: lo/hi are the
// contig-local range this frame covers, mid = lo + (hi-lo)/2 is the
// node at this frame
// (the same split buildIndex used to compute its maxEnd), and
// visitedLeft distinguishes a node's first visit, where its left child
// [lo, mid) is pushed, from its second, where it is tested and its
// right child [mid+1, hi) is pushed.
type overlapFrame struct {
	lo, hi      int
	visitedLeft bool
}

// overlapsInContig runs the depth-limited overlap walk over one contig's
// run and appends matching global indices (offset already added) to out.
// The descent stack is preallocated with room for 64 frames: the range
// halves on every level, so no contig can drive it past the depth a
// 64-bit record count could ever reach, and the appends that push frames
// never need to grow it.
func (t *Tree[C, P]) overlapsInContig(meta contigMeta, q coord.Span[C], out *[]int) {
	if meta.count == 0 {
		return
	}

	stack := make([]overlapFrame, 1, 64)
	stack[0] = overlapFrame{lo: 0, hi: meta.count}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		mid := f.lo + (f.hi-f.lo)/2
		rec := t.records[meta.offset+mid]
		if !f.visitedLeft {
			// Each frame is popped back to the top of the stack once
			// more after its left child drains, so only count the
			// node here, on its first encounter, not on both.
			t.Counter.Visit()
		}

		if rec.maxEnd <= q.Start {
			stack = stack[:len(stack)-1]
			continue
		}

		if !f.visitedLeft {
			f.visitedLeft = true
			if mid > f.lo {
				stack = append(stack, overlapFrame{lo: f.lo, hi: mid})
			}
			continue
		}

		hi := f.hi
		stack = stack[:len(stack)-1]

		if rec.start < q.End && q.Start < rec.end {
			*out = append(*out, meta.offset+mid)
		}
		if rec.start < q.End && mid+1 < hi {
			stack = append(stack, overlapFrame{lo: mid + 1, hi: hi})
		}
	}
}

// ensureIndexed re-indexes a dirty tree before a query, logging a
// warning first when Debug is set so the condition is visible in a
// development build without paying for a log call in production.
func (t *Tree[C, P]) ensureIndexed(contigName string) {
	if !t.dirty {
		return
	}
	if t.Debug {
		log.Printf("implicittree: query against contig %q issued while dirty; re-indexing", contigName)
	}
	t.Index()
}

// FindOverlapIndices returns, as positions into the tree's internal
// record order, every stored interval in contigName overlapping
// [start, end). Indices are cheaper to produce than Node handles when
// the caller only needs a count. An unknown contig name yields nil.
func (t *Tree[C, P]) FindOverlapIndices(contigName string, start, end C) []int {
	t.ensureIndexed(contigName)
	id, ok := t.names.ID(contigName)
	if !ok || int(id) >= len(t.metas) {
		return nil
	}
	q := coord.NewSpan(start, end)
	var idxs []int
	t.overlapsInContig(t.metas[id], q, &idxs)
	return idxs
}

// FindOverlaps returns every stored interval in contigName overlapping
// [start, end), as handles. Returned order is unspecified.
func (t *Tree[C, P]) FindOverlaps(contigName string, start, end C) []Node[C, P] {
	idxs := t.FindOverlapIndices(contigName, start, end)
	if idxs == nil {
		return nil
	}
	result := make([]Node[C, P], len(idxs))
	for i, idx := range idxs {
		result[i] = Node[C, P]{tree: t, idx: idx}
	}
	return result
}

// CountOverlaps is FindOverlapIndices's length, named for callers that
// only need the count.
func (t *Tree[C, P]) CountOverlaps(contigName string, start, end C) int {
	return len(t.FindOverlapIndices(contigName, start, end))
}

// ContigLen returns the number of intervals stored under contigName as of
// the most recent Index, or 0 if the contig has not been indexed. It does
// not re-index a dirty tree, so records added since then are not counted.
func (t *Tree[C, P]) ContigLen(contigName string) int {
	id, ok := t.names.ID(contigName)
	if !ok || int(id) >= len(t.metas) {
		return 0
	}
	return t.metas[id].count
}

// Dirty reports whether Index must be called before the next query.
func (t *Tree[C, P]) Dirty() bool {
	return t.dirty
}

// Iter returns a closure-based iterator over every record stored under
// contigName, in indexed (start-sorted) order. It re-indexes a dirty
// tree first, the same as FindOverlaps.
func (t *Tree[C, P]) Iter(contigName string) iter.Iter[Node[C, P]] {
	t.ensureIndexed(contigName)
	id, ok := t.names.ID(contigName)
	if !ok || int(id) >= len(t.metas) {
		return func() (Node[C, P], bool) { return Node[C, P]{}, false }
	}
	meta := t.metas[id]
	i := 0
	return func() (Node[C, P], bool) {
		if i >= meta.count {
			return Node[C, P]{}, false
		}
		idx := meta.offset + i
		i++
		return Node[C, P]{tree: t, idx: idx}, true
	}
}
