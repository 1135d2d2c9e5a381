// Package avltree implements the balanced dynamic interval engine: an AVL
// tree keyed on interval start, augmented with a per-subtree maximum end
// coordinate so that overlap queries can prune whole subtrees.
package avltree

import (
	"github.com/go-itree/itree/coord"
	"github.com/go-itree/itree/instrumentation"
	"github.com/go-itree/itree/internal/gen"
)

// Tree is an augmented AVL tree mapping half-open intervals [Start, End)
// to a payload of type P. Keys are ordered by (Start, End): intervals that
// share a Start but differ in End are stored as separate elements.
type Tree[C coord.Ordered, P any] struct {
	root    *node[C, P]
	Counter instrumentation.Counter
}

// New returns an empty balanced tree.
func New[C coord.Ordered, P any]() *Tree[C, P] {
	return &Tree[C, P]{}
}

type node[C coord.Ordered, P any] struct {
	key     coord.Span[C]
	payload P

	left, right *node[C, P]

	height  int8
	balance int8 // in [-2, 2]; recomputed after every rebalance
	size    uint32

	// max is the largest End in the subtree rooted at this node.
	max C
}

// Node is a handle to a stored element. The zero Node is invalid; check
// Valid before calling any other method.
type Node[C coord.Ordered, P any] struct {
	n *node[C, P]
}

// Valid reports whether this handle refers to a real node.
func (h Node[C, P]) Valid() bool { return h.n != nil }

// Start returns the interval's start coordinate.
func (h Node[C, P]) Start() C { return h.n.key.Start }

// End returns the interval's end coordinate.
func (h Node[C, P]) End() C { return h.n.key.End }

// Lo implements coord.Bounds.
func (h Node[C, P]) Lo() C { return h.n.key.Start }

// Hi implements coord.Bounds.
func (h Node[C, P]) Hi() C { return h.n.key.End }

// Payload returns the value associated with this node.
func (h Node[C, P]) Payload() P { return h.n.payload }

func height[C coord.Ordered, P any](n *node[C, P]) int8 {
	if n == nil {
		return 0
	}
	return n.height
}

func sizeOf[C coord.Ordered, P any](n *node[C, P]) uint32 {
	if n == nil {
		return 0
	}
	return n.size
}

// updateAll recomputes height, size, balance and max from n's direct
// children. Used whenever a node's children may have changed shape.
func updateAll[C coord.Ordered, P any](n *node[C, P]) {
	n.height = 1 + gen.Max(height(n.left), height(n.right))
	n.size = 1 + sizeOf(n.left) + sizeOf(n.right)
	n.balance = height(n.left) - height(n.right)

	n.max = n.key.End
	if n.left != nil {
		n.max = gen.Max(n.max, n.left.max)
	}
	if n.right != nil {
		n.max = gen.Max(n.max, n.right.max)
	}
}

// updateShape recomputes height, size and balance only, leaving max
// untouched. Used by rotations for the promoted node, whose max is
// inherited rather than recomputed.
func updateShape[C coord.Ordered, P any](n *node[C, P]) {
	n.height = 1 + gen.Max(height(n.left), height(n.right))
	n.size = 1 + sizeOf(n.left) + sizeOf(n.right)
	n.balance = height(n.left) - height(n.right)
}

// rotateLeft and rotateRight transfer ownership of up to three subtrees.
// The promoted node inherits the old root's max outright; the demoted
// node recomputes its max from its own End and its remaining children.
// This preserves max >= any descendant's End without a full subtree walk.

func rotateLeft[C coord.Ordered, P any](n *node[C, P]) *node[C, P] {
	oldMax := n.max
	pivot := n.right
	n.right = pivot.left
	pivot.left = n

	updateAll(n)
	updateShape(pivot)
	pivot.max = oldMax
	return pivot
}

func rotateRight[C coord.Ordered, P any](n *node[C, P]) *node[C, P] {
	oldMax := n.max
	pivot := n.left
	n.left = pivot.right
	pivot.right = n

	updateAll(n)
	updateShape(pivot)
	pivot.max = oldMax
	return pivot
}

// rebalance restores the AVL invariant at n, applying at most one single
// or double rotation, and keeps the max/size augmentation current.
func rebalance[C coord.Ordered, P any](n *node[C, P]) *node[C, P] {
	updateAll(n)
	if n.balance <= -2 {
		if n.right.balance > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	if n.balance >= 2 {
		if n.left.balance < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	}
	return n
}

func insert[C coord.Ordered, P any](n *node[C, P], key coord.Span[C], payload P) (*node[C, P], bool) {
	if n == nil {
		return &node[C, P]{key: key, payload: payload, height: 1, size: 1, max: key.End}, true
	}

	switch {
	case coord.Less(key, n.key):
		inserted := false
		n.left, inserted = insert(n.left, key, payload)
		return rebalance(n), inserted
	case coord.Less(n.key, key):
		inserted := false
		n.right, inserted = insert(n.right, key, payload)
		return rebalance(n), inserted
	default:
		// Exact key already present: the existing node is returned
		// unchanged, not an error.
		return n, false
	}
}

func find[C coord.Ordered, P any](n *node[C, P], key coord.Span[C]) (*node[C, P], int) {
	rank := 0
	for n != nil {
		switch {
		case coord.Less(key, n.key):
			n = n.left
		case coord.Less(n.key, key):
			rank += int(sizeOf(n.left)) + 1
			n = n.right
		default:
			rank += int(sizeOf(n.left)) + 1
			return n, rank
		}
	}
	return nil, rank
}

func findMin[C coord.Ordered, P any](n *node[C, P]) *node[C, P] {
	for n.left != nil {
		n = n.left
	}
	return n
}

// erase removes key from the subtree rooted at n, returning the new
// subtree root, a snapshot of the removed element (before any
// successor-swap overwrites live node storage), and whether key was
// found.
func erase[C coord.Ordered, P any](n *node[C, P], key coord.Span[C]) (*node[C, P], *node[C, P], bool) {
	if n == nil {
		return nil, nil, false
	}

	switch {
	case coord.Less(key, n.key):
		var removed *node[C, P]
		var ok bool
		n.left, removed, ok = erase(n.left, key)
		return rebalance(n), removed, ok
	case coord.Less(n.key, key):
		var removed *node[C, P]
		var ok bool
		n.right, removed, ok = erase(n.right, key)
		return rebalance(n), removed, ok
	default:
		removed := &node[C, P]{key: n.key, payload: n.payload}
		if n.left == nil {
			return n.right, removed, true
		}
		if n.right == nil {
			return n.left, removed, true
		}
		succ := findMin(n.right)
		n.key = succ.key
		n.payload = succ.payload
		n.right, _, _ = erase(n.right, succ.key)
		return rebalance(n), removed, true
	}
}

// Insert adds the interval [start, end) with payload. If the identical
// interval [start, end) already exists, the tree is left unchanged and the
// existing node is returned. The second result is the rank: the count of stored intervals
// less than or equal to [start, end) under the (start, end) order.
func (t *Tree[C, P]) Insert(start, end C, payload P) (Node[C, P], int) {
	key := coord.NewSpan(start, end)
	t.root, _ = insert(t.root, key, payload)
	n, rank := find(t.root, key)
	return Node[C, P]{n}, rank
}

// Find looks up the exact interval [start, end), returning its node, its
// rank, and whether it was present.
func (t *Tree[C, P]) Find(start, end C) (Node[C, P], int, bool) {
	key := coord.NewSpan(start, end)
	n, rank := find(t.root, key)
	return Node[C, P]{n}, rank, n != nil
}

// Erase removes the exact interval [start, end). It returns the removed
// node and true if it was present, or a zero Node and false otherwise;
// absence is not an error.
func (t *Tree[C, P]) Erase(start, end C) (Node[C, P], bool) {
	key := coord.NewSpan(start, end)
	var removed *node[C, P]
	var ok bool
	t.root, removed, ok = erase(t.root, key)
	return Node[C, P]{removed}, ok
}

// EraseMin removes the interval with the smallest start, the "erase with
// no key" form of Erase.
func (t *Tree[C, P]) EraseMin() (Node[C, P], bool) {
	if t.root == nil {
		return Node[C, P]{}, false
	}
	min := findMin(t.root)
	return t.Erase(min.key.Start, min.key.End)
}

// Min returns the interval with the smallest start.
func (t *Tree[C, P]) Min() (Node[C, P], bool) {
	if t.root == nil {
		return Node[C, P]{}, false
	}
	return Node[C, P]{findMin(t.root)}, true
}

// Size returns the number of stored intervals.
func (t *Tree[C, P]) Size() int {
	return int(sizeOf(t.root))
}

// Height returns the tree's height, for diagnostics and tests.
func (t *Tree[C, P]) Height() int {
	return int(height(t.root))
}

// FindOverlaps returns every stored interval overlapping [start, end).
// The walk is iterative over an explicit work-stack pre-seeded with the
// root; each popped node is either pruned, has only its left child
// pushed, or is tested and has both children pushed. Returned order is
// unspecified.
func (t *Tree[C, P]) FindOverlaps(start, end C) []Node[C, P] {
	q := coord.NewSpan(start, end)
	var result []Node[C, P]
	if t.root == nil {
		return result
	}

	stack := []*node[C, P]{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.Counter.Visit()

		if q.Start >= n.max {
			continue
		}
		if q.End <= n.key.Start {
			if n.left != nil {
				stack = append(stack, n.left)
			}
			continue
		}
		if coord.Overlaps[C](n.key, q) {
			result = append(result, Node[C, P]{n})
		}
		if n.left != nil {
			stack = append(stack, n.left)
		}
		if n.right != nil {
			stack = append(stack, n.right)
		}
	}
	return result
}

// Iterator is a stateful in-order cursor: a saved descent stack plus an
// implicit current-right pointer. It is invalidated by any mutation of
// the tree it was created from.
type Iterator[C coord.Ordered, P any] struct {
	stack []*node[C, P]
}

// Iterator returns an in-order iterator over the tree, from smallest to
// largest key.
func (t *Tree[C, P]) Iterator() *Iterator[C, P] {
	it := &Iterator[C, P]{}
	it.pushLeftSpine(t.root)
	return it
}

func (it *Iterator[C, P]) pushLeftSpine(n *node[C, P]) {
	for n != nil {
		it.stack = append(it.stack, n)
		n = n.left
	}
}

// Next advances the iterator: while the popped node's right subtree is
// non-empty, descend leftward from it; otherwise the next pop ascends via
// the saved stack.
func (it *Iterator[C, P]) Next() (Node[C, P], bool) {
	if len(it.stack) == 0 {
		return Node[C, P]{}, false
	}
	n := it.stack[len(it.stack)-1]
	it.stack = it.stack[:len(it.stack)-1]
	it.pushLeftSpine(n.right)
	return Node[C, P]{n}, true
}
