// Package splaytree implements the self-adjusting dynamic interval
// engine: a splay tree keyed on interval start, augmented with a
// per-subtree maximum end coordinate. Every successful access moves the
// touched node to the root, which biases the tree toward whatever was
// accessed most recently.
//
// Because every read mutates the tree's shape, a Tree is not safe for
// concurrent read-only use; callers must serialize access externally.
package splaytree

import (
	"math/rand"

	"github.com/go-itree/itree/coord"
	"github.com/go-itree/itree/instrumentation"
	"github.com/go-itree/itree/internal/gen"
	"github.com/go-itree/itree/iter"
)

// Tree is an augmented splay tree mapping half-open intervals [Start, End)
// to a payload of type P.
type Tree[C coord.Ordered, P any] struct {
	root *node[C, P]

	// Rho is the probability, in (0, 1], that a successful access
	// splays the touched node to the root. The default, set by New, is
	// 1 (always splay). The max augmentation is correct regardless of
	// Rho; lowering it only trades locality-of-access performance for
	// fewer rotations.
	Rho float64
	rnd *rand.Rand

	Counter instrumentation.Counter
}

// New returns an empty self-adjusting tree with Rho = 1.
func New[C coord.Ordered, P any]() *Tree[C, P] {
	return &Tree[C, P]{Rho: 1, rnd: rand.New(rand.NewSource(1))}
}

// node's parent is a non-owning back-link: its lifetime never exceeds the
// child's, and it exists purely to let splay walk upward without a
// separate stack.
type node[C coord.Ordered, P any] struct {
	key     coord.Span[C]
	payload P

	left, right, parent *node[C, P]

	size uint32
	max  C
}

// Node is a handle to a stored element. The zero Node is invalid.
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

func sizeOf[C coord.Ordered, P any](n *node[C, P]) uint32 {
	if n == nil {
		return 0
	}
	return n.size
}

// updateAll recomputes size and max from n's current children.
func updateAll[C coord.Ordered, P any](n *node[C, P]) {
	n.size = 1 + sizeOf(n.left) + sizeOf(n.right)
	n.max = n.key.End
	if n.left != nil {
		n.max = gen.Max(n.max, n.left.max)
	}
	if n.right != nil {
		n.max = gen.Max(n.max, n.right.max)
	}
}

// updateShape recomputes size only; used for the node promoted by a
// rotation, whose max is inherited rather than recomputed.
func updateShape[C coord.Ordered, P any](n *node[C, P]) {
	n.size = 1 + sizeOf(n.left) + sizeOf(n.right)
}

// rotate performs a single rotation that promotes n over its parent p,
// choosing the direction from which side of p that n is on. The subtree
// rooted at p before the call and the subtree rooted at n after the call
// contain exactly the same nodes, so n inherits p's pre-rotation max
// outright; p, now demoted, recomputes its max from its own End and its
// remaining children.
func rotate[C coord.Ordered, P any](n *node[C, P]) {
	p := n.parent
	g := p.parent
	oldPMax := p.max

	if p.left == n {
		p.left = n.right
		if n.right != nil {
			n.right.parent = p
		}
		n.right = p
	} else {
		p.right = n.left
		if n.left != nil {
			n.left.parent = p
		}
		n.left = p
	}
	p.parent = n
	n.parent = g
	if g != nil {
		if g.left == p {
			g.left = n
		} else {
			g.right = n
		}
	}

	updateAll(p)
	updateShape(n)
	n.max = oldPMax
}

// splay brings n to the root via zig / zig-zig / zig-zag primitives.
func (t *Tree[C, P]) splay(n *node[C, P]) {
	for n.parent != nil {
		p := n.parent
		g := p.parent
		switch {
		case g == nil:
			// zig: parent is root.
			rotate(n)
		case (g.left == p) == (p.left == n):
			// zig-zig: n and p are both left, or both right,
			// children. Rotate grandparent-first.
			rotate(p)
			rotate(n)
		default:
			// zig-zag: rotate parent, then rotate grandparent in
			// the opposite direction.
			rotate(n)
			rotate(n)
		}
	}
	t.root = n
}

// maybeSplay splays n unless Rho < 1 and a coin flip elides it. Eliding
// the splay never violates the max invariant, since no rotation ran.
func (t *Tree[C, P]) maybeSplay(n *node[C, P]) {
	if t.Rho >= 1 || t.rnd.Float64() < t.Rho {
		t.splay(n)
	}
}

// insertNode performs a plain BST insertion, propagating max and size to
// every ancestor on the downward search path (the same rule avltree
// uses): if this weren't done here, the first rotation of the subsequent
// splay would inherit a stale max from the parent of the freshly
// inserted leaf, and a later-elided splay (Rho < 1) would leave stale
// ancestor sizes behind.
func (t *Tree[C, P]) insertNode(key coord.Span[C], payload P) (*node[C, P], bool) {
	if t.root == nil {
		n := &node[C, P]{key: key, payload: payload, max: key.End, size: 1}
		t.root = n
		return n, true
	}

	cur := t.root
	for {
		if key.End > cur.max {
			cur.max = key.End
		}
		switch {
		case coord.Less(key, cur.key):
			if cur.left == nil {
				n := &node[C, P]{key: key, payload: payload, max: key.End, size: 1, parent: cur}
				cur.left = n
				cur.size++
				return n, true
			}
			cur.size++
			cur = cur.left
		case coord.Less(cur.key, key):
			if cur.right == nil {
				n := &node[C, P]{key: key, payload: payload, max: key.End, size: 1, parent: cur}
				cur.right = n
				cur.size++
				return n, true
			}
			cur.size++
			cur = cur.right
		default:
			// Duplicate: undo the size increments made on the way down.
			// No max was raised, since key.End == cur.key.End <= cur.max.
			for p := cur.parent; p != nil; p = p.parent {
				p.size--
			}
			return cur, false
		}
	}
}

func (t *Tree[C, P]) findNode(key coord.Span[C]) *node[C, P] {
	n := t.root
	for n != nil {
		switch {
		case coord.Less(key, n.key):
			n = n.left
		case coord.Less(n.key, key):
			n = n.right
		default:
			return n
		}
	}
	return nil
}

func rankWalk[C coord.Ordered, P any](n *node[C, P], key coord.Span[C]) int {
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
			return rank
		}
	}
	return rank
}

// Insert associates [start, end) with payload. If the identical interval
// [start, end) already exists, the tree is unchanged and the existing node
// is returned. The accessed node is then splayed to the root.
func (t *Tree[C, P]) Insert(start, end C, payload P) (Node[C, P], int) {
	key := coord.NewSpan(start, end)
	n, _ := t.insertNode(key, payload)
	t.maybeSplay(n)
	return Node[C, P]{n}, rankWalk(t.root, key)
}

// Find looks up the exact interval [start, end). On a hit, the node is
// splayed to the root.
func (t *Tree[C, P]) Find(start, end C) (Node[C, P], int, bool) {
	key := coord.NewSpan(start, end)
	n := t.findNode(key)
	if n != nil {
		t.maybeSplay(n)
	}
	return Node[C, P]{n}, rankWalk(t.root, key), n != nil
}

// Erase removes the exact interval [start, end), following the classical
// splay-delete: splay the target to the root, then splay the maximum of
// its left subtree to become the new root, attaching the old right
// subtree as its right child.
func (t *Tree[C, P]) Erase(start, end C) (Node[C, P], bool) {
	key := coord.NewSpan(start, end)
	n := t.findNode(key)
	if n == nil {
		return Node[C, P]{}, false
	}
	t.splay(n)

	removed := &node[C, P]{key: n.key, payload: n.payload}
	left, right := n.left, n.right
	if left != nil {
		left.parent = nil
	}
	if right != nil {
		right.parent = nil
	}

	if left == nil {
		t.root = right
		return Node[C, P]{removed}, true
	}

	m := left
	for m.right != nil {
		m = m.right
	}
	t.root = left
	t.splay(m)
	t.root.right = right
	if right != nil {
		right.parent = t.root
	}
	updateAll(t.root)

	return Node[C, P]{removed}, true
}

// Min returns the interval with the smallest start, without splaying:
// this is a plain read used for diagnostics, not an access in the
// splay-contract sense.
func (t *Tree[C, P]) Min() (Node[C, P], bool) {
	if t.root == nil {
		return Node[C, P]{}, false
	}
	n := t.root
	for n.left != nil {
		n = n.left
	}
	return Node[C, P]{n}, true
}

// Size returns the number of stored intervals.
func (t *Tree[C, P]) Size() int {
	return int(sizeOf(t.root))
}

// Each calls fn on every stored interval in order from smallest to
// largest start. It does not splay: a plain traversal is not an access.
func (t *Tree[C, P]) Each(fn func(Node[C, P])) {
	var walk func(n *node[C, P])
	walk = func(n *node[C, P]) {
		if n == nil {
			return
		}
		walk(n.left)
		fn(Node[C, P]{n})
		walk(n.right)
	}
	walk(t.root)
}

// Iter returns a closure-based in-order iterator, for callers that want
// an iter.Iter rather than Each's callback form. Like Each, it does not
// splay.
func (t *Tree[C, P]) Iter() iter.Iter[Node[C, P]] {
	var stack []*node[C, P]
	pushLeftSpine := func(n *node[C, P]) {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
	}
	pushLeftSpine(t.root)

	return func() (Node[C, P], bool) {
		if len(stack) == 0 {
			return Node[C, P]{}, false
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pushLeftSpine(n.right)
		return Node[C, P]{n}, true
	}
}

// FindOverlaps returns every stored interval overlapping [start, end),
// using the same three-case pruning walk as avltree.FindOverlaps. If
// exactly one match is found it is splayed to the root; for zero or many
// matches nothing is splayed, leaving the top of the tree stable under
// wide queries.
func (t *Tree[C, P]) FindOverlaps(start, end C) []Node[C, P] {
	q := coord.NewSpan(start, end)
	var matches []*node[C, P]

	if t.root != nil {
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
				matches = append(matches, n)
			}
			if n.left != nil {
				stack = append(stack, n.left)
			}
			if n.right != nil {
				stack = append(stack, n.right)
			}
		}
	}

	if len(matches) == 1 {
		t.maybeSplay(matches[0])
	}

	result := make([]Node[C, P], len(matches))
	for i, n := range matches {
		result[i] = Node[C, P]{n}
	}
	return result
}
