package splaytree_test

import (
	"math/rand"
	"testing"

	"github.com/go-itree/itree/coord"
	"github.com/go-itree/itree/splaytree"
)

func TestInsertThenFindAndMin(t *testing.T) {
	tree := splaytree.New[int, string]()
	tree.Insert(10, 20, "a")
	tree.Insert(0, 5, "b")
	tree.Insert(25, 35, "c")

	n, _, ok := tree.Find(0, 5)
	if !ok || n.Payload() != "b" {
		t.Fatalf("Find(0,5) = (%v, %v), want (\"b\", true)", n.Payload(), ok)
	}

	min, ok := tree.Min()
	if !ok || min.Start() != 0 {
		t.Fatalf("Min() = (%d, %v), want (0, true)", min.Start(), ok)
	}
}

func TestInsertDuplicateIntervalReturnsExistingNode(t *testing.T) {
	tree := splaytree.New[int, int]()
	tree.Insert(5, 10, 1)
	n, _ := tree.Insert(5, 10, 2)
	if n.Payload() != 1 {
		t.Fatalf("duplicate insert should return the existing payload, got %d", n.Payload())
	}
	if tree.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", tree.Size())
	}
}

func TestFindOverlaps(t *testing.T) {
	tree := splaytree.New[int, string]()
	tree.Insert(0, 10, "first")
	tree.Insert(10, 20, "second")
	tree.Insert(25, 35, "third")

	matches := tree.FindOverlaps(5, 15)
	got := map[string]bool{}
	for _, n := range matches {
		got[n.Payload()] = true
	}
	if len(got) != 2 || !got["first"] || !got["second"] {
		t.Fatalf("FindOverlaps(5,15) = %v, want {first, second}", got)
	}

	if none := tree.FindOverlaps(20, 25); len(none) != 0 {
		t.Fatalf("FindOverlaps(20,25) should be empty (adjacency is not overlap), got %d", len(none))
	}
}

func TestEraseClassicalSplayDelete(t *testing.T) {
	tree := splaytree.New[int, int]()
	for _, start := range []int{50, 20, 80, 10, 30, 70, 90} {
		tree.Insert(start, start+5, start)
	}

	removed, ok := tree.Erase(50, 55)
	if !ok || removed.Start() != 50 {
		t.Fatalf("Erase(50,55) = (%d, %v), want (50, true)", removed.Start(), ok)
	}
	if tree.Size() != 6 {
		t.Fatalf("Size() = %d, want 6", tree.Size())
	}
	if _, _, ok := tree.Find(50, 55); ok {
		t.Fatal("erased interval should no longer be findable")
	}

	var starts []int
	tree.Each(func(n splaytree.Node[int, int]) { starts = append(starts, n.Start()) })
	want := []int{10, 20, 30, 70, 80, 90}
	if len(starts) != len(want) {
		t.Fatalf("Each visited %v, want %v", starts, want)
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Fatalf("Each order = %v, want %v", starts, want)
		}
	}
}

func TestEraseEmptyLeftSubtree(t *testing.T) {
	tree := splaytree.New[int, int]()
	tree.Insert(1, 1, 0)
	tree.Insert(2, 2, 0)
	if _, ok := tree.Erase(1, 1); !ok {
		t.Fatal("Erase(1,1) should find the minimum-start node")
	}
	if tree.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", tree.Size())
	}
	if _, ok := tree.Erase(9, 9); ok {
		t.Fatal("Erase of an absent key should report not found")
	}
}

// bruteOverlaps is the reference implementation FindOverlaps is checked
// against: the max-end augmentation must never cause a real overlap to
// be pruned away.
func bruteOverlaps(spans []coord.Span[int], q coord.Span[int]) map[int]bool {
	out := map[int]bool{}
	for _, s := range spans {
		if coord.Overlaps[int](s, q) {
			out[s.Start] = true
		}
	}
	return out
}

func TestFindOverlapsMaxInvariantUnderRandomInserts(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	tree := splaytree.New[int, int]()
	tree.Rho = 0.5 // exercise the probabilistic-splay path too

	var spans []coord.Span[int]
	seen := map[int]bool{}
	for len(spans) < 1000 {
		start := rnd.Intn(5000)
		if seen[start] {
			continue
		}
		seen[start] = true
		end := start + rnd.Intn(50) + 1
		tree.Insert(start, end, start)
		spans = append(spans, coord.NewSpan(start, end))
	}

	for i := 0; i < 50; i++ {
		qStart := rnd.Intn(5000)
		qEnd := qStart + rnd.Intn(50) + 1
		q := coord.NewSpan(qStart, qEnd)

		want := bruteOverlaps(spans, q)
		got := map[int]bool{}
		for _, n := range tree.FindOverlaps(qStart, qEnd) {
			got[n.Start()] = true
		}

		if len(got) != len(want) {
			t.Fatalf("query [%d,%d): got %d matches, want %d", qStart, qEnd, len(got), len(want))
		}
		for k := range want {
			if !got[k] {
				t.Fatalf("query [%d,%d): missing match starting at %d", qStart, qEnd, k)
			}
		}
	}
}

func TestIter(t *testing.T) {
	tree := splaytree.New[int, int]()
	for _, start := range []int{3, 1, 2} {
		tree.Insert(start, start, 0)
	}
	var starts []int
	it := tree.Iter()
	for n, ok := it(); ok; n, ok = it() {
		starts = append(starts, n.Start())
	}
	want := []int{1, 2, 3}
	for i := range want {
		if starts[i] != want[i] {
			t.Fatalf("Iter order = %v, want %v", starts, want)
		}
	}
}
