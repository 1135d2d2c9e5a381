package avltree_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/go-itree/itree/avltree"
)

func TestInsertFindErase(t *testing.T) {
	tree := avltree.New[int, string]()

	if _, _, ok := tree.Find(0, 10); ok {
		t.Fatal("Find on empty tree should miss")
	}

	n, rank := tree.Insert(10, 20, "a")
	if !n.Valid() || n.Payload() != "a" {
		t.Fatalf("Insert returned invalid node: %+v", n)
	}
	if rank != 1 {
		t.Fatalf("rank after first insert = %d, want 1", rank)
	}

	tree.Insert(0, 5, "b")
	tree.Insert(25, 35, "c")

	if got, _, ok := tree.Find(0, 5); !ok || got.Payload() != "b" {
		t.Fatalf("Find(0,5) = (%v, %v), want (\"b\", true)", got.Payload(), ok)
	}

	if tree.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", tree.Size())
	}

	removed, ok := tree.Erase(10, 20)
	if !ok || removed.Payload() != "a" {
		t.Fatalf("Erase(10,20) = (%v, %v), want (\"a\", true)", removed.Payload(), ok)
	}
	if tree.Size() != 2 {
		t.Fatalf("Size() after erase = %d, want 2", tree.Size())
	}
	if _, ok := tree.Erase(10, 20); ok {
		t.Fatal("second Erase of the same key should report not found")
	}
}

func TestInsertDuplicateIntervalLeavesTreeUnchanged(t *testing.T) {
	tree := avltree.New[int, int]()
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
	tree := avltree.New[int, string]()
	tree.Insert(0, 10, "first")
	tree.Insert(10, 20, "second")
	tree.Insert(25, 35, "third")

	matches := tree.FindOverlaps(5, 15)
	got := map[string]bool{}
	for _, n := range matches {
		got[n.Payload()] = true
	}
	want := map[string]bool{"first": true, "second": true}
	if len(got) != len(want) || !got["first"] || !got["second"] {
		t.Fatalf("FindOverlaps(5,15) = %v, want %v", got, want)
	}

	if none := tree.FindOverlaps(20, 25); len(none) != 0 {
		t.Fatalf("FindOverlaps(20,25) should be empty (adjacency is not overlap), got %d matches", len(none))
	}
}

func TestFindOverlapsAcrossThreeDisjointIntervals(t *testing.T) {
	tree := avltree.New[int, string]()
	tree.Insert(0, 10, "a")
	tree.Insert(10, 20, "b")
	tree.Insert(25, 35, "c")

	got := map[string]bool{}
	for _, n := range tree.FindOverlaps(15, 30) {
		got[n.Payload()] = true
	}
	want := map[string]bool{"b": true, "c": true}
	if len(got) != len(want) || !got["b"] || !got["c"] {
		t.Fatalf("FindOverlaps(15,30) = %v, want %v", got, want)
	}
}

func TestEraseThenIterate(t *testing.T) {
	tree := avltree.New[int, int]()
	for _, start := range []int{50, 20, 80, 10, 30, 70, 90} {
		tree.Insert(start, start+5, start)
	}
	tree.Erase(20, 25)
	tree.Erase(80, 85)

	var starts []int
	it := tree.Iterator()
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		starts = append(starts, n.Start())
	}

	want := []int{10, 30, 50, 70, 90}
	if len(starts) != len(want) {
		t.Fatalf("iterated %d nodes, want %d: %v", len(starts), len(want), starts)
	}
	for i := range want {
		if starts[i] != want[i] {
			t.Fatalf("starts = %v, want %v", starts, want)
		}
	}
	if !sort.IntsAreSorted(starts) {
		t.Fatalf("iteration order not sorted: %v", starts)
	}
}

func TestCrossCheckAgainstMap(t *testing.T) {
	stdm := make(map[int]int)
	tree := avltree.New[int, int]()

	const nops = 1000
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < nops; i++ {
		key := rnd.Intn(100)
		switch rnd.Intn(2) {
		case 0:
			val := rnd.Int()
			if _, _, ok := tree.Find(key, key); !ok {
				stdm[key] = val
				tree.Insert(key, key, val)
			}
		case 1:
			delete(stdm, key)
			tree.Erase(key, key)
		}
	}

	if tree.Size() != len(stdm) {
		t.Fatalf("Size() = %d, want %d", tree.Size(), len(stdm))
	}
	for k, v := range stdm {
		n, _, ok := tree.Find(k, k)
		if !ok || n.Payload() != v {
			t.Fatalf("Find(%d) = (%v, %v), want (%d, true)", k, n.Payload(), ok, v)
		}
	}
}

func TestEraseMinAndMin(t *testing.T) {
	tree := avltree.New[int, int]()
	if _, ok := tree.Min(); ok {
		t.Fatal("Min on empty tree should miss")
	}
	tree.Insert(5, 5, 0)
	tree.Insert(1, 1, 0)
	tree.Insert(9, 9, 0)

	min, ok := tree.Min()
	if !ok || min.Start() != 1 {
		t.Fatalf("Min() = (%d, %v), want (1, true)", min.Start(), ok)
	}

	removed, ok := tree.EraseMin()
	if !ok || removed.Start() != 1 {
		t.Fatalf("EraseMin() = (%d, %v), want (1, true)", removed.Start(), ok)
	}
	if tree.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", tree.Size())
	}
}
