// Package contig implements the name-to-id dictionary that partitions the
// implicit engine's records into independent sub-domains. It is an open
// addressing hash table over contig names, built the same way
// hashmap.Map resizes: geometric growth, linear probing, no tombstones
// (names are never removed).
package contig

import "github.com/go-itree/itree/internal/gen"

// ID identifies a contig (sub-domain) inside an implicit tree.
type ID uint32

// entry is one slot of the open-addressing table.
type entry struct {
	name   string
	id     ID
	filled bool
}

// Table is the ordered sequence of {name, assigned id} plus the
// name-to-id dictionary. IDs are assigned densely starting at 0 in the
// order names are first seen, so a Table doubles as an index into a
// parallel per-contig metadata slice.
type Table struct {
	entries  []entry
	capacity uint64
	names    []string // names[id] == name, inverse of the hash table
}

// New returns an empty contig table.
func New() *Table {
	t := &Table{capacity: 1}
	t.entries = make([]entry, t.capacity)
	return t
}

func (t *Table) slot(name string) uint64 {
	return gen.HashString(name) & (t.capacity - 1)
}

func (t *Table) resize(newcap uint64) {
	old := t.entries
	t.entries = make([]entry, newcap)
	t.capacity = newcap
	for _, e := range old {
		if !e.filled {
			continue
		}
		idx := t.slot(e.name)
		for t.entries[idx].filled {
			idx++
			if idx >= t.capacity {
				idx = 0
			}
		}
		t.entries[idx] = e
	}
}

// ID returns the id assigned to name, and whether it has been seen before.
func (t *Table) ID(name string) (ID, bool) {
	idx := t.slot(name)
	for t.entries[idx].filled {
		if t.entries[idx].name == name {
			return t.entries[idx].id, true
		}
		idx++
		if idx >= t.capacity {
			idx = 0
		}
	}
	return 0, false
}

// Add resolves name to its assigned id, allocating a new one if name has
// not been seen before.
func (t *Table) Add(name string) ID {
	if id, ok := t.ID(name); ok {
		return id
	}

	if uint64(len(t.names))+1 >= t.capacity/2 {
		t.resize(t.capacity * 2)
	}

	id := ID(len(t.names))

	idx := t.slot(name)
	for t.entries[idx].filled {
		idx++
		if idx >= t.capacity {
			idx = 0
		}
	}
	t.entries[idx] = entry{name: name, id: id, filled: true}

	t.names = append(t.names, name)
	return id
}

// Name returns the name assigned to id, or "" if id is out of range.
func (t *Table) Name(id ID) string {
	if int(id) >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// Len returns the number of distinct contigs registered.
func (t *Table) Len() int {
	return len(t.names)
}
