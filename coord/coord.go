// Package coord provides the scaffolding shared by every engine in this
// module: a half-open interval record ordered by (start, end), and the
// overlap predicate used to decide whether two such records intersect.
//
// Bounds is satisfied by any type exposing a start and an end coordinate,
// so a query interval never needs to be the same concrete type as a stored
// one: a tree keyed on a fat record type can still be queried with a bare
// Span.
package coord

import "golang.org/x/exp/constraints"

// Ordered is the coordinate type every engine in this module is generic
// over.
type Ordered = constraints.Ordered

// Bounds is implemented by any half-open interval [Lo, Hi).
type Bounds[C Ordered] interface {
	Lo() C
	Hi() C
}

// Span is the minimal concrete interval: just a [Start, End) pair, with no
// payload. It is what queries are made of, and is also a valid value to
// store directly when no payload is needed.
type Span[C Ordered] struct {
	Start, End C
}

// NewSpan builds a Span, panicking if start > end: a malformed interval is
// a caller-contract violation, not a recoverable condition.
func NewSpan[C Ordered](start, end C) Span[C] {
	if start > end {
		panic("coord: start must not be greater than end")
	}
	return Span[C]{Start: start, End: end}
}

// Lo implements Bounds.
func (s Span[C]) Lo() C { return s.Start }

// Hi implements Bounds.
func (s Span[C]) Hi() C { return s.End }

// Less orders two Spans lexicographically by (Start, End), the total order
// used for rank and for exact-key lookups.
func Less[C Ordered](a, b Span[C]) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// Overlaps reports whether a and b overlap under half-open semantics:
// adjacency (a.Hi == b.Lo) is not overlap, and a zero-length interval
// overlaps nothing, including another zero-length interval at the same
// point.
func Overlaps[C Ordered, A Bounds[C], B Bounds[C]](a A, b B) bool {
	return a.Lo() < a.Hi() && b.Lo() < b.Hi() && a.Lo() < b.Hi() && b.Lo() < a.Hi()
}
