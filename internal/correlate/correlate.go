package correlate

import (
	"math"

	"github.com/pptlabs/pastelink/internal/snapshot"
)

// NoMatch is the original index of a pasted element that has no counterpart.
const NoMatch = -1

// DefaultEpsilon is the tolerance used when comparing geometry.
const DefaultEpsilon = 1e-3

// Pass identifies which scan produced a match.
type Pass int

const (
	// PassNone means neither scan found a candidate.
	PassNone Pass = iota
	// PassStrong compares size, kind, name class and position.
	PassStrong
	// PassWeak drops the position constraint.
	PassWeak
	// PassOrdinal pairs slides by their position in the copy and paste.
	PassOrdinal
)

// String returns the string representation of the pass.
func (p Pass) String() string {
	switch p {
	case PassStrong:
		return "strong"
	case PassWeak:
		return "weak"
	case PassOrdinal:
		return "ordinal"
	default:
		return "none"
	}
}

// Match pairs one pasted element with an original.
type Match struct {
	Original int // index into the originals, or NoMatch
	Pass     Pass
}

// Matched reports whether the pasted element found an original.
func (m Match) Matched() bool {
	return m.Original != NoMatch
}

// Mapping holds one Match per pasted element, in paste order.
type Mapping []Match

// Matched returns how many pasted elements found an original.
func (m Mapping) Matched() int {
	n := 0
	for _, match := range m {
		if match.Matched() {
			n++
		}
	}
	return n
}

// Options tune the matching scans.
type Options struct {
	Epsilon float64
}

func (o Options) epsilon() float64 {
	if o.Epsilon <= 0 {
		return DefaultEpsilon
	}
	return o.Epsilon
}

// Correlate matches pasted shapes to originals.
//
// Originals must be in ascending ID order, which is the order the scans walk
// them. Pasted shapes are processed in the given order; for each one the
// strong scan runs first, then the weak scan, and the first unconsumed
// original that qualifies is taken. An original is consumed at most once, so
// the resulting mapping is injective. The assignment is greedy: it can
// mis-pair shapes when several originals are equally plausible.
func Correlate(originals, pasted []snapshot.Shape, opts Options) Mapping {
	eps := opts.epsilon()
	consumed := make(map[int]struct{}, len(originals))
	mapping := make(Mapping, len(pasted))

	for i, p := range pasted {
		mapping[i] = Match{Original: NoMatch, Pass: PassNone}

		if idx := scan(originals, p, consumed, eps, true); idx != NoMatch {
			mapping[i] = Match{Original: idx, Pass: PassStrong}
		} else if idx := scan(originals, p, consumed, eps, false); idx != NoMatch {
			mapping[i] = Match{Original: idx, Pass: PassWeak}
		} else {
			continue
		}
		consumed[originals[mapping[i].Original].ID] = struct{}{}
	}

	return mapping
}

func scan(originals []snapshot.Shape, p snapshot.Shape, consumed map[int]struct{}, eps float64, strong bool) int {
	for i, o := range originals {
		if _, ok := consumed[o.ID]; ok {
			continue
		}
		if !similarShape(p, o, eps) || !SameNameClass(p.Name, o.Name) {
			continue
		}
		if strong && (!near(p.Left, o.Left, eps) || !near(p.Height, o.Height, eps)) {
			continue
		}
		return i
	}
	return NoMatch
}

func similarShape(a, b snapshot.Shape, eps float64) bool {
	return near(a.Width, b.Width, eps) &&
		near(a.Height, b.Height, eps) &&
		a.SameKind(b)
}

func near(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

// CorrelateSlides maps pasted slides to copied slides by ordinal: the i-th
// pasted slide corresponds to the i-th copied slide. Pasted slides beyond the
// copied count are left unmatched.
func CorrelateSlides(copied []snapshot.Slide, pastedCount int) Mapping {
	mapping := make(Mapping, pastedCount)
	for i := range mapping {
		if i < len(copied) {
			mapping[i] = Match{Original: i, Pass: PassOrdinal}
			continue
		}
		mapping[i] = Match{Original: NoMatch, Pass: PassNone}
	}
	return mapping
}
