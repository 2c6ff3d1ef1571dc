package sv

import (
	"fmt"
	"sort"
)

// Breakend is an immutable view of one side of a variant.
type Breakend struct {
	Ref    BreakendRef
	Chrom  string
	Pos    int
	Orient int
	Arm    Arm
}

// Less orders breakends by chromosome and position. Ties are broken by
// orientation and then by reference so that sorting is deterministic.
func (b Breakend) Less(o Breakend) bool {
	if b.Chrom != o.Chrom {
		return b.Chrom < o.Chrom
	}
	if b.Pos != o.Pos {
		return b.Pos < o.Pos
	}
	if b.Orient != o.Orient {
		return b.Orient < o.Orient
	}
	if b.Ref.ID != o.Ref.ID {
		return b.Ref.ID < o.Ref.ID
	}
	return b.Ref.Side < o.Ref.Side
}

// SameLocation reports whether the two breakends sit on the same chromosome
// with the same orientation, no more than tolerance bases apart.
func (b Breakend) SameLocation(o Breakend, tolerance int) bool {
	return b.Chrom == o.Chrom && b.Orient == o.Orient && abs(b.Pos-o.Pos) <= tolerance
}

func (b Breakend) String() string {
	return fmt.Sprintf("%s@%s:%d:%d", b.Ref, b.Chrom, b.Pos, b.Orient)
}

// SortBreakends sorts in place using Breakend.Less.
func SortBreakends(bes []Breakend) {
	sort.Slice(bes, func(i, j int) bool { return bes[i].Less(bes[j]) })
}
