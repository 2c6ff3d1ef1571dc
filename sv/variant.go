package sv

import (
	"fmt"
)

// ID is a dense sequence number (1, 2, 3, ...) assigned to a variant by a
// Table. IDs are valid only within the Table that assigned them.
type ID int32

// InvalidID is never assigned to a variant.
const InvalidID = ID(0)

// Location describes one breakend of a variant.
type Location struct {
	Chrom string
	// Pos is 1-based.
	Pos int
	// Orient is +1 or -1. +1 means the sequence retained at the break lies at
	// lower positions.
	Orient int
	Arm    Arm
	// CopyNumber is the copy number of the segment adjacent to the breakend.
	CopyNumber float64
	// CopyNumberChange is the jump in copy number across the breakend.
	CopyNumberChange float64
}

// BreakendRef identifies one side of one variant. It is comparable and is
// the identity key used everywhere breakend usage is tracked.
type BreakendRef struct {
	ID   ID
	Side Side
}

// Valid reports whether r refers to a variant at all.
func (r BreakendRef) Valid() bool { return r.ID != InvalidID }

func (r BreakendRef) String() string {
	if !r.Valid() {
		return "none"
	}
	return fmt.Sprintf("%d:%s", r.ID, r.Side)
}

// FoldbackLink records that a breakend folds back onto Partner, forming a
// fold-back inversion.
type FoldbackLink struct {
	Partner BreakendRef
	Length  int
	Info    string
}

// Variant is one structural variant. Variants are owned by a Table and
// referred to by ID everywhere else.
type Variant struct {
	ID   ID
	Name string
	Type Type
	// Loc is indexed by Side. Loc[End] is unused for SGL variants.
	Loc    [2]Location
	Ploidy float64

	// ReplicationCount is the number of instances of this variant (the original
	// plus its copies) that may take part in chains.
	ReplicationCount int
	// Original is the variant this one was replicated from, or InvalidID if
	// this is an original.
	Original ID

	// Per-side annotations. Foldback[s].Partner is invalid when the side has
	// no foldback. Consecutive and DuplicateBreakend are set by the duplicate
	// breakend pass of the owning cluster.
	Foldback          [2]FoldbackLink
	DBLink            [2]*LinkedPair
	TILink            [2]*LinkedPair
	Consecutive       [2]BreakendRef
	LineElement       [2]bool
	FragileSite       [2]bool
	DuplicateBreakend [2]bool

	ClusterID      int
	ClusterReasons []string
}

// HasSide reports whether the variant has a breakend on side s.
func (v *Variant) HasSide(s Side) bool {
	return s == Start || v.Type != SGL
}

// At returns the location of side s.
//
// REQUIRES: v.HasSide(s).
func (v *Variant) At(s Side) *Location {
	if !v.HasSide(s) {
		panic(fmt.Sprintf("sv %s (%s) has no %s breakend", v.Name, v.Type, s))
	}
	return &v.Loc[s]
}

// Ref returns the breakend reference of side s.
func (v *Variant) Ref(s Side) BreakendRef { return BreakendRef{v.ID, s} }

// IsReplicated reports whether v is a replicated copy.
func (v *Variant) IsReplicated() bool { return v.Original != InvalidID }

// IsSGL reports whether v is a single-breakend variant.
func (v *Variant) IsSGL() bool { return v.Type == SGL }

// Length is the distance between the breakends of an intra-chromosomal,
// non-BND variant, and zero otherwise.
func (v *Variant) Length() int {
	if v.Type == BND || v.Type == SGL || v.Loc[Start].Chrom != v.Loc[End].Chrom {
		return 0
	}
	return abs(v.Loc[End].Pos - v.Loc[Start].Pos)
}

// IsFoldback reports whether either side carries a foldback link.
func (v *Variant) IsFoldback() bool {
	return v.Foldback[Start].Partner.Valid() || v.Foldback[End].Partner.Valid()
}

// AddClusterReason appends a free-text note explaining why v was clustered.
func (v *Variant) AddClusterReason(reason string) {
	for _, r := range v.ClusterReasons {
		if r == reason {
			return
		}
	}
	v.ClusterReasons = append(v.ClusterReasons, reason)
}

func (v *Variant) String() string {
	if v.Type == SGL {
		return fmt.Sprintf("%s(%s %s:%d:%d)", v.Name, v.Type, v.Loc[Start].Chrom, v.Loc[Start].Pos, v.Loc[Start].Orient)
	}
	return fmt.Sprintf("%s(%s %s:%d:%d %s:%d:%d)", v.Name, v.Type,
		v.Loc[Start].Chrom, v.Loc[Start].Pos, v.Loc[Start].Orient,
		v.Loc[End].Chrom, v.Loc[End].Pos, v.Loc[End].Orient)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
