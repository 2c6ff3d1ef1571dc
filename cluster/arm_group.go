package cluster

import (
	"fmt"
	"math"

	"github.com/grailbio/svchain/sv"
)

// ArmGroup summarizes the breakends of a cluster on one chromosome arm.
type ArmGroup struct {
	Chrom          string
	Arm            sv.Arm
	MinPos, MaxPos int
	Variants       []sv.ID
	// Breakends is sorted by position once the owning cluster is recomputed.
	Breakends []sv.Breakend
	// OpenBreakends holds the lowest and highest breakends that are not part
	// of a TI or DB link. It has zero, one or two elements.
	OpenBreakends []sv.Breakend
}

func (g *ArmGroup) matches(loc *sv.Location) bool {
	return g.Chrom == loc.Chrom && g.Arm == loc.Arm
}

// add records the breakends of v that lie on this arm.
func (g *ArmGroup) add(tab *sv.Table, v *sv.Variant) {
	added := false
	for _, s := range sv.Sides {
		if !v.HasSide(s) || !g.matches(v.At(s)) {
			continue
		}
		be := tab.Breakend(v.Ref(s))
		if len(g.Breakends) == 0 || be.Pos < g.MinPos {
			g.MinPos = be.Pos
		}
		if len(g.Breakends) == 0 || be.Pos > g.MaxPos {
			g.MaxPos = be.Pos
		}
		g.Breakends = append(g.Breakends, be)
		added = true
	}
	if added {
		g.Variants = append(g.Variants, v.ID)
	}
}

// linked reports whether any instance of ref's variant has a TI or DB link
// on ref's side.
func linked(tab *sv.Table, ref sv.BreakendRef) bool {
	for _, id := range tab.Instances(ref.ID) {
		v := tab.Get(id)
		if v.TILink[ref.Side] != nil || v.DBLink[ref.Side] != nil {
			return true
		}
	}
	return false
}

// setOpenBreakends sorts the breakends and finds the open ones.
func (g *ArmGroup) setOpenBreakends(tab *sv.Table) {
	sv.SortBreakends(g.Breakends)
	g.OpenBreakends = g.OpenBreakends[:0]
	lo, hi := -1, -1
	for i, be := range g.Breakends {
		if linked(tab, be.Ref) {
			continue
		}
		if lo < 0 {
			lo = i
		}
		hi = i
	}
	if lo >= 0 {
		g.OpenBreakends = append(g.OpenBreakends, g.Breakends[lo])
	}
	if hi > lo {
		g.OpenBreakends = append(g.OpenBreakends, g.Breakends[hi])
	}
}

// IsConsistent reports whether the arm group is balanced: it has no open
// breakends, or its two open breakends face outward (the lowest with
// orientation +1, the highest with -1) with copy numbers within tol.
func (g *ArmGroup) IsConsistent(tab *sv.Table, tol float64) bool {
	switch len(g.OpenBreakends) {
	case 0:
		return true
	case 2:
		lo, hi := g.OpenBreakends[0], g.OpenBreakends[1]
		if lo.Orient != 1 || hi.Orient != -1 {
			return false
		}
		cnLo := tab.Get(lo.Ref.ID).At(lo.Ref.Side).CopyNumber
		cnHi := tab.Get(hi.Ref.ID).At(hi.Ref.Side).CopyNumber
		return math.Abs(cnLo-cnHi) <= tol
	}
	return false
}

func (g *ArmGroup) String() string {
	return fmt.Sprintf("%s%s:%d-%d variants=%d breakends=%d open=%d",
		g.Chrom, g.Arm, g.MinPos, g.MaxPos, len(g.Variants), len(g.Breakends), len(g.OpenBreakends))
}
