package cluster

import (
	"fmt"

	"github.com/grailbio/svchain/sv"
)

// ArmClusterType is the local breakend topology of an arm cluster.
type ArmClusterType uint8

const (
	// Single is a lone breakend, or both breakends of one variant.
	Single ArmClusterType = iota
	// RemoteTI is two breakends joined by a templated insertion.
	RemoteTI
	// DSB is two breakends joined by a deletion bridge.
	DSB
	// MultipleDSB is three or more breakends mostly joined by deletion
	// bridges.
	MultipleDSB
	// Foldback is two breakends forming one foldback.
	Foldback
	FoldbackDSB
	FoldbackTI
	FoldbackPairSameOrientation
	FoldbackPairFacing
	FoldbackPairOpposing
	ComplexFoldback
	// ComplexLine contains a suspected mobile element insertion.
	ComplexLine
	ComplexOther
	// NumArmClusterTypes is the number of ArmClusterType values.
	NumArmClusterTypes
)

var armClusterTypeNames = [NumArmClusterTypes]string{
	"SINGLE",
	"REMOTE_TI",
	"DSB",
	"MULTIPLE_DSB",
	"FOLDBACK",
	"FOLDBACK_DSB",
	"FOLDBACK_TI",
	"FOLDBACK_PAIR_SAME_ORIENT",
	"FOLDBACK_PAIR_FACING",
	"FOLDBACK_PAIR_OPPOSING",
	"COMPLEX_FOLDBACK",
	"COMPLEX_LINE",
	"COMPLEX_OTHER",
}

func (t ArmClusterType) String() string {
	if t < NumArmClusterTypes {
		return armClusterTypeNames[t]
	}
	return fmt.Sprintf("armclustertype(%d)", t)
}

// ArmCluster is a run of mutually proximate breakends on one chromosome arm
// of a cluster.
type ArmCluster struct {
	ID    int
	Chrom string
	Arm   sv.Arm
	// Breakends is sorted by position.
	Breakends     []sv.Breakend
	MinCopyNumber float64
	MaxCopyNumber float64
	Type          ArmClusterType
}

func newArmCluster(tab *sv.Table, chrom string, arm sv.Arm, bes []sv.Breakend) *ArmCluster {
	ac := &ArmCluster{Chrom: chrom, Arm: arm, Breakends: bes}
	ac.update(tab)
	return ac
}

func (ac *ArmCluster) update(tab *sv.Table) {
	sv.SortBreakends(ac.Breakends)
	for i, be := range ac.Breakends {
		cn := tab.Get(be.Ref.ID).At(be.Ref.Side).CopyNumber
		if i == 0 || cn < ac.MinCopyNumber {
			ac.MinCopyNumber = cn
		}
		if i == 0 || cn > ac.MaxCopyNumber {
			ac.MaxCopyNumber = cn
		}
	}
}

// Has reports whether the arm cluster contains the breakend.
func (ac *ArmCluster) Has(ref sv.BreakendRef) bool {
	for _, be := range ac.Breakends {
		if be.Ref == ref {
			return true
		}
	}
	return false
}

func (ac *ArmCluster) String() string {
	return fmt.Sprintf("armcluster %d %s%s %s %d breakends cn=[%.2f,%.2f]",
		ac.ID, ac.Chrom, ac.Arm, ac.Type, len(ac.Breakends), ac.MinCopyNumber, ac.MaxCopyNumber)
}

// splitArmGroup partitions the group's breakends wherever two
// position-adjacent breakends are more than maxGap apart.
func splitArmGroup(tab *sv.Table, g *ArmGroup, maxGap int) []*ArmCluster {
	var (
		out []*ArmCluster
		cur []sv.Breakend
	)
	for _, be := range g.Breakends {
		if len(cur) > 0 && be.Pos-cur[len(cur)-1].Pos > maxGap {
			out = append(out, newArmCluster(tab, g.Chrom, g.Arm, cur))
			cur = nil
		}
		cur = append(cur, be)
	}
	if len(cur) > 0 {
		out = append(out, newArmCluster(tab, g.Chrom, g.Arm, cur))
	}
	return out
}

// foldbackLinked reports whether a breakend of a has a foldback partner in b.
func foldbackLinked(tab *sv.Table, a, b *ArmCluster) bool {
	for _, be := range a.Breakends {
		if p := tab.Get(be.Ref.ID).Foldback[be.Ref.Side].Partner; p.Valid() && b.Has(p) {
			return true
		}
	}
	return false
}

// MergeArmClusters merges arm clusters on the same chromosome arm that are
// connected by a foldback, until no such pair remains. The breakends of the
// later cluster move into the earlier one. Merged clusters are updated in
// place; the returned list holds the survivors in their original order.
func MergeArmClusters(tab *sv.Table, list []*ArmCluster) []*ArmCluster {
	out := append([]*ArmCluster(nil), list...)
	for merged := true; merged; {
		merged = false
	outer:
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				a, b := out[i], out[j]
				if a.Chrom != b.Chrom || a.Arm != b.Arm {
					continue
				}
				if !foldbackLinked(tab, a, b) && !foldbackLinked(tab, b, a) {
					continue
				}
				a.Breakends = append(a.Breakends, b.Breakends...)
				a.update(tab)
				out = append(out[:j], out[j+1:]...)
				merged = true
				break outer
			}
		}
	}
	return out
}

// linkCounts tallies how consecutive breakends of an arm cluster are
// connected. Each consecutive pair is counted once, under the first of
// foldback, dsb, ti or consec that applies.
type linkCounts struct {
	foldback, dsb, ti, consec, suspectLine int
}

// pairLinked reports whether some instance of a is joined by a TI (ti set)
// or DB link to some instance of b's breakend.
func pairLinked(tab *sv.Table, a, b sv.BreakendRef, ti bool) bool {
	for _, id := range tab.Instances(a.ID) {
		v := tab.Get(id)
		link := v.DBLink[a.Side]
		if ti {
			link = v.TILink[a.Side]
		}
		if link == nil {
			continue
		}
		other := link.OtherBreakend(sv.BreakendRef{ID: id, Side: a.Side})
		if other.Side == b.Side && tab.SameOrigin(other.ID, b.ID) {
			return true
		}
	}
	return false
}

func countLinks(tab *sv.Table, bes []sv.Breakend) linkCounts {
	var n linkCounts
	for i, be := range bes {
		v := tab.Get(be.Ref.ID)
		if v.LineElement[be.Ref.Side] {
			n.suspectLine++
		}
		if i == 0 {
			continue
		}
		prev := bes[i-1].Ref
		pv := tab.Get(prev.ID)
		switch {
		case pv.Foldback[prev.Side].Partner == be.Ref || v.Foldback[be.Ref.Side].Partner == prev:
			n.foldback++
		case pairLinked(tab, prev, be.Ref, false):
			n.dsb++
		case pairLinked(tab, prev, be.Ref, true):
			n.ti++
		case pv.Consecutive[prev.Side] == be.Ref || v.Consecutive[be.Ref.Side] == prev:
			n.consec++
		}
	}
	return n
}

// ClassifyArmCluster maps a position-sorted breakend sequence to its
// topology type. The result depends only on the breakends and the
// foldback, link, consecutive and line element annotations of their
// variants.
func ClassifyArmCluster(tab *sv.Table, bes []sv.Breakend) ArmClusterType {
	size := len(bes)
	if size == 1 {
		return Single
	}
	if size == 2 {
		a, b := bes[0].Ref, bes[1].Ref
		va := tab.Get(a.ID)
		if va.Foldback[a.Side].Partner == b || tab.Get(b.ID).Foldback[b.Side].Partner == a {
			return Foldback
		}
		if a.ID == b.ID {
			return Single
		}
		if pairLinked(tab, a, b, true) {
			return RemoteTI
		}
	}
	n := countLinks(tab, bes)
	if n.suspectLine > 0 {
		return ComplexLine
	}
	if size == 3 && n.foldback == 1 {
		if n.dsb == 1 {
			return FoldbackDSB
		}
		if n.ti == 1 {
			return FoldbackTI
		}
	}
	if size == 4 && n.foldback == 2 {
		first, last := bes[0].Orient, bes[size-1].Orient
		switch {
		case first == last:
			return FoldbackPairSameOrientation
		case first == 1 && last == -1:
			return FoldbackPairFacing
		default:
			return FoldbackPairOpposing
		}
	}
	if n.foldback == 0 && n.consec == 0 && n.dsb >= size/2 {
		if size == 2 {
			return DSB
		}
		return MultipleDSB
	}
	if n.foldback > 0 {
		return ComplexFoldback
	}
	return ComplexOther
}
