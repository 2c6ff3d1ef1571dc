package cluster

import (
	"fmt"

	"github.com/grailbio/svchain/sv"
)

// ResolutionType describes how completely a cluster is explained by its
// chains.
type ResolutionType uint8

const (
	// Unresolved clusters match none of the other types.
	Unresolved ResolutionType = iota
	// SimpleSV is a lone deletion, duplication or insertion.
	SimpleSV
	// ReciprocalTranslocation is two translocations between the same
	// chromosomes joined by deletion bridges.
	ReciprocalTranslocation
	// DelDupInternalTI is two variants joined by one templated insertion that
	// lies inside the span of their outer breakends.
	DelDupInternalTI
	// DelDupExternalTI is like DelDupInternalTI with the insertion outside.
	DelDupExternalTI
	// SimpleChain is a fully chained, consistent cluster linked only by
	// templated insertions, without replicated variants.
	SimpleChain
	// ComplexChain is any other fully chained, consistent cluster.
	ComplexChain
	// NumResolutionTypes is the number of ResolutionType values.
	NumResolutionTypes
)

var resolutionNames = [NumResolutionTypes]string{
	"NONE", "SIMPLE_SV", "RECIP_TRANS", "DEL_DUP_INT_TI", "DEL_DUP_EXT_TI", "SIMPLE_CHAIN", "COMPLEX_CHAIN",
}

func (r ResolutionType) String() string {
	if r < NumResolutionTypes {
		return resolutionNames[r]
	}
	return fmt.Sprintf("resolution(%d)", r)
}

// Resolved reports whether r is not Unresolved.
func (r ResolutionType) Resolved() bool { return r != Unresolved }

// Resolve determines the resolution type from the variants and the current
// chains.
func (c *Cluster) Resolve() ResolutionType {
	var originals []*sv.Variant
	for _, id := range c.vars {
		if v := c.tab.Get(id); !v.IsReplicated() {
			originals = append(originals, v)
		}
	}
	switch len(originals) {
	case 1:
		switch originals[0].Type {
		case sv.DEL, sv.DUP, sv.INS:
			return SimpleSV
		}
	case 2:
		if isReciprocalTranslocation(originals[0], originals[1]) {
			return ReciprocalTranslocation
		}
		if r := c.delDupWithTI(); r != Unresolved {
			return r
		}
	}
	if len(c.chains) == 0 || len(c.Unchained()) > 0 || !c.IsConsistent() {
		return Unresolved
	}
	for _, ch := range c.chains {
		if ch.HasReplicatedSVs() {
			return ComplexChain
		}
		for _, p := range ch.Pairs() {
			if p.Type != sv.TI {
				return ComplexChain
			}
		}
	}
	return SimpleChain
}

func isReciprocalTranslocation(a, b *sv.Variant) bool {
	if a.Type != sv.BND || b.Type != sv.BND {
		return false
	}
	sameChroms := (a.Loc[sv.Start].Chrom == b.Loc[sv.Start].Chrom && a.Loc[sv.End].Chrom == b.Loc[sv.End].Chrom) ||
		(a.Loc[sv.Start].Chrom == b.Loc[sv.End].Chrom && a.Loc[sv.End].Chrom == b.Loc[sv.Start].Chrom)
	if !sameChroms {
		return false
	}
	for _, s := range sv.Sides {
		if p := a.DBLink[s]; p != nil && p.HasVariant(b.ID) {
			return true
		}
	}
	return false
}

// delDupWithTI checks for a single chain of two variants joined by one TI,
// which together act as a deletion or duplication with a templated
// insertion.
func (c *Cluster) delDupWithTI() ResolutionType {
	if len(c.chains) != 1 {
		return Unresolved
	}
	ch := c.chains[0]
	if ch.Closed() || ch.NumPairs() != 1 || ch.Pairs()[0].Type != sv.TI {
		return Unresolved
	}
	ti := ch.Pairs()[0]
	outer1, outer2 := c.tab.Breakend(ch.FrontBreakend()), c.tab.Breakend(ch.BackBreakend())
	ti1, ti2 := c.tab.Breakend(ti.First), c.tab.Breakend(ti.Second)
	if outer1.Chrom != outer2.Chrom || ti1.Chrom != outer1.Chrom || ti2.Chrom != outer1.Chrom {
		return Unresolved
	}
	lo, hi := outer1.Pos, outer2.Pos
	if lo > hi {
		lo, hi = hi, lo
	}
	tiLo, tiHi := ti1.Pos, ti2.Pos
	if tiLo > tiHi {
		tiLo, tiHi = tiHi, tiLo
	}
	if tiLo > lo && tiHi < hi {
		return DelDupInternalTI
	}
	return DelDupExternalTI
}
