package cluster

import (
	"sort"

	"github.com/grailbio/svchain/sv"
)

// SetUniqueBreakends marks the sides of non-insertion variants whose
// breakend shares its chromosome, orientation and position (within tol) with
// a breakend of another variant. Adjacent breakends of distinct variants in
// such a run are recorded as each other's Consecutive breakend. Replicated
// copies take the marks of their original. It returns the number of marked
// breakends among originals.
func (c *Cluster) SetUniqueBreakends(tol int) int {
	type key struct {
		chrom  string
		orient int
	}
	groups := map[key][]sv.Breakend{}
	for _, id := range c.vars {
		v := c.tab.Get(id)
		if v.IsReplicated() {
			continue
		}
		v.DuplicateBreakend = [2]bool{}
		v.Consecutive = [2]sv.BreakendRef{}
		if v.Type == sv.INS {
			continue
		}
		for _, be := range c.tab.Breakends(id) {
			k := key{be.Chrom, be.Orient}
			groups[k] = append(groups[k], be)
		}
	}
	n := 0
	mark := func(run []sv.Breakend) {
		distinct := false
		for _, be := range run[1:] {
			if be.Ref.ID != run[0].Ref.ID {
				distinct = true
				break
			}
		}
		if !distinct {
			return
		}
		for i, be := range run {
			v := c.tab.Get(be.Ref.ID)
			v.DuplicateBreakend[be.Ref.Side] = true
			n++
			if i == 0 || run[i-1].Ref.ID == be.Ref.ID {
				continue
			}
			prev := c.tab.Get(run[i-1].Ref.ID)
			if !prev.Consecutive[run[i-1].Ref.Side].Valid() {
				prev.Consecutive[run[i-1].Ref.Side] = be.Ref
			}
			if !v.Consecutive[be.Ref.Side].Valid() {
				v.Consecutive[be.Ref.Side] = run[i-1].Ref
			}
		}
	}
	for _, bes := range groups {
		sort.Slice(bes, func(i, j int) bool { return bes[i].Less(bes[j]) })
		start := 0
		for i := 1; i <= len(bes); i++ {
			if i < len(bes) && bes[i].Pos-bes[i-1].Pos <= tol {
				continue
			}
			if i-start > 1 {
				mark(bes[start:i])
			}
			start = i
		}
	}
	for _, id := range c.vars {
		if v := c.tab.Get(id); v.IsReplicated() {
			o := c.tab.Get(v.Original)
			v.DuplicateBreakend = o.DuplicateBreakend
			v.Consecutive = o.Consecutive
		}
	}
	c.duplicates = n
	c.dirty = true
	return n
}
