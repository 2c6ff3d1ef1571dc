package annotate

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/svchain/sv"
)

// Centromeres maps a chromosome name to its centromere position.
type Centromeres map[string]int

// Arm returns the arm of chrom holding pos. Positions before the centromere
// are on P. Unknown chromosomes yield UnknownArm.
func (c Centromeres) Arm(chrom string, pos int) sv.Arm {
	cen, ok := c[chrom]
	if !ok {
		return sv.UnknownArm
	}
	if pos < cen {
		return sv.P
	}
	return sv.Q
}

// Opts configures Annotate.
type Opts struct {
	// LineMargin is the distance from a LINE region within which a breakend
	// is flagged as a suspected LINE insertion.
	LineMargin int
	// FragileMargin is the corresponding distance for fragile sites.
	FragileMargin int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	LineMargin:    5000,
	FragileMargin: 0,
}

// Stats counts the annotations made by Annotate.
type Stats struct {
	ArmsAssigned  int
	LineElements  int
	FragileSites  int
	UnknownChroms int
}

// Annotate sets the arm of every breakend whose arm is unknown, and the
// LINE element and fragile site flags. regions and cen may be nil.
func Annotate(tab *sv.Table, regions *RegionIndex, cen Centromeres, opts Opts) Stats {
	var st Stats
	unknown := map[string]bool{}
	lo, hi := tab.IDRange()
	for id := lo; id < hi; id++ {
		v := tab.Get(id)
		for _, s := range sv.Sides {
			if !v.HasSide(s) {
				continue
			}
			loc := v.At(s)
			if cen != nil && loc.Arm == sv.UnknownArm {
				if loc.Arm = cen.Arm(loc.Chrom, loc.Pos); loc.Arm != sv.UnknownArm {
					st.ArmsAssigned++
				} else if !unknown[loc.Chrom] {
					unknown[loc.Chrom] = true
					st.UnknownChroms++
					log.Debug.Printf("annotate: no centromere for chromosome %s", loc.Chrom)
				}
			}
			if regions == nil {
				continue
			}
			if regions.Contains(LineElement, loc.Chrom, loc.Pos, opts.LineMargin) {
				v.LineElement[s] = true
				st.LineElements++
			}
			if regions.Contains(FragileSite, loc.Chrom, loc.Pos, opts.FragileMargin) {
				v.FragileSite[s] = true
				st.FragileSites++
			}
		}
	}
	return st
}
