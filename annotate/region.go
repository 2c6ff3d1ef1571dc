// Package annotate marks variant breakends that fall in known genomic
// regions (LINE elements, fragile sites) and assigns chromosome arms from
// centromere positions.
package annotate

import (
	"fmt"
	"strings"

	"github.com/biogo/store/llrb"
)

// Kind is the type of an annotated region.
type Kind uint8

const (
	// LineElement is a LINE (long interspersed nuclear element) region.
	LineElement Kind = iota
	// FragileSite is a known fragile site.
	FragileSite
)

func (k Kind) String() string {
	switch k {
	case LineElement:
		return "LINE"
	case FragileSite:
		return "FRAGILE"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind parses "LINE" or "FRAGILE".
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(s) {
	case "LINE":
		return LineElement, nil
	case "FRAGILE", "FRAGILE_SITE":
		return FragileSite, nil
	}
	return LineElement, fmt.Errorf("annotate: unknown region kind '%s'", s)
}

// Region is a closed interval [Start, End] on a chromosome.
type Region struct {
	Chrom      string
	Start, End int
	Kind       Kind
}

// interval is the llrb item. Intervals in one tree never overlap.
type interval struct {
	start, end int
}

// Compare compares two intervals by start position for use in llrb.
func (i interval) Compare(c llrb.Comparable) int {
	return i.start - c.(interval).start
}

type treeKey struct {
	chrom string
	kind  Kind
}

// RegionIndex answers point queries against a set of regions. Overlapping
// regions of the same kind are merged on insertion. Thread compatible; safe
// for concurrent lookups once built.
type RegionIndex struct {
	trees map[treeKey]*llrb.Tree
}

// NewRegionIndex creates an index of the given regions.
func NewRegionIndex(regions []Region) *RegionIndex {
	idx := &RegionIndex{trees: map[treeKey]*llrb.Tree{}}
	for _, r := range regions {
		idx.Insert(r)
	}
	return idx
}

// Insert adds a region to the index.
func (idx *RegionIndex) Insert(r Region) {
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	k := treeKey{r.Chrom, r.Kind}
	t := idx.trees[k]
	if t == nil {
		t = &llrb.Tree{}
		idx.trees[k] = t
	}
	iv := interval{r.Start, r.End}
	// Absorb the interval starting at or before iv, and any that start
	// inside it.
	if f := t.Floor(iv); f != nil && f.(interval).end >= iv.start {
		prev := f.(interval)
		t.Delete(prev)
		iv.start = prev.start
		if prev.end > iv.end {
			iv.end = prev.end
		}
	}
	for {
		c := t.Ceil(iv)
		if c == nil || c.(interval).start > iv.end {
			break
		}
		next := c.(interval)
		t.Delete(next)
		if next.end > iv.end {
			iv.end = next.end
		}
	}
	t.Insert(iv)
}

// Contains reports whether pos lies within margin of a region of the given
// kind on chrom.
func (idx *RegionIndex) Contains(kind Kind, chrom string, pos, margin int) bool {
	t := idx.trees[treeKey{chrom, kind}]
	if t == nil {
		return false
	}
	if f := t.Floor(interval{start: pos + margin}); f != nil && f.(interval).end >= pos-margin {
		return true
	}
	return false
}

// Len returns the number of disjoint intervals in the index.
func (idx *RegionIndex) Len() int {
	n := 0
	for _, t := range idx.trees {
		n += t.Len()
	}
	return n
}
