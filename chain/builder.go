package chain

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/svchain/sv"
)

// Opts controls chain building.
type Opts struct {
	// Consistency scores chains. Nil means ArmOrientationConsistency.
	Consistency ConsistencyFunc
	// ChainingSVLimit is the maximum number of unique variants in a cluster
	// for which inferred (non-assembled) pairs are chained. Zero disables the
	// limit.
	ChainingSVLimit int
	// Debug selects variants whose chaining decisions are logged.
	Debug sv.DebugFilter
}

// DefaultOpts is the default chain building configuration.
var DefaultOpts = Opts{
	ChainingSVLimit: 2000,
}

// Builder grows a set of chains from candidate linked pairs. Each pair is
// tried against the current chains; the outcome is kept only if it is
// valid. Thread compatible.
type Builder struct {
	tab    *sv.Table
	opts   Opts
	chains []*Chain
	used   map[sv.BreakendRef]bool
	nextID int

	rejected int
}

// NewBuilder creates a builder with no chains.
func NewBuilder(tab *sv.Table, opts Opts) *Builder {
	if opts.Consistency == nil {
		opts.Consistency = ArmOrientationConsistency
	}
	return &Builder{tab: tab, opts: opts, used: map[sv.BreakendRef]bool{}}
}

// findEnd returns the index of the open chain with ref as an exposed end, or
// -1.
func (b *Builder) findEnd(ref sv.BreakendRef) (int, End) {
	for i, c := range b.chains {
		if c.Closed() {
			continue
		}
		if c.FrontBreakend() == ref {
			return i, Front
		}
		if c.BackBreakend() == ref {
			return i, Back
		}
	}
	return -1, Front
}

func (b *Builder) debug(p sv.LinkedPair) bool {
	return b.opts.Debug.MatchSV(b.tab, b.tab.Get(p.First.ID)) ||
		b.opts.Debug.MatchSV(b.tab, b.tab.Get(p.Second.ID))
}

// Add tries to attach p to the current chains: closing a chain, joining two
// chains, extending one, or starting a new one. It reports whether p was
// accepted. Accepted TI and DB pairs are recorded on their variants. DBE
// pairs and pairs reusing a breakend are rejected.
func (b *Builder) Add(p sv.LinkedPair) bool {
	if p.Type == sv.DBE {
		return false
	}
	if b.used[p.First] || b.used[p.Second] {
		b.rejected++
		return false
	}
	ia, ea := b.findEnd(p.First)
	ib, eb := b.findEnd(p.Second)
	var (
		next *Chain
		ok   bool
	)
	switch {
	case ia >= 0 && ia == ib:
		next, ok = b.chains[ia].AddLink(p, Back)
	case ia >= 0 && ib >= 0:
		next, ok = Join(b.chains[ia], b.chains[ib], p)
	case ia >= 0:
		next, ok = b.chains[ia].AddLink(p, ea)
	case ib >= 0:
		next, ok = b.chains[ib].AddLink(p, eb)
	default:
		next, ok = New(b.nextID, b.tab, b.opts.Consistency).AddLink(p, Back)
	}
	if !ok {
		b.rejected++
		if b.debug(p) {
			log.Printf("chain: rejected %v: %v", p, next)
		}
		return false
	}
	switch {
	case ia >= 0 && ib >= 0 && ia != ib:
		b.chains[ia] = next
		b.chains = append(b.chains[:ib], b.chains[ib+1:]...)
	case ia >= 0:
		b.chains[ia] = next
	case ib >= 0:
		b.chains[ib] = next
	default:
		b.chains = append(b.chains, next)
		b.nextID++
	}
	b.used[p.First] = true
	b.used[p.Second] = true
	b.tab.SetLink(p)
	if b.debug(p) {
		log.Printf("chain: added %v: %v", p, next)
	}
	return true
}

// Build adds the pairs in priority order: assembled pairs in their given
// order, then inferred pairs by ascending length. Inferred pairs are
// skipped when uniqueSVs exceeds the chaining limit. It returns the
// resulting chains.
func (b *Builder) Build(pairs []sv.LinkedPair, uniqueSVs int) []*Chain {
	var assembled, inferred []sv.LinkedPair
	for _, p := range pairs {
		if p.Assembled {
			assembled = append(assembled, p)
		} else {
			inferred = append(inferred, p)
		}
	}
	sort.SliceStable(inferred, func(i, j int) bool { return inferred[i].Length < inferred[j].Length })
	for _, p := range assembled {
		b.Add(p)
	}
	if b.opts.ChainingSVLimit > 0 && uniqueSVs > b.opts.ChainingSVLimit {
		log.Debug.Printf("chain: %d unique SVs exceed limit %d, skipping %d inferred pairs",
			uniqueSVs, b.opts.ChainingSVLimit, len(inferred))
	} else {
		for _, p := range inferred {
			b.Add(p)
		}
	}
	return b.Chains()
}

// Chains returns the current chains with structural duplicates removed.
func (b *Builder) Chains() []*Chain {
	seen := map[Fingerprint][]*Chain{}
	var out []*Chain
	for _, c := range b.chains {
		fp := c.Fingerprint()
		dup := false
		for _, o := range seen[fp] {
			if c.IsIdentical(o) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[fp] = append(seen[fp], c)
		out = append(out, c)
	}
	return out
}

// Used reports whether the breakend is part of an accepted pair.
func (b *Builder) Used(ref sv.BreakendRef) bool { return b.used[ref] }

// Rejected returns the number of non-DBE pairs that could not be added.
func (b *Builder) Rejected() int { return b.rejected }
