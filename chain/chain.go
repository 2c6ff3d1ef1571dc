package chain

import (
	"fmt"
	"strings"

	"github.com/grailbio/svchain/sv"
)

// End selects the end of a chain at which a link is added.
type End uint8

const (
	// Front is the end holding the lowest-indexed variant.
	Front End = iota
	// Back is the end holding the highest-indexed variant.
	Back
)

func (e End) String() string {
	if e == Front {
		return "front"
	}
	return "back"
}

// Chain is an ordered sequence of linked pairs and the variants they join.
// A Chain is an immutable snapshot: AddLink, Reverse and Join return new
// chains and never modify the receiver, so a caller can discard an invalid
// outcome and keep using the previous snapshot.
//
// For an open chain with variants v[0..n-1], pair i joins the front side of
// v[i] (First) to the link side of v[i+1] (Second). A closed chain has one
// more pair, joining the front side of v[n-1] to the link side of v[0].
type Chain struct {
	id          int
	tab         *sv.Table
	consistency ConsistencyFunc

	pairs []sv.LinkedPair
	vars  []sv.ID
	// linkSide[i] is the side of vars[i] facing vars[i-1]. For vars[0] of an
	// open chain it is the exposed side at the front.
	linkSide []sv.Side
	closed   bool
	valid    bool

	consistencyCount int
	length           int
}

// New creates an empty chain. If fn is nil, ArmOrientationConsistency is
// used.
func New(id int, tab *sv.Table, fn ConsistencyFunc) *Chain {
	if fn == nil {
		fn = ArmOrientationConsistency
	}
	return &Chain{id: id, tab: tab, consistency: fn, valid: true}
}

// ID returns the chain id.
func (c *Chain) ID() int { return c.id }

// WithID returns a copy of c with a different id.
func (c *Chain) WithID(id int) *Chain {
	n := c.clone()
	n.id = id
	return n
}

// Pairs returns the linked pairs in chain order. The caller must not modify
// the result.
func (c *Chain) Pairs() []sv.LinkedPair { return c.pairs }

// Variants returns the variants in chain order. The caller must not modify
// the result.
func (c *Chain) Variants() []sv.ID { return c.vars }

// NumPairs returns the number of linked pairs.
func (c *Chain) NumPairs() int { return len(c.pairs) }

// Empty reports whether the chain has no links.
func (c *Chain) Empty() bool { return len(c.pairs) == 0 }

// LinkSide returns the side of the i'th variant that faces the (i-1)'th
// variant, or the open front of the chain.
func (c *Chain) LinkSide(i int) sv.Side { return c.linkSide[i] }

// ExposedSide returns the side of the i'th variant that faces the (i+1)'th
// variant, or the open back of the chain. It is always the complement of
// LinkSide(i).
func (c *Chain) ExposedSide(i int) sv.Side { return c.linkSide[i].Other() }

// Closed reports whether the back of the chain links to its front.
func (c *Chain) Closed() bool { return c.closed }

// Valid reports whether the chain is free of clashing breakend usage and was
// never closed inconsistently. Invalid chains must be discarded.
func (c *Chain) Valid() bool { return c.valid }

// Consistency returns the chain's consistency count. Zero means the chain is
// ploidy-consistent.
func (c *Chain) Consistency() int { return c.consistencyCount }

// IsConsistent reports whether Consistency() is zero.
func (c *Chain) IsConsistent() bool { return c.consistencyCount == 0 }

// Length returns the sum of the pair lengths plus the lengths of the
// interior variants.
func (c *Chain) Length() int { return c.length }

// FrontBreakend returns the exposed breakend at the front of an open,
// non-empty chain.
func (c *Chain) FrontBreakend() sv.BreakendRef {
	return sv.BreakendRef{ID: c.vars[0], Side: c.linkSide[0]}
}

// BackBreakend returns the exposed breakend at the back of an open,
// non-empty chain.
func (c *Chain) BackBreakend() sv.BreakendRef {
	n := len(c.vars) - 1
	return sv.BreakendRef{ID: c.vars[n], Side: c.linkSide[n].Other()}
}

func (c *Chain) endBreakend(e End) sv.BreakendRef {
	if e == Front {
		return c.FrontBreakend()
	}
	return c.BackBreakend()
}

// Index returns the position of the variant in the chain, or -1.
func (c *Chain) Index(id sv.ID) int {
	for i, v := range c.vars {
		if v == id {
			return i
		}
	}
	return -1
}

// Contains reports whether the variant is part of the chain.
func (c *Chain) Contains(id sv.ID) bool { return c.Index(id) >= 0 }

func (c *Chain) clone() *Chain {
	n := *c
	n.pairs = append([]sv.LinkedPair(nil), c.pairs...)
	n.vars = append([]sv.ID(nil), c.vars...)
	n.linkSide = append([]sv.Side(nil), c.linkSide...)
	return &n
}

func (c *Chain) invalidated() *Chain {
	n := c.clone()
	n.valid = false
	return n
}

// CanAddToFront reports whether p can be attached at the front: it must
// contain the exposed front breakend, and its other variant must not be in
// the chain unless the pair closes the chain.
func (c *Chain) CanAddToFront(p sv.LinkedPair) bool { return c.canAdd(p, Front) }

// CanAddToBack is the Back counterpart of CanAddToFront.
func (c *Chain) CanAddToBack(p sv.LinkedPair) bool { return c.canAdd(p, Back) }

// CanClose reports whether p joins the two exposed ends of the chain.
func (c *Chain) CanClose(p sv.LinkedPair) bool {
	return !c.Empty() && c.CanAddToFront(p) && c.CanAddToBack(p)
}

func (c *Chain) canAdd(p sv.LinkedPair, e End) bool {
	if !c.valid || c.closed {
		return false
	}
	if c.Empty() {
		return true
	}
	be := c.endBreakend(e)
	if !p.HasBreakend(be) {
		return false
	}
	other := p.OtherBreakend(be)
	if !c.Contains(other.ID) {
		return true
	}
	if e == Front {
		return other == c.BackBreakend()
	}
	return other == c.FrontBreakend()
}

// AddLink returns a new chain with p attached at the given end, and whether
// the new chain is valid. If p joins the two exposed ends, the new chain is
// closed regardless of e. A pair that does not touch the exposed breakend at
// e, or that links back into the chain anywhere but at the two exposed ends,
// yields an invalid chain. The receiver is not modified.
func (c *Chain) AddLink(p sv.LinkedPair, e End) (*Chain, bool) {
	if !c.valid || c.closed {
		return c.invalidated(), false
	}
	n := c.clone()
	if n.Empty() {
		n.pairs = append(n.pairs, p)
		if p.IsSameVariant() {
			// A variant linked to its own other side, e.g. a duplication
			// forming a closed loop on its own.
			n.vars = append(n.vars, p.First.ID)
			n.linkSide = append(n.linkSide, p.Second.Side)
			n.closed = true
		} else {
			n.vars = append(n.vars, p.First.ID, p.Second.ID)
			n.linkSide = append(n.linkSide, p.First.Side.Other(), p.Second.Side)
		}
		n.update()
		return n, n.valid
	}

	front, back := n.FrontBreakend(), n.BackBreakend()
	if p.HasBreakend(front) && p.HasBreakend(back) {
		if p.First != back {
			p = p.Switched()
		}
		n.pairs = append(n.pairs, p)
		n.closed = true
		n.update()
		return n, n.valid
	}

	be := n.endBreakend(e)
	if !p.HasBreakend(be) {
		return c.invalidated(), false
	}
	other := p.OtherBreakend(be)
	if n.Contains(other.ID) {
		// Both variants are already in the chain, but not at the two ends.
		return c.invalidated(), false
	}
	switch e {
	case Back:
		if p.First != be {
			p = p.Switched()
		}
		n.pairs = append(n.pairs, p)
		n.vars = append(n.vars, other.ID)
		n.linkSide = append(n.linkSide, other.Side)
	case Front:
		if p.Second != be {
			p = p.Switched()
		}
		n.pairs = append([]sv.LinkedPair{p}, n.pairs...)
		n.vars = append([]sv.ID{other.ID}, n.vars...)
		n.linkSide = append([]sv.Side{other.Side.Other()}, n.linkSide...)
	}
	n.update()
	return n, n.valid
}

// update recomputes validity, consistency and length.
func (c *Chain) update() {
	c.setIsValid()
	c.consistencyCount = c.consistency(c.tab, c.vars)
	c.length = 0
	for _, p := range c.pairs {
		c.length += p.Length
	}
	for i, id := range c.vars {
		if !c.closed && (i == 0 || i == len(c.vars)-1) {
			continue
		}
		c.length += c.tab.Get(id).Length()
	}
}

// setIsValid rescans all pairs for breakends used more than once. Replicated
// copies are distinct breakends, but the breakends of one original may not
// be used more often than its replication count.
func (c *Chain) setIsValid() {
	if !c.valid {
		return
	}
	used := make(map[sv.BreakendRef]bool, 2*len(c.pairs))
	originUse := map[sv.BreakendRef]int{}
	for _, p := range c.pairs {
		for _, ref := range [2]sv.BreakendRef{p.First, p.Second} {
			if used[ref] {
				c.valid = false
				return
			}
			used[ref] = true
			orig := sv.BreakendRef{ID: c.tab.Original(ref.ID), Side: ref.Side}
			originUse[orig]++
			limit := c.tab.Get(orig.ID).ReplicationCount
			if limit < 1 {
				limit = 1
			}
			if originUse[orig] > limit {
				c.valid = false
				return
			}
		}
	}
}

// IsIdentical reports whether the two chains describe the same structure:
// both closed with the same set of pairs, or both open with the same exposed
// breakends (in either direction).
func (c *Chain) IsIdentical(o *Chain) bool {
	if c.closed != o.closed || c.Empty() || o.Empty() {
		return false
	}
	if c.closed {
		if len(c.pairs) != len(o.pairs) {
			return false
		}
		for _, p := range c.pairs {
			found := false
			for _, q := range o.pairs {
				if p.Matches(q, false) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	f1, b1 := c.FrontBreakend(), c.BackBreakend()
	f2, b2 := o.FrontBreakend(), o.BackBreakend()
	return (f1 == f2 && b1 == b2) || (f1 == b2 && b1 == f2)
}

// BreakendsAreChained reports whether the two breakends face each other
// through the chain: walking from the lower-indexed variant to the higher,
// the first breakend faces up the chain and the second faces down. In a
// closed chain the connection may also run through the closing link.
func (c *Chain) BreakendsAreChained(a, b sv.BreakendRef) bool {
	ia, ib := c.Index(a.ID), c.Index(b.ID)
	if ia < 0 || ib < 0 || ia == ib {
		return false
	}
	if ia > ib {
		a, b = b, a
		ia, ib = ib, ia
	}
	facesUp := func(i int, ref sv.BreakendRef) bool { return ref.Side == c.linkSide[i].Other() }
	if facesUp(ia, a) && !facesUp(ib, b) {
		return true
	}
	return c.closed && !facesUp(ia, a) && facesUp(ib, b)
}

// HasReplicatedSVs reports whether two variants in the chain are replicated
// copies of each other.
func (c *Chain) HasReplicatedSVs() bool {
	seen := map[sv.ID]bool{}
	for _, id := range c.vars {
		o := c.tab.Original(id)
		if seen[o] {
			return true
		}
		seen[o] = true
	}
	return false
}

// Reverse returns the chain traversed in the opposite direction.
func (c *Chain) Reverse() *Chain {
	n := c.clone()
	nv := len(c.vars)
	for j := 0; j < nv; j++ {
		i := nv - 1 - j
		n.vars[j] = c.vars[i]
		n.linkSide[j] = c.linkSide[i].Other()
	}
	open := len(c.pairs)
	if c.closed {
		open--
	}
	for j := 0; j < open; j++ {
		n.pairs[j] = c.pairs[open-1-j].Switched()
	}
	if c.closed {
		n.pairs[open] = c.pairs[open].Switched()
	}
	return n
}

// Join merges two open chains through link, which must join an exposed
// breakend of a to an exposed breakend of b. The result keeps a's id. Like
// AddLink, it returns the new chain and whether it is valid.
func Join(a, b *Chain, link sv.LinkedPair) (*Chain, bool) {
	if a.Empty() || b.Empty() || a.closed || b.closed || !a.valid || !b.valid {
		return a.invalidated(), false
	}
	if !link.HasBreakend(a.BackBreakend()) {
		if !link.HasBreakend(a.FrontBreakend()) {
			return a.invalidated(), false
		}
		a = a.Reverse()
	}
	other := link.OtherBreakend(a.BackBreakend())
	switch other {
	case b.FrontBreakend():
	case b.BackBreakend():
		b = b.Reverse()
	default:
		return a.invalidated(), false
	}
	n, ok := a.AddLink(link, Back)
	for _, p := range b.pairs {
		if !ok {
			break
		}
		n, ok = n.AddLink(p, Back)
	}
	return n, ok
}

func (c *Chain) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "chain %d", c.id)
	if c.closed {
		buf.WriteString(" closed")
	}
	if !c.valid {
		buf.WriteString(" invalid")
	}
	buf.WriteString(" [")
	for i, id := range c.vars {
		if i > 0 {
			fmt.Fprintf(&buf, " %s ", c.pairs[i-1].Type)
		}
		fmt.Fprintf(&buf, "%s(%s>%s)", c.tab.Get(id).Name, c.linkSide[i], c.linkSide[i].Other())
	}
	buf.WriteString("]")
	return buf.String()
}
