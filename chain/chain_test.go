package chain

import (
	"testing"

	"github.com/grailbio/svchain/sv"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/grailbio/testutil/h"
)

func addSV(t *testing.T, tab *sv.Table, name string, typ sv.Type, start, end int) sv.ID {
	v := sv.Variant{Name: name, Type: typ}
	o1, o2 := 1, -1
	if typ == sv.DUP {
		o1, o2 = -1, 1
	}
	v.Loc[sv.Start] = sv.Location{Chrom: "1", Pos: start, Orient: o1, Arm: sv.P}
	v.Loc[sv.End] = sv.Location{Chrom: "1", Pos: end, Orient: o2, Arm: sv.P}
	id, err := tab.Add(v)
	assert.NoError(t, err)
	return id
}

func ref(id sv.ID, s sv.Side) sv.BreakendRef { return sv.BreakendRef{ID: id, Side: s} }

func pair(t *testing.T, tab *sv.Table, a sv.ID, as sv.Side, b sv.ID, bs sv.Side, typ sv.LinkType) sv.LinkedPair {
	p, err := sv.NewLinkedPair(tab, ref(a, as), ref(b, bs), typ)
	assert.NoError(t, err)
	return p
}

// checkInvariants verifies the pair/side bookkeeping of a chain.
func checkInvariants(t *testing.T, c *Chain) {
	t.Helper()
	vars, pairs := c.Variants(), c.Pairs()
	n := len(vars)
	if c.Closed() {
		expect.EQ(t, len(pairs), n)
	} else {
		expect.EQ(t, len(pairs), n-1)
	}
	for i := 0; i < n-1; i++ {
		expect.EQ(t, pairs[i].First, ref(vars[i], c.ExposedSide(i)))
		expect.EQ(t, pairs[i].Second, ref(vars[i+1], c.LinkSide(i+1)))
		expect.EQ(t, c.LinkSide(i+1), c.ExposedSide(i+1).Other())
	}
	if c.Closed() {
		last := pairs[n-1]
		expect.EQ(t, last.First, ref(vars[n-1], c.ExposedSide(n-1)))
		expect.EQ(t, last.Second, ref(vars[0], c.LinkSide(0)))
	}
	used := map[sv.BreakendRef]int{}
	for _, p := range pairs {
		used[p.First]++
		used[p.Second]++
	}
	for r, n := range used {
		expect.EQ(t, n, 1, "breakend %v", r)
	}
}

func TestTwoVariantChain(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "A", sv.DEL, 100, 200)
	b := addSV(t, tab, "B", sv.DUP, 150, 250)
	p := pair(t, tab, a, sv.End, b, sv.Start, sv.TI)

	empty := New(1, tab, nil)
	c, ok := empty.AddLink(p, Back)
	expect.True(t, ok)
	expect.True(t, empty.Empty())
	expect.That(t, c.Variants(), h.ElementsAre(a, b))
	expect.False(t, c.Closed())
	expect.EQ(t, c.Length(), 50)
	expect.EQ(t, c.Consistency(), 0)
	expect.True(t, c.IsConsistent())
	expect.EQ(t, c.FrontBreakend(), ref(a, sv.Start))
	expect.EQ(t, c.BackBreakend(), ref(b, sv.End))
	checkInvariants(t, c)
}

func TestAddLinkBothEnds(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "a", sv.DEL, 100, 200)
	b := addSV(t, tab, "b", sv.DEL, 300, 400)
	c := addSV(t, tab, "c", sv.DEL, 500, 600)
	d := addSV(t, tab, "d", sv.DEL, 700, 800)

	ch, ok := New(1, tab, nil).AddLink(pair(t, tab, b, sv.End, c, sv.Start, sv.TI), Back)
	assert.True(t, ok)
	// The pair is given in reverse and gets normalized.
	front, ok := ch.AddLink(pair(t, tab, b, sv.Start, a, sv.End, sv.TI), Front)
	assert.True(t, ok)
	expect.That(t, front.Variants(), h.ElementsAre(a, b, c))
	checkInvariants(t, front)
	expect.EQ(t, ch.NumPairs(), 1)

	full, ok := front.AddLink(pair(t, tab, d, sv.Start, c, sv.End, sv.TI), Back)
	assert.True(t, ok)
	expect.That(t, full.Variants(), h.ElementsAre(a, b, c, d))
	checkInvariants(t, full)
	// 3 pair lengths of 100, plus b and c.
	expect.EQ(t, full.Length(), 500)
	expect.EQ(t, full.Consistency(), 0)

	expect.True(t, full.CanAddToFront(pair(t, tab, a, sv.Start, d, sv.End, sv.TI)))
	expect.True(t, full.CanClose(pair(t, tab, a, sv.Start, d, sv.End, sv.TI)))
	expect.False(t, full.CanAddToBack(pair(t, tab, c, sv.Start, d, sv.End, sv.TI)))
}

func TestClosedChain(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "a", sv.DEL, 100, 200)
	b := addSV(t, tab, "b", sv.DEL, 300, 400)
	c := addSV(t, tab, "c", sv.DEL, 500, 600)

	ch, ok := New(1, tab, nil).AddLink(pair(t, tab, a, sv.End, b, sv.Start, sv.TI), Back)
	assert.True(t, ok)
	ch, ok = ch.AddLink(pair(t, tab, b, sv.End, c, sv.Start, sv.TI), Back)
	assert.True(t, ok)
	closing := pair(t, tab, a, sv.Start, c, sv.End, sv.DB)
	expect.True(t, ch.CanClose(closing))
	// Closure happens whichever end is named.
	closed, ok := ch.AddLink(closing, Front)
	assert.True(t, ok)
	expect.True(t, closed.Closed())
	checkInvariants(t, closed)
	expect.EQ(t, closed.Length(), 100+100+500+3*100)

	// Nothing can be added to a closed chain.
	d := addSV(t, tab, "d", sv.DEL, 700, 800)
	next, ok := closed.AddLink(pair(t, tab, d, sv.Start, c, sv.End, sv.TI), Back)
	expect.False(t, ok)
	expect.False(t, next.Valid())
	expect.True(t, closed.Valid())

	rev := closed.Reverse()
	expect.True(t, rev.Closed())
	checkInvariants(t, rev)
	expect.True(t, closed.IsIdentical(rev))
	expect.EQ(t, closed.Fingerprint(), rev.Fingerprint())
}

func TestSelfLinkedVariant(t *testing.T) {
	tab := sv.NewTable()
	d := addSV(t, tab, "d", sv.DUP, 100, 300)
	ch, ok := New(1, tab, nil).AddLink(pair(t, tab, d, sv.End, d, sv.Start, sv.TI), Back)
	assert.True(t, ok)
	expect.True(t, ch.Closed())
	expect.That(t, ch.Variants(), h.ElementsAre(d))
	checkInvariants(t, ch)
	checkInvariants(t, ch.Reverse())
}

func TestAddLinkInvalid(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "a", sv.DEL, 100, 200)
	b := addSV(t, tab, "b", sv.DEL, 300, 400)
	c := addSV(t, tab, "c", sv.DEL, 500, 600)
	d := addSV(t, tab, "d", sv.DEL, 700, 800)
	e := addSV(t, tab, "e", sv.DEL, 900, 1000)

	ch, ok := New(1, tab, nil).AddLink(pair(t, tab, a, sv.End, b, sv.Start, sv.TI), Back)
	assert.True(t, ok)
	ch, ok = ch.AddLink(pair(t, tab, b, sv.End, c, sv.Start, sv.TI), Back)
	assert.True(t, ok)
	ch, ok = ch.AddLink(pair(t, tab, c, sv.End, d, sv.Start, sv.TI), Back)
	assert.True(t, ok)

	// Links back into the middle of the chain.
	bad := pair(t, tab, d, sv.End, b, sv.Start, sv.TI)
	expect.False(t, ch.CanAddToBack(bad))
	next, ok := ch.AddLink(bad, Back)
	expect.False(t, ok)
	expect.False(t, next.Valid())
	expect.True(t, ch.Valid())

	// Reuses breakends already linked inside the chain.
	next, ok = ch.AddLink(pair(t, tab, c, sv.Start, b, sv.End, sv.TI), Back)
	expect.False(t, ok)
	expect.False(t, next.Valid())

	// Does not touch the end being extended.
	_, ok = ch.AddLink(pair(t, tab, e, sv.Start, d, sv.End, sv.TI), Front)
	expect.False(t, ok)
	_, ok = ch.AddLink(pair(t, tab, e, sv.Start, d, sv.End, sv.TI), Back)
	expect.True(t, ok)
}

func TestReplicatedVariant(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "a", sv.DEL, 100, 200)
	r := addSV(t, tab, "r", sv.DUP, 300, 400)
	b := addSV(t, tab, "b", sv.DEL, 500, 600)
	c := addSV(t, tab, "c", sv.DEL, 700, 800)
	ids := tab.Replicate(r, 2)
	r1 := ids[1]

	pairs := []sv.LinkedPair{
		pair(t, tab, a, sv.End, r, sv.Start, sv.TI),
		pair(t, tab, r, sv.End, b, sv.Start, sv.TI),
		pair(t, tab, b, sv.End, r1, sv.Start, sv.TI),
		pair(t, tab, r1, sv.End, c, sv.Start, sv.TI),
	}
	ch := New(1, tab, nil)
	for _, p := range pairs {
		var ok bool
		ch, ok = ch.AddLink(p, Back)
		assert.True(t, ok)
	}
	expect.That(t, ch.Variants(), h.ElementsAre(a, r, b, r1, c))
	expect.True(t, ch.HasReplicatedSVs())
	checkInvariants(t, ch)

	// With a replication count of 1 the two copies may not both use their
	// start breakend.
	for _, id := range ids {
		tab.Get(id).ReplicationCount = 1
	}
	ch = New(2, tab, nil)
	var ok bool
	for _, p := range pairs[:2] {
		ch, ok = ch.AddLink(p, Back)
		assert.True(t, ok)
	}
	ch, ok = ch.AddLink(pairs[2], Back)
	expect.False(t, ok)
	expect.False(t, ch.Valid())
}

func TestBreakendsAreChained(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "a", sv.DEL, 100, 200)
	b := addSV(t, tab, "b", sv.DEL, 300, 400)
	c := addSV(t, tab, "c", sv.DEL, 500, 600)
	ch, _ := New(1, tab, nil).AddLink(pair(t, tab, a, sv.End, b, sv.Start, sv.TI), Back)
	ch, _ = ch.AddLink(pair(t, tab, b, sv.End, c, sv.Start, sv.TI), Back)

	expect.True(t, ch.BreakendsAreChained(ref(a, sv.End), ref(c, sv.Start)))
	expect.True(t, ch.BreakendsAreChained(ref(c, sv.Start), ref(a, sv.End)))
	expect.False(t, ch.BreakendsAreChained(ref(a, sv.Start), ref(c, sv.Start)))
	expect.False(t, ch.BreakendsAreChained(ref(a, sv.Start), ref(c, sv.End)))

	closed, ok := ch.AddLink(pair(t, tab, c, sv.End, a, sv.Start, sv.DB), Back)
	assert.True(t, ok)
	expect.True(t, closed.BreakendsAreChained(ref(a, sv.Start), ref(c, sv.End)))
}

func TestJoinAndReverse(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "a", sv.DEL, 100, 200)
	b := addSV(t, tab, "b", sv.DEL, 300, 400)
	c := addSV(t, tab, "c", sv.DEL, 500, 600)
	d := addSV(t, tab, "d", sv.DEL, 700, 800)
	c1, _ := New(1, tab, nil).AddLink(pair(t, tab, a, sv.End, b, sv.Start, sv.TI), Back)
	c2, _ := New(2, tab, nil).AddLink(pair(t, tab, d, sv.Start, c, sv.End, sv.TI), Back)
	// c2 runs c<-d; Join must flip it.
	c2 = c2.Reverse()
	checkInvariants(t, c2)

	j, ok := Join(c1.Reverse(), c2, pair(t, tab, c, sv.Start, b, sv.End, sv.TI))
	assert.True(t, ok)
	expect.EQ(t, j.ID(), 1)
	expect.That(t, j.Variants(), h.ElementsAre(a, b, c, d))
	checkInvariants(t, j)
	expect.True(t, j.IsIdentical(j.Reverse()))
	expect.EQ(t, j.Fingerprint(), j.Reverse().Fingerprint())
	expect.False(t, j.IsIdentical(c1))
	expect.True(t, j.Reverse().Reverse().IsIdentical(j))
}

func TestArmOrientationConsistency(t *testing.T) {
	tab := sv.NewTable()
	a := addSV(t, tab, "a", sv.DEL, 100, 200)
	v := sv.Variant{Name: "bnd", Type: sv.BND}
	v.Loc[sv.Start] = sv.Location{Chrom: "1", Pos: 1000, Orient: 1, Arm: sv.P}
	v.Loc[sv.End] = sv.Location{Chrom: "2", Pos: 5000, Orient: 1, Arm: sv.Q}
	bnd, err := tab.Add(v)
	assert.NoError(t, err)
	s := sv.Variant{Name: "sgl", Type: sv.SGL}
	s.Loc[sv.Start] = sv.Location{Chrom: "3", Pos: 10, Orient: -1, Arm: sv.Q}
	sgl, err := tab.Add(s)
	assert.NoError(t, err)

	expect.EQ(t, ArmOrientationConsistency(tab, []sv.ID{a}), 0)
	expect.EQ(t, ArmOrientationConsistency(tab, []sv.ID{bnd}), 0)
	expect.EQ(t, ArmOrientationConsistency(tab, []sv.ID{sgl}), 1)
	expect.EQ(t, ArmOrientationConsistency(tab, []sv.ID{a, bnd, sgl}), 1)
}
