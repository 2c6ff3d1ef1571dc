package cluster

import (
	"testing"

	"github.com/grailbio/svchain/sv"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

type loc struct {
	chrom  string
	pos    int
	orient int
	arm    sv.Arm
}

func addVar(t *testing.T, tab *sv.Table, name string, typ sv.Type, start, end loc) sv.ID {
	v := sv.Variant{Name: name, Type: typ, Ploidy: 1}
	v.Loc[sv.Start] = sv.Location{Chrom: start.chrom, Pos: start.pos, Orient: start.orient, Arm: start.arm, CopyNumber: 2}
	if typ != sv.SGL {
		v.Loc[sv.End] = sv.Location{Chrom: end.chrom, Pos: end.pos, Orient: end.orient, Arm: end.arm, CopyNumber: 2}
	}
	id, err := tab.Add(v)
	assert.NoError(t, err)
	return id
}

func ref(id sv.ID, s sv.Side) sv.BreakendRef { return sv.BreakendRef{ID: id, Side: s} }

func setFoldback(tab *sv.Table, a, b sv.BreakendRef) {
	tab.Get(a.ID).Foldback[a.Side] = sv.FoldbackLink{Partner: b, Length: 100}
	tab.Get(b.ID).Foldback[b.Side] = sv.FoldbackLink{Partner: a, Length: 100}
}

func link(t *testing.T, tab *sv.Table, a, b sv.BreakendRef, typ sv.LinkType) sv.LinkedPair {
	p, err := sv.NewLinkedPair(tab, a, b, typ)
	assert.NoError(t, err)
	tab.SetLink(p)
	return p
}

func breakends(tab *sv.Table, refs ...sv.BreakendRef) []sv.Breakend {
	var bes []sv.Breakend
	for _, r := range refs {
		bes = append(bes, tab.Breakend(r))
	}
	sv.SortBreakends(bes)
	return bes
}

// foldbackInv adds an inversion whose two breakends fold back on each other.
func foldbackInv(t *testing.T, tab *sv.Table, name string, start, end, orient int) sv.ID {
	id := addVar(t, tab, name, sv.INV, loc{"1", start, orient, sv.P}, loc{"1", end, orient, sv.P})
	setFoldback(tab, ref(id, sv.Start), ref(id, sv.End))
	return id
}

func remoteBND(t *testing.T, tab *sv.Table, name string, pos, orient int) sv.ID {
	return addVar(t, tab, name, sv.BND, loc{"1", pos, orient, sv.P}, loc{"5", 1000000 + pos, 1, sv.Q})
}

func TestClassifySingle(t *testing.T) {
	tab := sv.NewTable()
	s := addVar(t, tab, "s", sv.SGL, loc{"1", 100, 1, sv.P}, loc{})
	expect.EQ(t, ClassifyArmCluster(tab, breakends(tab, ref(s, sv.Start))), Single)

	d := addVar(t, tab, "d", sv.DEL, loc{"1", 1000, 1, sv.P}, loc{"1", 1200, -1, sv.P})
	expect.EQ(t, ClassifyArmCluster(tab, breakends(tab, ref(d, sv.Start), ref(d, sv.End))), Single)
}

func TestClassifyTwoBreakends(t *testing.T) {
	tab := sv.NewTable()
	f := foldbackInv(t, tab, "f", 1000, 1100, 1)
	expect.EQ(t, ClassifyArmCluster(tab, breakends(tab, ref(f, sv.Start), ref(f, sv.End))), Foldback)

	a := remoteBND(t, tab, "a", 5000, 1)
	b := remoteBND(t, tab, "b", 5100, -1)
	link(t, tab, ref(a, sv.Start), ref(b, sv.Start), sv.TI)
	expect.EQ(t, ClassifyArmCluster(tab, breakends(tab, ref(a, sv.Start), ref(b, sv.Start))), RemoteTI)

	c := remoteBND(t, tab, "c", 9000, 1)
	d := remoteBND(t, tab, "d", 9050, -1)
	link(t, tab, ref(c, sv.Start), ref(d, sv.Start), sv.DB)
	expect.EQ(t, ClassifyArmCluster(tab, breakends(tab, ref(c, sv.Start), ref(d, sv.Start))), DSB)

	e := remoteBND(t, tab, "e", 12000, 1)
	g := remoteBND(t, tab, "g", 12050, -1)
	expect.EQ(t, ClassifyArmCluster(tab, breakends(tab, ref(e, sv.Start), ref(g, sv.Start))), ComplexOther)
}

func TestClassifyFoldbackDSB(t *testing.T) {
	tab := sv.NewTable()
	f := foldbackInv(t, tab, "f", 1000, 1100, 1)
	x := remoteBND(t, tab, "x", 1150, -1)
	link(t, tab, ref(f, sv.End), ref(x, sv.Start), sv.DB)
	bes := breakends(tab, ref(f, sv.Start), ref(f, sv.End), ref(x, sv.Start))
	expect.EQ(t, ClassifyArmCluster(tab, bes), FoldbackDSB)
}

func TestClassifyFoldbackTI(t *testing.T) {
	tab := sv.NewTable()
	x := remoteBND(t, tab, "x", 800, 1)
	f := foldbackInv(t, tab, "f", 1000, 1100, -1)
	link(t, tab, ref(x, sv.Start), ref(f, sv.Start), sv.TI)
	bes := breakends(tab, ref(f, sv.Start), ref(f, sv.End), ref(x, sv.Start))
	expect.EQ(t, ClassifyArmCluster(tab, bes), FoldbackTI)
}

func TestClassifyFoldbackPairs(t *testing.T) {
	for _, test := range []struct {
		o1, o2 int
		want   ArmClusterType
	}{
		{1, -1, FoldbackPairFacing},
		{1, 1, FoldbackPairSameOrientation},
		{-1, -1, FoldbackPairSameOrientation},
		{-1, 1, FoldbackPairOpposing},
	} {
		tab := sv.NewTable()
		f1 := foldbackInv(t, tab, "f1", 1000, 1100, test.o1)
		f2 := foldbackInv(t, tab, "f2", 1200, 1300, test.o2)
		bes := breakends(tab, ref(f1, sv.Start), ref(f1, sv.End), ref(f2, sv.Start), ref(f2, sv.End))
		expect.EQ(t, ClassifyArmCluster(tab, bes), test.want, "orientations %d %d", test.o1, test.o2)
	}
}

func TestClassifyComplex(t *testing.T) {
	tab := sv.NewTable()
	a := remoteBND(t, tab, "a", 1000, 1)
	b := remoteBND(t, tab, "b", 1050, -1)
	c := remoteBND(t, tab, "c", 1500, 1)
	link(t, tab, ref(a, sv.Start), ref(b, sv.Start), sv.DB)
	bes := breakends(tab, ref(a, sv.Start), ref(b, sv.Start), ref(c, sv.Start))
	expect.EQ(t, ClassifyArmCluster(tab, bes), MultipleDSB)

	// A consecutive marker blocks the DSB classification.
	tab.Get(b).Consecutive[sv.Start] = ref(c, sv.Start)
	expect.EQ(t, ClassifyArmCluster(tab, bes), ComplexOther)

	// Line elements take precedence.
	tab.Get(c).LineElement[sv.Start] = true
	expect.EQ(t, ClassifyArmCluster(tab, bes), ComplexLine)

	tab2 := sv.NewTable()
	f := foldbackInv(t, tab2, "f", 1000, 1100, 1)
	x := remoteBND(t, tab2, "x", 1500, 1)
	y := remoteBND(t, tab2, "y", 1600, 1)
	bes = breakends(tab2, ref(f, sv.Start), ref(f, sv.End), ref(x, sv.Start), ref(y, sv.Start))
	expect.EQ(t, ClassifyArmCluster(tab2, bes), ComplexFoldback)
}

func TestClassifyIdempotent(t *testing.T) {
	tab := sv.NewTable()
	f := foldbackInv(t, tab, "f", 1000, 1100, 1)
	x := remoteBND(t, tab, "x", 1150, -1)
	link(t, tab, ref(f, sv.End), ref(x, sv.Start), sv.DB)
	bes := breakends(tab, ref(f, sv.Start), ref(f, sv.End), ref(x, sv.Start))
	saved := append([]sv.Breakend(nil), bes...)
	first := ClassifyArmCluster(tab, bes)
	for i := 0; i < 3; i++ {
		expect.EQ(t, ClassifyArmCluster(tab, bes), first)
	}
	expect.EQ(t, bes, saved)
}

func TestMergeArmClusters(t *testing.T) {
	tab := sv.NewTable()
	// A foldback whose breakends are far apart on 1p.
	f := addVar(t, tab, "f", sv.INV, loc{"1", 1000, 1, sv.P}, loc{"1", 50000, 1, sv.P})
	setFoldback(tab, ref(f, sv.Start), ref(f, sv.End))
	a := remoteBND(t, tab, "a", 1200, -1)
	b := remoteBND(t, tab, "b", 90000, -1)
	q := addVar(t, tab, "q", sv.DEL, loc{"1", 1000, 1, sv.Q}, loc{"1", 2000, -1, sv.Q})

	list := []*ArmCluster{
		newArmCluster(tab, "1", sv.P, breakends(tab, ref(f, sv.Start), ref(a, sv.Start))),
		newArmCluster(tab, "1", sv.Q, breakends(tab, ref(q, sv.Start), ref(q, sv.End))),
		newArmCluster(tab, "1", sv.P, breakends(tab, ref(f, sv.End))),
		newArmCluster(tab, "1", sv.P, breakends(tab, ref(b, sv.Start))),
	}
	once := MergeArmClusters(tab, list)
	assert.EQ(t, len(once), 3)
	expect.EQ(t, len(once[0].Breakends), 3)
	expect.EQ(t, once[0].Breakends[2].Ref, ref(f, sv.End))
	expect.EQ(t, once[1].Arm, sv.Q)

	twice := MergeArmClusters(tab, once)
	assert.EQ(t, len(twice), len(once))
	for i := range once {
		expect.True(t, twice[i] == once[i])
		expect.EQ(t, len(twice[i].Breakends), len(once[i].Breakends))
	}
}

func TestSplitArmGroup(t *testing.T) {
	tab := sv.NewTable()
	a := addVar(t, tab, "a", sv.DEL, loc{"1", 1000, 1, sv.P}, loc{"1", 2000, -1, sv.P})
	b := addVar(t, tab, "b", sv.DEL, loc{"1", 9000, 1, sv.P}, loc{"1", 9500, -1, sv.P})
	tab.Get(b).Loc[sv.End].CopyNumber = 3.5
	g := &ArmGroup{Chrom: "1", Arm: sv.P}
	g.add(tab, tab.Get(a))
	g.add(tab, tab.Get(b))
	g.setOpenBreakends(tab)
	acs := splitArmGroup(tab, g, 5000)
	assert.EQ(t, len(acs), 2)
	expect.EQ(t, len(acs[0].Breakends), 2)
	expect.EQ(t, acs[1].MinCopyNumber, 2.0)
	expect.EQ(t, acs[1].MaxCopyNumber, 3.5)
	expect.EQ(t, len(splitArmGroup(tab, g, 10000)), 1)
}
