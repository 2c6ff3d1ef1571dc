package cluster

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/svchain/chain"
	"github.com/grailbio/svchain/sv"
)

// Cluster holds the variants of one externally determined group of related
// SVs, the candidate linked pairs between them, and the chains, arm groups
// and arm clusters derived from those. Derived state is recomputed lazily
// after AddVariant, MergeOtherCluster, RemoveReplicatedSvs and BuildChains.
//
// Clusters sharing a Table may be analyzed concurrently as long as the table
// itself is not grown (Add, Replicate) at the same time. Thread compatible.
type Cluster struct {
	id      int
	tab     *sv.Table
	opts    Opts
	vars    []sv.ID
	members map[sv.ID]bool
	pairs   []sv.LinkedPair

	chains   []*chain.Chain
	rejected int

	// armGroups hold the breakends of original variants only. Replicated
	// copies share their original's locations.
	armGroups []*ArmGroup
	// duplicates is the result of the last SetUniqueBreakends call.
	duplicates int

	// Lazily computed. Valid when !dirty.
	dirty              bool
	consistency        int
	minCN, maxCN       float64
	inconsistentGroups int
	armClusters        []*ArmCluster
	armTypeCounts      [NumArmClusterTypes]int
}

// New creates an empty cluster.
func New(id int, tab *sv.Table, opts Opts) *Cluster {
	return &Cluster{id: id, tab: tab, opts: opts, members: map[sv.ID]bool{}, dirty: true}
}

// ID returns the cluster id.
func (c *Cluster) ID() int { return c.id }

// Variants returns the ids of all variants in the cluster, replicated
// copies included. The caller must not modify the result.
func (c *Cluster) Variants() []sv.ID { return c.vars }

// LinkedPairs returns the candidate pairs added to the cluster.
func (c *Cluster) LinkedPairs() []sv.LinkedPair { return c.pairs }

// Chains returns the chains built by the last BuildChains call.
func (c *Cluster) Chains() []*chain.Chain { return c.chains }

func (c *Cluster) debug() bool { return c.opts.Debug.MatchCluster(c.id) }

// AddVariant adds the variant to the cluster and to the arm groups of its
// breakends.
func (c *Cluster) AddVariant(id sv.ID) {
	v := c.tab.Get(id)
	v.ClusterID = c.id
	c.vars = append(c.vars, id)
	c.members[id] = true
	c.addToArmGroups(v)
	c.dirty = true
	if c.opts.Debug.MatchSV(c.tab, v) {
		log.Printf("cluster %d: added %v", c.id, v)
	}
}

func (c *Cluster) addToArmGroups(v *sv.Variant) {
	if v.IsReplicated() {
		return
	}
	for _, s := range sv.Sides {
		if !v.HasSide(s) {
			continue
		}
		loc := v.At(s)
		var g *ArmGroup
		for _, ag := range c.armGroups {
			if ag.matches(loc) {
				g = ag
				break
			}
		}
		if g == nil {
			g = &ArmGroup{Chrom: loc.Chrom, Arm: loc.Arm}
			c.armGroups = append(c.armGroups, g)
		}
		if n := len(g.Variants); n == 0 || g.Variants[n-1] != v.ID {
			g.add(c.tab, v)
		}
	}
}

func (c *Cluster) rebuildArmGroups() {
	c.armGroups = nil
	for _, id := range c.vars {
		c.addToArmGroups(c.tab.Get(id))
	}
}

// MergeOtherCluster moves all variants and candidate pairs of o into c. The
// merged cluster takes the id of whichever cluster had more variants. Chains
// and links are dropped and must be rebuilt. o must not be used afterwards.
func (c *Cluster) MergeOtherCluster(o *Cluster) {
	if len(o.vars) > len(c.vars) {
		c.id = o.id
	}
	c.vars = append(c.vars, o.vars...)
	for _, id := range o.vars {
		c.members[id] = true
	}
	c.pairs = append(c.pairs, o.pairs...)
	for _, id := range c.vars {
		c.tab.Get(id).ClusterID = c.id
	}
	c.resetChains()
	c.rebuildArmGroups()
	c.dirty = true
}

func (c *Cluster) resetChains() {
	for _, id := range c.vars {
		v := c.tab.Get(id)
		v.TILink = [2]*sv.LinkedPair{}
		v.DBLink = [2]*sv.LinkedPair{}
	}
	c.chains = nil
	c.rejected = 0
}

// RemoveReplicatedSvs drops all replicated copies from the cluster, along
// with the candidate pairs that reference them, and resets the replication
// count of the remaining variants to 0. Chains are dropped.
func (c *Cluster) RemoveReplicatedSvs() {
	c.resetChains()
	var vars []sv.ID
	for _, id := range c.vars {
		v := c.tab.Get(id)
		if v.IsReplicated() {
			delete(c.members, id)
			continue
		}
		v.ReplicationCount = 0
		vars = append(vars, id)
	}
	c.vars = vars
	var pairs []sv.LinkedPair
	for _, p := range c.pairs {
		if c.tab.Get(p.First.ID).IsReplicated() || c.tab.Get(p.Second.ID).IsReplicated() {
			continue
		}
		pairs = append(pairs, p)
	}
	c.pairs = pairs
	c.rebuildArmGroups()
	c.dirty = true
}

// UniqueSVCount returns the number of variants, not counting replicated
// copies.
func (c *Cluster) UniqueSVCount() int {
	n := 0
	for _, id := range c.vars {
		if !c.tab.Get(id).IsReplicated() {
			n++
		}
	}
	return n
}

// Contains reports whether the variant belongs to the cluster.
func (c *Cluster) Contains(id sv.ID) bool { return c.members[id] }

// AddLinkedPairs adds candidate pairs. It fails without adding anything if a
// pair references a variant outside the cluster or a missing side.
func (c *Cluster) AddLinkedPairs(pairs []sv.LinkedPair) error {
	for _, p := range pairs {
		for _, ref := range [2]sv.BreakendRef{p.First, p.Second} {
			if err := c.tab.CheckRef(ref); err != nil {
				return errors.E(err, fmt.Sprintf("cluster %d: pair %v", c.id, p))
			}
			if !c.Contains(ref.ID) {
				return errors.E(errors.Invalid,
					fmt.Sprintf("cluster %d: pair %v references %s from cluster %d",
						c.id, p, c.tab.Get(ref.ID).Name, c.tab.Get(ref.ID).ClusterID))
			}
		}
	}
	c.pairs = append(c.pairs, pairs...)
	return nil
}

// BuildChains rebuilds the chains from the candidate pairs, replacing any
// earlier chains and links.
func (c *Cluster) BuildChains() []*chain.Chain {
	c.resetChains()
	opts := c.opts.Chain
	if len(c.opts.Debug.SVs) > 0 {
		opts.Debug = c.opts.Debug
	}
	b := chain.NewBuilder(c.tab, opts)
	c.chains = b.Build(c.pairs, c.UniqueSVCount())
	c.rejected = b.Rejected()
	for i, ch := range c.chains {
		c.chains[i] = ch.WithID(i)
	}
	c.dirty = true
	if c.debug() {
		for _, ch := range c.chains {
			log.Printf("cluster %d: %v", c.id, ch)
		}
	}
	return c.chains
}

// Unchained returns the variants that are not part of any chain.
func (c *Cluster) Unchained() []sv.ID {
	chained := map[sv.ID]bool{}
	for _, ch := range c.chains {
		for _, id := range ch.Variants() {
			chained[id] = true
		}
	}
	var ids []sv.ID
	for _, id := range c.vars {
		if !chained[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Cluster) recompute() {
	if !c.dirty {
		return
	}
	fn := c.opts.Chain.Consistency
	if fn == nil {
		fn = chain.ArmOrientationConsistency
	}
	c.consistency = fn(c.tab, c.vars)
	first := true
	for _, id := range c.vars {
		v := c.tab.Get(id)
		for _, s := range sv.Sides {
			if !v.HasSide(s) {
				continue
			}
			cn := v.At(s).CopyNumber
			if first || cn < c.minCN {
				c.minCN = cn
			}
			if first || cn > c.maxCN {
				c.maxCN = cn
			}
			first = false
		}
	}
	sort.SliceStable(c.armGroups, func(i, j int) bool {
		a, b := c.armGroups[i], c.armGroups[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		return a.Arm < b.Arm
	})
	var acs []*ArmCluster
	c.inconsistentGroups = 0
	for _, g := range c.armGroups {
		g.setOpenBreakends(c.tab)
		if !g.IsConsistent(c.tab, c.opts.CopyNumberTolerance) {
			c.inconsistentGroups++
			if c.debug() {
				log.Printf("cluster %d: inconsistent arm group %v", c.id, g)
			}
		}
		acs = append(acs, splitArmGroup(c.tab, g, c.opts.ProximityDistance)...)
	}
	c.armClusters = MergeArmClusters(c.tab, acs)
	c.armTypeCounts = [NumArmClusterTypes]int{}
	for i, ac := range c.armClusters {
		ac.ID = i
		ac.Type = ClassifyArmCluster(c.tab, ac.Breakends)
		c.armTypeCounts[ac.Type]++
		if c.debug() {
			log.Printf("cluster %d: %v", c.id, ac)
		}
	}
	c.dirty = false
}

// ConsistencyCount returns the consistency count over all variants.
func (c *Cluster) ConsistencyCount() int {
	c.recompute()
	return c.consistency
}

// IsConsistent reports whether ConsistencyCount is zero.
func (c *Cluster) IsConsistent() bool { return c.ConsistencyCount() == 0 }

// MinCopyNumber returns the lowest breakend copy number in the cluster.
func (c *Cluster) MinCopyNumber() float64 {
	c.recompute()
	return c.minCN
}

// MaxCopyNumber returns the highest breakend copy number in the cluster.
func (c *Cluster) MaxCopyNumber() float64 {
	c.recompute()
	return c.maxCN
}

// InconsistentArmGroups returns the number of arm groups that are not
// consistent within Opts.CopyNumberTolerance.
func (c *Cluster) InconsistentArmGroups() int {
	c.recompute()
	return c.inconsistentGroups
}

// DuplicateBreakends returns the number of breakends marked by the last
// SetUniqueBreakends call.
func (c *Cluster) DuplicateBreakends() int { return c.duplicates }

// ArmGroups returns the arm groups, ordered by chromosome and arm.
func (c *Cluster) ArmGroups() []*ArmGroup {
	c.recompute()
	return c.armGroups
}

// ArmClusters returns the classified arm clusters.
func (c *Cluster) ArmClusters() []*ArmCluster {
	c.recompute()
	return c.armClusters
}

// BuildArmClusters forces the arm clusters to be rebuilt from the current
// links and annotations, and returns them.
func (c *Cluster) BuildArmClusters() []*ArmCluster {
	c.dirty = true
	return c.ArmClusters()
}

// ArmClusterTypeCounts returns the number of arm clusters per type.
func (c *Cluster) ArmClusterTypeCounts() [NumArmClusterTypes]int {
	c.recompute()
	return c.armTypeCounts
}

// Summary is the per-cluster result of Analyze.
type Summary struct {
	ID              int
	Variants        int
	UniqueSVs       int
	Chains          int
	ClosedChains    int
	Unchained       int
	Consistency     int
	Resolution      ResolutionType
	MinCopyNumber   float64
	MaxCopyNumber   float64
	ChainSignature  uint64
	// DuplicateBreakends counts the breakends of originals that share their
	// location with a breakend of another variant.
	DuplicateBreakends    int
	InconsistentArmGroups int
	ArmClusterTypes       [NumArmClusterTypes]int
}

// Analyze runs the per-cluster pipeline: duplicate breakend marking, chain
// building, arm cluster classification and resolution typing.
func (c *Cluster) Analyze() (Summary, Stats) {
	c.SetUniqueBreakends(c.opts.DuplicateBreakendTolerance)
	c.BuildChains()
	res := c.Resolve()
	s := Summary{
		ID:              c.id,
		Variants:        len(c.vars),
		UniqueSVs:       c.UniqueSVCount(),
		Chains:          len(c.chains),
		Unchained:       len(c.Unchained()),
		Consistency:     c.ConsistencyCount(),
		Resolution:      res,
		MinCopyNumber:   c.MinCopyNumber(),
		MaxCopyNumber:   c.MaxCopyNumber(),
		ChainSignature:  c.ChainSignature(),
		ArmClusterTypes: c.ArmClusterTypeCounts(),

		DuplicateBreakends:    c.duplicates,
		InconsistentArmGroups: c.InconsistentArmGroups(),
	}
	for _, ch := range c.chains {
		if ch.Closed() {
			s.ClosedChains++
		}
	}
	if c.debug() {
		log.Printf("cluster %d: %+v", c.id, s)
	}
	return s, statsFromSummary(s, c.rejected)
}

// ReplicateVariants creates the replicated copies of every original variant
// whose replication count exceeds 1. It grows tab and must finish before
// clusters are analyzed concurrently.
func ReplicateVariants(tab *sv.Table) int {
	n := 0
	lo, hi := tab.IDRange()
	for id := lo; id < hi; id++ {
		v := tab.Get(id)
		if v.IsReplicated() || v.ReplicationCount <= 1 {
			continue
		}
		n += len(tab.Replicate(id, v.ReplicationCount)) - 1
	}
	return n
}

// Partition groups every variant of tab into clusters by ClusterID. The
// clusters are sorted by id.
func Partition(tab *sv.Table, opts Opts) []*Cluster {
	byID := map[int]*Cluster{}
	var out []*Cluster
	lo, hi := tab.IDRange()
	for id := lo; id < hi; id++ {
		cid := tab.Get(id).ClusterID
		c, ok := byID[cid]
		if !ok {
			c = New(cid, tab, opts)
			byID[cid] = c
			out = append(out, c)
		}
		c.AddVariant(id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
