package cluster

// Stats represents counters accumulated over the clusters of a run.
type Stats struct {
	// Clusters is the # of clusters analyzed successfully.
	Clusters int
	// Failed is the # of clusters whose analysis stopped on an input error.
	Failed int
	// Variants counts all variants, replicated copies included.
	Variants  int
	UniqueSVs int
	Chains    int
	// ClosedChains is the # of chains whose ends link to each other.
	ClosedChains int
	// RejectedPairs is the # of candidate pairs that would have made a chain
	// invalid or reused a breakend.
	RejectedPairs      int
	ConsistentClusters int
	// DuplicateBreakends is the # of breakends sharing a location with a
	// breakend of another variant.
	DuplicateBreakends    int
	InconsistentArmGroups int
	// Resolutions[r] counts the clusters with ResolutionType r.
	Resolutions [NumResolutionTypes]int
	// ArmClusterTypes[t] counts the arm clusters with ArmClusterType t.
	ArmClusterTypes [NumArmClusterTypes]int
}

func statsFromSummary(s Summary, rejected int) Stats {
	st := Stats{
		Clusters:        1,
		Variants:        s.Variants,
		UniqueSVs:       s.UniqueSVs,
		Chains:          s.Chains,
		ClosedChains:    s.ClosedChains,
		RejectedPairs:   rejected,
		ArmClusterTypes: s.ArmClusterTypes,

		DuplicateBreakends:    s.DuplicateBreakends,
		InconsistentArmGroups: s.InconsistentArmGroups,
	}
	if s.Consistency == 0 {
		st.ConsistentClusters = 1
	}
	st.Resolutions[s.Resolution] = 1
	return st
}

// Merge adds the field values of the two Stats objects and creates new Stats.
func (s Stats) Merge(o Stats) Stats {
	s.Clusters += o.Clusters
	s.Failed += o.Failed
	s.Variants += o.Variants
	s.UniqueSVs += o.UniqueSVs
	s.Chains += o.Chains
	s.ClosedChains += o.ClosedChains
	s.RejectedPairs += o.RejectedPairs
	s.ConsistentClusters += o.ConsistentClusters
	s.DuplicateBreakends += o.DuplicateBreakends
	s.InconsistentArmGroups += o.InconsistentArmGroups
	for i, n := range o.Resolutions {
		s.Resolutions[i] += n
	}
	for i, n := range o.ArmClusterTypes {
		s.ArmClusterTypes[i] += n
	}
	return s
}

// ResolutionCount returns the # of clusters with the given resolution.
func (s Stats) ResolutionCount(r ResolutionType) int { return s.Resolutions[r] }
