package cluster

import (
	"github.com/grailbio/svchain/chain"
	"github.com/grailbio/svchain/sv"
)

// Opts configures per-cluster analysis.
type Opts struct {
	// ProximityDistance is the largest gap between two position-sorted
	// breakends on an arm that still places them in the same arm cluster.
	ProximityDistance int
	// DuplicateBreakendTolerance is the position window within which two
	// breakends with the same chromosome and orientation are duplicates.
	DuplicateBreakendTolerance int
	// CopyNumberTolerance is the largest copy number difference between the
	// two open breakends of a consistent arm group.
	CopyNumberTolerance float64

	Chain chain.Opts
	// Debug selects clusters and variants for verbose logging.
	Debug sv.DebugFilter
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	ProximityDistance:          5000,              // -proximity-distance
	DuplicateBreakendTolerance: 1,                 // -dup-breakend-tolerance
	CopyNumberTolerance:        0.5,               // -cn-tolerance
	Chain:                      chain.DefaultOpts, // -chaining-sv-limit
}
