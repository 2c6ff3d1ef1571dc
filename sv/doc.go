// Package sv holds the structural-variant data model shared by the chain
// assembler and the cluster analyses: an arena of variants addressed by dense
// IDs, breakend views, and linked pairs of breakends.
//
// A variant has one (SGL) or two breakends, selected by Side. High-ploidy
// variants can be replicated; each copy is a distinct Variant with its own ID
// whose Original field points back at the variant it was copied from.
package sv
