package main

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/svchain/annotate"
	"github.com/grailbio/svchain/cluster"
	"github.com/grailbio/svchain/encoding/svtsv"
	"github.com/grailbio/svchain/encoding/svvcf"
	"github.com/grailbio/svchain/sv"
)

// Collection of options set via cmdline flags
type chainFlags struct {
	variantsPath    string
	pairsPath       string
	foldbacksPath   string
	regionsPath     string
	centromeresPath string

	chainsOutputPath  string
	summaryOutputPath string
	dumpOutputPath    string
	dumpCodec         string

	parallelism int
	vcfAll      bool
}

// clusterResult is the outcome of analyzing one cluster.
type clusterResult struct {
	summary cluster.Summary
	stats   cluster.Stats
	c       *cluster.Cluster
	err     error
}

func isVCF(path string) bool {
	return strings.HasSuffix(path, ".vcf") || strings.HasSuffix(path, ".vcf.gz")
}

// loadInputs reads the variants and their annotations into a new table. It
// replicates variants before returning, so that the linked pair file may
// name replicated copies.
func loadInputs(ctx context.Context, flags chainFlags, annOpts annotate.Opts) (*sv.Table, map[int][]sv.LinkedPair, error) {
	tab := sv.NewTable()
	if isVCF(flags.variantsPath) {
		opts := svvcf.DefaultOpts
		opts.PassOnly = !flags.vcfAll
		st, err := svvcf.ReadFile(ctx, flags.variantsPath, tab, opts)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("%s: loaded %d of %d records (%d mates, %d filtered)",
			flags.variantsPath, st.Loaded, st.Records, st.Mates, st.Filtered)
	} else {
		n, err := svtsv.ReadVariants(ctx, flags.variantsPath, tab)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("%s: loaded %d variants", flags.variantsPath, n)
	}

	var (
		regions *annotate.RegionIndex
		cen     annotate.Centromeres
	)
	if flags.regionsPath != "" {
		rs, err := svtsv.ReadRegions(ctx, flags.regionsPath)
		if err != nil {
			return nil, nil, err
		}
		regions = annotate.NewRegionIndex(rs)
	}
	if flags.centromeresPath != "" {
		var err error
		if cen, err = svtsv.ReadCentromeres(ctx, flags.centromeresPath); err != nil {
			return nil, nil, err
		}
	}
	if regions != nil || cen != nil {
		st := annotate.Annotate(tab, regions, cen, annOpts)
		log.Printf("annotated: %+v", st)
	}
	if flags.foldbacksPath != "" {
		n, err := svtsv.ReadFoldbacks(ctx, flags.foldbacksPath, tab)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("%s: loaded %d foldbacks", flags.foldbacksPath, n)
	}
	if n := cluster.ReplicateVariants(tab); n > 0 {
		log.Printf("replicated %d variant copies", n)
	}
	pairs := map[int][]sv.LinkedPair{}
	if flags.pairsPath != "" {
		var err error
		if pairs, err = svtsv.ReadLinkedPairs(ctx, flags.pairsPath, tab); err != nil {
			return nil, nil, err
		}
	}
	return tab, pairs, nil
}

// analyzeClusters runs the per-cluster pipeline on parallelism workers. Each
// worker owns a contiguous range of clusters. A failed cluster is reported
// in its result and does not stop the others.
func analyzeClusters(clusters []*cluster.Cluster, pairs map[int][]sv.LinkedPair, parallelism int) []clusterResult {
	results := make([]clusterResult, len(clusters))
	if len(clusters) == 0 {
		return results
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(clusters) {
		parallelism = len(clusters)
	}
	n := len(clusters)
	_ = traverse.Each(parallelism, func(jobIdx int) error {
		start := (jobIdx * n) / parallelism
		end := ((jobIdx + 1) * n) / parallelism
		for i := start; i < end; i++ {
			results[i] = analyzeCluster(clusters[i], pairs[clusters[i].ID()])
		}
		return nil
	})
	return results
}

func analyzeCluster(c *cluster.Cluster, pairs []sv.LinkedPair) (r clusterResult) {
	r.c = c
	r.summary.ID = c.ID()
	defer func() {
		if e := recover(); e != nil {
			r.err = errors.E(fmt.Sprintf("cluster %d: %v", c.ID(), e))
		}
		if r.err != nil {
			log.Error.Printf("%v", r.err)
			r.stats = cluster.Stats{Clusters: 1, Failed: 1}
		}
	}()
	if err := c.AddLinkedPairs(pairs); err != nil {
		r.err = err
		return
	}
	r.summary, r.stats = c.Analyze()
	return
}

// runChain loads the inputs, analyzes every cluster and writes the outputs.
// It returns the merged statistics of all clusters.
func runChain(ctx context.Context, flags chainFlags, opts cluster.Opts, annOpts annotate.Opts) (stats cluster.Stats, err error) {
	if flags.variantsPath == "" {
		return stats, errors.E(errors.Invalid, "-variants is required")
	}
	tab, pairs, err := loadInputs(ctx, flags, annOpts)
	if err != nil {
		return stats, err
	}
	clusters := cluster.Partition(tab, opts)
	known := map[int]bool{}
	for _, c := range clusters {
		known[c.ID()] = true
	}
	var orphans []int
	for id := range pairs {
		if !known[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Ints(orphans)
	for _, id := range orphans {
		log.Error.Printf("%d linked pairs reference unknown cluster %d", len(pairs[id]), id)
	}
	log.Printf("analyzing %d clusters", len(clusters))
	results := analyzeClusters(clusters, pairs, flags.parallelism)
	for _, r := range results {
		stats = stats.Merge(r.stats)
	}
	log.Printf("stats: %+v", stats)
	return stats, writeOutputs(ctx, tab, flags, results, stats)
}

func writeOutputs(ctx context.Context, tab *sv.Table, flags chainFlags, results []clusterResult, stats cluster.Stats) error {
	e := errors.Once{}
	if flags.chainsOutputPath != "" {
		e.Set(writeFile(ctx, flags.chainsOutputPath, func(out file.File) error {
			w := svtsv.NewChainWriter(out.Writer(ctx))
			for _, r := range results {
				if r.err != nil {
					continue
				}
				if err := w.Write(tab, r.summary.ID, r.c.Chains()); err != nil {
					return err
				}
			}
			return w.Flush()
		}))
	}
	if flags.summaryOutputPath != "" {
		e.Set(writeFile(ctx, flags.summaryOutputPath, func(out file.File) error {
			w := svtsv.NewSummaryWriter(out.Writer(ctx))
			for _, r := range results {
				if r.err != nil {
					continue
				}
				if err := w.Write(r.summary); err != nil {
					return err
				}
			}
			return w.Flush()
		}))
	}
	if flags.dumpOutputPath != "" {
		w, err := newDumpWriter(ctx, flags.dumpOutputPath, flags.dumpCodec)
		if err != nil {
			e.Set(err)
		} else {
			for _, r := range results {
				var rec clusterRecord
				if r.err != nil {
					rec = clusterRecord{Summary: cluster.Summary{ID: r.summary.ID}, Err: r.err.Error()}
				} else {
					rec = newClusterRecord(tab, r.summary, r.c.Chains())
				}
				e.Set(w.Write(rec))
			}
			e.Set(w.Close(ctx, stats))
		}
	}
	return e.Err()
}

func writeFile(ctx context.Context, path string, fn func(out file.File) error) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	err = fn(out)
	if e := out.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}
