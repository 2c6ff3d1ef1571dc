package main

// bio-svchain groups somatic structural variants into clusters, assembles
// the breakends of each cluster into chains and classifies the local
// topology of every chromosome arm the cluster touches.
//
// Example: chain the variants of a sample and write all outputs.
//
//    bio-svchain chain -variants=sv.tsv.gz -pairs=pairs.tsv -foldbacks=foldbacks.tsv \
//       -centromeres=cen.tsv -regions=line.tsv -chains=chains.tsv -summary=clusters.tsv \
//       -dump=clusters.rio
//
// Example: print a dump written by the chain command.
//
//    bio-svchain dump clusters.rio

import (
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/svchain/annotate"
	"github.com/grailbio/svchain/cluster"
	"github.com/grailbio/svchain/sv"
	"v.io/x/lib/cmdline"
)

func newCmdChain() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "chain",
		Short: "Build chains and classify arm clusters for every SV cluster",
	}
	flags := chainFlags{}
	cmd.Flags.StringVar(&flags.variantsPath, "variants", "", "Variant TSV, or VCF if the name ends in .vcf or .vcf.gz. Required.")
	cmd.Flags.StringVar(&flags.pairsPath, "pairs", "", "Candidate linked pair TSV")
	cmd.Flags.StringVar(&flags.foldbacksPath, "foldbacks", "", "Foldback TSV")
	cmd.Flags.StringVar(&flags.regionsPath, "regions", "", "LINE element and fragile site region TSV")
	cmd.Flags.StringVar(&flags.centromeresPath, "centromeres", "", "Centromere TSV, used to assign arms to breakends that lack one")
	cmd.Flags.StringVar(&flags.chainsOutputPath, "chains", "", "Output TSV with one row per chain link")
	cmd.Flags.StringVar(&flags.summaryOutputPath, "summary", "", "Output TSV with one row per cluster")
	cmd.Flags.StringVar(&flags.dumpOutputPath, "dump", "", "Output recordio file readable by the dump command")
	cmd.Flags.StringVar(&flags.dumpCodec, "dump-codec", codecZstd, "Compression of the -dump records: zstd or snappy")
	cmd.Flags.IntVar(&flags.parallelism, "parallelism", 0, "Number of clusters analyzed in parallel; 0 = runtime.NumCPU()")
	cmd.Flags.BoolVar(&flags.vcfAll, "vcf-all", false, "Load VCF records regardless of their FILTER value")

	opts := cluster.DefaultOpts
	cmd.Flags.IntVar(&opts.ProximityDistance, "proximity-distance", opts.ProximityDistance,
		"Largest gap between breakends of one arm cluster")
	cmd.Flags.IntVar(&opts.DuplicateBreakendTolerance, "dup-breakend-tolerance", opts.DuplicateBreakendTolerance,
		"Position window within which breakends with the same orientation are duplicates")
	cmd.Flags.Float64Var(&opts.CopyNumberTolerance, "cn-tolerance", opts.CopyNumberTolerance,
		"Largest copy number difference between the open breakends of a consistent arm group")
	cmd.Flags.IntVar(&opts.Chain.ChainingSVLimit, "chaining-sv-limit", opts.Chain.ChainingSVLimit,
		"Clusters with more unique SVs than this are chained from assembled pairs only; 0 = no limit")
	annOpts := annotate.DefaultOpts
	cmd.Flags.IntVar(&annOpts.LineMargin, "line-margin", annOpts.LineMargin,
		"Distance from a LINE region within which a breakend is flagged")
	cmd.Flags.IntVar(&annOpts.FragileMargin, "fragile-margin", annOpts.FragileMargin,
		"Distance from a fragile site within which a breakend is flagged")
	debugSVs := cmd.Flags.String("debug-svs", "", "Comma-separated variant ids whose chaining is logged")
	debugClusters := cmd.Flags.String("debug-clusters", "", "Comma-separated cluster ids whose analysis is logged")

	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("chain takes no positional arguments, but got %v", argv)
		}
		debug, err := sv.ParseDebugFilter(*debugSVs, *debugClusters)
		if err != nil {
			return fmt.Errorf("-debug-clusters: %v", err)
		}
		opts.Debug = debug
		_, err = runChain(vcontext.Background(), flags, opts, annOpts)
		return err
	})
	return cmd
}

func newCmdDump() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "dump",
		Short:    "Print the contents of a recordio file written by the chain command",
		ArgsName: "path",
	}
	statsOnly := cmd.Flags.Bool("stats", false, "Print only the stats stored in the trailer")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("dump takes one pathname argument, but got %v", argv)
		}
		return dump(env.Stdout, argv[0], *statsOnly)
	})
	return cmd
}

func dump(w io.Writer, path string, statsOnly bool) error {
	ctx := vcontext.Background()
	r, err := newDumpReader(ctx, path)
	if err != nil {
		return err
	}
	t := r.Trailer()
	fmt.Fprintf(w, "records: %d\nstats: %+v\n", t.Records, t.Stats) // nolint: errcheck
	if statsOnly {
		// Skip the checksum, which needs all records.
		return r.Close(ctx)
	}
	for r.Scan() {
		rec := r.Get()
		if rec.Err != "" {
			fmt.Fprintf(w, "cluster %d: failed: %s\n", rec.Summary.ID, rec.Err) // nolint: errcheck
			continue
		}
		fmt.Fprintf(w, "cluster %d: %+v\n", rec.Summary.ID, rec.Summary) // nolint: errcheck
		for _, c := range rec.Chains {
			fmt.Fprintf(w, "  chain %d: closed=%v valid=%v consistency=%d length=%d links=%d\n", // nolint: errcheck
				c.ID, c.Closed, c.Valid, c.Consistency, c.Length, len(c.Links))
			for _, l := range c.Links {
				fmt.Fprintf(w, "    %s:%s-%s:%s %s %d\n", // nolint: errcheck
					l.First, l.FirstSide, l.Second, l.SecondSide, l.Type, l.Length)
			}
		}
	}
	return r.Close(ctx)
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-svchain",
		Short:    "Chain and classify somatic structural variant clusters",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdChain(),
			newCmdDump(),
		},
	}
}

func main() {
	shutdown := grail.Init()
	cmdline.HideGlobalFlagsExcept()
	env := cmdline.EnvFromOS()
	err := cmdline.ParseAndRun(newCmdRoot(), env, os.Args[1:])
	shutdown()
	os.Exit(cmdline.ExitCode(err, env.Stderr))
}
