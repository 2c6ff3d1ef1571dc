package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/svchain/annotate"
	"github.com/grailbio/svchain/cluster"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

const (
	variantsTSV = `Id	Type	ChrStart	PosStart	OrientStart	ArmStart	ChrEnd	PosEnd	OrientEnd	ArmEnd	CNStart	CNEnd	CNChgStart	CNChgEnd	Ploidy	ReplicationCount	ClusterId
a	DEL	1	1000	1		1	2000	-1		2	2	1	1	1	1	1
b	DEL	1	2050	1		1	3000	-1		2	2	1	1	1	1	1
c	DEL	2	5000	1	P	2	6000	-1	P	2	2	1	1	1	1	2
d	DEL	3	5000	1	Q	3	6000	-1	Q	2	2	1	1	1	1	3
`
	pairsTSV = `ClusterId	FirstId	FirstSide	SecondId	SecondSide	Type	Assembled
1	a	end	b	start	TI	true
3	d	end	a	start	TI	false
`
	centromeresTSV = `Chrom	Centromere
1	125000000
`
)

func writeInputs(t *testing.T, dir string) chainFlags {
	write := func(name, data string) string {
		path := filepath.Join(dir, name)
		assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
		return path
	}
	return chainFlags{
		variantsPath:      write("variants.tsv", variantsTSV),
		pairsPath:         write("pairs.tsv", pairsTSV),
		centromeresPath:   write("cen.tsv", centromeresTSV),
		chainsOutputPath:  filepath.Join(dir, "chains.tsv"),
		summaryOutputPath: filepath.Join(dir, "summary.tsv"),
		dumpOutputPath:    filepath.Join(dir, "dump.rio"),
		dumpCodec:         codecSnappy,
		parallelism:       2,
	}
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestChainEndToEnd(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	flags := writeInputs(t, tempDir)

	stats, err := runChain(ctx, flags, cluster.DefaultOpts, annotate.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, stats.Clusters, 2)
	expect.EQ(t, stats.Failed, 1)
	expect.EQ(t, stats.Chains, 1)
	expect.EQ(t, stats.Variants, 3)
	expect.EQ(t, stats.ResolutionCount(cluster.SimpleSV), 1)
	expect.EQ(t, stats.ResolutionCount(cluster.DelDupInternalTI), 1)

	chains := readLines(t, flags.chainsOutputPath)
	require.Len(t, chains, 2)
	expect.True(t, strings.HasPrefix(chains[1], "1\t0\t"), chains[1])

	summary := readLines(t, flags.summaryOutputPath)
	require.Len(t, summary, 3)
	expect.True(t, strings.HasPrefix(summary[1], "1\t2\t"), summary[1])
	expect.True(t, strings.HasPrefix(summary[2], "2\t1\t"), summary[2])

	r, err := newDumpReader(ctx, flags.dumpOutputPath)
	assert.NoError(t, err)
	expect.EQ(t, r.Trailer().Records, 3)
	expect.EQ(t, r.Trailer().Stats, stats)
	var recs []clusterRecord
	for r.Scan() {
		recs = append(recs, r.Get())
	}
	assert.NoError(t, r.Close(ctx))
	require.Len(t, recs, 3)
	expect.EQ(t, recs[0].Summary.Resolution, cluster.DelDupInternalTI)
	require.Len(t, recs[0].Chains, 1)
	require.Len(t, recs[0].Chains[0].Links, 1)
	expect.EQ(t, recs[0].Chains[0].Links[0].First, "a")
	expect.EQ(t, recs[0].Chains[0].Links[0].Second, "b")
	expect.True(t, recs[0].Chains[0].Links[0].Assembled)
	expect.EQ(t, recs[2].Summary.ID, 3)
	expect.True(t, recs[2].Err != "")

	var out bytes.Buffer
	assert.NoError(t, dump(&out, flags.dumpOutputPath, false))
	expect.True(t, strings.Contains(out.String(), "cluster 3: failed"), out.String())
	expect.True(t, strings.Contains(out.String(), "a:end-b:start TI 50"), out.String())
}

func TestChainCopyNumberTolerance(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	flags := writeInputs(t, tempDir)

	stats, err := runChain(ctx, flags, cluster.DefaultOpts, annotate.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, stats.InconsistentArmGroups, 0)
	expect.EQ(t, stats.DuplicateBreakends, 0)

	// A negative tolerance rejects every arm group with open breakends.
	opts := cluster.DefaultOpts
	opts.CopyNumberTolerance = -1
	stats, err = runChain(ctx, flags, opts, annotate.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, stats.InconsistentArmGroups, 2)
	summary := readLines(t, flags.summaryOutputPath)
	require.Len(t, summary, 3)
	header := strings.Split(summary[0], "\t")
	expect.EQ(t, header[12], "InconsistentArmGroups")
	expect.EQ(t, strings.Split(summary[1], "\t")[12], "1")
}

func TestChainVCFInput(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	vcf := `##fileformat=VCFv4.2
##INFO=<ID=SVTYPE,Number=1,Type=String,Description="Type of structural variant">
##INFO=<ID=END,Number=1,Type=Integer,Description="End position">
##INFO=<ID=CLUSTER,Number=1,Type=Integer,Description="Cluster id">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	1000	a	N	<DEL>	.	PASS	SVTYPE=DEL;END=2000;CLUSTER=1
1	9000	b	N	<DUP>	.	PASS	SVTYPE=DUP;END=9500;CLUSTER=2
`
	path := filepath.Join(tempDir, "sv.vcf")
	assert.NoError(t, ioutil.WriteFile(path, []byte(vcf), 0644))
	flags := chainFlags{
		variantsPath:      path,
		summaryOutputPath: filepath.Join(tempDir, "summary.tsv"),
	}
	stats, err := runChain(vcontext.Background(), flags, cluster.DefaultOpts, annotate.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, stats.Clusters, 2)
	expect.EQ(t, stats.ResolutionCount(cluster.SimpleSV), 2)
	expect.EQ(t, len(readLines(t, flags.summaryOutputPath)), 3)
}

func TestChainMissingVariants(t *testing.T) {
	_, err := runChain(vcontext.Background(), chainFlags{}, cluster.DefaultOpts, annotate.DefaultOpts)
	expect.NotNil(t, err)
}

func TestDumpChecksum(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	path := filepath.Join(tempDir, "dump.rio")
	for _, codec := range []string{codecZstd, codecSnappy} {
		w, err := newDumpWriter(ctx, path, codec)
		assert.NoError(t, err)
		assert.NoError(t, w.Write(clusterRecord{Summary: cluster.Summary{ID: 7}}))
		assert.NoError(t, w.Close(ctx, cluster.Stats{Clusters: 1}))

		r, err := newDumpReader(ctx, path)
		assert.NoError(t, err)
		assert.True(t, r.Scan())
		expect.EQ(t, r.Get().Summary.ID, 7, codec)
		expect.False(t, r.Scan())
		assert.NoError(t, r.Close(ctx))

		r, err = newDumpReader(ctx, path)
		assert.NoError(t, err)
		r.trailer.Checksum++
		for r.Scan() {
		}
		expect.NotNil(t, r.Close(ctx), codec)
	}
	_, err := newDumpWriter(ctx, path, "lz4")
	expect.NotNil(t, err)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}
