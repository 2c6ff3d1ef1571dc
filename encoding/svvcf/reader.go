// Package svvcf loads structural variants from a VCF file into an sv.Table.
//
// Symbolic records (<DEL>, <DUP>, <INV>, <INS>) take their second breakend
// from INFO/END. Breakend records take it from the bracketed ALT allele, and
// each mate pair is loaded once. Single breakends (ALT "N." or ".N") become
// SGL variants.
//
// Recognized INFO fields:
//
//   SVTYPE   DEL, DUP, INV, INS, BND or SGL
//   END      end position of symbolic records
//   MATEID   mate record of a breakend record
//   CHR2     mate chromosome of symbolic BND records, with END as the mate position
//   STRANDS  "+-", "-+", "++" or "--"; overrides the orientation implied by SVTYPE
//   CT       connection type ("3to5", "5to3", "3to3", "5to5"), used when STRANDS is absent
//   CN       copy number at the start, and optionally the end, breakend
//   CNCHG    copy number change at the start, and optionally the end, breakend
//   PLOIDY   variant ploidy
//   CLUSTER  upstream cluster id
package svvcf

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brentp/vcfgo"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/svchain/sv"
	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
)

// Stats counts the records seen by Read.
type Stats struct {
	Records int
	Loaded  int
	// Mates counts breakend records skipped because their mate was loaded.
	Mates int
	// Filtered counts records skipped because FILTER was not PASS or ".".
	Filtered int
}

// Opts configures Read.
type Opts struct {
	// PassOnly skips records whose FILTER is not PASS or ".".
	PassOnly bool
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{PassOnly: true}

// ReadFile opens path, decompressing it if its name ends in .gz, and loads
// its variants into tab.
func ReadFile(ctx context.Context, path string, tab *sv.Table, opts Opts) (st Stats, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return st, pkgerrors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = pkgerrors.Wrapf(cerr, "close %s", path)
		}
	}()
	var r io.Reader = in.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return st, pkgerrors.Wrapf(err, "gunzip %s", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	st, err = Read(r, tab, opts)
	if err != nil {
		err = pkgerrors.Wrap(err, path)
	}
	return st, err
}

// Read loads the variants of a VCF stream into tab.
func Read(r io.Reader, tab *sv.Table, opts Opts) (Stats, error) {
	var st Stats
	rdr, err := vcfgo.NewReader(r, true)
	if err != nil {
		return st, err
	}
	loaded := map[string]bool{}
	for {
		rec := rdr.Read()
		if rec == nil {
			break
		}
		st.Records++
		if opts.PassOnly && rec.Filter != "PASS" && rec.Filter != "." && rec.Filter != "" {
			st.Filtered++
			continue
		}
		if mate := infoString(rec, "MATEID"); mate != "" && loaded[mate] {
			st.Mates++
			continue
		}
		v, err := convert(rec)
		if err != nil {
			return st, pkgerrors.Wrapf(err, "%s:%d", rec.Chromosome, rec.Pos)
		}
		if _, err := tab.Add(v); err != nil {
			return st, err
		}
		loaded[v.Name] = true
		st.Loaded++
	}
	if err := rdr.Error(); err != nil {
		// vcfgo accumulates per-line parse errors; they are not fatal.
		log.Debug.Printf("svvcf: %v", err)
	}
	return st, nil
}

func convert(rec *vcfgo.Variant) (sv.Variant, error) {
	typ, err := sv.ParseType(infoString(rec, "SVTYPE"))
	if err != nil {
		return sv.Variant{}, errors.E(errors.Invalid, err)
	}
	if alt := firstAlt(rec); typ == sv.BND && !strings.ContainsAny(alt, "[]") &&
		(strings.HasPrefix(alt, ".") || strings.HasSuffix(alt, ".")) {
		typ = sv.SGL
	}
	name := rec.Id()
	if name == "" || name == "." {
		name = fmt.Sprintf("%s:%d", rec.Chromosome, rec.Pos)
	}
	v := sv.Variant{
		Name:             name,
		Type:             typ,
		Ploidy:           1,
		ReplicationCount: 1,
	}
	if p, ok := infoFloats(rec, "PLOIDY"); ok {
		v.Ploidy = p[0]
	}
	if c, ok := infoInts(rec, "CLUSTER"); ok {
		v.ClusterID = c[0]
	}
	start := &v.Loc[sv.Start]
	end := &v.Loc[sv.End]
	start.Chrom = rec.Chromosome
	start.Pos = int(rec.Pos)

	switch typ {
	case sv.SGL:
		alt := firstAlt(rec)
		if strings.HasPrefix(alt, ".") {
			start.Orient = -1
		} else {
			start.Orient = 1
		}
	case sv.BND:
		if alt := firstAlt(rec); !strings.ContainsAny(alt, "[]") {
			// Symbolic <BND>/<TRA> record naming its mate through CHR2 and END.
			chrom := infoString(rec, "CHR2")
			ends, ok := infoInts(rec, "END")
			if chrom == "" || !ok {
				return sv.Variant{}, errors.E(errors.Invalid, "breakend record without a bracketed allele or CHR2/END")
			}
			start.Orient, end.Orient = 1, -1
			end.Chrom, end.Pos = chrom, ends[0]
			break
		}
		chrom, pos, o1, o2, err := parseBreakendAlt(firstAlt(rec))
		if err != nil {
			return sv.Variant{}, err
		}
		start.Orient, end.Orient = o1, o2
		end.Chrom, end.Pos = chrom, pos
	default:
		ends, ok := infoInts(rec, "END")
		if !ok {
			return sv.Variant{}, errors.E(errors.Invalid, "missing INFO/END")
		}
		end.Chrom, end.Pos = rec.Chromosome, ends[0]
		switch typ {
		case sv.DEL, sv.INS:
			start.Orient, end.Orient = 1, -1
		case sv.DUP:
			start.Orient, end.Orient = -1, 1
		case sv.INV:
			start.Orient, end.Orient = 1, 1
		}
	}
	if typ != sv.SGL {
		if s := infoString(rec, "STRANDS"); len(s) >= 2 {
			start.Orient, end.Orient = strandOrient(s[0]), strandOrient(s[1])
		} else if ct := infoString(rec, "CT"); len(ct) == 4 && ct[1:3] == "to" {
			start.Orient, end.Orient = connectOrient(ct[0]), connectOrient(ct[3])
		}
	}
	if cn, ok := infoFloats(rec, "CN"); ok {
		start.CopyNumber = cn[0]
		end.CopyNumber = cn[len(cn)-1]
	}
	if chg, ok := infoFloats(rec, "CNCHG"); ok {
		start.CopyNumberChange = chg[0]
		end.CopyNumberChange = chg[len(chg)-1]
	}
	if typ == sv.SGL {
		v.Loc[sv.End] = sv.Location{}
	}
	return v, nil
}

func strandOrient(c byte) int {
	if c == '-' {
		return -1
	}
	return 1
}

// connectOrient maps one end of a CT connection type ("3to5" etc.) to an
// orientation: a 3' connection keeps the sequence at lower positions.
func connectOrient(c byte) int {
	if c == '5' {
		return -1
	}
	return 1
}

func firstAlt(rec *vcfgo.Variant) string {
	if len(rec.Alternate) == 0 {
		return ""
	}
	return rec.Alternate[0]
}

// parseBreakendAlt parses a VCF breakend allele (t[p[, t]p], ]p]t or [p[t)
// and returns the mate position and the orientations of the two breakends.
func parseBreakendAlt(alt string) (chrom string, pos, o1, o2 int, err error) {
	i := strings.IndexAny(alt, "[]")
	if i < 0 {
		return "", 0, 0, 0, errors.E(errors.Invalid, "malformed breakend allele "+alt)
	}
	bracket := alt[i]
	j := strings.IndexByte(alt[i+1:], bracket)
	if j < 0 {
		return "", 0, 0, 0, errors.E(errors.Invalid, "malformed breakend allele "+alt)
	}
	mate := alt[i+1 : i+1+j]
	k := strings.LastIndexByte(mate, ':')
	if k < 0 {
		return "", 0, 0, 0, errors.E(errors.Invalid, "malformed breakend allele "+alt)
	}
	if pos, err = strconv.Atoi(mate[k+1:]); err != nil {
		return "", 0, 0, 0, errors.E(errors.Invalid, err)
	}
	chrom = mate[:k]
	// The retained sequence precedes the bracket when it starts the allele.
	if i > 0 {
		o1 = 1
	} else {
		o1 = -1
	}
	if bracket == '[' {
		o2 = -1
	} else {
		o2 = 1
	}
	return chrom, pos, o1, o2, nil
}

func info(rec *vcfgo.Variant, key string) (interface{}, bool) {
	val, err := rec.Info().Get(key)
	if err != nil || val == nil {
		return nil, false
	}
	return val, true
}

func infoString(rec *vcfgo.Variant, key string) string {
	val, ok := info(rec, key)
	if !ok {
		return ""
	}
	switch x := val.(type) {
	case string:
		return x
	case []string:
		if len(x) > 0 {
			return x[0]
		}
	case []interface{}:
		if len(x) > 0 {
			return fmt.Sprint(x[0])
		}
	}
	return fmt.Sprint(val)
}

func infoFloats(rec *vcfgo.Variant, key string) ([]float64, bool) {
	val, ok := info(rec, key)
	if !ok {
		return nil, false
	}
	var fs []float64
	switch x := val.(type) {
	case float64:
		fs = []float64{x}
	case float32:
		fs = []float64{float64(x)}
	case int:
		fs = []float64{float64(x)}
	case []float64:
		fs = x
	case []float32:
		for _, f := range x {
			fs = append(fs, float64(f))
		}
	case []int:
		for _, n := range x {
			fs = append(fs, float64(n))
		}
	case []interface{}:
		for _, e := range x {
			f, err := strconv.ParseFloat(fmt.Sprint(e), 64)
			if err != nil {
				return nil, false
			}
			fs = append(fs, f)
		}
	case string:
		for _, s := range strings.Split(x, ",") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, false
			}
			fs = append(fs, f)
		}
	}
	return fs, len(fs) > 0
}

func infoInts(rec *vcfgo.Variant, key string) ([]int, bool) {
	fs, ok := infoFloats(rec, key)
	if !ok {
		return nil, false
	}
	ns := make([]int, len(fs))
	for i, f := range fs {
		ns[i] = int(f)
	}
	return ns, true
}
