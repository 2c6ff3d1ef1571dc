// Package svtsv reads the tab-separated inputs of the chaining pipeline
// (variants, candidate linked pairs, foldbacks, annotation regions and
// centromeres) and writes its chain and cluster summary tables.
//
// Every input file has a header row. Columns are matched to the fields of
// the row structs by their tsv tags, in any order; extra columns are
// ignored. Files whose name ends in .gz are decompressed.
package svtsv

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/svchain/annotate"
	"github.com/grailbio/svchain/sv"
	"github.com/klauspost/compress/gzip"
	pkgerrors "github.com/pkg/errors"
)

// VariantRow is one line of a variant TSV. Single-breakend (SGL) rows leave
// ChrEnd and ArmEnd empty and PosEnd and OrientEnd zero.
type VariantRow struct {
	ID               string  `tsv:"Id"`
	Type             string  `tsv:"Type"`
	ChrStart         string  `tsv:"ChrStart"`
	PosStart         int     `tsv:"PosStart"`
	OrientStart      int     `tsv:"OrientStart"`
	ArmStart         string  `tsv:"ArmStart"`
	ChrEnd           string  `tsv:"ChrEnd"`
	PosEnd           int     `tsv:"PosEnd"`
	OrientEnd        int     `tsv:"OrientEnd"`
	ArmEnd           string  `tsv:"ArmEnd"`
	CNStart          float64 `tsv:"CNStart"`
	CNEnd            float64 `tsv:"CNEnd"`
	CNChgStart       float64 `tsv:"CNChgStart"`
	CNChgEnd         float64 `tsv:"CNChgEnd"`
	Ploidy           float64 `tsv:"Ploidy"`
	ReplicationCount int     `tsv:"ReplicationCount"`
	ClusterID        int     `tsv:"ClusterId"`
}

// LinkedPairRow is one line of a linked pair TSV.
type LinkedPairRow struct {
	ClusterID  int    `tsv:"ClusterId"`
	FirstID    string `tsv:"FirstId"`
	FirstSide  string `tsv:"FirstSide"`
	SecondID   string `tsv:"SecondId"`
	SecondSide string `tsv:"SecondSide"`
	Type       string `tsv:"Type"`
	Assembled  bool   `tsv:"Assembled"`
}

// FoldbackRow is one line of a foldback TSV.
type FoldbackRow struct {
	ID          string `tsv:"Id"`
	Side        string `tsv:"Side"`
	PartnerID   string `tsv:"PartnerId"`
	PartnerSide string `tsv:"PartnerSide"`
	Length      int    `tsv:"Length"`
	Info        string `tsv:"Info"`
}

// RegionRow is one line of an annotation region TSV.
type RegionRow struct {
	Chrom string `tsv:"Chrom"`
	Start int    `tsv:"Start"`
	End   int    `tsv:"End"`
	Kind  string `tsv:"Kind"`
}

// CentromereRow is one line of a centromere TSV.
type CentromereRow struct {
	Chrom      string `tsv:"Chrom"`
	Centromere int    `tsv:"Centromere"`
}

// scan opens path and calls fn for every row decoded into row. row must be
// a pointer to one of the row structs.
func scan(ctx context.Context, path string, row interface{}, fn func(line int) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return pkgerrors.Wrapf(err, "open %s", path)
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
			return pkgerrors.Wrapf(err, "gunzip %s", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'
	// Line 1 is the header.
	for line := 2; ; line++ {
		if err := tr.Read(row); err != nil {
			if err == io.EOF {
				return nil
			}
			return pkgerrors.Wrapf(err, "read %s:%d", path, line)
		}
		if err := fn(line); err != nil {
			return pkgerrors.Wrapf(err, "%s:%d", path, line)
		}
	}
}

// Variant converts the row to a Variant.
func (r VariantRow) Variant() (sv.Variant, error) {
	typ, err := sv.ParseType(r.Type)
	if err != nil {
		return sv.Variant{}, errors.E(errors.Invalid, err)
	}
	v := sv.Variant{
		Name:             r.ID,
		Type:             typ,
		Ploidy:           r.Ploidy,
		ReplicationCount: r.ReplicationCount,
		ClusterID:        r.ClusterID,
	}
	arm, err := sv.ParseArm(r.ArmStart)
	if err != nil {
		return sv.Variant{}, errors.E(errors.Invalid, err)
	}
	v.Loc[sv.Start] = sv.Location{
		Chrom:            r.ChrStart,
		Pos:              r.PosStart,
		Orient:           r.OrientStart,
		Arm:              arm,
		CopyNumber:       r.CNStart,
		CopyNumberChange: r.CNChgStart,
	}
	if typ == sv.SGL {
		return v, nil
	}
	if arm, err = sv.ParseArm(r.ArmEnd); err != nil {
		return sv.Variant{}, errors.E(errors.Invalid, err)
	}
	v.Loc[sv.End] = sv.Location{
		Chrom:            r.ChrEnd,
		Pos:              r.PosEnd,
		Orient:           r.OrientEnd,
		Arm:              arm,
		CopyNumber:       r.CNEnd,
		CopyNumberChange: r.CNChgEnd,
	}
	return v, nil
}

// ReadVariants adds the variants of a variant TSV to tab and returns how
// many were added.
func ReadVariants(ctx context.Context, path string, tab *sv.Table) (int, error) {
	var row VariantRow
	n := 0
	err := scan(ctx, path, &row, func(int) error {
		v, err := row.Variant()
		if err != nil {
			return err
		}
		if _, err := tab.Add(v); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func lookupRef(tab *sv.Table, name, side string) (sv.BreakendRef, error) {
	id, ok := tab.Lookup(name)
	if !ok {
		return sv.BreakendRef{}, errors.E(errors.NotExist, "unknown variant "+name)
	}
	s, err := sv.ParseSide(side)
	if err != nil {
		return sv.BreakendRef{}, errors.E(errors.Invalid, err)
	}
	ref := sv.BreakendRef{ID: id, Side: s}
	return ref, tab.CheckRef(ref)
}

// Pair converts the row to a LinkedPair between variants of tab.
func (r LinkedPairRow) Pair(tab *sv.Table) (sv.LinkedPair, error) {
	first, err := lookupRef(tab, r.FirstID, r.FirstSide)
	if err != nil {
		return sv.LinkedPair{}, err
	}
	second, err := lookupRef(tab, r.SecondID, r.SecondSide)
	if err != nil {
		return sv.LinkedPair{}, err
	}
	typ, err := sv.ParseLinkType(r.Type)
	if err != nil {
		return sv.LinkedPair{}, errors.E(errors.Invalid, err)
	}
	p, err := sv.NewLinkedPair(tab, first, second, typ)
	if err != nil {
		return sv.LinkedPair{}, err
	}
	p.Assembled = r.Assembled
	return p, nil
}

// ReadLinkedPairs reads candidate linked pairs between variants of tab,
// grouped by cluster id.
func ReadLinkedPairs(ctx context.Context, path string, tab *sv.Table) (map[int][]sv.LinkedPair, error) {
	var row LinkedPairRow
	pairs := map[int][]sv.LinkedPair{}
	err := scan(ctx, path, &row, func(int) error {
		p, err := row.Pair(tab)
		if err != nil {
			return err
		}
		pairs[row.ClusterID] = append(pairs[row.ClusterID], p)
		return nil
	})
	return pairs, err
}

// ReadFoldbacks sets the foldback links listed in a foldback TSV on the
// variants of tab. Each row sets one side; the partner is not updated.
func ReadFoldbacks(ctx context.Context, path string, tab *sv.Table) (int, error) {
	var row FoldbackRow
	n := 0
	err := scan(ctx, path, &row, func(int) error {
		ref, err := lookupRef(tab, row.ID, row.Side)
		if err != nil {
			return err
		}
		partner, err := lookupRef(tab, row.PartnerID, row.PartnerSide)
		if err != nil {
			return err
		}
		tab.Get(ref.ID).Foldback[ref.Side] = sv.FoldbackLink{
			Partner: partner,
			Length:  row.Length,
			Info:    row.Info,
		}
		n++
		return nil
	})
	return n, err
}

// ReadRegions reads an annotation region TSV.
func ReadRegions(ctx context.Context, path string) ([]annotate.Region, error) {
	var (
		row     RegionRow
		regions []annotate.Region
	)
	err := scan(ctx, path, &row, func(int) error {
		kind, err := annotate.ParseKind(row.Kind)
		if err != nil {
			return errors.E(errors.Invalid, err)
		}
		regions = append(regions, annotate.Region{Chrom: row.Chrom, Start: row.Start, End: row.End, Kind: kind})
		return nil
	})
	return regions, err
}

// ReadCentromeres reads a centromere TSV.
func ReadCentromeres(ctx context.Context, path string) (annotate.Centromeres, error) {
	var row CentromereRow
	cen := annotate.Centromeres{}
	err := scan(ctx, path, &row, func(int) error {
		if _, ok := cen[row.Chrom]; ok {
			return errors.E(errors.Exists, "duplicate centromere for chromosome "+row.Chrom)
		}
		cen[row.Chrom] = row.Centromere
		return nil
	})
	return cen, err
}
