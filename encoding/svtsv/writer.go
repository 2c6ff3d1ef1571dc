package svtsv

import (
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/svchain/chain"
	"github.com/grailbio/svchain/cluster"
	"github.com/grailbio/svchain/sv"
)

// ChainLinkRow is one link of one chain in the chain TSV. The tags name the
// columns, so a chain TSV can be read back with a tsv.Reader that uses
// header names.
type ChainLinkRow struct {
	ClusterID   int     `tsv:"ClusterId"`
	ChainID     int     `tsv:"ChainId"`
	Closed      bool    `tsv:"Closed"`
	Valid       bool    `tsv:"Valid"`
	Consistency int     `tsv:"Consistency"`
	ChainLength int     `tsv:"ChainLength"`
	LinkIndex   int     `tsv:"LinkIndex"`
	FirstID     string  `tsv:"FirstId"`
	FirstSide   string  `tsv:"FirstSide"`
	SecondID    string  `tsv:"SecondId"`
	SecondSide  string  `tsv:"SecondSide"`
	Type        string  `tsv:"Type"`
	LinkLength  int     `tsv:"LinkLength"`
	Assembled   bool    `tsv:"Assembled"`
	CopyNumber  float64 `tsv:"CopyNumber"`
}

// ChainWriter writes one row per link of every chain it is given.
type ChainWriter struct {
	w      *tsv.Writer
	header bool
}

// NewChainWriter creates a ChainWriter. The header row is written with the
// first chain, or by Flush if there were no chains.
func NewChainWriter(w io.Writer) *ChainWriter {
	return &ChainWriter{w: tsv.NewWriter(w)}
}

var chainHeader = []string{
	"ClusterId", "ChainId", "Closed", "Valid", "Consistency", "ChainLength", "LinkIndex",
	"FirstId", "FirstSide", "SecondId", "SecondSide", "Type", "LinkLength", "Assembled", "CopyNumber",
}

func (cw *ChainWriter) writeHeader() error {
	cw.header = true
	for _, col := range chainHeader {
		cw.w.WriteString(col)
	}
	return cw.w.EndLine()
}

func (cw *ChainWriter) writeRow(r *ChainLinkRow) error {
	cw.w.WriteString(strconv.Itoa(r.ClusterID))
	cw.w.WriteString(strconv.Itoa(r.ChainID))
	cw.w.WriteString(strconv.FormatBool(r.Closed))
	cw.w.WriteString(strconv.FormatBool(r.Valid))
	cw.w.WriteString(strconv.Itoa(r.Consistency))
	cw.w.WriteString(strconv.Itoa(r.ChainLength))
	cw.w.WriteString(strconv.Itoa(r.LinkIndex))
	cw.w.WriteString(r.FirstID)
	cw.w.WriteString(r.FirstSide)
	cw.w.WriteString(r.SecondID)
	cw.w.WriteString(r.SecondSide)
	cw.w.WriteString(r.Type)
	cw.w.WriteString(strconv.Itoa(r.LinkLength))
	cw.w.WriteString(strconv.FormatBool(r.Assembled))
	cw.w.WriteString(formatFloat(r.CopyNumber))
	return cw.w.EndLine()
}

// Write writes the links of the chains of one cluster. A chain made of a
// single self-linked variant produces one row.
func (cw *ChainWriter) Write(tab *sv.Table, clusterID int, chains []*chain.Chain) error {
	if !cw.header {
		if err := cw.writeHeader(); err != nil {
			return err
		}
	}
	for _, c := range chains {
		for i, p := range c.Pairs() {
			first, second := tab.Get(p.First.ID), tab.Get(p.Second.ID)
			row := ChainLinkRow{
				ClusterID:   clusterID,
				ChainID:     c.ID(),
				Closed:      c.Closed(),
				Valid:       c.Valid(),
				Consistency: c.Consistency(),
				ChainLength: c.Length(),
				LinkIndex:   i,
				FirstID:     first.Name,
				FirstSide:   p.First.Side.String(),
				SecondID:    second.Name,
				SecondSide:  p.Second.Side.String(),
				Type:        p.Type.String(),
				LinkLength:  p.Length,
				Assembled:   p.Assembled,
				CopyNumber:  first.At(p.First.Side).CopyNumber,
			}
			if err := cw.writeRow(&row); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes buffered rows to the underlying writer.
func (cw *ChainWriter) Flush() error {
	if !cw.header {
		if err := cw.writeHeader(); err != nil {
			return err
		}
	}
	return cw.w.Flush()
}

// SummaryWriter writes one row per cluster. The arm cluster type counts
// follow the fixed columns, one column per type.
type SummaryWriter struct {
	w      *tsv.Writer
	header bool
}

// NewSummaryWriter creates a SummaryWriter.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{w: tsv.NewWriter(w)}
}

func (sw *SummaryWriter) writeHeader() error {
	sw.w.WriteString("ClusterId\tVariants\tUniqueSVs\tChains\tClosedChains\tUnchained\tConsistency\tResolution\tMinCN\tMaxCN\tChainSignature\tDuplicateBreakends\tInconsistentArmGroups")
	for t := cluster.ArmClusterType(0); t < cluster.NumArmClusterTypes; t++ {
		sw.w.WriteString(t.String())
	}
	return sw.w.EndLine()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Write writes one cluster summary.
func (sw *SummaryWriter) Write(s cluster.Summary) error {
	if !sw.header {
		if err := sw.writeHeader(); err != nil {
			return err
		}
		sw.header = true
	}
	sw.w.WriteString(strconv.Itoa(s.ID))
	sw.w.WriteString(strconv.Itoa(s.Variants))
	sw.w.WriteString(strconv.Itoa(s.UniqueSVs))
	sw.w.WriteString(strconv.Itoa(s.Chains))
	sw.w.WriteString(strconv.Itoa(s.ClosedChains))
	sw.w.WriteString(strconv.Itoa(s.Unchained))
	sw.w.WriteString(strconv.Itoa(s.Consistency))
	sw.w.WriteString(s.Resolution.String())
	sw.w.WriteString(formatFloat(s.MinCopyNumber))
	sw.w.WriteString(formatFloat(s.MaxCopyNumber))
	sw.w.WriteString(fmt.Sprintf("%016x", s.ChainSignature))
	sw.w.WriteString(strconv.Itoa(s.DuplicateBreakends))
	sw.w.WriteString(strconv.Itoa(s.InconsistentArmGroups))
	for _, n := range s.ArmClusterTypes {
		sw.w.WriteString(strconv.Itoa(n))
	}
	return sw.w.EndLine()
}

// Flush flushes buffered rows to the underlying writer. A writer that saw
// no clusters still emits the header.
func (sw *SummaryWriter) Flush() error {
	if !sw.header {
		if err := sw.writeHeader(); err != nil {
			return err
		}
		sw.header = true
	}
	return sw.w.Flush()
}
