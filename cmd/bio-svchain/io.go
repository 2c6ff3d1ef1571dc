package main

// This file defines dumpWriter and dumpReader. dumpWriter stores the per-cluster
// results of the chain command in a recordio file, and dumpReader reads them
// back for the dump command.

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"hash"

	"blainsmith.com/go/seahash"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/svchain/chain"
	"github.com/grailbio/svchain/cluster"
	"github.com/grailbio/svchain/sv"
)

const (
	// <fileVersionHeader, fileVersion> is stored in a recordio header.
	fileVersionHeader = "svchainversion"
	fileVersion       = "SVCHAIN_V1"
	// codecHeader names the per-record compression, codecZstd or codecSnappy.
	codecHeader = "svchaincodec"
	codecZstd   = "zstd"
	codecSnappy = "snappy"
)

// linkRecord is one link of a chain, with variants named as in the input.
type linkRecord struct {
	First, Second         string
	FirstSide, SecondSide sv.Side
	Type                  sv.LinkType
	Length                int
	Assembled             bool
}

type chainRecord struct {
	ID          int
	Closed      bool
	Valid       bool
	Consistency int
	Length      int
	Links       []linkRecord
}

// clusterRecord is one record of the dump file.
type clusterRecord struct {
	Summary cluster.Summary
	Chains  []chainRecord
	// Err is set when the cluster failed; Summary then holds only the ID.
	Err string
}

// dumpTrailer is stored in the trailer section of the dump file.
type dumpTrailer struct {
	Stats   cluster.Stats
	Records int
	// Checksum is the seahash of the concatenated record payloads.
	Checksum uint64
}

func newClusterRecord(tab *sv.Table, s cluster.Summary, chains []*chain.Chain) clusterRecord {
	rec := clusterRecord{Summary: s}
	for _, c := range chains {
		cr := chainRecord{
			ID:          c.ID(),
			Closed:      c.Closed(),
			Valid:       c.Valid(),
			Consistency: c.Consistency(),
			Length:      c.Length(),
		}
		for _, p := range c.Pairs() {
			cr.Links = append(cr.Links, linkRecord{
				First:      tab.Get(p.First.ID).Name,
				FirstSide:  p.First.Side,
				Second:     tab.Get(p.Second.ID).Name,
				SecondSide: p.Second.Side,
				Type:       p.Type,
				Length:     p.Length,
				Assembled:  p.Assembled,
			})
		}
		rec.Chains = append(rec.Chains, cr)
	}
	return rec
}

type dumpWriter struct {
	out     file.File
	w       recordio.Writer
	codec   string
	h       hash.Hash64
	records int
}

// newDumpWriter creates a dump file. With codecZstd the recordio blocks are
// compressed by the zstd transformer; with codecSnappy every record is
// snappy-encoded before it is appended.
func newDumpWriter(ctx context.Context, path, codec string) (*dumpWriter, error) {
	var opts recordio.WriterOpts
	switch codec {
	case codecZstd, "":
		codec = codecZstd
		recordiozstd.Init()
		opts.Transformers = []string{recordiozstd.Name}
	case codecSnappy:
	default:
		return nil, errors.E(errors.Invalid, "unknown dump codec "+codec)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	w := recordio.NewWriter(out.Writer(ctx), opts)
	w.AddHeader(fileVersionHeader, fileVersion)
	w.AddHeader(codecHeader, codec)
	w.AddHeader(recordio.KeyTrailer, true)
	return &dumpWriter{out: out, w: w, codec: codec, h: seahash.New()}, nil
}

// Write adds one cluster record.
func (w *dumpWriter) Write(rec clusterRecord) error {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(rec); err != nil {
		return errors.E(err, fmt.Sprintf("encode cluster %d", rec.Summary.ID))
	}
	w.h.Write(b.Bytes()) // nolint: errcheck
	if w.codec == codecSnappy {
		w.w.Append(snappy.Encode(nil, b.Bytes()))
	} else {
		w.w.Append(b.Bytes())
	}
	w.records++
	return nil
}

// Close writes the trailer and closes the file. It must be called exactly
// once, after all the records.
func (w *dumpWriter) Close(ctx context.Context, stats cluster.Stats) error {
	var b bytes.Buffer
	t := dumpTrailer{Stats: stats, Records: w.records, Checksum: w.h.Sum64()}
	if err := gob.NewEncoder(&b).Encode(t); err != nil {
		return errors.E(err, "encode trailer")
	}
	w.w.SetTrailer(b.Bytes())
	err := w.w.Finish()
	if e := w.out.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}

// dumpReader reads a file created by dumpWriter.
type dumpReader struct {
	in      file.File
	r       recordio.Scanner
	codec   string
	h       hash.Hash64
	trailer dumpTrailer
	rec     clusterRecord
	done    bool
	err     error
}

func newDumpReader(ctx context.Context, path string) (*dumpReader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open", path)
	}
	recordiozstd.Init()
	r := recordio.NewScanner(in.Reader(ctx), recordio.ScannerOpts{})
	versionFound := false
	codec := codecZstd
	for _, kv := range r.Header() {
		switch kv.Key {
		case fileVersionHeader:
			if v, ok := kv.Value.(string); !ok || v != fileVersion {
				in.Close(ctx) // nolint: errcheck
				return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: dump file version mismatch, got %v, expect %v", path, kv.Value, fileVersion))
			}
			versionFound = true
		case codecHeader:
			codec, _ = kv.Value.(string)
		}
	}
	if !versionFound {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(errors.Invalid, path, fileVersionHeader+" not found")
	}
	if codec != codecZstd && codec != codecSnappy {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(errors.Invalid, path, "unknown dump codec "+codec)
	}
	dr := &dumpReader{in: in, r: r, codec: codec, h: seahash.New()}
	if err := gob.NewDecoder(bytes.NewReader(r.Trailer())).Decode(&dr.trailer); err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(errors.Invalid, err, "decode trailer", path)
	}
	return dr, nil
}

// Trailer returns the stats and checksum stored in the file.
func (r *dumpReader) Trailer() dumpTrailer { return r.trailer }

// Scan reads the next cluster record.
func (r *dumpReader) Scan() bool {
	if r.err != nil || r.done {
		return false
	}
	if !r.r.Scan() {
		r.done = true
		return false
	}
	b := r.r.Get().([]byte)
	if r.codec == codecSnappy {
		var err error
		if b, err = snappy.Decode(nil, b); err != nil {
			r.err = errors.E(errors.Invalid, err, "snappy decode")
			return false
		}
	}
	r.h.Write(b) // nolint: errcheck
	r.rec = clusterRecord{}
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&r.rec); err != nil {
		r.err = errors.E(errors.Invalid, err, "decode cluster record")
		return false
	}
	return true
}

// Get yields the current record.
//
// REQUIRES: Last Scan call returned true.
func (r *dumpReader) Get() clusterRecord { return r.rec }

// Close closes the reader. After all records were scanned it also verifies
// the checksum stored in the trailer.
func (r *dumpReader) Close(ctx context.Context) error {
	err := r.err
	if err == nil {
		err = r.r.Err()
	}
	if err == nil && r.done && r.h.Sum64() != r.trailer.Checksum {
		err = errors.E(errors.Integrity, "dump checksum mismatch")
	}
	if e := r.in.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}
