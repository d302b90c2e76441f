// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bai

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/alignio/hts/bgzf"
	"github.com/alignio/hts/bgzf/index"
	"github.com/alignio/hts/internal/binning"
)

// refIndex is the per-reference bin and linear-index data held by an
// Index, already sorted and merged.
type refIndex struct {
	bins   map[uint32][]bgzf.Chunk
	linear []bgzf.Offset
	stats  index.ReferenceStats
}

// Index is an immutable BAM index: for each reference, a set of
// hierarchical bins each holding the BGZF chunks of alignments placed in
// that bin, plus a linear index of the earliest chunk overlapping each
// 16KiB tile of the reference.
type Index struct {
	refs     []refIndex
	mergeGap int64
}

// QueryResult is the outcome of a coordinate-range query against an
// Index: the minimal set of BGZF chunks that must be scanned to find
// every alignment on RefID overlapping [Start, End), together with the
// virtual offset below which no such alignment can begin.
type QueryResult struct {
	RefID     int
	Start     int
	End       int
	Chunks    []bgzf.Chunk
	MinOffset bgzf.Offset
	HasOffset bool
}

// NumRefs returns the number of references held by idx.
func (idx *Index) NumRefs() int {
	return len(idx.refs)
}

// Query returns the BGZF chunks that must be read to find every
// alignment on reference refID overlapping the half-open interval
// [start, end).
func (idx *Index) Query(refID, start, end int) (QueryResult, error) {
	qr := QueryResult{RefID: refID, Start: start, End: end}
	if refID < 0 || refID >= len(idx.refs) {
		return qr, fmt.Errorf("%w: %d", ErrNoReference, refID)
	}
	if start < 0 || end <= start {
		return qr, fmt.Errorf("bai: invalid query range [%d,%d)", start, end)
	}

	ref := idx.refs[refID]

	bins, err := binning.OverlappingBins(start, end)
	if err != nil {
		return qr, fmt.Errorf("bai: %w", err)
	}

	var chunks []bgzf.Chunk
	for _, b := range bins {
		chunks = append(chunks, ref.bins[b]...)
	}
	if len(chunks) == 0 {
		return qr, nil
	}
	slices.SortFunc(chunks, func(a, b bgzf.Chunk) int { return a.Begin.Compare(b.Begin) })

	minVO, ok := ref.minLinearOffset(start, end)
	if ok {
		filtered := chunks[:0:0]
		for _, c := range chunks {
			if c.Begin.Compare(minVO) >= 0 {
				filtered = append(filtered, c)
			}
		}
		chunks = filtered
	}
	if len(chunks) == 0 {
		return qr, nil
	}

	mergeGap := idx.mergeGap
	if mergeGap == 0 {
		mergeGap = MergeGap
	}
	chunks = index.CompressorStrategy(mergeGap)(chunks)

	qr.Chunks = chunks
	qr.MinOffset = chunks[0].Begin
	qr.HasOffset = true
	return qr, nil
}

// minLinearOffset returns the first non-zero linear-index entry over
// the tiles spanning [start, end), the filter value below which no chunk
// beginning earlier can contain an alignment overlapping the query.
func (ri refIndex) minLinearOffset(start, end int) (bgzf.Offset, bool) {
	first := start >> binningShift
	last := (end - 1) >> binningShift
	var zero bgzf.Offset
	for i := first; i <= last && i < len(ri.linear); i++ {
		if ri.linear[i] != zero {
			return ri.linear[i], true
		}
	}
	return zero, false
}
