// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bai

import (
	"fmt"

	"github.com/alignio/hts/bgzf"
	"github.com/alignio/hts/bgzf/index"
)

// UnmappedAlignment is implemented by an Alignment that can additionally
// report whether it is flagged unmapped, despite carrying a reference
// placement (a BAM record that is placed next to its mate but itself
// unaligned). Add uses this, when present, to classify the alignment for
// per-reference statistics; an Alignment that does not implement it is
// always counted as mapped.
type UnmappedAlignment interface {
	Alignment
	Unmapped() bool
}

func (b *Builder) recordStats(rb *refBuild, aln Alignment, begin, end bgzf.Offset) {
	unmapped := false
	if u, ok := aln.(UnmappedAlignment); ok {
		unmapped = u.Unmapped()
	}
	if unmapped {
		rb.stats.Unmapped++
	} else {
		rb.stats.Mapped++
	}

	var zero bgzf.Offset
	if rb.stats.Chunk.Begin == zero && rb.stats.Chunk.End == zero {
		rb.stats.Chunk = bgzf.Chunk{Begin: begin, End: end}
		return
	}
	if begin.Compare(rb.stats.Chunk.Begin) < 0 {
		rb.stats.Chunk.Begin = begin
	}
	if end.Compare(rb.stats.Chunk.End) > 0 {
		rb.stats.Chunk.End = end
	}
}

// ReferenceStats returns the mapped/unmapped read counts and indexed
// virtual-offset span accumulated for refID. These are in-memory
// bookkeeping only: spec.md 4.5's documented binary layout has no stats
// record, so ReferenceStats is not part of WriteIndex/ReadIndex.
func (idx *Index) ReferenceStats(refID int) (index.ReferenceStats, error) {
	if refID < 0 || refID >= len(idx.refs) {
		return index.ReferenceStats{}, fmt.Errorf("%w: %d", ErrNoReference, refID)
	}
	return idx.refs[refID].stats, nil
}
