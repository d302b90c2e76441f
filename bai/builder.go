// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bai

import (
	"context"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/alignio/hts/bgzf"
	"github.com/alignio/hts/bgzf/index"
	"github.com/alignio/hts/internal/binning"
)

// refBuild accumulates per-reference bin and linear-index state while a
// Builder is open.
type refBuild struct {
	bins   map[uint32][]bgzf.Chunk
	linear []bgzf.Offset
	stats  index.ReferenceStats
}

// Builder accumulates alignment placement records and produces an
// immutable Index once Finalize is called. The zero value is not usable;
// construct one with NewBuilder.
type Builder struct {
	cfg  Config
	refs []*refBuild
	done bool

	ctx context.Context
}

// SetContext installs ctx as the Builder's cooperative cancellation
// signal, checked once per call to Add. A cancelled ctx fails the Add
// call with bgzf.ErrCancelled; alignments accumulated before that point
// remain in the Builder and Finalize still produces a valid Index from
// them. A nil ctx (the default) disables the check.
func (b *Builder) SetContext(ctx context.Context) { b.ctx = ctx }

// NewBuilder returns a Builder configured by cfg. A zero Config selects
// DefaultConfig.
func NewBuilder(cfg Config) (*Builder, error) {
	cfg = cfg.withDefaults()
	if cfg.LinearIntervalSize != LinearIntervalSize {
		return nil, fmt.Errorf("bai: linear interval size %d must equal %d, the tile width fixed by the binning scheme", cfg.LinearIntervalSize, LinearIntervalSize)
	}
	return &Builder{cfg: cfg}, nil
}

func (b *Builder) refFor(id int) *refBuild {
	for len(b.refs) <= id {
		b.refs = append(b.refs, nil)
	}
	if b.refs[id] == nil {
		b.refs[id] = &refBuild{bins: make(map[uint32][]bgzf.Chunk)}
	}
	return b.refs[id]
}

// Add records that aln occupies the BGZF virtual offset range [begin, end)
// in the indexed BAM stream. Unplaced alignments (RefID < 0 or Start < 0)
// are ignored, as required by the index format: they contribute nothing
// to any bin or the linear index.
func (b *Builder) Add(aln Alignment, begin, end bgzf.Offset) error {
	if b.done {
		return ErrFinalizedWriter
	}
	if b.ctx != nil {
		select {
		case <-b.ctx.Done():
			return fmt.Errorf("%w: %v", bgzf.ErrCancelled, b.ctx.Err())
		default:
		}
	}
	id := aln.RefID()
	start := aln.Start()
	if id < 0 || start < 0 {
		return nil
	}

	stop := aln.End()
	if stop <= start {
		stop = start + 1
	}

	bin, err := binning.BinFor(start, stop)
	if err != nil {
		return fmt.Errorf("bai: %w", err)
	}

	rb := b.refFor(id)
	rb.bins[bin] = append(rb.bins[bin], bgzf.Chunk{Begin: begin, End: end})
	b.recordStats(rb, aln, begin, end)

	first := start >> binningShift
	last := (stop - 1) >> binningShift
	if last >= len(rb.linear) {
		grown := make([]bgzf.Offset, last+1)
		copy(grown, rb.linear)
		rb.linear = grown
	}
	var zero bgzf.Offset
	for i := first; i <= last; i++ {
		if rb.linear[i] == zero || begin.Compare(rb.linear[i]) < 0 {
			rb.linear[i] = begin
		}
	}
	return nil
}

// binningShift is the bit shift mapping a reference coordinate to its
// linear-index tile, log2(binning.TileWidth).
const binningShift = 14

// Finalize sorts and merges each reference's per-bin chunk lists and
// returns the resulting immutable Index. No further calls to Add are
// permitted on b once Finalize has been called.
func (b *Builder) Finalize() (*Index, error) {
	if b.done {
		return nil, ErrFinalizedWriter
	}
	b.done = true

	merge := index.CompressorStrategy(b.cfg.MergeGap)

	idx := &Index{refs: make([]refIndex, len(b.refs)), mergeGap: b.cfg.MergeGap}
	for i, rb := range b.refs {
		if rb == nil {
			continue
		}
		ri := refIndex{bins: make(map[uint32][]bgzf.Chunk, len(rb.bins))}
		for bin, chunks := range rb.bins {
			slices.SortFunc(chunks, func(a, b bgzf.Chunk) int { return a.Begin.Compare(b.Begin) })
			merged := merge(chunks)
			if len(merged) > b.cfg.MaxChunksPerBin {
				merged = index.Squash(merged)
			}
			ri.bins[bin] = merged
		}
		ri.linear = rb.linear
		ri.stats = rb.stats
		idx.refs[i] = ri
	}
	return idx, nil
}
