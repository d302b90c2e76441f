// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bai implements construction, serialization and coordinate-range
// querying of the BAM index (BAI) format: a hierarchical-bin plus
// linear-index structure that maps genomic intervals to the BGZF chunks
// of a sorted BAM file holding alignments to that interval.
package bai

import (
	"errors"

	"github.com/alignio/hts/bgzf/index"
	"github.com/alignio/hts/internal/binning"
)

// MergeGap is the default maximum gap, in compressed file bytes, between
// the end of one chunk and the start of the next for the two to be
// merged into a single chunk at Finalize and at Query time.
const MergeGap = 1 << 16

// LinearIntervalSize is the width in reference bases of one linear-index
// tile.
const LinearIntervalSize = binning.TileWidth

// DefaultMaxChunksPerBin caps the number of distinct chunks Finalize will
// retain in a single bin before it is forced through a more aggressive
// merge; this bounds pathological memory growth from a bin accumulating
// many small, widely scattered chunks.
const DefaultMaxChunksPerBin = 10000

// Config holds the tunables for a Builder.
type Config struct {
	// MergeGap is the maximum gap, in compressed file bytes, between
	// adjacent chunks for them to be merged. Zero selects MergeGap.
	MergeGap int64

	// LinearIntervalSize is the width in reference bases of one
	// linear-index tile. Zero selects LinearIntervalSize.
	LinearIntervalSize int

	// MaxChunksPerBin is the threshold past which a bin is squashed to
	// a single chunk at Finalize rather than merged by proximity alone.
	// Zero selects DefaultMaxChunksPerBin.
	MaxChunksPerBin int
}

// DefaultConfig returns the Config used when NewBuilder is given a zero
// Config.
func DefaultConfig() Config {
	return Config{
		MergeGap:           MergeGap,
		LinearIntervalSize: LinearIntervalSize,
		MaxChunksPerBin:    DefaultMaxChunksPerBin,
	}
}

func (c Config) withDefaults() Config {
	if c.MergeGap == 0 {
		c.MergeGap = MergeGap
	}
	if c.LinearIntervalSize == 0 {
		c.LinearIntervalSize = LinearIntervalSize
	}
	if c.MaxChunksPerBin == 0 {
		c.MaxChunksPerBin = DefaultMaxChunksPerBin
	}
	return c
}

var (
	// ErrFinalizedWriter is returned by Add when called after Finalize.
	ErrFinalizedWriter = errors.New("bai: add called on a finalized builder")

	// ErrStructure is returned when a parsed or constructed index fails
	// structural validation: a bad magic number, a negative count, chunks
	// not sorted or overlapping within a bin, or a non-monotonic linear
	// index.
	ErrStructure = errors.New("bai: malformed index structure")

	// ErrNoReference is returned when a query names a reference id with
	// no entry in the index.
	ErrNoReference = index.ErrNoReference
)

// Alignment is the minimal view of an aligned record the builder needs in
// order to index it: its reference id and the genomic interval it
// occupies on that reference.
type Alignment interface {
	// RefID returns the index of the reference the alignment is placed
	// on, or a negative value if the alignment is unplaced.
	RefID() int
	// Start returns the 0-based leftmost coordinate of the alignment,
	// or a negative value if the alignment has no position.
	Start() int
	// End returns the coordinate immediately following the alignment's
	// rightmost reference-consuming base.
	End() int
}
