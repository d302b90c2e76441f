// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bai

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"gopkg.in/check.v1"

	"github.com/alignio/hts/bgzf"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

// placement is a minimal Alignment for testing.
type placement struct {
	ref, start, end int
}

func (p placement) RefID() int { return p.ref }
func (p placement) Start() int { return p.start }
func (p placement) End() int   { return p.end }

// unmappedPlacement is a placement that additionally reports itself as
// flagged unmapped, exercising the UnmappedAlignment optional interface.
type unmappedPlacement struct {
	placement
}

func (p unmappedPlacement) Unmapped() bool { return true }

func voAt(block int64) bgzf.Offset {
	return bgzf.Offset{File: block}
}

func (s *S) TestBuilderQuery(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)

	alns := []struct {
		aln   placement
		begin int64
	}{
		{placement{0, 0, 100}, 100},
		{placement{0, 20000, 20100}, 200},
		{placement{0, 40000, 40100}, 300},
	}
	for _, a := range alns {
		c.Assert(b.Add(a.aln, voAt(a.begin), voAt(a.begin+1)), check.IsNil)
	}

	idx, err := b.Finalize()
	c.Assert(err, check.IsNil)
	c.Assert(Validate(idx, true), check.IsNil)

	// The query tile range [15000>>14, 24999>>14] is {0,1}, which
	// includes both the bin holding the first alignment (tile 0) and the
	// bin holding the second (tile 1). The first alignment is a coarse
	// bin false positive with respect to the genomic query range, but
	// its virtual offset equals the linear-index floor for tile 0, so it
	// is not pruned; with the default merge gap the two surviving
	// chunks fall within MergeGap of one another and collapse into one.
	qr, err := idx.Query(0, 15000, 25000)
	c.Assert(err, check.IsNil)
	c.Assert(qr.Chunks, check.HasLen, 1)
	c.Check(qr.Chunks[0].Begin, check.Equals, voAt(100))
	c.Check(qr.Chunks[0].End, check.Equals, voAt(201))

	qr, err = idx.Query(0, 0, 50000)
	c.Assert(err, check.IsNil)
	c.Assert(qr.Chunks, check.HasLen, 1)
	c.Check(qr.Chunks[0].Begin, check.Equals, voAt(100))
	c.Check(qr.Chunks[0].End, check.Equals, voAt(301))
}

// TestLinearIndexPrunesDistantBin verifies that the linear index can drop
// a coarse-bin false positive when the query's own tile range carries a
// smaller virtual offset floor than a wide alignment filed in an
// overlapping coarse bin.
func (s *S) TestLinearIndexPrunesDistantBin(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)
	// Spans tiles 0-2, so it is filed in a coarser bin that also
	// numerically overlaps any query touching those same coarse
	// bin indices, including ranges outside its own span.
	c.Assert(b.Add(placement{0, 0, 40000}, voAt(1000), voAt(1001)), check.IsNil)
	// A normal, narrow alignment elsewhere in the same coarse bin's
	// 131072-base span (tile 6), at a much larger virtual offset.
	c.Assert(b.Add(placement{0, 100000, 100100}, voAt(50000), voAt(50001)), check.IsNil)

	idx, err := b.Finalize()
	c.Assert(err, check.IsNil)

	qr, err := idx.Query(0, 100010, 100090)
	c.Assert(err, check.IsNil)
	c.Assert(qr.Chunks, check.HasLen, 1)
	c.Check(qr.Chunks[0].Begin, check.Equals, voAt(50000),
		check.Commentf("wide alignment's chunk should be pruned by the linear index"))
}

func (s *S) TestBuilderUnplacedIgnored(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)
	c.Assert(b.Add(placement{-1, -1, -1}, voAt(0), voAt(1)), check.IsNil)
	idx, err := b.Finalize()
	c.Assert(err, check.IsNil)
	c.Check(idx.NumRefs(), check.Equals, 0)
}

func (s *S) TestFinalizedWriterRejectsAdd(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)
	_, err = b.Finalize()
	c.Assert(err, check.IsNil)
	c.Check(b.Add(placement{0, 0, 10}, voAt(0), voAt(1)), check.Equals, ErrFinalizedWriter)
	_, err = b.Finalize()
	c.Check(err, check.Equals, ErrFinalizedWriter)
}

func (s *S) TestRoundTrip(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)
	for _, a := range []placement{
		{0, 0, 100},
		{0, 20000, 20100},
		{1, 5000, 5100},
	} {
		c.Assert(b.Add(a, voAt(int64(a.start)), voAt(int64(a.start+1))), check.IsNil)
	}
	idx, err := b.Finalize()
	c.Assert(err, check.IsNil)

	var buf bytes.Buffer
	c.Assert(WriteIndex(&buf, idx), check.IsNil)

	got, err := ReadIndex(&buf)
	c.Assert(err, check.IsNil)
	c.Check(got.NumRefs(), check.Equals, idx.NumRefs())

	qr, err := got.Query(0, 15000, 25000)
	c.Assert(err, check.IsNil)
	c.Check(qr.Chunks, check.HasLen, 1)
}

func (s *S) TestReadIndexRejectsBadMagic(c *check.C) {
	_, err := ReadIndex(bytes.NewReader([]byte("nope")))
	c.Assert(err, check.NotNil)
}

func (s *S) TestQueryUnknownReference(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)
	idx, err := b.Finalize()
	c.Assert(err, check.IsNil)
	_, err = idx.Query(0, 0, 10)
	c.Assert(err, check.NotNil)
}

func (s *S) TestRejectsMismatchedLinearIntervalSize(c *check.C) {
	_, err := NewBuilder(Config{LinearIntervalSize: 1})
	c.Assert(err, check.NotNil)
}

func (s *S) TestReferenceStats(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)
	c.Assert(b.Add(placement{0, 0, 100}, voAt(100), voAt(101)), check.IsNil)
	c.Assert(b.Add(placement{0, 200, 300}, voAt(200), voAt(201)), check.IsNil)
	c.Assert(b.Add(unmappedPlacement{placement{0, 400, 401}}, voAt(300), voAt(301)), check.IsNil)

	idx, err := b.Finalize()
	c.Assert(err, check.IsNil)

	stats, err := idx.ReferenceStats(0)
	c.Assert(err, check.IsNil)
	c.Check(stats.Mapped, check.Equals, uint64(2))
	c.Check(stats.Unmapped, check.Equals, uint64(1))
	c.Check(stats.Chunk.Begin, check.Equals, voAt(100))
	c.Check(stats.Chunk.End, check.Equals, voAt(301))

	_, err = idx.ReferenceStats(1)
	c.Assert(err, check.NotNil)
}

func (s *S) TestBuilderCancellation(c *check.C) {
	b, err := NewBuilder(Config{})
	c.Assert(err, check.IsNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.SetContext(ctx)

	err = b.Add(placement{0, 0, 100}, voAt(0), voAt(1))
	c.Assert(errors.Is(err, bgzf.ErrCancelled), check.Equals, true)
}

func (s *S) TestDefaultConfig(c *check.C) {
	b, err := NewBuilder(DefaultConfig())
	c.Assert(err, check.IsNil)
	c.Assert(b.Add(placement{0, 0, 100}, voAt(100), voAt(101)), check.IsNil)
	idx, err := b.Finalize()
	c.Assert(err, check.IsNil)
	c.Check(idx.NumRefs(), check.Equals, 1)
}
