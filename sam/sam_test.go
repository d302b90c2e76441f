// Copyright ©2013 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"testing"

	"gopkg.in/check.v1"

	"github.com/alignio/hts/internal/binning"
)

func Test(t *testing.T) { check.TestingT(t) }

type S struct{}

var _ = check.Suite(&S{})

func (s *S) TestNewHeaderAddReference(c *check.C) {
	h, err := NewHeader(nil, nil)
	c.Assert(err, check.IsNil)

	ref, err := NewReference("chr1", "", "", 248956422, nil, nil)
	c.Assert(err, check.IsNil)
	c.Assert(h.AddReference(ref), check.IsNil)

	c.Check(ref.ID(), check.Equals, 0)
	c.Check(h.Refs(), check.HasLen, 1)
	c.Check(h.Refs()[0].Name(), check.Equals, "chr1")
}

func (s *S) TestRecordBinAndEnd(c *check.C) {
	h, err := NewHeader(nil, nil)
	c.Assert(err, check.IsNil)
	ref, err := NewReference("chr1", "", "", 1<<20, nil, nil)
	c.Assert(err, check.IsNil)
	c.Assert(h.AddReference(ref), check.IsNil)

	co, err := ParseCigar([]byte("100M"))
	c.Assert(err, check.IsNil)

	r, err := NewRecord("read1", ref, nil, 1000, -1, 0, 30, co, make([]byte, 100), nil, nil)
	c.Assert(err, check.IsNil)

	c.Check(r.RefID(), check.Equals, 0)
	c.Check(r.Start(), check.Equals, 1000)
	c.Check(r.End(), check.Equals, 1100)
	c.Check(r.Len(), check.Equals, 100)
	c.Check(r.Strand(), check.Equals, int8(1))

	want, err := binning.BinFor(r.Pos, r.End())
	c.Assert(err, check.IsNil)
	c.Check(r.Bin(), check.Equals, int(want))
}

func (s *S) TestRecordBinUnplaced(c *check.C) {
	h, err := NewHeader(nil, nil)
	c.Assert(err, check.IsNil)
	ref, err := NewReference("chr1", "", "", 1<<20, nil, nil)
	c.Assert(err, check.IsNil)
	c.Assert(h.AddReference(ref), check.IsNil)

	r, err := NewRecord("unmapped1", nil, nil, -1, -1, 0, 0, nil, []byte("N"), nil, nil)
	c.Assert(err, check.IsNil)
	r.Flags = Unmapped
	c.Check(r.Bin(), check.Equals, 4681)
}

func (s *S) TestCigarIsValid(c *check.C) {
	co, err := ParseCigar([]byte("5S90M5S"))
	c.Assert(err, check.IsNil)
	c.Check(co.IsValid(100), check.Equals, true)
	c.Check(co.IsValid(99), check.Equals, false)

	bad, err := ParseCigar([]byte("10M5S10M"))
	c.Assert(err, check.IsNil)
	c.Check(bad.IsValid(25), check.Equals, false)
}

func (s *S) TestSeqRoundTrip(c *check.C) {
	orig := []byte("ACGTNACGTN")
	seq := NewSeq(orig)
	c.Check(seq.Length, check.Equals, len(orig))
	c.Check(seq.Expand(), check.DeepEquals, orig)
}

func (s *S) TestAuxParseRoundTrip(c *check.C) {
	a, err := NewAux(NewTag("NM"), uint(3))
	c.Assert(err, check.IsNil)
	c.Check(a.Tag(), check.Equals, NewTag("NM"))

	parsed, err := ParseAux([]byte(a.String()))
	c.Assert(err, check.IsNil)
	c.Check(parsed.Value(), check.Equals, a.Value())
}

func (s *S) TestIsValidRecord(c *check.C) {
	h, err := NewHeader(nil, nil)
	c.Assert(err, check.IsNil)
	ref, err := NewReference("chr1", "", "", 1<<20, nil, nil)
	c.Assert(err, check.IsNil)
	c.Assert(h.AddReference(ref), check.IsNil)

	co, err := ParseCigar([]byte("4M"))
	c.Assert(err, check.IsNil)
	r, err := NewRecord("r", ref, nil, 0, -1, 0, 0, co, make([]byte, 4), nil, nil)
	c.Assert(err, check.IsNil)
	c.Check(IsValidRecord(r), check.Equals, true)

	// Unplaced but missing the Unmapped flag: inconsistent.
	unplaced, err := NewRecord("u", nil, nil, -1, -1, 0, 0, nil, []byte("N"), nil, nil)
	c.Assert(err, check.IsNil)
	c.Check(IsValidRecord(unplaced), check.Equals, false)
}
