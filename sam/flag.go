// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

// Flags is the BAM record FLAG bitmask described in spec.md's alignment
// record layout.
type Flags uint16

const (
	Paired        Flags = 1 << iota // Sequenced as part of a pair, whether or not the pair mapped together.
	ProperPair                      // Mapped in the orientation and distance expected for the pair.
	Unmapped                        // This read did not map; conflicts with ProperPair.
	MateUnmapped                    // The mate did not map.
	Reverse                         // Mapped to the reverse strand.
	MateReverse                     // The mate mapped to the reverse strand.
	Read1                           // First read of the pair.
	Read2                           // Second read of the pair.
	Secondary                       // Not the primary line for this read.
	QCFail                          // Failed platform/vendor quality checks.
	Duplicate                       // Optical or PCR duplicate.
	Supplementary                   // Part of a chimeric alignment, not the representative line.
)

// flagGlyph maps one Flags bit to the single-character glyph Flags.String
// renders for it.
type flagGlyph struct {
	bit   Flags
	glyph byte
}

// glyphTable lists every Flags bit in low-to-high bit order; the position
// of each entry is also its bit index, which String relies on to lay out
// its fixed-width output.
var glyphTable = [...]flagGlyph{
	{Paired, 'p'},
	{ProperPair, 'P'},
	{Unmapped, 'u'},
	{MateUnmapped, 'U'},
	{Reverse, 'r'},
	{MateReverse, 'R'},
	{Read1, '1'},
	{Read2, '2'},
	{Secondary, 's'},
	{QCFail, 'f'},
	{Duplicate, 'd'},
	{Supplementary, 'S'},
}

// matePairedBits are only meaningful when Paired is set; String clears
// them from its own copy of f when Paired is clear, since an unpaired
// read carries no information about a mate that does not exist.
const matePairedBits = ProperPair | MateUnmapped | MateReverse | Read1 | Read2

// String renders f as glyphTable's glyphs, one byte per flag bit in bit
// order low to high, '-' where the corresponding bit is clear:
//
//	p P u U r R 1 2 s f d S
//
// Bit order is fixed by glyphTable, not by the order flags are tested in
// code, so the rendered string's column meaning never depends on
// iteration order.
func (f Flags) String() string {
	if f&Paired == 0 {
		f &^= matePairedBits
	}
	out := make([]byte, len(glyphTable))
	for i, g := range glyphTable {
		if f&g.bit != 0 {
			out[i] = g.glyph
		} else {
			out[i] = '-'
		}
	}
	return string(out)
}
