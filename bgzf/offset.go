// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import "fmt"

// Offset is a virtual offset into a BGZF stream: the high 48 bits are the
// byte offset of the containing block within the compressed stream (File),
// the low 16 bits are the byte offset within the block's uncompressed
// payload (Block).
type Offset struct {
	File  int64
	Block uint16
}

// Pack combines a block byte offset and an intra-block offset into an
// Offset. It fails with ErrOffsetRange if block does not fit in 48 bits or
// intra does not fit in 16 bits.
func Pack(block int64, intra uint32) (Offset, error) {
	if block < 0 || block >= 1<<48 {
		return Offset{}, fmt.Errorf("%w: block offset %d", ErrOffsetRange, block)
	}
	if intra >= 1<<16 {
		return Offset{}, fmt.Errorf("%w: intra-block offset %d", ErrOffsetRange, intra)
	}
	return Offset{File: block, Block: uint16(intra)}, nil
}

// Unpack returns the block offset and intra-block offset packed into o.
func (o Offset) Unpack() (block int64, intra uint32) {
	return o.File, uint32(o.Block)
}

// Compare returns -1, 0 or 1 as o is less than, equal to, or greater than
// p, using the total lexicographic order over (block, intra).
func (o Offset) Compare(p Offset) int {
	ov, pv := o.combined(), p.combined()
	switch {
	case ov < pv:
		return -1
	case ov > pv:
		return 1
	default:
		return 0
	}
}

func (o Offset) combined() uint64 {
	return uint64(o.File)<<16 | uint64(o.Block)
}

// String returns a human readable representation of o.
func (o Offset) String() string {
	return fmt.Sprintf("%d:%d", o.File, o.Block)
}

// isZero reports whether o is the zero/sentinel offset.
func (o Offset) isZero() bool { return o == Offset{} }

// Chunk is a half-open interval [Begin, End) of virtual offsets belonging
// to a single BAI bin.
type Chunk struct {
	Begin Offset
	End   Offset
}
