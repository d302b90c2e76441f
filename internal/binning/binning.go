// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package binning implements the UCSC hierarchical bin numbering scheme
// used by the BAI index to map genomic coordinate ranges to index bins.
package binning

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// ErrCoordinateRange is returned when a coordinate or coordinate range
// falls outside the 2^29 window the binning scheme can represent.
var ErrCoordinateRange = errors.New("binning: coordinate out of range")

const (
	// TileWidth is the width in bases of one linear-index tile.
	TileWidth = 0x4000

	// indexWordBits is the number of low-order bits of a coordinate
	// that the binning scheme addresses; coordinates must fit in
	// indexWordBits bits (2^29 - 1 max).
	indexWordBits = 29

	// nextBinShift is the fan-out shift between adjacent bin levels;
	// each level has 8x as many bins covering 1/8th the span.
	nextBinShift = 3
)

// Bin level offsets and shifts, following the UCSC/SAM binning scheme:
// level0 is the whole-genome bin (bin 0), level5 is the finest (16KiB) bins.
const (
	Level0 = uint32(((1 << (iota * nextBinShift)) - 1) / 7)
	Level1
	Level2
	Level3
	Level4
	Level5
)

const (
	level0Shift = indexWordBits - (iota * nextBinShift)
	level1Shift
	level2Shift
	level3Shift
	level4Shift
	level5Shift
)

// MaxCoordinate is the largest coordinate representable by the binning
// scheme (2^29 - 1).
const MaxCoordinate = 1<<indexWordBits - 1

// IsValidPos reports whether pos is in the valid range for a BAM/BAI
// coordinate: -1 (meaning "unmapped") or within [0, MaxCoordinate].
func IsValidPos(pos int) bool {
	return -1 <= pos && pos <= MaxCoordinate
}

// BinFor returns the bin number of the smallest bin fully containing the
// half-open interval [beg, end). end must be > beg.
func BinFor(beg, end int) (uint32, error) {
	if beg < 0 || end <= beg || end-1 > MaxCoordinate {
		return 0, fmt.Errorf("%w: [%d,%d)", ErrCoordinateRange, beg, end)
	}
	end--
	switch {
	case beg>>level5Shift == end>>level5Shift:
		return Level5 + uint32(beg>>level5Shift), nil
	case beg>>level4Shift == end>>level4Shift:
		return Level4 + uint32(beg>>level4Shift), nil
	case beg>>level3Shift == end>>level3Shift:
		return Level3 + uint32(beg>>level3Shift), nil
	case beg>>level2Shift == end>>level2Shift:
		return Level2 + uint32(beg>>level2Shift), nil
	case beg>>level1Shift == end>>level1Shift:
		return Level1 + uint32(beg>>level1Shift), nil
	}
	return Level0, nil
}

// OverlappingBins returns the sorted, deduplicated set of bin numbers for
// all bins that intersect the half-open interval [beg, end), always
// including bin 0.
func OverlappingBins(beg, end int) ([]uint32, error) {
	if beg < 0 || end <= beg || end-1 > MaxCoordinate {
		return nil, fmt.Errorf("%w: [%d,%d)", ErrCoordinateRange, beg, end)
	}
	end--
	list := []uint32{Level0}
	for _, r := range []struct {
		offset, shift uint32
	}{
		{Level1, level1Shift},
		{Level2, level2Shift},
		{Level3, level3Shift},
		{Level4, level4Shift},
		{Level5, level5Shift},
	} {
		for k := r.offset + uint32(beg>>r.shift); k <= r.offset+uint32(end>>r.shift); k++ {
			list = append(list, k)
		}
	}
	slices.Sort(list)
	return slices.CompactFunc(list, func(a, b uint32) bool { return a == b }), nil
}

// ParentBin returns the bin that is the immediate parent of bin in the
// binning tree. The parent of bin 0 is bin 0.
func ParentBin(bin uint32) uint32 {
	if bin == Level0 {
		return Level0
	}
	switch {
	case bin >= Level5:
		return Level4 + (bin-Level5)>>nextBinShift
	case bin >= Level4:
		return Level3 + (bin-Level4)>>nextBinShift
	case bin >= Level3:
		return Level2 + (bin-Level3)>>nextBinShift
	case bin >= Level2:
		return Level1 + (bin-Level2)>>nextBinShift
	default:
		return Level0
	}
}

// ChildBins returns the (up to 8) child bins of bin in the binning tree.
// Bins at level 5 (the finest level) have no children and ChildBins
// returns nil.
func ChildBins(bin uint32) []uint32 {
	var offset, childOffset uint32
	switch {
	case bin >= Level5:
		return nil
	case bin >= Level4:
		offset, childOffset = Level4, Level5
	case bin >= Level3:
		offset, childOffset = Level3, Level4
	case bin >= Level2:
		offset, childOffset = Level2, Level3
	case bin >= Level1:
		offset, childOffset = Level1, Level2
	default:
		offset, childOffset = Level0, Level1
	}
	first := childOffset + (bin-offset)<<nextBinShift
	children := make([]uint32, 1<<nextBinShift)
	for i := range children {
		children[i] = first + uint32(i)
	}
	return children
}
