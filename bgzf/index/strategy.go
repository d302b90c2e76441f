// Copyright ©2015 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"github.com/alignio/hts/bgzf"
)

// MergeStrategy collapses adjacent or nearby bgzf.Chunks in a bin's
// chunk list, the finalize-time merge step spec.md's BAI builder
// applies before writing a reference's bins.
type MergeStrategy func([]bgzf.Chunk) []bgzf.Chunk

var (
	// Identity performs no merge at all.
	Identity MergeStrategy = identity

	// Adjacent merges only chunks whose virtual offsets touch or
	// overlap.
	Adjacent MergeStrategy = adjacent

	// Squash collapses every chunk into the single chunk spanning all
	// of them.
	Squash MergeStrategy = squash
)

// CompressorStrategy returns a MergeStrategy that merges two
// consecutive chunks whenever the compressed-file distance between the
// end of the first and the start of the second is at most near bytes
// of compressed file offset, folding in the common case where a compressor packs nearby
// alignments into the same or neighboring blocks.
func CompressorStrategy(near int64) MergeStrategy {
	return func(chunks []bgzf.Chunk) []bgzf.Chunk {
		if len(chunks) == 0 {
			return nil
		}
		for i := 1; i < len(chunks); i++ {
			prev := chunks[i-1]
			cur := &chunks[i]
			if prev.End.File+near >= cur.Begin.File {
				cur.Begin = prev.Begin
				if vOffset(prev.End) > vOffset(cur.End) {
					cur.End = prev.End
				}
				chunks = append(chunks[:i-1], chunks[i:]...)
				i--
			}
		}
		return chunks
	}
}

func identity(chunks []bgzf.Chunk) []bgzf.Chunk { return chunks }

func adjacent(chunks []bgzf.Chunk) []bgzf.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		cur := &chunks[i]
		prevEnd := vOffset(prev.End)
		if prevEnd >= vOffset(cur.Begin) {
			cur.Begin = prev.Begin
			if prevEnd > vOffset(cur.End) {
				cur.End = prev.End
			}
			chunks = append(chunks[:i-1], chunks[i:]...)
			i--
		}
	}
	return chunks
}

func squash(chunks []bgzf.Chunk) []bgzf.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	begin := chunks[0].Begin
	end := chunks[0].End
	for _, c := range chunks[1:] {
		if vOffset(c.End) > vOffset(end) {
			end = c.End
		}
	}
	return []bgzf.Chunk{{Begin: begin, End: end}}
}
