// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bai

import (
	"fmt"

	"github.com/alignio/hts/bgzf"
)

// Validate checks idx for structural consistency: within each bin, chunks
// must be sorted and non-overlapping by virtual offset. If thorough is
// true, Validate additionally checks that each reference's linear index
// is monotonically non-decreasing, a condition that does not by itself
// corrupt queries but indicates an unusual builder history; a caller that
// only cares about the two chunk-ordering invariants should pass
// thorough=false, as ReadIndex does.
func Validate(idx *Index, thorough bool) error {
	for i, ref := range idx.refs {
		for bin, chunks := range ref.bins {
			for k := 1; k < len(chunks); k++ {
				if chunks[k-1].Begin.Compare(chunks[k].Begin) >= 0 {
					return fmt.Errorf("%w: reference %d bin %d: chunks not strictly increasing", ErrStructure, i, bin)
				}
				if chunks[k-1].End.Compare(chunks[k].Begin) > 0 {
					return fmt.Errorf("%w: reference %d bin %d: overlapping chunks", ErrStructure, i, bin)
				}
			}
		}
		if thorough {
			if err := checkLinearMonotonic(ref.linear); err != nil {
				return fmt.Errorf("reference %d: %w", i, err)
			}
		}
	}
	return nil
}

func checkLinearMonotonic(linear []bgzf.Offset) error {
	var prev bgzf.Offset
	var zero bgzf.Offset
	for i, o := range linear {
		if o == zero {
			continue
		}
		if prev != zero && o.Compare(prev) < 0 {
			return fmt.Errorf("linear index entry %d: non-monotonic virtual offset", i)
		}
		prev = o
	}
	return nil
}
