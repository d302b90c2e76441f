// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binning

import "testing"

func TestBinForWithinLevel5(t *testing.T) {
	bin, err := BinFor(0, 100)
	if err != nil {
		t.Fatalf("BinFor failed: %v", err)
	}
	if bin != Level5 {
		t.Errorf("got bin %d, want %d", bin, Level5)
	}
}

func TestBinForCoarsensWithSpan(t *testing.T) {
	// A span crossing a 16KiB tile boundary no longer fits in a Level5
	// bin and must coarsen to Level4.
	bin, err := BinFor(TileWidth-1, TileWidth+1)
	if err != nil {
		t.Fatalf("BinFor failed: %v", err)
	}
	if bin != Level4 {
		t.Errorf("got bin %d, want %d", bin, Level4)
	}
}

func TestBinForWholeGenomeFallsBackToLevel0(t *testing.T) {
	bin, err := BinFor(0, MaxCoordinate)
	if err != nil {
		t.Fatalf("BinFor failed: %v", err)
	}
	if bin != Level0 {
		t.Errorf("got bin %d, want %d", bin, Level0)
	}
}

func TestBinForRejectsInvalidRange(t *testing.T) {
	if _, err := BinFor(10, 10); err == nil {
		t.Error("expected error for empty range")
	}
	if _, err := BinFor(-1, 10); err == nil {
		t.Error("expected error for negative start")
	}
	if _, err := BinFor(0, MaxCoordinate+2); err == nil {
		t.Error("expected error for out-of-range end")
	}
}

func TestOverlappingBinsIncludesLevel0(t *testing.T) {
	bins, err := OverlappingBins(0, 10)
	if err != nil {
		t.Fatalf("OverlappingBins failed: %v", err)
	}
	if len(bins) == 0 || bins[0] != Level0 {
		t.Errorf("expected Level0 first in %v", bins)
	}
}

func TestOverlappingBinsSortedAndDeduplicated(t *testing.T) {
	bins, err := OverlappingBins(0, TileWidth*3)
	if err != nil {
		t.Fatalf("OverlappingBins failed: %v", err)
	}
	for i := 1; i < len(bins); i++ {
		if bins[i] <= bins[i-1] {
			t.Fatalf("bins not strictly increasing at %d: %v", i, bins)
		}
	}
}

func TestParentAndChildBinsRoundTrip(t *testing.T) {
	bin, err := BinFor(100000, 100100)
	if err != nil {
		t.Fatalf("BinFor failed: %v", err)
	}
	parent := ParentBin(bin)
	children := ChildBins(parent)
	found := false
	for _, c := range children {
		if c == bin {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("bin %d not among its parent %d's children %v", bin, parent, children)
	}
}

func TestChildBinsOfFinestLevelIsNil(t *testing.T) {
	bin, err := BinFor(0, 100)
	if err != nil {
		t.Fatalf("BinFor failed: %v", err)
	}
	if children := ChildBins(bin); children != nil {
		t.Errorf("expected no children for a Level5 bin, got %v", children)
	}
}

func TestIsValidPos(t *testing.T) {
	if !IsValidPos(-1) {
		t.Error("-1 should be a valid (unmapped) position")
	}
	if !IsValidPos(MaxCoordinate) {
		t.Error("MaxCoordinate should be valid")
	}
	if IsValidPos(MaxCoordinate + 1) {
		t.Error("MaxCoordinate+1 should be invalid")
	}
	if IsValidPos(-2) {
		t.Error("-2 should be invalid")
	}
}
