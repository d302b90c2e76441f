// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bgzf implements the BGZF block-compressed variant of gzip
// described in the SAM specification. A BGZF stream is a concatenation
// of independently-decompressible gzip members, each carrying a "BC"
// extra subfield recording its own total compressed size. This gives a
// reader random access to any point in the stream via a 64-bit virtual
// offset: the file offset of the containing block combined with a byte
// offset into that block's decompressed payload.
package bgzf

// Cache is a cache of decompressed BGZF blocks, keyed by the file
// offset of the block they were decompressed from. Implementations in
// the bgzf/cache package provide a bounded least-recently-used policy.
type Cache interface {
	// Get returns the cached block payload for the given block offset
	// and whether it was found.
	Get(block Offset) (data []byte, ok bool)

	// Put inserts a decompressed block payload into the cache, keyed
	// by its block offset.
	Put(block Offset, data []byte)
}
