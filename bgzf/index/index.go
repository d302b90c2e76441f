// Copyright ©2015 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package index holds BGZF index support shared by more than one
// indexing scheme: per-reference mapping statistics and chunk merge
// strategies, plus a bgzf.Reader wrapper that replays a fixed list of
// chunks.
package index

import (
	"errors"
	"io"

	"github.com/alignio/hts/bgzf"
)

var (
	ErrNoReference = errors.New("index: no reference")
	ErrInvalid     = errors.New("index: invalid interval")
)

// ReferenceStats holds the mapped/unmapped read counts and indexed
// virtual-offset span accumulated for one reference sequence.
type ReferenceStats struct {
	// Chunk is the span of the indexed BGZF stream holding alignments
	// to the reference.
	Chunk bgzf.Chunk

	Mapped   uint64
	Unmapped uint64
}

// ChunkReader replays a fixed, ordered list of bgzf.Chunks from an
// underlying bgzf.Reader, stopping at the end of the last chunk instead
// of the end of the stream.
type ChunkReader struct {
	r *bgzf.Reader

	wasBlocked bool

	chunks []bgzf.Chunk
}

// NewChunkReader returns a ChunkReader over r restricted to chunks,
// seeking to the first chunk's start and switching r into Blocked mode
// (restored by Close).
func NewChunkReader(r *bgzf.Reader, chunks []bgzf.Chunk) (*ChunkReader, error) {
	wasBlocked := r.Blocked
	r.Blocked = true
	if len(chunks) != 0 {
		if err := r.Seek(chunks[0].Begin); err != nil {
			return nil, err
		}
	}
	return &ChunkReader{r: r, wasBlocked: wasBlocked, chunks: chunks}, nil
}

// Read implements io.Reader, advancing to the next chunk in the list
// once the current one is exhausted and returning io.EOF once they all
// are.
func (cr *ChunkReader) Read(p []byte) (int, error) {
	if len(cr.chunks) == 0 {
		return 0, io.EOF
	}
	last := cr.r.LastChunk()
	target := cr.chunks[0]
	if vOffset(last.End) >= vOffset(target.End) {
		return 0, io.EOF
	}

	// Cap the read so it cannot run past the current chunk's end; a
	// read past the current block is harmless since Blocked mode stops
	// there regardless.
	limit := int(target.End.Block)
	if target.End.Block == 0 && target.End.File > last.End.File {
		limit = cr.r.BlockLen()
	}
	var alreadyRead int
	if last.End.File == target.End.File {
		alreadyRead = int(last.End.Block)
	}
	n, err := cr.r.Read(p[:min(len(p), limit-alreadyRead)])
	if err != nil {
		if n != 0 && err == io.EOF {
			err = nil
		}
		return n, err
	}

	now := cr.r.LastChunk()
	atChunkEnd := (len(p) != 0 && now == last) || vOffset(now.End) >= vOffset(target.End)
	if atChunkEnd {
		cr.chunks = cr.chunks[1:]
		if len(cr.chunks) == 0 {
			return n, io.EOF
		}
		err = cr.r.Seek(cr.chunks[0].Begin)
	}

	return n, err
}

// Close restores the wrapped bgzf.Reader's original Blocked setting and
// releases it; the underlying Reader itself is not closed.
func (cr *ChunkReader) Close() error {
	cr.r.Blocked = cr.wasBlocked
	cr.r = nil
	return nil
}

func vOffset(o bgzf.Offset) int64 {
	return o.File<<16 | int64(o.Block)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
