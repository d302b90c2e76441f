// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
)

// Reader decompresses a BGZF stream block by block, preserving the
// originating block offset of every byte it returns so that callers can
// track virtual offsets as they read.
//
// Decompression is performed synchronously, one block at a time, which
// gives Reader the single-threaded observable ordering required of a
// BGZF decoder; the concurrency hint accepted by NewReader is reserved
// for a future internal read-ahead and does not change that ordering.
type Reader struct {
	Header

	r    io.Reader
	conc int

	pos int64 // file offset of the next unread byte of r

	cur  Offset // offset of the start of the current block
	data []byte // decompressed payload of the current block
	off  int    // read cursor within data

	// Blocked reports whether the underlying stream ended with the
	// BGZF EOF marker block (true) or was exhausted without one
	// (false); it is only meaningful once Read has returned io.EOF.
	Blocked bool

	atEOF bool
	err   error
	cache Cache

	ctx context.Context
}

// SetContext installs ctx as the reader's cooperative cancellation
// signal: readBlock checks ctx.Done once per BGZF block and fails with
// ErrCancelled as soon as it fires. A nil ctx (the default) disables the
// check.
func (bg *Reader) SetContext(ctx context.Context) { bg.ctx = ctx }

func (bg *Reader) cancelled() error {
	if bg.ctx == nil {
		return nil
	}
	select {
	case <-bg.ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, bg.ctx.Err())
	default:
		return nil
	}
}

// NewReader returns a Reader that decompresses BGZF blocks read from r,
// with the given concurrency hint for internal read-ahead (a value less
// than 1 is treated as 1).
func NewReader(r io.Reader, concurrency int) (*Reader, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	bg := &Reader{r: r, conc: concurrency}
	if err := bg.readBlock(); err != nil && err != io.EOF {
		return nil, err
	}
	return bg, nil
}

// SetCache sets a cache of decompressed blocks keyed by block file
// offset, consulted on Seek to avoid redundant decompression.
func (bg *Reader) SetCache(c Cache) { bg.cache = c }

// LastChunk returns the Chunk from the reader's current read position to
// the start of the next unread block.
func (bg *Reader) LastChunk() Chunk {
	return Chunk{
		Begin: Offset{File: bg.cur.File, Block: uint16(bg.off)},
		End:   Offset{File: bg.pos, Block: 0},
	}
}

// BlockLen returns the length of the uncompressed payload of the current
// block.
func (bg *Reader) BlockLen() int { return len(bg.data) }

// Tell returns the reader's current virtual offset.
func (bg *Reader) Tell() Offset {
	return Offset{File: bg.cur.File, Block: uint16(bg.off)}
}

// Begin returns a transaction marker for the reader's current virtual
// offset; pair it with (Tx).End to recover the Chunk read in between.
func (bg *Reader) Begin() Tx { return Tx{r: bg, begin: bg.Tell()} }

// Tx is an in-progress read transaction started by Reader.Begin.
type Tx struct {
	r     *Reader
	begin Offset
}

// End returns the Chunk from the Offset recorded by Begin to the
// reader's current virtual offset.
func (t Tx) End() Chunk {
	return Chunk{Begin: t.begin, End: t.r.Tell()}
}

// Read implements io.Reader, decompressing further blocks from the
// underlying stream as needed.
func (bg *Reader) Read(p []byte) (int, error) {
	if bg.err != nil {
		return 0, bg.err
	}
	var n int
	for n < len(p) {
		if bg.off >= len(bg.data) {
			if bg.atEOF {
				return n, io.EOF
			}
			if err := bg.readBlock(); err != nil {
				if err == io.EOF {
					return n, io.EOF
				}
				bg.err = err
				return n, err
			}
			continue
		}
		c := copy(p[n:], bg.data[bg.off:])
		n += c
		bg.off += c
	}
	return n, nil
}

// ReadByte implements io.ByteReader.
func (bg *Reader) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := bg.Read(buf[:])
	return buf[0], err
}

// Seek moves the reader to the given virtual offset. The underlying
// source must implement io.Seeker; ErrNotASeeker is returned otherwise.
func (bg *Reader) Seek(off Offset) error {
	seeker, ok := bg.r.(io.Seeker)
	if !ok {
		return ErrNotASeeker
	}
	if _, err := seeker.Seek(off.File, io.SeekStart); err != nil {
		return err
	}
	bg.pos = off.File
	bg.atEOF = false
	bg.err = nil
	bg.data = nil
	bg.off = 0
	if err := bg.readBlock(); err != nil && err != io.EOF {
		return err
	}
	if int(off.Block) > len(bg.data) {
		return fmt.Errorf("%w: intra-block offset %d beyond block of %d bytes", ErrOffsetRange, off.Block, len(bg.data))
	}
	bg.off = int(off.Block)
	return nil
}

// Close closes the underlying source if it implements io.Closer.
func (bg *Reader) Close() error {
	if c, ok := bg.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// readBlock reads and decompresses the next block from the underlying
// stream, or returns io.EOF if the stream is exhausted (with Blocked
// reporting whether it ended with the EOF marker).
func (bg *Reader) readBlock() error {
	if err := bg.cancelled(); err != nil {
		return err
	}
	start := bg.pos
	var prefix [12]byte
	n, err := io.ReadFull(bg.r, prefix[:])
	if err != nil {
		if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			bg.atEOF = true
			bg.Blocked = false
			bg.data = nil
			bg.off = 0
			return io.EOF
		}
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if prefix[0] != 0x1f || prefix[1] != 0x8b || prefix[2] != 8 {
		return fmt.Errorf("%w: bad gzip magic", ErrFraming)
	}
	xlen := int(binary.LittleEndian.Uint16(prefix[10:12]))
	extra := make([]byte, xlen)
	if _, err := io.ReadFull(bg.r, extra); err != nil {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	bc, ok := findBC(extra)
	if !ok {
		return fmt.Errorf("%w: missing BC subfield", ErrFraming)
	}
	total := bc + 1
	headSoFar := len(prefix) + xlen
	if total < headSoFar+8 {
		return fmt.Errorf("%w: block size %d too small", ErrFraming, total)
	}
	rest := make([]byte, total-headSoFar)
	if _, err := io.ReadFull(bg.r, rest); err != nil {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	bg.pos = start + int64(total)

	member := make([]byte, 0, total)
	member = append(member, prefix[:]...)
	member = append(member, extra...)
	member = append(member, rest...)

	isEOFMarker := total == len(MagicBlock) && bytes.Equal(member, MagicBlock)

	gz, err := gzip.NewReader(bytes.NewReader(member))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFraming, err)
	}
	bg.Header = Header{
		Comment: gz.Header.Comment,
		Extra:   gz.Header.Extra,
		ModTime: gz.Header.ModTime,
		Name:    gz.Header.Name,
		OS:      gz.Header.OS,
	}

	blockOff := Offset{File: start}
	var data []byte
	if bg.cache != nil {
		if cached, ok := bg.cache.Get(blockOff); ok {
			data = cached
		}
	}
	if data == nil && !isEOFMarker {
		data, err = ioutil.ReadAll(gz)
		if err != nil {
			if err == gzip.ErrChecksum {
				return fmt.Errorf("%w: %v", ErrChecksum, err)
			}
			return fmt.Errorf("%w: %v", ErrFraming, err)
		}
		if len(data) > 1<<16 {
			return fmt.Errorf("%w: uncompressed size %d exceeds block limit", ErrFraming, len(data))
		}
		if bg.cache != nil {
			bg.cache.Put(blockOff, data)
		}
	}

	bg.cur = blockOff
	bg.data = data
	bg.off = 0

	if isEOFMarker {
		bg.Blocked = true
		bg.atEOF = true
		return io.EOF
	}
	return nil
}

// findBC scans a gzip extra field for the BGZF "BC" subfield and returns
// its 16-bit value.
func findBC(extra []byte) (int, bool) {
	for i := 0; i+4 <= len(extra); {
		si1, si2 := extra[i], extra[i+1]
		slen := int(extra[i+2]) | int(extra[i+3])<<8
		if i+4+slen > len(extra) {
			return 0, false
		}
		if si1 == 'B' && si2 == 'C' && slen == 2 {
			return int(extra[i+4]) | int(extra[i+5])<<8, true
		}
		i += 4 + slen
	}
	return 0, false
}
