// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
)

// Writer implements block compression of an uncompressed byte stream
// into BGZF blocks, emitting the terminating EOF marker on Close. Header
// fields set on the Writer are copied onto every block it writes.
//
// Writer buffers a single block of input and compresses and writes it
// synchronously, so that by the time Flush returns, the caller can rely
// on the underlying writer having observed every byte of the block:
// BAI indexing depends on calling Flush before each alignment record
// and then reading off the exact compressed file offset that record
// will start at. The concurrency hint accepted by NewWriter is kept for
// API-shape parity with other BGZF implementations that compress blocks
// in a background pool, but this Writer does not use it, since doing so
// would either break that offset guarantee or (if Flush always waited
// for its own block) buy no real concurrency at all.
type Writer struct {
	Header

	w     io.Writer
	level int
	conc  int

	block []byte
	next  int

	err     error
	written bool
	closed  bool

	ctx context.Context
}

// SetContext installs ctx as the writer's cooperative cancellation
// signal: Write checks ctx.Done on entry and Flush checks it before
// emitting each block; either fails with ErrCancelled as soon as it
// fires, without writing that block or (via Close) the BGZF EOF marker.
// A nil ctx (the default) disables the check.
func (bg *Writer) SetContext(ctx context.Context) { bg.ctx = ctx }

func (bg *Writer) cancelled() error {
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

// NewWriter returns a Writer that writes BGZF blocks to w using the
// default compression level. concurrency is accepted for API parity and
// otherwise ignored; see the Writer doc comment.
func NewWriter(w io.Writer, concurrency int) *Writer {
	return NewWriterLevel(w, gzip.DefaultCompression, concurrency)
}

// NewWriterLevel is as NewWriter but takes an explicit compression level
// in 0..9 (or gzip.DefaultCompression).
func NewWriterLevel(w io.Writer, level, concurrency int) *Writer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Writer{
		Header: Header{OS: 0xff},
		w:      w,
		level:  level,
		conc:   concurrency,
		block:  make([]byte, BlockSize),
	}
}

// Write buffers p, emitting complete blocks to the underlying writer as
// the internal buffer fills.
func (bg *Writer) Write(p []byte) (int, error) {
	if err := bg.checkErr(); err != nil {
		return 0, err
	}
	if bg.closed {
		return 0, ErrClosed
	}
	if err := bg.cancelled(); err != nil {
		bg.err = err
		return 0, err
	}
	bg.written = false
	var n int
	for len(p) > 0 {
		c := copy(bg.block[bg.next:], p)
		n += c
		p = p[c:]
		bg.next += c
		if bg.next == len(bg.block) {
			if err := bg.Flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// Flush compresses and writes the current buffered block, if any, to the
// underlying writer, blocking until that write completes, then begins a
// new empty block.
func (bg *Writer) Flush() error {
	if err := bg.checkErr(); err != nil {
		return err
	}
	if bg.closed {
		return nil
	}
	if err := bg.cancelled(); err != nil {
		bg.err = err
		return err
	}
	if bg.written && bg.next == 0 {
		return nil
	}
	bg.written = true
	if bg.next == 0 {
		return nil
	}
	data := bg.block[:bg.next]
	bg.next = 0

	compressed, err := compressBlock(data, bg.level, bg.Header)
	if err != nil {
		bg.err = err
		return err
	}
	if _, err := bg.w.Write(compressed); err != nil {
		bg.err = err
		return err
	}
	return nil
}

// Wait is a no-op retained for API parity: Flush already blocks until
// its block has been written, so there is never outstanding work to
// wait for.
func (bg *Writer) Wait() error { return bg.checkErr() }

// Close flushes any buffered data then writes the BGZF EOF marker.
func (bg *Writer) Close() error {
	if bg.closed {
		return bg.checkErr()
	}
	if err := bg.Flush(); err != nil {
		bg.closed = true
		return err
	}
	bg.closed = true
	if _, err := bg.w.Write(MagicBlock); err != nil {
		bg.err = err
		return err
	}
	return nil
}

func (bg *Writer) checkErr() error { return bg.err }

// compressBlock compresses data into a single self-contained BGZF block
// carrying hdr, returning the complete framed block bytes.
func compressBlock(data []byte, level int, hdr Header) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	gz.Header = gzip.Header{
		Comment: hdr.Comment,
		Extra:   append(append([]byte{}, bcPrefix...), hdr.Extra...),
		ModTime: hdr.ModTime,
		Name:    hdr.Name,
		OS:      hdr.OS,
	}
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}

	b := buf.Bytes()
	i := bytes.Index(b, bcPrefix[:4])
	if i < 0 {
		return nil, ErrFraming
	}
	size := len(b) - 1
	if size+1 > MaxBlockSize {
		return nil, fmt.Errorf("%w: block of %d bytes", ErrBlockOverflow, size+1)
	}
	b[i+4], b[i+5] = byte(size), byte(size>>8)
	return b, nil
}
