// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import (
	"bytes"
	"io"
	"time"
)

const (
	// BlockSize is the default size of uncompressed input accumulated
	// before a block is emitted.
	BlockSize = 0xff00

	// MaxBlockSize is the maximum size, including framing, of a single
	// compressed BGZF block.
	MaxBlockSize = 0x10000
)

// Header holds the gzip member metadata carried by a BGZF block: the
// fields a caller may set on a Writer and recover from a Reader. Extra
// always contains the mandatory "BC" random-access subfield as a prefix;
// any additional extra data supplied by the caller follows it.
type Header struct {
	Comment string
	Extra   []byte
	ModTime time.Time
	Name    string
	OS      byte
}

// bcPrefix is the fixed "BC" extra subfield identifying a BGZF block and
// carrying its own total compressed size, less one, in its two data
// bytes. The two size bytes are patched in after compression.
var bcPrefix = []byte{'B', 'C', 2, 0, 0, 0}

// MagicBlock is the fixed 28-byte empty BGZF block written by a Writer on
// Close to mark the end of a BGZF stream.
var MagicBlock = []byte{
	0x1f, 0x8b, 0x08, 0x04,
	0x00, 0x00, 0x00, 0x00,
	0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00,
	0x1b, 0x00, 0x03, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// ExpectedMemberSize returns the total size in bytes, including framing,
// of the BGZF block that carried h, as recorded in its "BC" subfield. It
// returns -1 if h does not carry a recognisable BC subfield.
func ExpectedMemberSize(h Header) int {
	i := bytes.Index(h.Extra, []byte("BC"))
	if i < 0 || i+6 > len(h.Extra) {
		return -1
	}
	return (int(h.Extra[i+4]) | int(h.Extra[i+5])<<8) + 1
}

// HasEOF reports whether r ends with the BGZF EOF marker block. It
// attempts to do so without disturbing the read position of r, either by
// seeking (and seeking back) or by reading the tail via io.ReaderAt. If r
// supports neither, HasEOF returns ErrNoEnd.
func HasEOF(r io.Reader) (bool, error) {
	switch rs := r.(type) {
	case io.ReadSeeker:
		cur, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return false, err
		}
		end, err := rs.Seek(0, io.SeekEnd)
		if err != nil {
			return false, err
		}
		defer rs.Seek(cur, io.SeekStart)
		if end < int64(len(MagicBlock)) {
			return false, nil
		}
		if _, err := rs.Seek(end-int64(len(MagicBlock)), io.SeekStart); err != nil {
			return false, err
		}
		buf := make([]byte, len(MagicBlock))
		if _, err := io.ReadFull(rs, buf); err != nil {
			return false, err
		}
		return bytes.Equal(buf, MagicBlock), nil
	case io.ReaderAt:
		size, ok := sizeOf(rs)
		if !ok {
			return false, ErrNoEnd
		}
		if size < int64(len(MagicBlock)) {
			return false, nil
		}
		buf := make([]byte, len(MagicBlock))
		if _, err := rs.ReadAt(buf, size-int64(len(MagicBlock))); err != nil {
			return false, err
		}
		return bytes.Equal(buf, MagicBlock), nil
	default:
		return false, ErrNoEnd
	}
}

func sizeOf(r interface{}) (int64, bool) {
	switch v := r.(type) {
	case interface{ Size() int64 }:
		return v.Size(), true
	case interface{ Len() int }:
		return int64(v.Len()), true
	}
	return 0, false
}
