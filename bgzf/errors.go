// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf

import "errors"

var (
	// ErrFraming is returned when a block's gzip/BC-subfield framing is
	// malformed, or its uncompressed size is out of range.
	ErrFraming = errors.New("bgzf: invalid block framing")

	// ErrChecksum is returned when a block's CRC32 or ISIZE does not
	// match its uncompressed payload.
	ErrChecksum = errors.New("bgzf: checksum mismatch")

	// ErrTruncated is returned when the input ends in the middle of a
	// block.
	ErrTruncated = errors.New("bgzf: truncated block")

	// ErrClosed is returned for writes to a closed Writer.
	ErrClosed = errors.New("bgzf: use of closed stream")

	// ErrBlockOverflow is returned when a compressed block would exceed
	// MaxBlockSize.
	ErrBlockOverflow = errors.New("bgzf: block overflow")

	// ErrNotASeeker is returned when Seek is called on a Reader whose
	// underlying source does not implement io.Seeker.
	ErrNotASeeker = errors.New("bgzf: not a seeker")

	// ErrNoEnd is returned by HasEOF when the source supports neither
	// io.Seeker nor io.ReaderAt, so the trailing magic block cannot be
	// located without disturbing the read position.
	ErrNoEnd = errors.New("bgzf: cannot determine existence of EOF block")

	// ErrCancelled is returned when an operation observes a cooperative
	// cancellation signal.
	ErrCancelled = errors.New("bgzf: operation cancelled")

	// ErrOffsetRange is returned when a virtual offset's components are
	// out of their representable range.
	ErrOffsetRange = errors.New("bgzf: virtual offset component out of range")
)
