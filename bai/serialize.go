// Copyright ©2014 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bai

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/alignio/hts/bgzf"
)

// baiMagic is the four byte magic prefixing a serialized Index.
var baiMagic = [4]byte{'B', 'A', 'I', 0x1}

// WriteIndex writes idx to w in the little-endian BAI binary layout:
// magic, reference count, and per reference a bin list (bin id, chunk
// count, chunk begin/end virtual offsets) followed by a linear-index
// interval list.
func WriteIndex(w io.Writer, idx *Index) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(baiMagic[:]); err != nil {
		return err
	}
	if err := writeInt32(bw, len(idx.refs)); err != nil {
		return err
	}

	for _, ref := range idx.refs {
		bins := make([]uint32, 0, len(ref.bins))
		for b := range ref.bins {
			bins = append(bins, b)
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })

		if err := writeInt32(bw, len(bins)); err != nil {
			return err
		}
		for _, b := range bins {
			chunks := ref.bins[b]
			if err := writeUint32(bw, b); err != nil {
				return err
			}
			if err := writeInt32(bw, len(chunks)); err != nil {
				return err
			}
			for _, c := range chunks {
				if err := writeOffset(bw, c.Begin); err != nil {
					return err
				}
				if err := writeOffset(bw, c.End); err != nil {
					return err
				}
			}
		}

		if err := writeInt32(bw, len(ref.linear)); err != nil {
			return err
		}
		for _, o := range ref.linear {
			if err := writeOffset(bw, o); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// ReadIndex parses a serialized Index from r.
func ReadIndex(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("bai: reading magic: %w", err)
	}
	if magic != baiMagic {
		return nil, fmt.Errorf("%w: bad magic %v", ErrStructure, magic)
	}

	nRef, err := readInt32(br)
	if err != nil {
		return nil, fmt.Errorf("bai: reading reference count: %w", err)
	}
	if nRef < 0 {
		return nil, fmt.Errorf("%w: negative reference count", ErrStructure)
	}

	idx := &Index{refs: make([]refIndex, nRef)}
	for i := range idx.refs {
		nBin, err := readInt32(br)
		if err != nil {
			return nil, fmt.Errorf("bai: reading bin count: %w", err)
		}
		if nBin < 0 {
			return nil, fmt.Errorf("%w: negative bin count", ErrStructure)
		}
		ref := refIndex{bins: make(map[uint32][]bgzf.Chunk, nBin)}
		for j := 0; j < nBin; j++ {
			bin, err := readUint32(br)
			if err != nil {
				return nil, fmt.Errorf("bai: reading bin id: %w", err)
			}
			nChunk, err := readInt32(br)
			if err != nil {
				return nil, fmt.Errorf("bai: reading chunk count: %w", err)
			}
			if nChunk < 0 {
				return nil, fmt.Errorf("%w: negative chunk count", ErrStructure)
			}
			chunks := make([]bgzf.Chunk, nChunk)
			for k := range chunks {
				begin, err := readOffset(br)
				if err != nil {
					return nil, fmt.Errorf("bai: reading chunk begin: %w", err)
				}
				end, err := readOffset(br)
				if err != nil {
					return nil, fmt.Errorf("bai: reading chunk end: %w", err)
				}
				chunks[k] = bgzf.Chunk{Begin: begin, End: end}
			}
			ref.bins[bin] = chunks
		}

		nIval, err := readInt32(br)
		if err != nil {
			return nil, fmt.Errorf("bai: reading interval count: %w", err)
		}
		if nIval < 0 {
			return nil, fmt.Errorf("%w: negative interval count", ErrStructure)
		}
		linear := make([]bgzf.Offset, nIval)
		for k := range linear {
			o, err := readOffset(br)
			if err != nil {
				return nil, fmt.Errorf("bai: reading linear offset: %w", err)
			}
			linear[k] = o
		}
		ref.linear = linear

		idx.refs[i] = ref
	}

	if err := Validate(idx, false); err != nil {
		return nil, err
	}
	return idx, nil
}

func writeInt32(w io.Writer, v int) error {
	return writeUint32(w, uint32(int32(v)))
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeOffset(w io.Writer, o bgzf.Offset) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(o.File)<<16|uint64(o.Block))
	_, err := w.Write(b[:])
	return err
}

func readInt32(r io.Reader) (int, error) {
	v, err := readUint32(r)
	return int(int32(v)), err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readOffset(r io.Reader) (bgzf.Offset, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return bgzf.Offset{}, err
	}
	v := binary.LittleEndian.Uint64(b[:])
	return bgzf.Offset{File: int64(v >> 16), Block: uint16(v)}, nil
}
