// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"
)

var (
	errBadHeader = errors.New("sam: malformed header line")
	errDupTag    = errors.New("sam: duplicate field")
)

// bamMagic is the four-byte cookie that opens a BAM header block.
var bamMagic = [4]byte{'B', 'A', 'M', 0x1}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (h *Header) UnmarshalBinary(b []byte) error {
	return h.DecodeBinary(bytes.NewReader(b))
}

// DecodeBinary reads h's binary encoding from r, in the layout
// EncodeBinary writes: magic cookie, embedded text header, reference
// count, then one name/length entry per reference.
func (h *Header) DecodeBinary(r io.Reader) error {
	var magic [4]byte
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != bamMagic {
		return errors.New("sam: magic number mismatch")
	}

	var textLen int32
	if err := binary.Read(r, binary.LittleEndian, &textLen); err != nil {
		return err
	}
	text := make([]byte, textLen)
	n, err := r.Read(text)
	if err != nil {
		return err
	}
	if n != int(textLen) {
		return errors.New("sam: truncated header")
	}
	if err := h.UnmarshalText(text); err != nil {
		return err
	}

	var refCount int32
	if err := binary.Read(r, binary.LittleEndian, &refCount); err != nil {
		return err
	}
	refs, err := decodeRefEntries(r, refCount)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := h.AddReference(ref); err != nil {
			return err
		}
	}
	return nil
}

// decodeRefEntries reads n fixed-layout reference entries (a
// length-prefixed, null-terminated name followed by a 4-byte reference
// length) from r.
func decodeRefEntries(r io.Reader, n int32) ([]*Reference, error) {
	refs := make([]*Reference, n)
	for i := range refs {
		refs[i] = &Reference{id: int32(i)}

		var nameLen int32
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		n, err := r.Read(name)
		if err != nil {
			return nil, err
		}
		if n != int(nameLen) || name[n-1] != 0 {
			return nil, errors.New("sam: truncated reference name")
		}
		refs[i].name = string(name[:n-1])

		if err := binary.Read(r, binary.LittleEndian, &refs[i].lRef); err != nil {
			return nil, err
		}
	}
	return refs, nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface. text
// is the header's textual form, one @-prefixed tab-separated line per
// header record, as described by spec.md's header section.
func (h *Header) UnmarshalText(text []byte) error {
	var kind Tag
	for lineNo, line := range bytes.Split(text, []byte{'\n'}) {
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			continue
		}
		if line[0] != '@' || len(line) < 3 {
			return errBadHeader
		}
		copy(kind[:], line[1:3])

		var err error
		switch kind {
		case headerTag:
			err = parseHeaderLine(line, h)
		case refDictTag:
			err = parseReferenceLine(line, h)
		case readGroupTag:
			err = parseReadGroupLine(line, h)
		case programTag:
			err = parseProgramLine(line, h)
		case commentTag:
			err = parseCommentLine(line, h)
		default:
			return errBadHeader
		}
		if err != nil {
			return fmt.Errorf("%v: line %d: %q", err, lineNo+1, line)
		}
	}

	return nil
}

// fields splits an @-line on tabs, returning errBadHeader when there
// are fewer than minFields fields. The first field is the record tag;
// the TAG:VALUE form of the rest is left to the caller to check.
func fields(line []byte, minFields int) ([][]byte, error) {
	fs := bytes.Split(line, []byte{'\t'})
	if len(fs) < minFields {
		return nil, errBadHeader
	}
	return fs, nil
}

func parseHeaderLine(line []byte, h *Header) error {
	fs, err := fields(line, 2)
	if err != nil {
		return err
	}

	var t Tag
	for _, f := range fs[1:] {
		if f[2] != ':' {
			return errBadHeader
		}
		copy(t[:], f[:2])
		val := string(f[3:])
		switch t {
		case versionTag:
			if h.Version != "" {
				return errBadHeader
			}
			h.Version = val
		case sortOrderTag:
			if h.SortOrder != UnknownOrder {
				return errBadHeader
			}
			h.SortOrder = sortOrderFromText[val]
		case groupOrderTag:
			if h.GroupOrder != GroupUnspecified {
				return errBadHeader
			}
			h.GroupOrder = groupOrderFromText[val]
		default:
			h.otherTags = append(h.otherTags, tagPair{tag: t, value: val})
		}
	}

	if h.Version == "" {
		return errBadHeader
	}

	return nil
}

func parseReferenceLine(line []byte, h *Header) error {
	fs, err := fields(line, 3)
	if err != nil {
		return err
	}

	var (
		t         Tag
		ref       = &Reference{}
		seen      = map[Tag]struct{}{}
		haveName  bool
		haveLen   bool
		replaceID int32
		replaces  bool
	)

	for _, f := range fs[1:] {
		if f[2] != ':' {
			return errBadHeader
		}
		copy(t[:], f[:2])
		if _, dup := seen[t]; dup {
			return errDupTag
		}
		seen[t] = struct{}{}
		val := string(f[3:])
		switch t {
		case refNameTag:
			replaceID, replaces = h.seenRefs[val]
			ref.name = val
			haveName = true
		case refLengthTag:
			l, err := strconv.Atoi(val)
			if err != nil {
				return errBadHeader
			}
			if !validLen(l) {
				return errBadLen
			}
			ref.lRef = int32(l)
			haveLen = true
		case assemblyIDTag:
			ref.assemID = val
		case md5Tag:
			var sum [16]byte
			n, err := hex.Decode(sum[:], f[3:])
			if err != nil {
				return err
			}
			if n != 16 {
				return errBadHeader
			}
			ref.md5 = string(sum[:])
		case speciesTag:
			ref.species = val
		case uriTag:
			var err error
			ref.uri, err = url.Parse(val)
			if err != nil {
				return err
			}
			if ref.uri.Scheme != "http" && ref.uri.Scheme != "ftp" {
				ref.uri.Scheme = "file"
			}
		default:
			ref.otherTags = append(ref.otherTags, tagPair{tag: t, value: val})
		}
	}

	if replaces {
		existing := h.refs[replaceID]
		if equalRefs(existing, ref) {
			return nil
		}
		if !equalRefs(existing, &Reference{id: existing.id, name: existing.name, lRef: existing.lRef}) {
			return errDupReference
		}
		h.refs[replaceID] = ref
		return nil
	}
	if !haveName || !haveLen {
		return errBadHeader
	}
	id := int32(len(h.refs))
	ref.id = id
	h.seenRefs[ref.name] = id
	h.refs = append(h.refs, ref)

	return nil
}

// Read group date (DT) tags follow ISO 8601; https://en.wikipedia.org/wiki/ISO_8601
// lists the variants accepted here: a bare date, a UTC timestamp, and a
// timestamp carrying an explicit zone offset.
const (
	dateOnly      = "2006-01-02"
	dateTimeUTC   = "2006-01-02T15:04:05Z"
	dateTimeZoned = "2006-01-02T15:04:05-0700"
)

var dateLayouts = []string{dateOnly, dateTimeUTC, dateTimeZoned}

func parseReadGroupLine(line []byte, h *Header) error {
	fs, err := fields(line, 2)
	if err != nil {
		return err
	}

	var (
		t      Tag
		rg     = &ReadGroup{}
		seen   = map[Tag]struct{}{}
		haveID bool
	)

nextField:
	for _, f := range fs[1:] {
		if f[2] != ':' {
			return errBadHeader
		}
		copy(t[:], f[:2])
		if _, dup := seen[t]; dup {
			return errDupTag
		}
		seen[t] = struct{}{}
		val := string(f[3:])
		switch t {
		case idTag:
			if _, dup := h.seenGroups[val]; dup {
				return errDupReadGroup
			}
			rg.name = val
			haveID = true
		case centerTag:
			rg.center = val
		case descriptionTag:
			rg.description = val
		case dateTag:
			var err error
			for _, layout := range dateLayouts {
				rg.date, err = time.ParseInLocation(layout, val, nil)
				if err == nil {
					continue nextField
				}
			}
			return err
		case flowOrderTag:
			rg.flowOrder = val
		case keySequenceTag:
			rg.keySeq = val
		case libraryTag:
			rg.library = val
		case programTag:
			rg.program = val
		case insertSizeTag:
			size, err := strconv.Atoi(val)
			if err != nil {
				return err
			}
			if !validInt32(size) {
				return errBadLen
			}
			rg.insertSize = size
		case platformTag:
			rg.platform = val
		case platformUnitTag:
			rg.platformUnit = val
		case sampleTag:
			rg.sample = val
		default:
			rg.otherTags = append(rg.otherTags, tagPair{tag: t, value: val})
		}
	}

	if !haveID {
		return errBadHeader
	}
	id := int32(len(h.rgs))
	rg.id = id
	h.seenGroups[rg.name] = id
	h.rgs = append(h.rgs, rg)

	return nil
}

func parseProgramLine(line []byte, h *Header) error {
	fs, err := fields(line, 2)
	if err != nil {
		return err
	}

	var (
		t      Tag
		p      = &Program{}
		seen   = map[Tag]struct{}{}
		haveID bool
	)

	for _, f := range fs[1:] {
		if f[2] != ':' {
			return errBadHeader
		}
		copy(t[:], f[:2])
		if _, dup := seen[t]; dup {
			return errDupTag
		}
		seen[t] = struct{}{}
		val := string(f[3:])
		switch t {
		case idTag:
			if _, dup := h.seenProgs[val]; dup {
				return errDupProgram
			}
			p.uid = val
			haveID = true
		case programNameTag:
			p.name = val
		case commandLineTag:
			p.command = val
		case previousProgTag:
			p.previous = val
		case versionTag:
			p.version = val
		default:
			p.otherTags = append(p.otherTags, tagPair{tag: t, value: val})
		}
	}

	if !haveID {
		return errBadHeader
	}
	id := int32(len(h.progs))
	p.id = id
	h.seenProgs[p.uid] = id
	h.progs = append(h.progs, p)

	return nil
}

func parseCommentLine(line []byte, h *Header) error {
	fs, err := fields(line, 2)
	if err != nil {
		return err
	}
	h.Comments = append(h.Comments, string(fs[1]))
	return nil
}
