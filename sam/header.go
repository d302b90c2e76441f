// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sam

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header-level error conditions: a caller's attempt to add or remove a
// Reference, ReadGroup or Program that is already associated with a
// different Header, or already present under the same name in this one.
var (
	errDupReference     = errors.New("sam: duplicate reference name")
	errDupReadGroup     = errors.New("sam: duplicate read group name")
	errDupProgram       = errors.New("sam: duplicate program name")
	errUsedReference    = errors.New("sam: reference already used")
	errUsedReadGroup    = errors.New("sam: read group already used")
	errUsedProgram      = errors.New("sam: program already used")
	errInvalidReference = errors.New("sam: reference not owned by header")
	errInvalidReadGroup = errors.New("sam: read group not owned by header")
	errInvalidProgram   = errors.New("sam: program not owned by header")
	errBadLen           = errors.New("sam: reference length out of range")
)

// SortOrder is the value of a Header's @HD/SO tag: the order in which
// records of the SAM or BAM file they describe are sorted.
type SortOrder int

const (
	UnknownOrder SortOrder = iota
	Unsorted
	QueryName
	Coordinate
)

var (
	sortOrderText = [...]string{
		UnknownOrder: "unknown",
		Unsorted:     "unsorted",
		QueryName:    "queryname",
		Coordinate:   "coordinate",
	}
	sortOrderFromText = map[string]SortOrder{
		"unknown":    UnknownOrder,
		"unsorted":   Unsorted,
		"queryname":  QueryName,
		"coordinate": Coordinate,
	}
)

// String returns the @HD/SO tag value for so.
func (so SortOrder) String() string {
	if so < Unsorted || so > Coordinate {
		return sortOrderText[UnknownOrder]
	}
	return sortOrderText[so]
}

// GroupOrder is the value of a Header's @HD/GO tag: the field records of
// the described file are grouped by, if any.
type GroupOrder int

const (
	GroupUnspecified GroupOrder = iota
	GroupNone
	GroupQuery
	GroupReference
)

var (
	groupOrderText = [...]string{
		GroupUnspecified: "none",
		GroupNone:        "none",
		GroupQuery:       "query",
		GroupReference:   "reference",
	}
	groupOrderFromText = map[string]GroupOrder{
		"none":      GroupNone,
		"query":     GroupQuery,
		"reference": GroupReference,
	}
)

// String returns the @HD/GO tag value for g.
func (g GroupOrder) String() string {
	if g < GroupNone || g > GroupReference {
		return groupOrderText[GroupUnspecified]
	}
	return groupOrderText[g]
}

// nameIndex maps a Reference, ReadGroup or Program name to the index it
// holds in its owning Header's corresponding slice, letting duplicate
// names be rejected in constant time.
type nameIndex map[string]int32

// Header carries the metadata of a SAM or BAM file: the @HD, @SQ, @RG
// and @PG lines plus any @CO comment lines, as described by spec.md's
// header section.
type Header struct {
	Version    string
	SortOrder  SortOrder
	GroupOrder GroupOrder
	Comments   []string

	otherTags []tagPair

	refs  []*Reference
	rgs   []*ReadGroup
	progs []*Program

	seenRefs   nameIndex
	seenGroups nameIndex
	seenProgs  nameIndex
}

type tagPair struct {
	tag   Tag
	value string
}

// NewHeader builds a Header from text (parsed as the header's textual
// encoding, or nil to start empty) and an optional list of pre-built
// References. A Reference already owned by another Header, or already
// carrying a non-negative id, is rejected.
func NewHeader(text []byte, refs []*Reference) (*Header, error) {
	h := &Header{
		refs:       refs,
		seenRefs:   nameIndex{},
		seenGroups: nameIndex{},
		seenProgs:  nameIndex{},
	}
	for i, r := range h.refs {
		if r.owner != nil || r.id >= 0 {
			return nil, errUsedReference
		}
		r.owner = h
		r.id = int32(i)
	}
	if text != nil {
		if err := h.UnmarshalText(text); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Tags calls fn once for every tag-value pair carried on the Header's
// @HD line, in field order (VN, then SO and GO when they hold a
// non-default value, then any remaining tags in the order they were
// set). fn must not add or remove Header tags while Tags is iterating.
func (h *Header) Tags(fn func(t Tag, value string)) {
	if fn == nil {
		return
	}
	fn(versionTag, h.Version)
	if h.SortOrder != UnknownOrder {
		fn(sortOrderTag, h.SortOrder.String())
	}
	if h.GroupOrder != GroupUnspecified {
		fn(groupOrderTag, h.GroupOrder.String())
	}
	for _, tp := range h.otherTags {
		fn(tp.tag, tp.value)
	}
}

// Get returns the string value of the Header's t tag, or the empty
// string if t is not present.
func (h *Header) Get(t Tag) string {
	switch t {
	case versionTag:
		return h.Version
	case sortOrderTag:
		return h.SortOrder.String()
	case groupOrderTag:
		return h.GroupOrder.String()
	}
	for _, tp := range h.otherTags {
		if t == tp.tag {
			return tp.value
		}
	}
	return ""
}

// Set assigns value to the Header's t tag. An empty value clears a tag
// that may legally be absent (VN cannot be cleared this way; SO and GO
// fall back to their unspecified default instead of being removed);
// otherwise the tag is created or overwritten.
func (h *Header) Set(t Tag, value string) error {
	switch t {
	case versionTag:
		if value == "" {
			return errBadHeader
		}
		h.Version = value
	case sortOrderTag:
		if value == "" {
			h.SortOrder = UnknownOrder
			return nil
		}
		so, ok := sortOrderFromText[value]
		if !ok {
			return errBadHeader
		}
		h.SortOrder = so
	case groupOrderTag:
		if value == "" {
			h.GroupOrder = GroupUnspecified
			return nil
		}
		gord, ok := groupOrderFromText[value]
		if !ok {
			return errBadHeader
		}
		h.GroupOrder = gord
	default:
		if value == "" {
			for i, tp := range h.otherTags {
				if t == tp.tag {
					h.otherTags = append(h.otherTags[:i], h.otherTags[i+1:]...)
					return nil
				}
			}
			return nil
		}
		for i, tp := range h.otherTags {
			if t == tp.tag {
				h.otherTags[i].value = value
				return nil
			}
		}
		h.otherTags = append(h.otherTags, tagPair{tag: t, value: value})
	}
	return nil
}

// Clone returns a deep copy of h, including independently-owned copies
// of every Reference, ReadGroup and Program it carries.
func (h *Header) Clone() *Header {
	c := &Header{
		Version:    h.Version,
		SortOrder:  h.SortOrder,
		GroupOrder: h.GroupOrder,
		Comments:   append([]string(nil), h.Comments...),
		otherTags:  append([]tagPair(nil), h.otherTags...),
		seenRefs:   make(nameIndex, len(h.seenRefs)),
		seenGroups: make(nameIndex, len(h.seenGroups)),
		seenProgs:  make(nameIndex, len(h.seenProgs)),
	}
	if len(h.refs) != 0 {
		c.refs = make([]*Reference, len(h.refs))
	}
	if len(h.rgs) != 0 {
		c.rgs = make([]*ReadGroup, len(h.rgs))
	}
	if len(h.progs) != 0 {
		c.progs = make([]*Program, len(h.progs))
	}

	for i, r := range h.refs {
		if r == nil {
			continue
		}
		cr := *r
		cr.owner = c
		c.refs[i] = &cr
	}
	for i, rg := range h.rgs {
		crg := *rg
		crg.owner = c
		c.rgs[i] = &crg
	}
	for i, p := range h.progs {
		cp := *p
		cp.owner = c
		c.progs[i] = &cp
	}
	for name, id := range h.seenRefs {
		c.seenRefs[name] = id
	}
	for name, id := range h.seenGroups {
		c.seenGroups[name] = id
	}
	for name, id := range h.seenProgs {
		c.seenProgs[name] = id
	}

	return c
}

// MergeHeaders combines src into a single Header, returning it alongside
// a per-source mapping from each source's original References to the
// equivalent Reference in the merged Header (nil when only one source
// was given, since no mapping is needed). The merged Header's sort and
// group order are reset to unknown/unspecified, since merging discards
// any ordering guarantee; its read groups and programs are those of
// src[0] alone.
func MergeHeaders(src []*Header) (merged *Header, reflinks [][]*Reference, err error) {
	switch len(src) {
	case 0:
		return nil, nil, nil
	case 1:
		return src[0], nil, nil
	}
	reflinks = make([][]*Reference, len(src))
	merged = src[0].Clone()
	merged.SortOrder = UnknownOrder
	merged.GroupOrder = GroupUnspecified
	for i, other := range src {
		if i == 0 {
			reflinks[i] = merged.refs
			continue
		}
		links := make([]*Reference, len(other.refs))
		for id, r := range other.refs {
			r = r.Clone()
			if err := merged.AddReference(r); err != nil {
				return nil, nil, err
			}
			if r.owner != merged {
				// AddReference folded r into an existing equal
				// Reference rather than adding it; use that one.
				for _, mr := range merged.refs {
					if equalRefs(r, mr) {
						r = mr
						break
					}
				}
			}
			links[id] = r
		}
		reflinks[i] = links
	}

	return merged, reflinks, nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h *Header) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	if h.Version != "" {
		if h.GroupOrder == GroupUnspecified {
			fmt.Fprintf(&buf, "@HD\tVN:%s\tSO:%s", h.Version, h.SortOrder)
		} else {
			fmt.Fprintf(&buf, "@HD\tVN:%s\tSO:%s\tGO:%s", h.Version, h.SortOrder, h.GroupOrder)
		}
		for _, tp := range h.otherTags {
			fmt.Fprintf(&buf, "\t%s:%s", tp.tag, tp.value)
		}
		buf.WriteByte('\n')
	}
	for _, r := range h.refs {
		fmt.Fprintf(&buf, "%s\n", r)
	}
	for _, rg := range h.rgs {
		fmt.Fprintf(&buf, "%s\n", rg)
	}
	for _, p := range h.progs {
		fmt.Fprintf(&buf, "%s\n", p)
	}
	for _, co := range h.Comments {
		fmt.Fprintf(&buf, "@CO\t%s\n", co)
	}
	return buf.Bytes(), nil
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (h *Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := h.EncodeBinary(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeBinary writes h's binary encoding to w, as laid out by spec.md
// 4.2: the magic cookie, the textual header embedded verbatim, then one
// fixed-layout entry per reference sequence (null-terminated name and
// length).
func (h *Header) EncodeBinary(w io.Writer) error {
	sink := &stickyWriter{w: w}

	binary.Write(sink, binary.LittleEndian, bamMagic)
	text, _ := h.MarshalText()
	binary.Write(sink, binary.LittleEndian, int32(len(text)))
	sink.Write(text)
	binary.Write(sink, binary.LittleEndian, int32(len(h.refs)))

	if !validInt32(len(h.refs)) {
		return errors.New("sam: value out of range")
	}
	var name []byte
	for _, r := range h.refs {
		name = append(name, []byte(r.name)...)
		name = append(name, 0)
		binary.Write(sink, binary.LittleEndian, int32(len(name)))
		sink.Write(name)
		name = name[:0]
		binary.Write(sink, binary.LittleEndian, r.lRef)
	}
	return sink.err
}

// stickyWriter wraps an io.Writer so that once one Write call fails,
// every subsequent call is a no-op that returns the same error, letting
// EncodeBinary perform a sequence of writes without checking each one.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	var n int
	n, s.err = s.w.Write(p)
	return n, s.err
}

// Validate checks r against h per spec.md's auxiliary-field rules: its
// program tag, if any, must name a Program listed in h, and its read
// group tag, if any, must name a ReadGroup listed in h whose platform
// unit and library agree with the record's own PU/LB tags.
func (h *Header) Validate(r *Record) error {
	progUID := r.AuxFields.Get(programTag)
	foundProg := false
	for _, p := range h.Progs() {
		if progUID != nil && p.UID() == progUID.Value() {
			foundProg = true
			break
		}
	}
	if progUID != nil && !foundProg && len(h.Progs()) != 0 {
		return fmt.Errorf("sam: program uid not found: %v", progUID.Value())
	}

	rgName := r.AuxFields.Get(readGroupTag)
	foundRG := false
	for _, rg := range h.RGs() {
		if rgName != nil && rg.Name() == rgName.Value() {
			pu := r.AuxFields.Get(platformUnitTag).Value()
			if pu != rg.PlatformUnit() {
				return fmt.Errorf("sam: mismatched platform for read group %s: %v != %v", rg.Name(), pu, rg.platformUnit)
			}
			lib := r.AuxFields.Get(libraryTag).Value()
			if lib != rg.Library() {
				return fmt.Errorf("sam: mismatched library for read group %s: %v != %v", rg.Name(), lib, rg.library)
			}
			foundRG = true
			break
		}
	}
	if rgName != nil && !foundRG && len(h.RGs()) != 0 {
		return fmt.Errorf("sam: read group not found: %v", rgName.Value())
	}

	return nil
}

// Refs returns h's References. The returned slice must not be modified.
func (h *Header) Refs() []*Reference { return h.refs }

// RGs returns h's ReadGroups. The returned slice must not be modified.
func (h *Header) RGs() []*ReadGroup { return h.rgs }

// Progs returns h's Programs. The returned slice must not be modified.
func (h *Header) Progs() []*Program { return h.progs }

// AddReference adds r to h. When a Reference is already present under
// r's name, an r equal to it is accepted without change, and an r that
// carries nothing but that name and the same length takes the existing
// entry's remaining metadata and replaces it; any other r returns
// errDupReference.
func (h *Header) AddReference(r *Reference) error {
	if dupID, dup := h.seenRefs[r.name]; dup {
		existing := h.refs[dupID]
		if equalRefs(existing, r) {
			return nil
		}
		if !equalRefs(r, &Reference{id: -1, name: existing.name, lRef: existing.lRef}) {
			return errDupReference
		}
		if r.md5 == "" {
			r.md5 = existing.md5
		}
		if r.assemID == "" {
			r.assemID = existing.assemID
		}
		if r.species == "" {
			r.species = existing.species
		}
		if r.uri == nil {
			r.uri = existing.uri
		}
		if r.otherTags == nil {
			r.otherTags = existing.otherTags
		}
		h.refs[dupID] = r
		return nil
	}
	if r.owner != nil || r.id >= 0 {
		return errUsedReference
	}
	r.owner = h
	r.id = int32(len(h.refs))
	h.seenRefs[r.name] = r.id
	h.refs = append(h.refs, r)
	return nil
}

// RemoveReference removes r from h, freeing it to be added to a
// different Header.
func (h *Header) RemoveReference(r *Reference) error {
	if r.id < 0 || int(r.id) >= len(h.refs) || h.refs[r.id] != r {
		return errInvalidReference
	}
	h.refs = append(h.refs[:r.id], h.refs[r.id+1:]...)
	for i := range h.refs[r.id:] {
		h.refs[i+int(r.id)].id--
	}
	delete(h.seenRefs, r.name)
	r.id = -1
	r.owner = nil
	return nil
}

// AddReadGroup adds rg to h.
func (h *Header) AddReadGroup(rg *ReadGroup) error {
	if _, dup := h.seenGroups[rg.name]; dup {
		return errDupReadGroup
	}
	if rg.owner != nil || rg.id >= 0 {
		return errUsedReadGroup
	}
	rg.owner = h
	rg.id = int32(len(h.rgs))
	h.seenGroups[rg.name] = rg.id
	h.rgs = append(h.rgs, rg)
	return nil
}

// RemoveReadGroup removes rg from h, freeing it to be added to a
// different Header.
func (h *Header) RemoveReadGroup(rg *ReadGroup) error {
	if rg.id < 0 || int(rg.id) >= len(h.rgs) || h.rgs[rg.id] != rg {
		return errInvalidReadGroup
	}
	h.rgs = append(h.rgs[:rg.id], h.rgs[rg.id+1:]...)
	for i := range h.rgs[rg.id:] {
		h.rgs[i+int(rg.id)].id--
	}
	delete(h.seenGroups, rg.name)
	rg.id = -1
	rg.owner = nil
	return nil
}

// AddProgram adds p to h.
func (h *Header) AddProgram(p *Program) error {
	if _, dup := h.seenProgs[p.uid]; dup {
		return errDupProgram
	}
	if p.owner != nil || p.id >= 0 {
		return errUsedProgram
	}
	p.owner = h
	p.id = int32(len(h.progs))
	h.seenProgs[p.uid] = p.id
	h.progs = append(h.progs, p)
	return nil
}

// RemoveProgram removes p from h, freeing it to be added to a different
// Header.
func (h *Header) RemoveProgram(p *Program) error {
	if p.id < 0 || int(p.id) >= len(h.progs) || h.progs[p.id] != p {
		return errInvalidProgram
	}
	h.progs = append(h.progs[:p.id], h.progs[p.id+1:]...)
	for i := range h.progs[p.id:] {
		h.progs[i+int(p.id)].id--
	}
	delete(h.seenProgs, p.uid)
	p.id = -1
	p.owner = nil
	return nil
}
