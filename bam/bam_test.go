// Copyright ©2012 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bam

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kortschak/utter"
	"github.com/kr/pretty"

	"github.com/alignio/hts/bgzf"
	"github.com/alignio/hts/sam"
)

func newTestHeader(t *testing.T) (*sam.Header, *sam.Reference) {
	t.Helper()
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		t.Fatalf("NewHeader failed: %v", err)
	}
	ref, err := sam.NewReference("chr1", "", "", 1<<20, nil, nil)
	if err != nil {
		t.Fatalf("NewReference failed: %v", err)
	}
	if err := h.AddReference(ref); err != nil {
		t.Fatalf("AddReference failed: %v", err)
	}
	return h, ref
}

func newTestRecord(t *testing.T, name string, ref *sam.Reference, pos int) *sam.Record {
	t.Helper()
	co, err := sam.ParseCigar([]byte("10M"))
	if err != nil {
		t.Fatalf("ParseCigar failed: %v", err)
	}
	r, err := sam.NewRecord(name, ref, nil, pos, -1, 0, 30, co, bytes.Repeat([]byte{'A'}, 10), nil, nil)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	return r
}

func newUnmappedTestRecord(t *testing.T, name string) *sam.Record {
	t.Helper()
	r, err := sam.NewRecord(name, nil, nil, -1, -1, 0, 0, nil, []byte("N"), nil, nil)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}
	r.Flags = sam.Unmapped
	return r
}

func TestWriteReadRoundTrip(t *testing.T) {
	h, ref := newTestHeader(t)
	want := newTestRecord(t, "read1", ref, 100)
	wantUnmapped := newUnmappedTestRecord(t, "unplaced1")

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(want); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(wantUnmapped); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got.Name != want.Name || got.Pos != want.Pos {
		t.Errorf("round trip mismatch: got %s, want %s", utter.Sdump(got), utter.Sdump(want))
	}
	if diff := pretty.Diff(got.Seq, want.Seq); len(diff) != 0 {
		t.Errorf("sequence round trip differs: %v", diff)
	}
	if diff := pretty.Diff(got.Cigar, want.Cigar); len(diff) != 0 {
		t.Errorf("cigar round trip differs: %v", diff)
	}

	gotUnmapped, err := r.Read()
	if err != nil {
		t.Fatalf("Read of unmapped record failed: %v", err)
	}
	if gotUnmapped.Pos != -1 {
		t.Errorf("unmapped record Pos round trip: got %d, want -1 (got %s)", gotUnmapped.Pos, utter.Sdump(gotUnmapped))
	}
	if gotUnmapped.Ref != nil {
		t.Errorf("unmapped record Ref round trip: got %v, want nil", gotUnmapped.Ref)
	}

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("expected io.EOF after two records, got %v", err)
	}
}

func TestReaderMaxRecordBytesFailPolicy(t *testing.T) {
	h, ref := newTestHeader(t)
	rec := newTestRecord(t, "toobig", ref, 0)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	r.MaxRecordBytes = 8 // Smaller than any real record.

	if _, err := r.Read(); !errors.Is(err, ErrRecordExceedsLimit) {
		t.Fatalf("expected ErrRecordExceedsLimit, got %v", err)
	}
}

func TestReaderMaxRecordBytesSkipPolicyResyncs(t *testing.T) {
	h, ref := newTestHeader(t)
	oversized := newTestRecord(t, "toobig", ref, 0)
	next := newTestRecord(t, "fine", ref, 200)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(oversized); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Write(next); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	r.MaxRecordBytes = 8
	r.Policy = SkipRecord

	got, err := r.Read()
	if err != nil {
		t.Fatalf("Read failed after skip: %v", err)
	}
	if got.Name != next.Name {
		t.Errorf("expected resynchronized record %q, got %q", next.Name, got.Name)
	}
}

func TestReaderCigarSeqMismatchPolicies(t *testing.T) {
	h, ref := newTestHeader(t)
	rec := newTestRecord(t, "mismatch", ref, 0)
	// Corrupt the CIGAR so its query-consuming length no longer agrees
	// with the sequence length written to the stream.
	co, err := sam.ParseCigar([]byte("5M"))
	if err != nil {
		t.Fatalf("ParseCigar failed: %v", err)
	}
	rec.Cigar = co

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data := buf.Bytes()

	r, err := NewReader(bytes.NewReader(data), 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	got, err := r.Read()
	if !errors.Is(err, ErrCigarSeqMismatch) {
		t.Fatalf("expected ErrCigarSeqMismatch, got %v", err)
	}
	if got == nil || got.Name != rec.Name {
		t.Errorf("expected record returned alongside mismatch error, got %v", got)
	}

	r2, err := NewReader(bytes.NewReader(data), 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	r2.Policy = SkipRecord
	if _, err := r2.Read(); err != io.EOF {
		t.Errorf("expected io.EOF after skipping the only record, got %v", err)
	}
}

func TestReaderSetContextCancellation(t *testing.T) {
	h, ref := newTestHeader(t)
	rec := newTestRecord(t, "read1", ref, 100)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, 1)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.SetContext(ctx)

	// NewReader's header decode already consumed the block holding the
	// header in full, so the record itself lives in a separate block;
	// reading it is what forces the next readBlock call, where
	// cancellation is observed.
	if _, err := r.Read(); !errors.Is(err, bgzf.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestWriterSetContextCancellationSuppressesEOFMarker(t *testing.T) {
	h, ref := newTestHeader(t)
	rec := newTestRecord(t, "read1", ref, 100)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.SetContext(ctx)

	if err := w.Write(rec); !errors.Is(err, bgzf.ErrCancelled) {
		t.Fatalf("expected ErrCancelled from Write, got %v", err)
	}
	if err := w.Close(); !errors.Is(err, bgzf.ErrCancelled) {
		t.Fatalf("expected ErrCancelled from Close, got %v", err)
	}
	if bytes.Contains(buf.Bytes(), bgzf.MagicBlock) {
		t.Fatal("EOF marker must not be emitted once the writer is cancelled")
	}
}

func TestWriterRejectsOversizedRecord(t *testing.T) {
	h, ref := newTestHeader(t)
	co, err := sam.ParseCigar([]byte("1M"))
	if err != nil {
		t.Fatalf("ParseCigar failed: %v", err)
	}
	seq := bytes.Repeat([]byte{'A'}, maxRecordPayload*2)
	rec, err := sam.NewRecord("huge", ref, nil, 0, -1, 0, 0, co, seq, nil, nil)
	if err != nil {
		t.Fatalf("NewRecord failed: %v", err)
	}

	var buf bytes.Buffer
	w, err := NewWriter(&buf, h, 1)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(rec); !errors.Is(err, ErrRecordTooLarge) {
		t.Fatalf("expected ErrRecordTooLarge, got %v", err)
	}
}
