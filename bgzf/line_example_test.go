// Copyright ©2021 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgzf_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alignio/hts/bgzf"
)

// TestReadLineChunks checks that a reader positioned with Begin/End
// reports a chunk that, when fed back through Seek, re-reads the same
// line.
func TestReadLineChunks(t *testing.T) {
	text := strings.Join([]string{
		"It ain't any use, Huck, we're wrong again.",
		"I don't see how we're a-going to find the robbers now, Tom.",
		"They're around here somewheres, just the same.",
	}, "\n") + "\n"

	var buf bytes.Buffer
	w := bgzf.NewWriter(&buf, 1)
	if _, err := io.Copy(w, strings.NewReader(text)); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := bgzf.NewReader(bytes.NewReader(buf.Bytes()), 1)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}

	var chunks []bgzf.Chunk
	var lines []string
	for {
		line, chunk, err := readLine(r)
		if len(line) > 0 {
			chunks = append(chunks, chunk)
			lines = append(lines, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("readLine: %v", err)
		}
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	backing := bytes.NewReader(buf.Bytes())
	r2, err := bgzf.NewReader(backing, 1)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	for i, chunk := range chunks {
		if err := r2.Seek(chunk.Begin); err != nil {
			t.Fatalf("line %d: Seek: %v", i, err)
		}
		got, _, err := readLine(r2)
		if err != nil && !errors.Is(err, io.EOF) {
			t.Fatalf("line %d: readLine: %v", i, err)
		}
		if got != lines[i] {
			t.Fatalf("line %d: got %q, want %q", i, got, lines[i])
		}
	}
}

// readLine returns a line terminated by a '\n' and the bgzf.Chunk spanning
// it, including the newline character. If the end of the stream is
// reached before a newline, the unterminated line and its chunk are
// returned.
func readLine(r *bgzf.Reader) (string, bgzf.Chunk, error) {
	tx := r.Begin()
	var data []byte
	var err error
	for {
		var b byte
		b, err = r.ReadByte()
		if err != nil {
			break
		}
		data = append(data, b)
		if b == '\n' {
			break
		}
	}
	return string(data), tx.End(), err
}
