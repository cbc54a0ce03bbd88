package runtime

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

// chunkReader emits each chunk in its own Read call, then err or io.EOF.
type chunkReader struct {
	chunks [][]byte
	err    error
}

func newChunkReader(err error, chunks ...string) *chunkReader {
	r := &chunkReader{err: err}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.chunks) > 0 && len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

var errBoom = errors.New("boom")

func TestBufferBodyConcatenatesChunks(t *testing.T) {
	cases := []struct {
		name   string
		chunks []string
		want   string
	}{
		{name: "none", chunks: nil, want: ""},
		{name: "single", chunks: []string{"pong"}, want: "pong"},
		{name: "split json", chunks: []string{`{"id":1,`, `"name":"Ann"}`}, want: `{"id":1,"name":"Ann"}`},
		{name: "empty chunks", chunks: []string{"", "a", "", "b", ""}, want: "ab"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BufferBody(newChunkReader(nil, tc.chunks...))
			if err != nil {
				t.Fatalf("buffer: %v", err)
			}
			if got == nil {
				t.Fatalf("expected non-nil body")
			}
			if string(got) != tc.want {
				t.Fatalf("unexpected body: %q", got)
			}
		})
	}
}

func TestBufferBodyLargeStream(t *testing.T) {
	want := bytes.Repeat([]byte("0123456789abcdef"), 64*1024)
	got, err := BufferBody(iotest.HalfReader(bytes.NewReader(want)))
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("body mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func TestBufferBodyNilReader(t *testing.T) {
	got, err := BufferBody(nil)
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty body, got %q", got)
	}
}

func TestBufferBodyStreamError(t *testing.T) {
	got, err := BufferBody(newChunkReader(errBoom, `{"id":`, `1`))
	if got != nil {
		t.Fatalf("expected no partial body, got %q", got)
	}
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("expected *StreamError, got %T: %v", err, err)
	}
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}
