package runtime

import (
	"bytes"
	"io"
)

// BufferBody consumes r until EOF and returns everything it produced, in
// order, as a single slice. An empty stream yields an empty, non-nil slice.
// If r fails before EOF the partial data is discarded and a *StreamError is
// returned.
func BufferBody(r io.Reader) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, &StreamError{Err: err}
	}
	if buf.Len() == 0 {
		return []byte{}, nil
	}
	return buf.Bytes(), nil
}
