package runtime

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"goa.design/clue/log"
	"golang.org/x/sync/errgroup"
)

// Recorder persists captured HTTP exchanges as a tape and a sibling body
// file. The zero value is ready to use.
type Recorder struct {
	// StripHeaders lists response headers removed from tapes in addition to
	// Content-Length.
	StripHeaders []string
	// FileMode is the permission of written files. Zero means
	// DefaultFileMode.
	FileMode os.FileMode
}

// Record buffers resp.Body and writes a tape to tapePath and the formatted
// body to BodyPath(tapePath). It returns tapePath once both files are on
// disk.
//
// resp.Body is consumed and closed, then replaced by a reader over the
// buffered bytes so the caller can still forward the response. resp.Header
// is left untouched; only the tape sees normalized headers.
//
// Any failure aborts the recording and is returned as is: a *StreamError
// when the body could not be read, a *RenderError when the tape could not be
// rendered and a *WriteError when a file could not be written. Both files
// are staged next to their targets and only renamed into place once both
// were written, so a failed write leaves any previous recording as it was.
// Only a failed rename of the tape itself, after the body file is already in
// place, removes that body file again.
func (r *Recorder) Record(ctx context.Context, req *http.Request, resp *http.Response, reqBody []byte, tapePath string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if resp == nil {
		return "", &RenderError{Field: "response"}
	}
	body, err := BufferBody(resp.Body)
	if resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		resp.Body = http.NoBody
		return "", err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	headers := NormalizeHeaders(resp.Header, r.StripHeaders...)
	formatted := FormatBody(body)
	bodyPath := BodyPath(tapePath)

	tape, err := RenderTape(TapeContext{
		Request:     req,
		Response:    resp,
		Headers:     headers,
		RequestBody: reqBody,
		BodyFile:    filepath.Base(bodyPath),
		BodySize:    len(formatted.Bytes()),
	})
	if err != nil {
		return "", err
	}

	ctx = log.With(ctx, log.KV{K: "vcr.tape", V: tapePath})
	// Body first: a tape must never point at a body file that is missing.
	paths := [2]string{bodyPath, tapePath}
	contents := [2][]byte{formatted.Bytes(), tape}
	var staged [2]*stagedFile

	var g errgroup.Group
	for i := range paths {
		i := i // per-iteration copy; preserves Go 1.22+ loop semantics under the go 1.21 directive
		g.Go(func() error {
			log.Debug(ctx, log.KV{K: "vcr.write", V: paths[i]})
			f, err := stageFile(paths[i], contents[i], r.fileMode())
			if err != nil {
				return err
			}
			staged[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range staged {
			f.discard()
		}
		return "", err
	}
	for i, f := range staged {
		if err := f.commit(); err != nil {
			for _, done := range staged[:i] {
				_ = os.Remove(done.path)
			}
			for _, rest := range staged[i+1:] {
				rest.discard()
			}
			return "", err
		}
	}

	log.Debug(ctx, log.KV{K: "vcr.body.kind", V: formatted.Kind.String()})
	return tapePath, nil
}

// Record records with a zero Recorder.
func Record(ctx context.Context, req *http.Request, resp *http.Response, reqBody []byte, tapePath string) (string, error) {
	var r Recorder
	return r.Record(ctx, req, resp, reqBody, tapePath)
}

func (r *Recorder) fileMode() os.FileMode {
	if r.FileMode == 0 {
		return DefaultFileMode
	}
	return r.FileMode
}
