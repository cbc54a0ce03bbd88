package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"goa.design/clue/log"
)

// RecordingTransport is an http.RoundTripper that proxies to an upstream
// RoundTripper and records every response it receives for a known endpoint
// into the VCR store, using Goa mount points to identify endpoint names.
type RecordingTransport struct {
	ctx     context.Context
	store   *VCR
	matcher *RouteMatcher
	base    http.RoundTripper
}

func NewRecordingTransport(ctx context.Context, store *VCR, endpoints []Endpoint, base http.RoundTripper) *RecordingTransport {
	if ctx == nil {
		ctx = context.Background()
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &RecordingTransport{
		ctx:     ctx,
		store:   store,
		matcher: NewRouteMatcher(endpoints),
		base:    base,
	}
}

// RoundTrip forwards req and records the exchange. The returned response
// carries the buffered body. A body that fails mid-transfer is returned as an
// error; failing to write the tape is logged and does not affect the caller.
func (t *RecordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.store == nil || t.matcher == nil {
		return t.base.RoundTrip(req)
	}

	endpointName, vars, ok := t.matcher.Match(req)
	if !ok {
		return t.base.RoundTrip(req)
	}
	div := RequestDiversifier(t.store.Policy, endpointName, req.URL.Query(), vars)

	out, reqBody, err := bufferRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(out)
	if err != nil || resp == nil {
		return resp, err
	}

	ctx := log.With(t.ctx, log.KV{K: "vcr.endpoint.name", V: endpointName})
	if div != "" {
		ctx = log.With(ctx, log.KV{K: "vcr.variant", V: div})
	}

	action := "create"
	if exists, existsErr := t.store.HasTape(endpointName, div); existsErr != nil {
		log.Error(ctx, existsErr, log.KV{K: "msg", V: "tape exists check failed"})
	} else if exists {
		action = "update"
	}

	if _, recErr := t.store.Record(ctx, endpointName, div, out, resp, reqBody); recErr != nil {
		var streamErr *StreamError
		if errors.As(recErr, &streamErr) {
			log.Error(ctx, recErr, log.KV{K: "msg", V: "response body failed"})
			return nil, recErr
		}
		log.Error(ctx, recErr, log.KV{K: "msg", V: "record failed"})
		return resp, nil
	}

	log.Info(ctx, log.KV{K: "vcr.action", V: action}, log.KV{K: "vcr.status", V: resp.StatusCode})
	return resp, nil
}

// bufferRequest reads and closes the request body and returns a clone of req
// whose body replays the buffered bytes.
func bufferRequest(req *http.Request) (*http.Request, []byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, []byte{}, nil
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("read request body: %w", err)
	}
	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(body))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	out.ContentLength = int64(len(body))
	return out, body, nil
}
