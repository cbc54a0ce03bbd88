package runtime

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// TapeExt is the file extension of a tape.
	TapeExt = ".vcr.har"
	// BodyExt replaces TapeExt to name a tape's body file.
	BodyExt = ".response_body.json"

	// FormatVersion is recorded as the HAR creator version. Loaders reject
	// tapes written with a different version.
	FormatVersion = "1"

	harVersion  = "1.2"
	creatorName = "httptape"
)

type har struct {
	Log harLog `json:"log"`
}

type harLog struct {
	Version string     `json:"version"`
	Creator harCreator `json:"creator"`
	Entries []harEntry `json:"entries"`
}

type harCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type harEntry struct {
	Request  harRequest  `json:"request"`
	Response harResponse `json:"response"`
}

type harRequest struct {
	Method      string         `json:"method"`
	URL         string         `json:"url"`
	HTTPVersion string         `json:"httpVersion"`
	Headers     []harNameValue `json:"headers"`
	QueryString []harNameValue `json:"queryString"`
	PostData    *harPostData   `json:"postData,omitempty"`
	BodySize    int            `json:"bodySize"`
}

type harPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
	Encoding string `json:"_encoding,omitempty"`
}

type harResponse struct {
	Status      int            `json:"status"`
	StatusText  string         `json:"statusText"`
	HTTPVersion string         `json:"httpVersion"`
	Headers     []harNameValue `json:"headers"`
	Content     harContent     `json:"content"`
}

type harContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType,omitempty"`
	File     string `json:"_file"`
}

type harNameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type (
	// TapeContext holds everything a tape is rendered from.
	TapeContext struct {
		Request *http.Request
		// Response supplies status and protocol. Its headers are ignored in
		// favor of Headers, which must already be normalized.
		Response *http.Response
		Headers  http.Header
		// RequestBody is the buffered request payload, possibly empty.
		RequestBody []byte
		// BodyFile is the body file name relative to the tape's directory.
		BodyFile string
		// BodySize is the length of the body file content.
		BodySize int
	}

	// Tape is a tape loaded back from disk.
	Tape struct {
		Path        string
		BodyPath    string
		Request     RequestSpec
		Response    ResponseMeta
		RequestBody []byte
	}

	// RequestSpec describes the recorded request.
	RequestSpec struct {
		Method  string
		URL     string
		Host    string
		Headers http.Header
	}

	// ResponseMeta describes the recorded response, without its body.
	ResponseMeta struct {
		Status   int
		Headers  http.Header
		MimeType string
		Size     int
	}
)

// BodyPath derives the body file path of the tape at tapePath. A trailing
// TapeExt is replaced by BodyExt; any other path has BodyExt appended. The
// recorder and LoadTape both name body files with it.
func BodyPath(tapePath string) string {
	if strings.HasSuffix(tapePath, TapeExt) {
		return strings.TrimSuffix(tapePath, TapeExt) + BodyExt
	}
	return tapePath + BodyExt
}

// RenderTape encodes tc as a single-entry HAR document. The output is a pure
// function of tc: headers and query parameters are sorted and no timestamps
// are recorded.
func RenderTape(tc TapeContext) ([]byte, error) {
	switch {
	case tc.Request == nil:
		return nil, &RenderError{Field: "request"}
	case tc.Request.Method == "":
		return nil, &RenderError{Field: "request method"}
	case tc.Request.URL == nil:
		return nil, &RenderError{Field: "request URL"}
	case tc.Response == nil:
		return nil, &RenderError{Field: "response"}
	case tc.Response.StatusCode == 0:
		return nil, &RenderError{Field: "response status"}
	case tc.BodyFile == "":
		return nil, &RenderError{Field: "body file name"}
	}

	respHeaders := canonicalHeader(tc.Headers)
	archive := &har{
		Log: harLog{
			Version: harVersion,
			Creator: harCreator{Name: creatorName, Version: FormatVersion},
			Entries: []harEntry{{
				Request: harRequest{
					Method:      tc.Request.Method,
					URL:         requestURL(tc.Request),
					HTTPVersion: protoOrDefault(tc.Request.Proto),
					Headers:     valuePairs(canonicalHeader(tc.Request.Header)),
					QueryString: valuePairs(tc.Request.URL.Query()),
					PostData:    postData(canonicalHeader(tc.Request.Header), tc.RequestBody),
					BodySize:    len(tc.RequestBody),
				},
				Response: harResponse{
					Status:      tc.Response.StatusCode,
					StatusText:  http.StatusText(tc.Response.StatusCode),
					HTTPVersion: protoOrDefault(tc.Response.Proto),
					Headers:     valuePairs(respHeaders),
					Content: harContent{
						Size:     tc.BodySize,
						MimeType: respHeaders.Get("Content-Type"),
						File:     tc.BodyFile,
					},
				},
			}},
		},
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(archive); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

// LoadTape reads the tape at path. The body file is resolved from the name
// recorded in the tape, or from BodyPath when the tape does not name one.
func LoadTape(path string) (*Tape, error) {
	archive, err := readHAR(path)
	if err != nil {
		return nil, err
	}
	if archive.Log.Creator.Name == creatorName && archive.Log.Creator.Version != FormatVersion {
		return nil, fmt.Errorf("parse %s: unsupported tape version %q", path, archive.Log.Creator.Version)
	}
	entry, err := singleEntry(archive)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	bodyPath := BodyPath(path)
	if entry.Response.Content.File != "" {
		bodyPath = filepath.Join(filepath.Dir(path), entry.Response.Content.File)
	}
	reqBody, err := entry.Request.body()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	req := RequestSpec{
		Method:  entry.Request.Method,
		URL:     entry.Request.URL,
		Headers: pairsToHeader(entry.Request.Headers),
	}
	if u, err := url.Parse(entry.Request.URL); err == nil {
		req.Host = u.Host
	}
	return &Tape{
		Path:        path,
		BodyPath:    bodyPath,
		Request:     req,
		RequestBody: reqBody,
		Response: ResponseMeta{
			Status:   entry.Response.Status,
			Headers:  pairsToHeader(entry.Response.Headers),
			MimeType: entry.Response.Content.MimeType,
			Size:     entry.Response.Content.Size,
		},
	}, nil
}

// ReadBody returns the content of the tape's body file.
func (t *Tape) ReadBody() ([]byte, error) {
	data, err := os.ReadFile(t.BodyPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.BodyPath, err)
	}
	return data, nil
}

func readHAR(path string) (*har, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var archive har
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &archive, nil
}

func singleEntry(archive *har) (*harEntry, error) {
	if archive == nil {
		return nil, fmt.Errorf("har is nil")
	}
	if len(archive.Log.Entries) != 1 {
		return nil, fmt.Errorf("har must contain exactly one entry")
	}
	return &archive.Log.Entries[0], nil
}

func (r harRequest) body() ([]byte, error) {
	if r.PostData == nil {
		return []byte{}, nil
	}
	if r.PostData.Encoding == "base64" {
		return base64.StdEncoding.DecodeString(r.PostData.Text)
	}
	return []byte(r.PostData.Text), nil
}

// requestURL returns an absolute URL without credentials. Server-side
// requests only carry a path, so scheme and host are filled in from the
// request.
func requestURL(req *http.Request) string {
	u := *req.URL
	u.User = nil
	if u.Host == "" {
		u.Host = req.Host
	}
	if u.Scheme == "" && u.Host != "" {
		u.Scheme = "http"
		if req.TLS != nil {
			u.Scheme = "https"
		}
	}
	return u.String()
}

func postData(h http.Header, body []byte) *harPostData {
	if len(body) == 0 {
		return nil
	}
	pd := &harPostData{MimeType: h.Get("Content-Type")}
	if utf8.Valid(body) {
		pd.Text = string(body)
	} else {
		pd.Text = base64.StdEncoding.EncodeToString(body)
		pd.Encoding = "base64"
	}
	return pd
}

func protoOrDefault(proto string) string {
	if proto == "" {
		return "HTTP/1.1"
	}
	return proto
}

// canonicalHeader merges keys that differ only in case under their canonical
// name. Raw keys are visited in sorted order so merged values are stable.
func canonicalHeader(h http.Header) http.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(http.Header, len(h))
	for _, name := range names {
		key := http.CanonicalHeaderKey(name)
		out[key] = append(out[key], h[name]...)
	}
	return out
}

func valuePairs(values map[string][]string) []harNameValue {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]harNameValue, 0, len(values))
	for _, name := range names {
		for _, value := range values[name] {
			pairs = append(pairs, harNameValue{Name: name, Value: value})
		}
	}
	return pairs
}

func pairsToHeader(pairs []harNameValue) http.Header {
	h := make(http.Header, len(pairs))
	for _, p := range pairs {
		h.Add(p.Name, p.Value)
	}
	return h
}
