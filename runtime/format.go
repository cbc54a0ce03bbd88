package runtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"unicode/utf8"
)

// BodyKind tags the two shapes a FormattedBody can take.
type BodyKind int

const (
	// RawBody holds the buffered bytes unchanged.
	RawBody BodyKind = iota
	// JSONBody holds a decoded JSON value and its canonical rendering.
	JSONBody
)

func (k BodyKind) String() string {
	if k == JSONBody {
		return "json"
	}
	return "raw"
}

// FormattedBody is the content persisted to a tape's body file.
type FormattedBody struct {
	Kind BodyKind
	// Value is the decoded document when Kind is JSONBody. Numbers are kept
	// as json.Number so they render exactly as received.
	Value any
	data  []byte
}

// Bytes returns the content to write to the body file.
func (b FormattedBody) Bytes() []byte { return b.data }

// FormatBody pretty-prints body when it is a single valid UTF-8 JSON document
// and passes it through unchanged otherwise. The JSON rendering uses
// two-space indentation, sorted object keys, no HTML escaping and a trailing
// newline, so it depends only on the decoded value. FormatBody never fails
// and never modifies body.
func FormatBody(body []byte) FormattedBody {
	value, ok := decodeDocument(body)
	if ok {
		if pretty, err := encodePretty(value); err == nil {
			return FormattedBody{Kind: JSONBody, Value: value, data: pretty}
		}
	}
	return FormattedBody{Kind: RawBody, data: bytes.Clone(body)}
}

func decodeDocument(body []byte) (any, bool) {
	if !utf8.Valid(body) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, false
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return value, true
}

func encodePretty(value any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
