// Package runtime records live HTTP exchanges as tapes that tests can replay
// without reaching the network.
//
// A recording produces two files. The tape is a single-entry HAR document
// (name.vcr.har) describing the request and the response metadata; the body
// file (name.response_body.json, see BodyPath) holds the response payload,
// pretty-printed when it is JSON and byte-for-byte otherwise. The tape refers
// to the body file by its relative name.
//
// Recorder is the core pipeline. VCR and RecordingTransport wrap it for use
// as an http.RoundTripper that names tapes after Goa endpoints.
package runtime
