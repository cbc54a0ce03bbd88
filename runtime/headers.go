package runtime

import (
	"net/http"
	"strings"
)

// staleHeaders describe the transport encoding of the original payload. The
// body file may be pretty-printed, so they cannot survive into a tape.
var staleHeaders = []string{"Content-Length"}

// NormalizeHeaders returns a copy of h with headers that would be invalid on
// replay removed, along with any extra names. Names match case-insensitively,
// including keys that were set without canonicalization. The input is never
// modified and applying the function twice yields the same result as once.
func NormalizeHeaders(h http.Header, extra ...string) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		if isStripped(k, extra) {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func isStripped(name string, extra []string) bool {
	for _, s := range staleHeaders {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	for _, s := range extra {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
