package runtime

import (
	"net/http"
	"reflect"
	"testing"
)

func TestNormalizeHeadersStripsContentLength(t *testing.T) {
	cases := []struct {
		name string
		in   http.Header
	}{
		{name: "canonical", in: http.Header{"Content-Length": {"42"}, "Content-Type": {"application/json"}}},
		{name: "lower case", in: http.Header{"content-length": {"42"}, "Content-Type": {"application/json"}}},
		{name: "absent", in: http.Header{"Content-Type": {"application/json"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeHeaders(tc.in)
			for k := range got {
				if http.CanonicalHeaderKey(k) == "Content-Length" {
					t.Fatalf("stale header %q survived: %#v", k, got)
				}
			}
			if got.Get("Content-Type") != "application/json" {
				t.Fatalf("unexpected headers: %#v", got)
			}
		})
	}
}

func TestNormalizeHeadersDoesNotModifyInput(t *testing.T) {
	in := http.Header{"Content-Length": {"42"}, "X-Trace": {"a", "b"}}
	got := NormalizeHeaders(in)
	if in.Get("Content-Length") != "42" {
		t.Fatalf("input modified: %#v", in)
	}
	got["X-Trace"][0] = "changed"
	if in["X-Trace"][0] != "a" {
		t.Fatalf("output shares values with input")
	}
}

func TestNormalizeHeadersIdempotent(t *testing.T) {
	in := http.Header{"Content-Length": {"42"}, "Date": {"today"}, "Vary": {"Accept"}}
	once := NormalizeHeaders(in, "date")
	twice := NormalizeHeaders(once, "date")
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent: %#v != %#v", once, twice)
	}
	if _, ok := once["Date"]; ok {
		t.Fatalf("extra header not stripped: %#v", once)
	}
	if once.Get("Vary") != "Accept" {
		t.Fatalf("unexpected headers: %#v", once)
	}
}

func TestNormalizeHeadersNil(t *testing.T) {
	got := NormalizeHeaders(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty header, got %#v", got)
	}
}
