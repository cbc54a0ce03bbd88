package runtime

import (
	"net/http"
	"net/url"
	"testing"
)

func TestRouteMatcherVarsReachPathDiversifier(t *testing.T) {
	rm := NewRouteMatcher(testEndpoints)
	var policy Policy
	policy.SetVariantPath("GetThing", true)
	policy.SetVariantQuery("GetThing", false)

	divFor := func(rawurl string) string {
		t.Helper()
		req := mustRequest(t, http.MethodGet, rawurl)
		name, vars, ok := rm.Match(req)
		if !ok || name != "GetThing" {
			t.Fatalf("expected GetThing match for %s, got %q ok=%v", rawurl, name, ok)
		}
		return RequestDiversifier(policy, name, req.URL.Query(), vars)
	}

	div := divFor("http://example.com/things/123?a=1")
	if want := PathDiversifier(url.Values{"id": {"123"}}); div != want {
		t.Fatalf("unexpected diversifier: %q, want %q", div, want)
	}
	if other := divFor("http://example.com/things/456"); other == div {
		t.Fatalf("different route params share diversifier %q", div)
	}
}

func TestRouteMatcherRejectsOtherMethods(t *testing.T) {
	rm := NewRouteMatcher(testEndpoints)
	if name, _, ok := rm.Match(mustRequest(t, http.MethodDelete, "http://example.com/things/1")); ok {
		t.Fatalf("unexpected match: %q", name)
	}
	if _, _, ok := (*RouteMatcher)(nil).Match(mustRequest(t, http.MethodGet, "http://example.com/things/1")); ok {
		t.Fatalf("nil matcher matched")
	}
}

func TestRecordingTransportPathVariantTapes(t *testing.T) {
	store := newTestStore(t)
	store.Policy.SetVariantPath("GetThing", true)
	tr := NewRecordingTransport(nil, store, testEndpoints, staticRoundTripper(http.StatusOK, http.Header{}, `{"ok":true}`))

	for _, id := range []string{"1", "2"} {
		if _, err := tr.RoundTrip(mustRequest(t, http.MethodGet, "http://example.com/things/"+id)); err != nil {
			t.Fatalf("round trip: %v", err)
		}
		ok, err := store.HasTape("GetThing", PathDiversifier(url.Values{"id": {id}}))
		if err != nil || !ok {
			t.Fatalf("expected tape for id %s: ok=%v err=%v", id, ok, err)
		}
	}
	if ok, _ := store.HasTape("GetThing"); ok {
		t.Fatalf("unexpected undiversified tape")
	}
}
