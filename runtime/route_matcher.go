package runtime

import (
	"context"
	"net/http"

	goahttp "goa.design/goa/v3/http"
)

// RouteMatcher resolves requests to endpoint names by dispatching them
// through a Goa muxer whose handlers only note which route fired.
type RouteMatcher struct {
	mux goahttp.Muxer
}

type routeMatch struct {
	name string
	vars map[string]string
}

type routeMatchKey struct{}

func NewRouteMatcher(endpoints []Endpoint) *RouteMatcher {
	mux := goahttp.NewMuxer()
	for _, ep := range endpoints {
		endpointName := ep.Name
		mux.Handle(ep.Method, ep.Pattern, func(w http.ResponseWriter, r *http.Request) {
			m, _ := r.Context().Value(routeMatchKey{}).(*routeMatch)
			if m == nil || m.name != "" {
				return
			}
			m.name = endpointName
			m.vars = mux.Vars(r)
		})
	}
	if chiMux, ok := mux.(interface{ NotFound(http.HandlerFunc) }); ok {
		chiMux.NotFound(func(http.ResponseWriter, *http.Request) {})
	}
	return &RouteMatcher{mux: mux}
}

// Match returns the name and route params of the endpoint serving r.
func (rm *RouteMatcher) Match(r *http.Request) (endpointName string, vars map[string]string, ok bool) {
	if rm == nil || rm.mux == nil || r == nil {
		return "", nil, false
	}
	m := &routeMatch{}
	ctx := context.WithValue(r.Context(), routeMatchKey{}, m)
	rm.mux.ServeHTTP(discardResponseWriter{}, r.WithContext(ctx))
	if m.name == "" {
		return "", nil, false
	}
	return m.name, m.vars, true
}

type discardResponseWriter struct{}

func (discardResponseWriter) Header() http.Header         { return http.Header{} }
func (discardResponseWriter) Write(b []byte) (int, error) { return len(b), nil }
func (discardResponseWriter) WriteHeader(int)             {}
