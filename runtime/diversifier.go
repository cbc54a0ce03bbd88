package runtime

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"sort"
	"strings"
)

// RequestDiversifier distinguishes tapes of the same endpoint. It combines a
// path variant and a query variant, each included only when the policy
// enables it for the endpoint, and returns "" when neither applies.
func RequestDiversifier(policy Policy, endpointName string, query url.Values, pathVars map[string]string) string {
	var parts []string

	if enabled, _ := policy.PathVariantEnabled(endpointName); enabled {
		if p := PathDiversifier(varsToValues(pathVars)); p != "" {
			parts = append(parts, p)
		}
	}
	if enabled, _ := policy.QueryVariantEnabled(endpointName); enabled {
		if q := QueryDiversifier(query); q != "" {
			parts = append(parts, q)
		}
	}
	return strings.Join(parts, "--")
}

// QueryDiversifier returns "q-" and a hash of the normalized query, or "".
func QueryDiversifier(values url.Values) string {
	return prefixedHash("q-", values)
}

// PathDiversifier returns "p-" and a hash of the normalized route params, or "".
func PathDiversifier(values url.Values) string {
	return prefixedHash("p-", values)
}

// NormalizeValues encodes values with keys and the values of each key
// sorted, so that equivalent queries encode identically.
func NormalizeValues(values url.Values) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		vals := append([]string(nil), values[key]...)
		if len(vals) == 0 {
			vals = []string{""}
		}
		sort.Strings(vals)
		for _, val := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}

func prefixedHash(prefix string, values url.Values) string {
	normalized := NormalizeValues(values)
	if normalized == "" {
		return ""
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalized))
	return fmt.Sprintf("%s%016x", prefix, h.Sum64())
}

func varsToValues(vars map[string]string) url.Values {
	if len(vars) == 0 {
		return nil
	}
	out := make(url.Values, len(vars))
	for k, v := range vars {
		out.Add(k, v)
	}
	return out
}
