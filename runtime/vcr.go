package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PolicyFileName is the name of the VCR policy file.
const PolicyFileName = "vcr.json"

type (
	// Policy represents the on-disk schema for vcr.json.
	Policy struct {
		// Upstream is the base URL of the upstream server, e.g. "https://atlaslive.io"
		Upstream string `json:"upstream,omitempty"`
		// Endpoints holds per-endpoint policy options keyed by endpoint name.
		Endpoints map[string]EndpointPolicy `json:"endpoints,omitempty"`
		// StripHeaders lists response headers kept out of tapes on top of
		// Content-Length.
		StripHeaders []string `json:"stripHeaders,omitempty"`
		// FileMode is the octal permission of written tapes, e.g. "0644".
		FileMode string `json:"fileMode,omitempty"`
	}

	// VCR records tapes under a single root directory. Tapes are named after
	// the endpoint that served them and an optional diversifier.
	VCR struct {
		// Root is the storage directory for policy and tapes.
		Root string
		// Policy is loaded from Root.
		Policy Policy

		recorder Recorder
	}

	// Endpoint defines an API endpoint whose traffic is recorded.
	Endpoint struct {
		// Name is the endpoint identifier used for tape filenames.
		Name string `json:"name"`
		// Method is the HTTP method.
		Method string `json:"method"`
		// Pattern is the URL path pattern with Goa-style wildcards.
		Pattern string `json:"pattern"`
	}

	EndpointPolicy struct {
		Variant *VariantPolicy `json:"variant,omitempty"`
	}

	VariantPolicy struct {
		// Query controls whether query strings participate in tape variants.
		// If nil, query variants are enabled.
		Query *bool `json:"query,omitempty"`
		// Path controls whether route params participate in tape variants.
		// If nil, path variants are disabled.
		Path *bool `json:"path,omitempty"`
	}
)

// New creates a VCR store from a single root directory. A vcr.json policy
// file in root is optional.
func New(root string) (*VCR, error) {
	if root == "" {
		return nil, fmt.Errorf("empty root directory")
	}
	clean := filepath.Clean(root)
	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", clean, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", clean)
	}

	policy, err := readPolicy(clean)
	if err != nil {
		return nil, err
	}
	rec, err := policy.Recorder()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Join(clean, PolicyFileName), err)
	}

	return &VCR{
		Root:     clean,
		Policy:   policy,
		recorder: rec,
	}, nil
}

// Host returns the hostname of the upstream server.
func (p Policy) Host() string {
	u, err := url.Parse(p.Upstream)
	if err != nil {
		return ""
	}
	return u.Host
}

// Recorder returns a Recorder configured from the policy.
func (p Policy) Recorder() (Recorder, error) {
	rec := Recorder{StripHeaders: p.StripHeaders}
	if p.FileMode != "" {
		mode, err := strconv.ParseUint(p.FileMode, 8, 32)
		if err != nil || mode > 0777 {
			return Recorder{}, fmt.Errorf("invalid fileMode %q", p.FileMode)
		}
		rec.FileMode = os.FileMode(mode)
	}
	return rec, nil
}

// TapePath returns the path of the tape for the endpoint and optional
// diversifier.
func (v *VCR) TapePath(endpointName string, diversifier ...string) (string, error) {
	div, err := diversifierFromArgs(diversifier)
	if err != nil {
		return "", err
	}
	if v.Root == "" {
		return "", fmt.Errorf("no root configured")
	}
	return filepath.Join(v.Root, tapeKey(endpointName, div)+TapeExt), nil
}

// HasTape reports whether a tape exists for the endpoint and optional diversifier.
func (v *VCR) HasTape(endpointName string, diversifier ...string) (bool, error) {
	path, err := v.TapePath(endpointName, diversifier...)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadTape loads the tape for the endpoint and optional diversifier.
func (v *VCR) ReadTape(endpointName string, diversifier ...string) (*Tape, error) {
	path, err := v.TapePath(endpointName, diversifier...)
	if err != nil {
		return nil, err
	}
	return LoadTape(path)
}

// Record writes the exchange as the tape for the endpoint and diversifier,
// replacing any previous recording. It returns the tape path.
func (v *VCR) Record(ctx context.Context, endpointName, diversifier string, req *http.Request, resp *http.Response, reqBody []byte) (string, error) {
	path, err := v.TapePath(endpointName, diversifier)
	if err != nil {
		return "", err
	}
	return v.recorder.Record(ctx, req, resp, reqBody, path)
}

func diversifierFromArgs(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected 0 or 1 diversifiers, got %d", len(args))
	}
}

func tapeKey(endpointName, diversifier string) string {
	if diversifier == "" {
		return endpointName
	}
	return strings.Join([]string{endpointName, diversifier}, "--")
}

func readPolicy(dir string) (Policy, error) {
	path := filepath.Join(dir, PolicyFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Policy{}, nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("read %s: %w", path, err)
	}

	var policy Policy
	if err := json.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return policy, nil
}
