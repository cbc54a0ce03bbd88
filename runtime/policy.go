package runtime

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// QueryVariantEnabled returns (enabled, explicit) for endpoints[name].variant.query.
// If explicit is false, enabled defaults to true.
func (p Policy) QueryVariantEnabled(endpointName string) (bool, bool) {
	if p.Endpoints == nil {
		return true, false
	}
	ep, ok := p.Endpoints[endpointName]
	if !ok || ep.Variant == nil || ep.Variant.Query == nil {
		return true, false
	}
	return *ep.Variant.Query, true
}

// PathVariantEnabled returns (enabled, explicit) for endpoints[name].variant.path.
// If explicit is false, enabled defaults to false.
func (p Policy) PathVariantEnabled(endpointName string) (bool, bool) {
	if p.Endpoints == nil {
		return false, false
	}
	ep, ok := p.Endpoints[endpointName]
	if !ok || ep.Variant == nil || ep.Variant.Path == nil {
		return false, false
	}
	return *ep.Variant.Path, true
}

func (p *Policy) SetVariantQuery(endpointName string, enabled bool) {
	ep := p.endpoint(endpointName)
	ep.Variant.Query = &enabled
	p.Endpoints[endpointName] = ep
}

func (p *Policy) SetVariantPath(endpointName string, enabled bool) {
	ep := p.endpoint(endpointName)
	ep.Variant.Path = &enabled
	p.Endpoints[endpointName] = ep
}

func (p *Policy) endpoint(endpointName string) EndpointPolicy {
	if p.Endpoints == nil {
		p.Endpoints = map[string]EndpointPolicy{}
	}
	ep := p.Endpoints[endpointName]
	if ep.Variant == nil {
		ep.Variant = &VariantPolicy{}
	}
	return ep
}

// WritePolicy persists the current policy to Root/vcr.json.
func (v *VCR) WritePolicy() error {
	if v.Root == "" {
		return fmt.Errorf("empty root")
	}
	path := filepath.Join(v.Root, PolicyFileName)
	data, err := json.MarshalIndent(v.Policy, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	data = append(data, '\n')
	return WriteFile(path, data, DefaultFileMode)
}
