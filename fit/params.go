// Package fit refines sample parameters against a reflectivity dataset by
// CMA-ES minimisation of the negative log posterior.
package fit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pthm-cable/tofsim/config"
	"github.com/pthm-cable/tofsim/reflect"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Path string  // dotted path into the sample config
	Min  float64 // Lower bound
	Max  float64 // Upper bound
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector checks every path resolves against sample and every range
// is non-empty.
func NewParamVector(params []config.FitParam, sample config.SampleConfig) (*ParamVector, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("fit: no parameters to vary")
	}
	pv := &ParamVector{Specs: make([]ParamSpec, len(params))}
	for i, p := range params {
		if !(p.Max > p.Min) {
			return nil, fmt.Errorf("fit: %s has empty range [%v, %v]", p.Path, p.Min, p.Max)
		}
		if _, err := field(&sample, p.Path); err != nil {
			return nil, err
		}
		pv.Specs[i] = ParamSpec{Path: p.Path, Min: p.Min, Max: p.Max}
	}
	return pv, nil
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Values reads the current parameter values from sample.
func (pv *ParamVector) Values(sample config.SampleConfig) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		// paths were checked by NewParamVector
		f, _ := field(&sample, spec.Path)
		v[i] = *f
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Apply returns a copy of sample with the clamped values written to their
// paths. The input is not modified.
func (pv *ParamVector) Apply(sample config.SampleConfig, values []float64) config.SampleConfig {
	out := sample
	out.Layers = append([]reflect.Slab(nil), sample.Layers...)
	for i, v := range pv.Clamp(values) {
		f, _ := field(&out, pv.Specs[i].Path)
		*f = v
	}
	return out
}

// field resolves a dotted path to the float it names.
func field(sc *config.SampleConfig, path string) (*float64, error) {
	parts := strings.Split(path, ".")
	switch {
	case len(parts) == 1 && parts[0] == "scale":
		return &sc.Scale, nil
	case len(parts) == 1 && parts[0] == "bkg":
		return &sc.Bkg, nil
	case len(parts) == 2 && parts[0] == "fronting":
		return slabField(&sc.Fronting, parts[1], path)
	case len(parts) == 2 && parts[0] == "backing":
		return slabField(&sc.Backing, parts[1], path)
	case len(parts) == 2 && parts[0] == "vfmaxent" && parts[1] == "dry_thickness":
		return &sc.VFMaxEnt.DryThickness.Value, nil
	case len(parts) == 3 && parts[0] == "layers":
		i, err := strconv.Atoi(parts[1])
		if err != nil || i < 0 || i >= len(sc.Layers) {
			return nil, fmt.Errorf("fit: %s: no layer %q among %d", path, parts[1], len(sc.Layers))
		}
		return slabField(&sc.Layers[i], parts[2], path)
	}
	return nil, fmt.Errorf("fit: unknown parameter path %q", path)
}

func slabField(s *reflect.Slab, name, path string) (*float64, error) {
	switch name {
	case "thickness":
		return &s.Thickness, nil
	case "sld":
		return &s.SLD, nil
	case "isld":
		return &s.ISLD, nil
	case "rough":
		return &s.Rough, nil
	case "vfsolv":
		return &s.VFSolv, nil
	}
	return nil, fmt.Errorf("fit: %s: slabs have no field %q", path, name)
}
