// Package config provides configuration loading and access for the simulator.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/tofsim/reflect"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Instrument InstrumentConfig `yaml:"instrument"`
	Spectrum   SpectrumConfig   `yaml:"spectrum"`
	Simulation SimulationConfig `yaml:"simulation"`
	Sample     SampleConfig     `yaml:"sample"`
	Output     OutputConfig     `yaml:"output"`
	Fit        FitConfig        `yaml:"fit"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// InstrumentConfig holds collimation and resolution settings.
type InstrumentConfig struct {
	Angle                  float64 `yaml:"angle"`     // degrees
	L12                    float64 `yaml:"l12"`       // mm
	L2S                    float64 `yaml:"l2s"`       // mm
	Footprint              float64 `yaml:"footprint"` // mm
	DTheta                 float64 `yaml:"dtheta"`    // % FWHM
	DLambda                float64 `yaml:"dlambda"`   // % FWHM
	Rebin                  float64 `yaml:"rebin"`     // % of bin centre
	LoWavelength           float64 `yaml:"lo_wavelength"`
	HiWavelength           float64 `yaml:"hi_wavelength"`
	ForceGaussian          bool    `yaml:"force_gaussian"`
	ForceUniformWavelength bool    `yaml:"force_uniform_wavelength"`
}

// SpectrumConfig selects the beam spectrum and how it is sampled.
type SpectrumConfig struct {
	File          string  `yaml:"file"`        // empty = maxwellian
	Temperature   float64 `yaml:"temperature"` // K
	Points        int     `yaml:"points"`
	GridPoints    int     `yaml:"grid_points"`
	ExactQuantile bool    `yaml:"exact_quantile"`
	Tolerance     float64 `yaml:"tolerance"`
	Workers       int     `yaml:"workers"`
}

// SimulationConfig holds sampling parameters.
type SimulationConfig struct {
	Samples    int    `yaml:"samples"`
	Batches    int    `yaml:"batches"` // Run calls the samples are split over
	Seed       uint64 `yaml:"seed"`    // 0 = time based
	KernelCap  int    `yaml:"kernel_cap"`
	KernelBins int    `yaml:"kernel_bins"`
	ChunkSize  int    `yaml:"chunk_size"`
}

// SampleConfig describes the reflectivity model.
type SampleConfig struct {
	Model    string         `yaml:"model"`    // structure | constant
	Constant float64        `yaml:"constant"` // reflectivity of the constant model
	Scale    float64        `yaml:"scale"`
	Bkg      float64        `yaml:"bkg"`
	Fronting reflect.Slab   `yaml:"fronting"`
	Layers   []reflect.Slab `yaml:"layers"`
	Backing  reflect.Slab   `yaml:"backing"`
	Solvent  *float64       `yaml:"solvent,omitempty"` // nil = backing SLD
	VFMaxEnt VFMaxEntConfig `yaml:"vfmaxent"`
}

// VFMaxEntConfig is an optional adsorbed layer placed after Layers.
type VFMaxEntConfig struct {
	Enabled        bool              `yaml:"enabled"`
	DryThickness   reflect.Parameter `yaml:"dry_thickness"`
	SLD            float64           `yaml:"sld"`
	ISLD           float64           `yaml:"isld"`
	Betas          []float64         `yaml:"betas"`
	TotalThickness float64           `yaml:"total_thickness"`
	Alpha          float64           `yaml:"alpha"`
	Rough          float64           `yaml:"rough"`
}

// OutputConfig names the files written by a run.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Dataset string `yaml:"dataset"`
	Kernel  string `yaml:"kernel"`
	Batches string `yaml:"batches"`
	Config  string `yaml:"config"`
}

// FitConfig holds CMA-ES settings for fitting sample parameters to a
// dataset.
type FitConfig struct {
	MaxEvals     int        `yaml:"max_evals"`
	Population   int        `yaml:"population"` // 0 = auto
	InitStepSize float64    `yaml:"init_step_size"`
	Seed         uint64     `yaml:"seed"`
	Params       []FitParam `yaml:"params"`
}

// FitParam is one varying sample parameter, addressed by a dotted path such
// as layers.0.thickness, backing.rough or scale.
type FitParam struct {
	Path string  `yaml:"path"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// DerivedConfig holds values computed from other config values.
type DerivedConfig struct {
	BatchSizes []int // neutrons per Run call, summing to Samples
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Validate rejects values the simulator cannot run with. Nothing is clamped.
func (c *Config) Validate() error {
	in := c.Instrument
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"instrument.angle", in.Angle},
		{"instrument.l12", in.L12},
		{"instrument.l2s", in.L2S},
		{"instrument.footprint", in.Footprint},
		{"instrument.dtheta", in.DTheta},
		{"instrument.rebin", in.Rebin},
		{"instrument.lo_wavelength", in.LoWavelength},
	} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("config: %s = %v must be positive", f.name, f.v)
		}
	}
	if in.Angle >= 90 {
		return fmt.Errorf("config: instrument.angle = %v must be below 90", in.Angle)
	}
	if in.DLambda < 0 {
		return fmt.Errorf("config: instrument.dlambda = %v must not be negative", in.DLambda)
	}
	if !(in.HiWavelength > in.LoWavelength) {
		return fmt.Errorf("config: wavelength range [%v, %v] is empty", in.LoWavelength, in.HiWavelength)
	}

	sp := c.Spectrum
	if sp.File == "" && !(sp.Temperature > 0) {
		return fmt.Errorf("config: spectrum.temperature = %v must be positive", sp.Temperature)
	}
	if sp.GridPoints < 2 {
		return fmt.Errorf("config: spectrum.grid_points = %d, need at least 2", sp.GridPoints)
	}
	if sp.ExactQuantile && !(sp.Tolerance > 0) {
		return fmt.Errorf("config: spectrum.tolerance = %v must be positive", sp.Tolerance)
	}
	if sp.Workers < 1 {
		return fmt.Errorf("config: spectrum.workers = %d, need at least 1", sp.Workers)
	}

	sim := c.Simulation
	if sim.Samples < 0 || sim.Batches < 1 {
		return fmt.Errorf("config: %d samples in %d batches", sim.Samples, sim.Batches)
	}
	if sim.KernelCap < 1 || sim.KernelBins < 1 || sim.ChunkSize < 1 {
		return fmt.Errorf("config: kernel_cap, kernel_bins and chunk_size must be positive")
	}

	if c.Fit.MaxEvals < 1 || !(c.Fit.InitStepSize > 0) || c.Fit.Population < 0 {
		return fmt.Errorf("config: fit needs positive max_evals and init_step_size")
	}
	for _, p := range c.Fit.Params {
		if !(p.Max > p.Min) {
			return fmt.Errorf("config: fit parameter %s has empty range [%v, %v]", p.Path, p.Min, p.Max)
		}
	}

	switch c.Sample.Model {
	case "constant":
		if c.Sample.Constant < 0 || c.Sample.Constant > 1 {
			return fmt.Errorf("config: sample.constant = %v outside [0, 1]", c.Sample.Constant)
		}
	case "structure":
	default:
		return fmt.Errorf("config: unknown sample.model %q", c.Sample.Model)
	}
	return nil
}

// Recompute validates the config again and refreshes derived values after
// fields were changed in code, such as command line overrides.
func (c *Config) Recompute() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	n, b := c.Simulation.Samples, c.Simulation.Batches
	per, rem := n/b, n%b
	c.Derived.BatchSizes = make([]int, b)
	for i := range c.Derived.BatchSizes {
		c.Derived.BatchSizes[i] = per
		if i < rem {
			c.Derived.BatchSizes[i]++
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
