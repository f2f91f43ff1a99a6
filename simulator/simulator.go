// Package simulator predicts the reflectivity a time-of-flight neutron
// reflectometer would measure for a sample, by Monte Carlo sampling of
// individual neutrons.
//
// Each neutron gets an angle from the collimation's angular divergence and a
// wavelength from the beam spectrum. It is reflected with probability equal
// to the model reflectivity at its exact momentum transfer, then its
// wavelength is jittered by the chopper resolution and histogrammed into
// rebinned wavelength bins. Direct and reflected counts accumulate across
// Run calls; their ratio is the simulated reflectivity.
package simulator

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/pthm-cable/tofsim/dist"
	"github.com/pthm-cable/tofsim/geometry"
	"github.com/pthm-cable/tofsim/reflect"
	"github.com/pthm-cable/tofsim/spectrum"
)

// DefaultKernelCap is the number of q samples kept per wavelength bin for
// the resolution kernel.
const DefaultKernelCap = 500_000

// DefaultChunkSize is the number of neutrons processed per model call.
const DefaultChunkSize = 1 << 16

// Options configures a Simulator. Percentages are FWHM of the Gaussian
// approximation of the corresponding resolution function.
type Options struct {
	Angle       float64 // angle of incidence, degrees
	Collimation geometry.Collimation
	DTheta      float64 // angular resolution, percent
	DLambda     float64 // wavelength resolution, percent
	// Rebin is the width of a wavelength bin as a percentage of its centre.
	// Its contribution to the resolution is 0.68 times that.
	Rebin float64

	LoWavelength float64 // Å
	HiWavelength float64 // Å

	// ForceGaussian replaces the trapezoidal angular and uniform chopper
	// distributions by Gaussians of the same FWHM. Rebin smearing is not
	// affected.
	ForceGaussian bool
	// ForceUniformWavelength draws wavelengths evenly over
	// [LoWavelength, HiWavelength] instead of from Spectrum.
	ForceUniformWavelength bool
	// Spectrum is the beam wavelength distribution. Required unless
	// ForceUniformWavelength is set.
	Spectrum spectrum.Continuous

	KernelCap int // q samples kept per bin; 0 means DefaultKernelCap
	ChunkSize int // 0 means DefaultChunkSize

	Logger *slog.Logger
}

// DefaultOptions returns the collimation and resolution settings typically
// used on PLATYPUS, at the given angle.
func DefaultOptions(angle float64) Options {
	return Options{
		Angle:        angle,
		Collimation:  geometry.Collimation{L12: 2859, L2S: 120, Footprint: 60},
		DTheta:       3.3,
		DLambda:      3.3,
		Rebin:        2,
		LoWavelength: 2.8,
		HiWavelength: 18,
	}
}

// Simulator accumulates direct and reflected beam histograms.
// It is not safe for concurrent use; give each goroutine its own.
type Simulator struct {
	model reflect.Model
	opts  Options
	log   *slog.Logger

	// fractional resolutions
	dtheta, dlambda, rebin float64
	// multiplier of the per-neutron chopper noise
	jitter float64

	edges []float64
	q     []float64

	s1, s2     float64
	angular    dist.Sampler
	wavelength dist.Sampler

	direct    []uint64
	reflected []uint64
	kernel    []qStore
	fullBins  int
	samples   uint64

	scratch chunk
}

// New builds a simulator for model. Invalid geometry, resolution or
// wavelength settings are reported as errors; nothing is clamped.
//
// The model is always evaluated with zero angular resolution: the angular
// smearing is already carried by the sampled angles and must not be applied
// twice.
func New(model reflect.Model, opts Options) (*Simulator, error) {
	if model == nil {
		return nil, fmt.Errorf("simulator: nil reflectivity model")
	}
	if !(opts.Angle > 0) || opts.Angle >= 90 {
		return nil, fmt.Errorf("simulator: angle %v must lie in (0, 90) degrees", opts.Angle)
	}
	if !(opts.DTheta > 0) {
		return nil, fmt.Errorf("simulator: angular resolution %v%% must be positive", opts.DTheta)
	}
	if opts.DLambda < 0 || math.IsNaN(opts.DLambda) {
		return nil, fmt.Errorf("simulator: wavelength resolution %v%% must not be negative", opts.DLambda)
	}
	if opts.KernelCap < 0 || opts.ChunkSize < 0 {
		return nil, fmt.Errorf("simulator: kernel cap %d and chunk size %d must not be negative",
			opts.KernelCap, opts.ChunkSize)
	}
	if opts.KernelCap == 0 {
		opts.KernelCap = DefaultKernelCap
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Simulator{
		model:   model,
		opts:    opts,
		log:     opts.Logger,
		dtheta:  opts.DTheta / 100,
		dlambda: opts.DLambda / 100,
		rebin:   opts.Rebin / 100,
	}
	if opts.ForceGaussian {
		s.jitter = s.dlambda / geometry.FWHMToSigma
	} else {
		// full width of the uniform whose Gaussian-equivalent FWHM is dlambda
		s.jitter = s.dlambda / geometry.TrapezoidFWHM
	}

	edges, err := geometry.WavelengthBins(opts.LoWavelength, opts.HiWavelength, opts.Rebin)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	if err := geometry.ValidateEdges(edges); err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	s.edges = edges
	s.q = make([]float64, len(edges)-1)
	for i, c := range geometry.Centres(edges) {
		s.q[i] = geometry.Q(opts.Angle, c)
	}

	s.s1, s.s2, err = geometry.OptimiseSlits(opts.Collimation, s.dtheta, opts.Angle)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}
	s.angular, err = geometry.AngularDistribution(s.s1, s.s2, opts.Collimation.L12, opts.ForceGaussian)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	if opts.ForceUniformWavelength {
		s.wavelength = dist.Uniform{Min: opts.LoWavelength, Max: opts.HiWavelength}
	} else {
		if opts.Spectrum == nil {
			return nil, fmt.Errorf("simulator: no spectrum given and uniform wavelengths not forced")
		}
		s.wavelength = opts.Spectrum
	}

	nbins := len(s.q)
	s.direct = make([]uint64, nbins)
	s.reflected = make([]uint64, nbins)
	s.kernel = make([]qStore, nbins)
	for i := range s.kernel {
		s.kernel[i].limit = opts.KernelCap
	}

	s.log.Debug("simulator ready",
		"angle", opts.Angle,
		"bins", nbins,
		"s1", s.s1,
		"s2", s.s2,
		"force_gaussian", opts.ForceGaussian,
		"force_uniform_wavelength", opts.ForceUniformWavelength,
	)
	return s, nil
}

// Edges returns the wavelength bin edges.
func (s *Simulator) Edges() []float64 { return append([]float64(nil), s.edges...) }

// Q returns the nominal momentum transfer of each wavelength bin, in
// wavelength order (so decreasing q).
func (s *Simulator) Q() []float64 { return append([]float64(nil), s.q...) }

// Slits returns the slit openings (mm) derived from the collimation.
func (s *Simulator) Slits() (s1, s2 float64) { return s.s1, s.s2 }

// Samples returns the number of neutrons drawn so far.
func (s *Simulator) Samples() uint64 { return s.samples }

// Resolution returns the fractional q resolution (FWHM) of every point,
// combining angular, chopper and rebin contributions in quadrature.
func (s *Simulator) Resolution() float64 {
	rb := geometry.TrapezoidFWHM * s.rebin
	return math.Sqrt(s.dlambda*s.dlambda + s.dtheta*s.dtheta + rb*rb)
}

// DirectBeam returns the direct beam counts per wavelength bin.
func (s *Simulator) DirectBeam() []uint64 { return append([]uint64(nil), s.direct...) }

// ReflectedBeam returns the reflected beam counts per wavelength bin.
func (s *Simulator) ReflectedBeam() []uint64 { return append([]uint64(nil), s.reflected...) }

// KernelSizes returns the number of q samples stored per wavelength bin.
func (s *Simulator) KernelSizes() []int {
	sizes := make([]int, len(s.kernel))
	for i := range s.kernel {
		sizes[i] = len(s.kernel[i].samples)
	}
	return sizes
}

// KernelSamples returns a copy of the q samples stored for each wavelength
// bin, in bin order.
func (s *Simulator) KernelSamples() [][]float32 {
	out := make([][]float32, len(s.kernel))
	for i := range s.kernel {
		out[i] = slices.Clone(s.kernel[i].samples)
	}
	return out
}

// State is a copy of the accumulated histograms.
type State struct {
	Direct      []uint64
	Reflected   []uint64
	KernelSizes []int
	Samples     uint64
}

// State returns a snapshot of the accumulators.
func (s *Simulator) State() State {
	return State{
		Direct:      s.DirectBeam(),
		Reflected:   s.ReflectedBeam(),
		KernelSizes: s.KernelSizes(),
		Samples:     s.samples,
	}
}
