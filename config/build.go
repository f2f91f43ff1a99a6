package config

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/tofsim/geometry"
	"github.com/pthm-cable/tofsim/reflect"
	"github.com/pthm-cable/tofsim/simulator"
	"github.com/pthm-cable/tofsim/spectrum"
)

// Model builds the configured reflectivity model.
func (c *Config) Model() (reflect.Model, error) {
	sc := c.Sample
	if sc.Model == "constant" {
		return reflect.Constant(sc.Constant), nil
	}

	s := &reflect.Structure{
		Fronting: sc.Fronting,
		Backing:  sc.Backing,
		Solvent:  sc.Solvent,
		Scale:    sc.Scale,
		Bkg:      sc.Bkg,
	}
	if len(sc.Layers) > 0 {
		s.Components = append(s.Components, reflect.Slabs(sc.Layers))
	}
	if v := sc.VFMaxEnt; v.Enabled {
		vf, err := reflect.NewVFMaxEnt(v.DryThickness, v.SLD, v.ISLD, v.Betas, v.TotalThickness, v.Alpha, v.Rough)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		s.Components = append(s.Components, vf)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// SpectrumTable loads the spectrum file, or tabulates a Maxwellian over the
// wavelength range widened by the simulator margin when none is set.
func (c *Config) SpectrumTable() (*spectrum.Table, error) {
	if c.Spectrum.File != "" {
		return spectrum.LoadCSV(c.Spectrum.File)
	}
	lo := max(c.Instrument.LoWavelength-simulator.SpectrumMargin, 0.1)
	hi := c.Instrument.HiWavelength + simulator.SpectrumMargin
	return spectrum.Maxwellian(c.Spectrum.Temperature, lo, hi, c.Spectrum.Points)
}

// Wavelengths builds the beam wavelength distribution. It returns nil when
// uniform wavelengths are forced.
func (c *Config) Wavelengths(logger *slog.Logger) (spectrum.Continuous, error) {
	if c.Instrument.ForceUniformWavelength {
		return nil, nil
	}
	t, err := c.SpectrumTable()
	if err != nil {
		return nil, err
	}
	opts := []spectrum.Option{
		spectrum.WithGridPoints(c.Spectrum.GridPoints),
		spectrum.WithWorkers(c.Spectrum.Workers),
		spectrum.WithLogger(logger),
	}
	if c.Spectrum.ExactQuantile {
		opts = append(opts, spectrum.WithExactQuantile(c.Spectrum.Tolerance))
	}
	return simulator.NewSpectrum(t, c.Instrument.LoWavelength, c.Instrument.HiWavelength, opts...)
}

// SimulatorOptions maps the instrument and simulation sections onto
// simulator options.
func (c *Config) SimulatorOptions(wavelengths spectrum.Continuous, logger *slog.Logger) simulator.Options {
	in := c.Instrument
	return simulator.Options{
		Angle: in.Angle,
		Collimation: geometry.Collimation{
			L12:       in.L12,
			L2S:       in.L2S,
			Footprint: in.Footprint,
		},
		DTheta:                 in.DTheta,
		DLambda:                in.DLambda,
		Rebin:                  in.Rebin,
		LoWavelength:           in.LoWavelength,
		HiWavelength:           in.HiWavelength,
		ForceGaussian:          in.ForceGaussian,
		ForceUniformWavelength: in.ForceUniformWavelength,
		Spectrum:               wavelengths,
		KernelCap:              c.Simulation.KernelCap,
		ChunkSize:              c.Simulation.ChunkSize,
		Logger:                 logger,
	}
}

// NewSimulator builds the model, the spectrum and the simulator in one go.
func (c *Config) NewSimulator(logger *slog.Logger) (*simulator.Simulator, error) {
	model, err := c.Model()
	if err != nil {
		return nil, err
	}
	wl, err := c.Wavelengths(logger)
	if err != nil {
		return nil, err
	}
	return simulator.New(model, c.SimulatorOptions(wl, logger))
}
