package simulator

import (
	"fmt"

	"github.com/pthm-cable/tofsim/spectrum"
)

// SpectrumMargin is how far (Å) beyond the wavelength range the spectrum
// table is kept, so jittered neutrons can fall back into the outer bins.
const SpectrumMargin = 1.0

// NewSpectrum windows t to the wavelength range widened by SpectrumMargin
// and builds the empirical distribution the simulator draws from.
func NewSpectrum(t *spectrum.Table, lo, hi float64, opts ...spectrum.Option) (*spectrum.Empirical, error) {
	w, err := t.Window(lo-SpectrumMargin, hi+SpectrumMargin)
	if err != nil {
		return nil, fmt.Errorf("simulator: spectrum: %w", err)
	}
	e, err := spectrum.NewEmpirical(w, opts...)
	if err != nil {
		return nil, fmt.Errorf("simulator: spectrum: %w", err)
	}
	return e, nil
}
