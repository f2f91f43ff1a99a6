package reflect

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Slab is one layer of a structure.
type Slab struct {
	Thickness float64 `yaml:"thickness"` // Å
	SLD       float64 `yaml:"sld"`       // 10⁻⁶ Å⁻²
	ISLD      float64 `yaml:"isld"`      // absorption, 10⁻⁶ Å⁻²
	Rough     float64 `yaml:"rough"`     // roughness of the interface above this layer, Å
	VFSolv    float64 `yaml:"vfsolv"`    // volume fraction of solvent in the layer
}

// Component is a part of a structure that renders to slabs.
type Component interface {
	Slabs() []Slab
}

// Slabs is a fixed list of slabs.
type Slabs []Slab

// Slabs implements Component.
func (s Slabs) Slabs() []Slab { return s }

// Structure is a stack of layers between a semi-infinite fronting medium
// (where the beam arrives) and a semi-infinite backing medium.
type Structure struct {
	Fronting   Slab
	Components []Component
	Backing    Slab
	// Solvent is the SLD mixed into layers by their VFSolv; nil means the
	// backing medium.
	Solvent *float64
	Scale   float64
	Bkg     float64
}

// Validate checks that every slab is physical.
func (s *Structure) Validate() error {
	for i, sl := range s.slabs() {
		if sl.Thickness < 0 || sl.Rough < 0 {
			return fmt.Errorf("reflect: slab %d has negative thickness or roughness", i)
		}
		if sl.VFSolv < 0 || sl.VFSolv > 1 {
			return fmt.Errorf("reflect: slab %d solvent fraction %v outside [0, 1]", i, sl.VFSolv)
		}
	}
	return nil
}

// slabs flattens the structure, fronting first and backing last.
func (s *Structure) slabs() []Slab {
	out := []Slab{s.Fronting}
	for _, c := range s.Components {
		out = append(out, c.Slabs()...)
	}
	return append(out, s.Backing)
}

// layers returns the complex SLD of every slab after solvent mixing.
func (s *Structure) layers() ([]Slab, []complex128) {
	slabs := s.slabs()
	solvent := complex(s.Backing.SLD, s.Backing.ISLD)
	if s.Solvent != nil {
		solvent = complex(*s.Solvent, 0)
	}
	sld := make([]complex128, len(slabs))
	for i, sl := range slabs {
		v := complex(sl.VFSolv, 0)
		sld[i] = complex(sl.SLD, math.Abs(sl.ISLD))*(1-v) + solvent*v
	}
	return slabs, sld
}

// Reflectivity implements Model. Points with a positive dq are smeared by a
// Gaussian of that FWHM.
func (s *Structure) Reflectivity(q, dq []float64) []float64 {
	slabs, sld := s.layers()
	scale := s.Scale
	if scale == 0 {
		scale = 1
	}
	bare := func(x float64) float64 {
		return scale*abeles(math.Abs(x), slabs, sld) + s.Bkg
	}

	out := make([]float64, len(q))
	for i, x := range q {
		if dq != nil && dq[i] > 0 {
			out[i] = smear(bare, x, dq[i])
			continue
		}
		out[i] = bare(x)
	}
	return out
}

// abeles computes the unsmeared specular reflectivity by the Abeles
// characteristic matrix method.
func abeles(q float64, slabs []Slab, sld []complex128) float64 {
	const tiny = 1e-30
	k0 := complex(q/2, 0)
	kprev := k0
	var m00, m01, m10, m11 complex128 = 1, 0, 0, 1

	for j := 1; j < len(slabs); j++ {
		dsld := (sld[j] - sld[0]) * 1e-6
		kj := cmplx.Sqrt(k0*k0 - 4*math.Pi*dsld + complex(0, tiny))
		r := (kprev - kj) / (kprev + kj)
		sigma := slabs[j].Rough
		r *= cmplx.Exp(-2 * kprev * kj * complex(sigma*sigma, 0))

		var beta complex128
		if j > 1 {
			beta = complex(0, 1) * kprev * complex(slabs[j-1].Thickness, 0)
		}
		eb, emb := cmplx.Exp(beta), cmplx.Exp(-beta)
		p00, p01, p10, p11 := eb, r*eb, r*emb, emb

		m00, m01, m10, m11 = m00*p00+m01*p10, m00*p01+m01*p11, m10*p00+m11*p10, m10*p01+m11*p11
		kprev = kj
	}
	rr := m10 / m00
	return real(rr * cmplx.Conj(rr))
}
