package reflect

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinBeta is the smallest volume fraction a VFMaxEnt slab may take.
const MinBeta = 1e-5

// Parameter is a value with an optional uniform prior on [Lo, Hi]. Lo ==
// Hi means unbounded.
type Parameter struct {
	Value float64 `yaml:"value"`
	Lo    float64 `yaml:"lo"`
	Hi    float64 `yaml:"hi"`
}

// LogP returns the log prior probability of x.
func (p Parameter) LogP(x float64) float64 {
	if p.Lo == p.Hi {
		return 0
	}
	return distuv.Uniform{Min: p.Lo, Max: p.Hi}.LogProb(x)
}

// VFMaxEnt describes an adsorbed layer as a volume fraction profile of
// equally thick slabs, regularised by a maximum entropy prior.
type VFMaxEnt struct {
	G              Parameter // dry thickness, Å
	SLD            float64
	ISLD           float64
	Betas          []float64 // volume fraction of material in each slab
	TotalThickness float64   // Å
	Alpha          float64   // regularising strength
	Rough          float64   // Å
}

// NewVFMaxEnt validates the profile.
func NewVFMaxEnt(g Parameter, sld, isld float64, betas []float64, totalThickness, alpha, rough float64) (*VFMaxEnt, error) {
	if len(betas) == 0 {
		return nil, fmt.Errorf("vfmaxent: no slabs")
	}
	if !(totalThickness > 0) {
		return nil, fmt.Errorf("vfmaxent: total thickness %v must be positive", totalThickness)
	}
	if !(g.Value > 0) {
		return nil, fmt.Errorf("vfmaxent: dry thickness %v must be positive", g.Value)
	}
	for i, b := range betas {
		if b < MinBeta || b > 1 {
			return nil, fmt.Errorf("vfmaxent: beta[%d] = %v outside [%v, 1]", i, b, MinBeta)
		}
	}
	return &VFMaxEnt{
		G:              g,
		SLD:            sld,
		ISLD:           isld,
		Betas:          append([]float64(nil), betas...),
		TotalThickness: totalThickness,
		Alpha:          alpha,
		Rough:          rough,
	}, nil
}

// SlabThickness is the thickness of each slab in the profile.
func (v *VFMaxEnt) SlabThickness() float64 {
	return v.TotalThickness / float64(len(v.Betas))
}

// AdsorbedAmount is the integral of the volume fraction profile (Å).
func (v *VFMaxEnt) AdsorbedAmount() float64 {
	return floats.Sum(v.Betas) * v.SlabThickness()
}

// LogP is the prior of the profile: the dry thickness prior evaluated at
// the adsorbed amount plus the Shannon-Jaynes entropy of the betas relative
// to a uniform profile holding G.
func (v *VFMaxEnt) LogP() float64 {
	logp := v.G.LogP(v.AdsorbedAmount())

	mj := v.G.Value / v.TotalThickness
	var s float64
	for _, b := range v.Betas {
		s += b - mj - b*math.Log(b/mj)
	}
	return logp + v.Alpha*s
}

// Slabs implements Component. The solvent fraction of each slab is one
// minus its beta; the interface to the first slab has a fixed 4 Å
// roughness.
func (v *VFMaxEnt) Slabs() []Slab {
	d := v.SlabThickness()
	slabs := make([]Slab, len(v.Betas))
	for i, b := range v.Betas {
		slabs[i] = Slab{Thickness: d, SLD: v.SLD, ISLD: v.ISLD, Rough: v.Rough, VFSolv: 1 - b}
	}
	slabs[0].Rough = 4
	return slabs
}
