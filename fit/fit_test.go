package fit

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pthm-cable/tofsim/config"
	"github.com/pthm-cable/tofsim/dataset"
	"github.com/pthm-cable/tofsim/reflect"
)

func sampleConfig(t *testing.T, thickness float64) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Sample.Model = "structure"
	cfg.Sample.Fronting = reflect.Slab{}
	cfg.Sample.Layers = []reflect.Slab{{Thickness: thickness, SLD: 4, Rough: 3}}
	cfg.Sample.Backing = reflect.Slab{SLD: 2.07, Rough: 3}
	return *cfg
}

// synthetic returns noiseless data with 5 % uncertainties.
func synthetic(t *testing.T, cfg config.Config) *dataset.ReflectDataset {
	t.Helper()
	m, err := cfg.Model()
	if err != nil {
		t.Fatal(err)
	}
	n := 100
	q, dq, dr := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range q {
		q[i] = 0.01 + 0.11*float64(i)/float64(n-1)
		dq[i] = 0.05 * q[i]
	}
	r := m.Reflectivity(q, dq)
	for i := range dr {
		dr[i] = 0.05 * r[i]
	}
	ds, err := dataset.New(q, r, dr, dq)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestParamPaths(t *testing.T) {
	sc := sampleConfig(t, 100).Sample
	good := []string{"scale", "bkg", "fronting.sld", "backing.rough", "layers.0.thickness", "layers.0.vfsolv", "vfmaxent.dry_thickness"}
	for _, p := range good {
		if _, err := NewParamVector([]config.FitParam{{Path: p, Min: 0, Max: 1}}, sc); err != nil {
			t.Errorf("path %q: %v", p, err)
		}
	}
	bad := []string{"", "layers.1.sld", "layers.x.sld", "backing.colour", "vfmaxent.alpha", "layers.0"}
	for _, p := range bad {
		if _, err := NewParamVector([]config.FitParam{{Path: p, Min: 0, Max: 1}}, sc); err == nil {
			t.Errorf("path %q accepted", p)
		}
	}
	if _, err := NewParamVector([]config.FitParam{{Path: "scale", Min: 1, Max: 1}}, sc); err == nil {
		t.Error("empty range accepted")
	}
	if _, err := NewParamVector(nil, sc); err == nil {
		t.Error("no parameters accepted")
	}
}

func TestApplyCopiesSample(t *testing.T) {
	sc := sampleConfig(t, 100).Sample
	pv, err := NewParamVector([]config.FitParam{
		{Path: "layers.0.thickness", Min: 10, Max: 200},
		{Path: "scale", Min: 0.5, Max: 1.5},
	}, sc)
	if err != nil {
		t.Fatal(err)
	}

	out := pv.Apply(sc, []float64{120, 9})
	if out.Layers[0].Thickness != 120 || out.Scale != 1.5 {
		t.Errorf("applied thickness %v scale %v, want 120 and clamped 1.5", out.Layers[0].Thickness, out.Scale)
	}
	if sc.Layers[0].Thickness != 100 {
		t.Errorf("Apply modified its input: thickness %v", sc.Layers[0].Thickness)
	}
	if diff := cmp.Diff([]float64{120, 1.5}, pv.Values(out)); diff != "" {
		t.Errorf("Values() (-want +got):\n%s", diff)
	}

	raw := []float64{55, 0.75}
	if diff := cmp.Diff(raw, pv.Denormalize(pv.Normalize(raw)), cmp.Comparer(func(a, b float64) bool {
		return math.Abs(a-b) < 1e-12
	})); diff != "" {
		t.Errorf("normalise round trip (-want +got):\n%s", diff)
	}
}

func TestCost(t *testing.T) {
	truth := sampleConfig(t, 150)
	o := &Objective{Data: synthetic(t, truth), Config: truth}
	var err error
	o.Params, err = NewParamVector([]config.FitParam{
		{Path: "layers.0.thickness", Min: 100, Max: 200},
		{Path: "layers.0.vfsolv", Min: 0, Max: 2},
	}, truth.Sample)
	if err != nil {
		t.Fatal(err)
	}

	if c := o.Cost([]float64{150, 0}); c != 0 {
		t.Errorf("cost at the truth = %v, want 0", c)
	}
	if c := o.Cost([]float64{140, 0}); !(c > 0) {
		t.Errorf("cost away from the truth = %v, want positive", c)
	}
	if c := o.Cost([]float64{150, 1.5}); !math.IsInf(c, 1) {
		t.Errorf("cost of an unphysical layer = %v, want +Inf", c)
	}
}

func TestMinimizeRecoversThickness(t *testing.T) {
	truth := sampleConfig(t, 150)
	start := sampleConfig(t, 145)
	o := &Objective{Data: synthetic(t, truth), Config: start}
	var err error
	o.Params, err = NewParamVector([]config.FitParam{{Path: "layers.0.thickness", Min: 140, Max: 160}}, start.Sample)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Minimize(o, Settings{
		MaxEvals:     300,
		InitStepSize: 0.3,
		Seed:         1,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Values[0]-150) > 0.5 {
		t.Errorf("fitted thickness %v, want 150", res.Values[0])
	}
	if res.Evaluations == 0 || res.Evaluations > 300+10 {
		t.Errorf("%d evaluations", res.Evaluations)
	}
	if math.Abs(res.Chi2-2*res.Cost) > 1e-9 {
		t.Errorf("chi2 %v inconsistent with cost %v", res.Chi2, res.Cost)
	}
}
