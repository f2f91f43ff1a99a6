package dist

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/stat"
)

func TestNewTrapezoidValidation(t *testing.T) {
	tests := []struct {
		name     string
		min, max float64
		c, d     float64
		wantErr  bool
	}{
		{"valid", -1, 1, 0.3, 0.7, false},
		{"triangle", 0, 1, 0.5, 0.5, false},
		{"uniform", 0, 1, 0, 1, false},
		{"empty range", 1, 1, 0.3, 0.7, true},
		{"c after d", 0, 1, 0.8, 0.2, true},
		{"d above one", 0, 1, 0.2, 1.2, true},
		{"negative c", 0, 1, -0.1, 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrapezoid(tt.min, tt.max, tt.c, tt.d)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTrapezoid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTrapezoidIntegratesToOne(t *testing.T) {
	shapes := [][2]float64{{0.29, 0.71}, {0.5, 0.5}, {0, 1}, {0.1, 0.4}}
	for _, s := range shapes {
		tr, err := NewTrapezoid(-0.02, 0.02, s[0], s[1])
		if err != nil {
			t.Fatal(err)
		}
		area := quad.Fixed(tr.Prob, tr.Min, tr.Max, 1000, nil, 0)
		if math.Abs(area-1) > 1e-3 {
			t.Errorf("c=%v d=%v: area = %v, want 1", s[0], s[1], area)
		}
	}
}

func TestTrapezoidQuantileInvertsCDF(t *testing.T) {
	tr, err := NewTrapezoid(2, 6, 0.25, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= 20; i++ {
		p := float64(i) / 20
		x := tr.Quantile(p)
		if got := tr.CDF(x); math.Abs(got-p) > 1e-12 {
			t.Errorf("CDF(Quantile(%v)) = %v", p, got)
		}
	}
	if tr.CDF(1) != 0 || tr.CDF(7) != 1 {
		t.Error("CDF should clamp outside the support")
	}
}

func TestTrapezoidSampleMean(t *testing.T) {
	tr, err := NewTrapezoid(0, 1, 0.1, 0.4)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewPCG(1, 2))
	xs := make([]float64, 200000)
	for i := range xs {
		xs[i] = tr.Rand(rng)
		if xs[i] < tr.Min || xs[i] > tr.Max {
			t.Fatalf("sample %v outside support", xs[i])
		}
	}
	mean := stat.Mean(xs, nil)
	if math.Abs(mean-tr.Mean()) > 0.005 {
		t.Errorf("sample mean = %v, want %v", mean, tr.Mean())
	}
}

func TestGaussianAndUniformSamplers(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	g := Gaussian{Sigma: 2}
	u := Uniform{Min: 2.8, Max: 18}

	gs := make([]float64, 100000)
	us := make([]float64, 100000)
	for i := range gs {
		gs[i] = g.Rand(rng)
		us[i] = u.Rand(rng)
	}
	mean, std := stat.MeanStdDev(gs, nil)
	if math.Abs(mean) > 0.05 || math.Abs(std-2) > 0.05 {
		t.Errorf("gaussian mean=%v std=%v", mean, std)
	}
	if m := stat.Mean(us, nil); math.Abs(m-10.4) > 0.1 {
		t.Errorf("uniform mean = %v, want 10.4", m)
	}
	if p := u.Prob(5); math.Abs(p-1/15.2) > 1e-12 {
		t.Errorf("uniform density = %v", p)
	}
}

func TestSamplersAreDeterministic(t *testing.T) {
	tr, _ := NewTrapezoid(-1, 1, 0.3, 0.7)
	samplers := []Sampler{tr, Gaussian{Sigma: 1}, Uniform{Min: 0, Max: 1}}
	for _, s := range samplers {
		a := rand.New(rand.NewPCG(9, 9))
		b := rand.New(rand.NewPCG(9, 9))
		for i := 0; i < 100; i++ {
			if x, y := s.Rand(a), s.Rand(b); x != y {
				t.Fatalf("%T: draw %d differs: %v != %v", s, i, x, y)
			}
		}
	}
}
