package spectrum

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/integrate/quad"
)

func coldSource(t *testing.T) *Table {
	t.Helper()
	tab, err := Maxwellian(25, 1.8, 19, 300)
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name      string
		wl, in    []float64
		wantError bool
	}{
		{"valid", []float64{1, 2, 3, 4}, []float64{1, 2, 2, 1}, false},
		{"too short", []float64{1, 2, 3}, []float64{1, 2, 1}, true},
		{"empty", nil, nil, true},
		{"not increasing", []float64{1, 2, 2, 4}, []float64{1, 2, 2, 1}, true},
		{"decreasing", []float64{4, 3, 2, 1}, []float64{1, 2, 2, 1}, true},
		{"negative intensity", []float64{1, 2, 3, 4}, []float64{1, -2, 2, 1}, true},
		{"nan intensity", []float64{1, 2, 3, 4}, []float64{1, math.NaN(), 2, 1}, true},
		{"length mismatch", []float64{1, 2, 3, 4}, []float64{1, 2, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSlices(tt.wl, tt.in)
			if (err != nil) != tt.wantError {
				t.Fatalf("FromSlices() error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil && !errors.Is(err, ErrInvalidTable) {
				t.Errorf("error %v does not wrap ErrInvalidTable", err)
			}
		})
	}
}

func TestNewEmpiricalRejectsEmptySpectrum(t *testing.T) {
	tab, err := FromSlices([]float64{1, 2, 3, 4, 5}, []float64{0, 0, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewEmpirical(tab); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("NewEmpirical() error = %v, want ErrInvalidTable", err)
	}
}

func TestEmpiricalCDFEndpoints(t *testing.T) {
	tables := map[string]*Table{"maxwellian": coldSource(t)}
	bumpy, err := FromSlices(
		[]float64{2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		[]float64{1, 5, 9, 7, 8, 4, 3, 3, 2, 1},
	)
	if err != nil {
		t.Fatal(err)
	}
	tables["bumpy"] = bumpy

	for name, tab := range tables {
		t.Run(name, func(t *testing.T) {
			e, err := NewEmpirical(tab)
			if err != nil {
				t.Fatal(err)
			}
			lo, hi := e.Support()
			if got := e.CDF(lo); math.Abs(got) > 1e-3 {
				t.Errorf("CDF(min) = %v, want 0", got)
			}
			if got := e.CDF(hi); math.Abs(got-1) > 1e-3 {
				t.Errorf("CDF(max) = %v, want 1", got)
			}
			if e.CDF(lo-1) != 0 || e.CDF(hi+1) != 1 {
				t.Error("CDF should clamp outside the support")
			}
			if e.Prob(lo-1) != 0 || e.Prob(hi+1) != 0 {
				t.Error("density should vanish outside the support")
			}
			if name == "maxwellian" && math.Abs(e.Fudge()-1) > 1e-3 {
				t.Errorf("fudge factor = %v, want close to 1", e.Fudge())
			}
		})
	}
}

func TestEmpiricalDensityIntegratesToOne(t *testing.T) {
	e, err := NewEmpirical(coldSource(t))
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := e.Support()
	area := quad.Fixed(e.Prob, lo, hi, 2000, nil, 0)
	if math.Abs(area-1) > 1e-3 {
		t.Errorf("density integrates to %v", area)
	}

	// CDF is the antiderivative of Prob
	x := 6.3
	partial := quad.Fixed(e.Prob, lo, x, 2000, nil, 0)
	if math.Abs(partial-e.CDF(x)) > 1e-6 {
		t.Errorf("CDF(%v) = %v, integral of density = %v", x, e.CDF(x), partial)
	}
}

func TestEmpiricalGridQuantileRoundTrip(t *testing.T) {
	e, err := NewEmpirical(coldSource(t))
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := e.Support()
	spacing := (hi - lo) / float64(DefaultGridPoints-1)

	for i := 1; i < 200; i++ {
		x := lo + (hi-lo)*float64(i)/200
		got := e.Quantile(e.CDF(x))
		if math.Abs(got-x) > spacing+1e-9 {
			t.Errorf("Quantile(CDF(%v)) = %v, error %v exceeds grid spacing %v", x, got, math.Abs(got-x), spacing)
		}
	}
	if e.Quantile(0) != lo || e.Quantile(1) != hi {
		t.Errorf("Quantile endpoints = %v, %v", e.Quantile(0), e.Quantile(1))
	}
}

func TestGridErrorShrinksWithResolution(t *testing.T) {
	tab := coldSource(t)
	coarse, err := NewEmpirical(tab, WithGridPoints(50))
	if err != nil {
		t.Fatal(err)
	}
	fine, err := NewEmpirical(tab, WithGridPoints(5000))
	if err != nil {
		t.Fatal(err)
	}
	exact, err := NewEmpirical(tab, WithExactQuantile(1e-10))
	if err != nil {
		t.Fatal(err)
	}

	var coarseErr, fineErr float64
	for i := 1; i < 100; i++ {
		p := float64(i) / 100
		want := exact.Quantile(p)
		coarseErr = math.Max(coarseErr, math.Abs(coarse.Quantile(p)-want))
		fineErr = math.Max(fineErr, math.Abs(fine.Quantile(p)-want))
	}
	if fineErr >= coarseErr {
		t.Errorf("fine grid error %v not below coarse grid error %v", fineErr, coarseErr)
	}
}

func TestExactQuantileInvertsCDF(t *testing.T) {
	e, err := NewEmpirical(coldSource(t), WithExactQuantile(1e-8))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []float64{0.001, 0.1, 0.37, 0.5, 0.9, 0.999} {
		x := e.Quantile(p)
		if got := e.CDF(x); math.Abs(got-p) > 1e-6 {
			t.Errorf("CDF(Quantile(%v)) = %v", p, got)
		}
	}
	if _, ok := e.Quantiler().(*ExactQuantile); !ok {
		t.Errorf("quantiler is %T, want *ExactQuantile", e.Quantiler())
	}
}

func TestGridCDFMonotonicWithOvershoot(t *testing.T) {
	// sharp edges make the spline ring below zero
	tab, err := FromSlices(
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		[]float64{0, 0, 0, 10, 10, 10, 0, 0, 0, 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	e, err := NewEmpirical(tab, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(e.gridCDF); i++ {
		if e.gridCDF[i] < e.gridCDF[i-1] {
			t.Fatalf("grid CDF decreases at %d: %v < %v", i, e.gridCDF[i], e.gridCDF[i-1])
		}
	}
	if e.spline.Predict(2.9) >= 0 {
		t.Fatalf("spline at 2.9 = %v, expected ringing below zero", e.spline.Predict(2.9))
	}
	if !strings.Contains(buf.String(), "spectrum density negative between knots") {
		t.Errorf("clamping was not logged, got %q", buf.String())
	}
}

func TestProbSlice(t *testing.T) {
	e, err := NewEmpirical(coldSource(t))
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := e.Support()
	xs := []float64{lo - 1, lo, 0.5 * (lo + hi), 4.2, hi, hi + 1}

	want := make([]float64, len(xs))
	for i, x := range xs {
		want[i] = e.Prob(x)
	}
	if diff := cmp.Diff(want, e.ProbSlice(nil, xs)); diff != "" {
		t.Errorf("ProbSlice(nil) (-want +got):\n%s", diff)
	}
	if got := e.ProbSlice(nil, xs); got[0] != 0 || got[len(got)-1] != 0 {
		t.Errorf("density outside the support = %v, %v, want 0", got[0], got[len(got)-1])
	}

	// a long enough dst is reused
	dst := make([]float64, 10)
	got := e.ProbSlice(dst, xs)
	if len(got) != len(xs) || &got[0] != &dst[0] {
		t.Errorf("ProbSlice did not reuse dst: len %d", len(got))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProbSlice(dst) (-want +got):\n%s", diff)
	}
}

func TestSampleDeterministicAcrossWorkers(t *testing.T) {
	tab := coldSource(t)
	serial, err := NewEmpirical(tab, WithExactQuantile(1e-6))
	if err != nil {
		t.Fatal(err)
	}
	parallel, err := NewEmpirical(tab, WithExactQuantile(1e-6), WithWorkers(4))
	if err != nil {
		t.Fatal(err)
	}

	a := serial.Sample(500, rand.New(rand.NewPCG(7, 11)))
	b := parallel.Sample(500, rand.New(rand.NewPCG(7, 11)))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("parallel sample differs (-serial +parallel):\n%s", diff)
	}
}

func TestSampleFollowsSpectrum(t *testing.T) {
	e, err := NewEmpirical(coldSource(t))
	if err != nil {
		t.Fatal(err)
	}
	xs := e.Sample(200000, rand.New(rand.NewPCG(1, 1)))

	lo, hi := e.Support()
	below := 0
	median := e.Quantile(0.5)
	for _, x := range xs {
		if x < lo || x > hi {
			t.Fatalf("sample %v outside support", x)
		}
		if x < median {
			below++
		}
	}
	frac := float64(below) / float64(len(xs))
	if math.Abs(frac-0.5) > 0.005 {
		t.Errorf("fraction below median = %v, want 0.5", frac)
	}
}

func TestQuantileAllMatchesSerial(t *testing.T) {
	g := &GridQuantile{X: []float64{0, 1, 2}, CDF: []float64{0, 0.25, 1}}
	ps := []float64{0, 0.1, 0.25, 0.5, 0.9, 1}
	want := []float64{0, 0.4, 1, 1 + 0.25/0.75, 1 + 0.65/0.75, 2}
	for _, workers := range []int{1, 2, 3, 16} {
		got := QuantileAll(g, ps, workers)
		for i := range want {
			if math.Abs(got[i]-want[i]) > 1e-12 {
				t.Errorf("workers=%d: got[%d] = %v, want %v", workers, i, got[i], want[i])
			}
		}
	}
}

func TestBrent(t *testing.T) {
	root, err := brent(func(x float64) float64 { return x*x*x - 2 }, 0, 2, 1e-12, 100)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(root-math.Cbrt(2)) > 1e-10 {
		t.Errorf("root = %v, want %v", root, math.Cbrt(2))
	}
	if _, err := brent(func(x float64) float64 { return x*x + 1 }, -1, 1, 1e-6, 100); err == nil {
		t.Error("expected an error for an unbracketed root")
	}
}

func TestCSVRoundTripAndWindow(t *testing.T) {
	in := "wavelength,intensity,intensity_error\n" +
		"1,1,1\n2,4,2\n3,9,3\n4,16,4\n5,9,3\n6,4,2\n"
	tab, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if tab.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", tab.Len())
	}

	var buf bytes.Buffer
	if err := tab.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	again, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tab.Points(), again.Points()); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}

	w, err := tab.Window(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if lo, hi := w.Support(); lo != 2 || hi != 5 {
		t.Errorf("window support = [%v, %v], want [2, 5]", lo, hi)
	}
	if _, err := tab.Window(2, 3); !errors.Is(err, ErrInvalidTable) {
		t.Errorf("narrow window error = %v, want ErrInvalidTable", err)
	}
}
