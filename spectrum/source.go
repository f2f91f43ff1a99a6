package spectrum

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
)

// ReadCSV reads a spectrum with wavelength, intensity and intensity_error
// columns.
func ReadCSV(r io.Reader) (*Table, error) {
	var points []Point
	if err := gocsv.Unmarshal(r, &points); err != nil {
		return nil, fmt.Errorf("parsing spectrum csv: %w", err)
	}
	return NewTable(points)
}

// LoadCSV reads a spectrum file.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spectrum: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteCSV writes the table in the format ReadCSV accepts.
func (t *Table) WriteCSV(w io.Writer) error {
	if err := gocsv.Marshal(t.Points(), w); err != nil {
		return fmt.Errorf("writing spectrum csv: %w", err)
	}
	return nil
}

// maxwellConst is h²/(2·m_n·k_B) in Å²·K.
const maxwellConst = 949.0

// Maxwellian tabulates the wavelength flux of a moderator at the given
// temperature (K), I(λ) = λ⁻⁵·exp(-949/(T·λ²)), on n points over [lo, hi].
// Errors are Poisson-like, sqrt of the intensity scaled to a 1e6 peak.
func Maxwellian(temperature, lo, hi float64, n int) (*Table, error) {
	if temperature <= 0 {
		return nil, fmt.Errorf("%w: temperature %v must be positive", ErrInvalidTable, temperature)
	}
	if lo <= 0 || hi <= lo {
		return nil, fmt.Errorf("%w: wavelength range [%v, %v]", ErrInvalidTable, lo, hi)
	}
	if n < MinPoints {
		n = MinPoints
	}
	wl := floats.Span(make([]float64, n), lo, hi)
	in := make([]float64, n)
	for i, l := range wl {
		in[i] = math.Pow(l, -5) * math.Exp(-maxwellConst/(temperature*l*l))
	}
	floats.Scale(1e6/floats.Max(in), in)

	points := make([]Point, n)
	for i := range points {
		points[i] = Point{Wavelength: wl[i], Intensity: in[i], IntensityError: math.Sqrt(in[i])}
	}
	return NewTable(points)
}
