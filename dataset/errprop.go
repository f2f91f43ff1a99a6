package dataset

import (
	"errors"
	"fmt"
	"math"
)

// ErrZeroDivisor is returned when a ratio is requested at a point whose
// divisor is zero.
var ErrZeroDivisor = errors.New("division by zero")

// ZeroDivisorError lists the points whose divisor was zero.
type ZeroDivisorError struct {
	Indices []int
}

func (e *ZeroDivisorError) Error() string {
	return fmt.Sprintf("%v at %d point(s), first index %d", ErrZeroDivisor, len(e.Indices), e.Indices[0])
}

// Unwrap lets errors.Is match ErrZeroDivisor.
func (e *ZeroDivisorError) Unwrap() error { return ErrZeroDivisor }

// EPDiv returns c = a/b and its standard error given uncorrelated standard
// errors da and db. Every slice must have the same length. A zero in b is
// reported as a *ZeroDivisorError rather than propagated as Inf or NaN.
func EPDiv(a, da, b, db []float64) (c, dc []float64, err error) {
	n := len(a)
	if len(da) != n || len(b) != n || len(db) != n {
		return nil, nil, fmt.Errorf("EPDiv: mismatched lengths %d, %d, %d, %d", n, len(da), len(b), len(db))
	}

	var zeros []int
	for i, v := range b {
		if v == 0 {
			zeros = append(zeros, i)
		}
	}
	if len(zeros) > 0 {
		return nil, nil, &ZeroDivisorError{Indices: zeros}
	}

	c = make([]float64, n)
	dc = make([]float64, n)
	for i := range a {
		c[i] = a[i] / b[i]
		dc[i] = math.Sqrt((da[i]/b[i])*(da[i]/b[i]) + a[i]*a[i]*db[i]*db[i]/(b[i]*b[i]*b[i]*b[i]))
	}
	return c, dc, nil
}
