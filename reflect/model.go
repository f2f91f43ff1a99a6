// Package reflect provides reflectivity models: the probability of specular
// reflection as a function of momentum transfer for a layered sample.
package reflect

// Model computes reflectivity at every q. dq holds the resolution FWHM of
// each point; a nil or all-zero dq asks for the unsmeared curve. The result
// has the length of q.
type Model interface {
	Reflectivity(q, dq []float64) []float64
}

// ModelFunc adapts a function to Model.
type ModelFunc func(q, dq []float64) []float64

// Reflectivity implements Model.
func (f ModelFunc) Reflectivity(q, dq []float64) []float64 { return f(q, dq) }

// Constant returns a model that reflects with probability r at every q.
func Constant(r float64) Model {
	return ModelFunc(func(q, _ []float64) []float64 {
		out := make([]float64, len(q))
		for i := range out {
			out[i] = r
		}
		return out
	})
}
