package fit

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/tofsim/config"
	"github.com/pthm-cable/tofsim/dataset"
	"github.com/pthm-cable/tofsim/reflect"
)

// Objective scores sample parameters against a dataset.
type Objective struct {
	Data   *dataset.ReflectDataset
	Config config.Config // sample and model settings; Sample is the starting point
	Params *ParamVector
}

// Model builds the structure for raw parameter values and its log prior.
func (o *Objective) Model(raw []float64) (reflect.Model, float64, error) {
	cfg := o.Config
	cfg.Sample = o.Params.Apply(o.Config.Sample, raw)
	m, err := cfg.Model()
	if err != nil {
		return nil, 0, err
	}
	var logp float64
	if s, ok := m.(*reflect.Structure); ok {
		for _, c := range s.Components {
			if p, ok := c.(interface{ LogP() float64 }); ok {
				logp += p.LogP()
			}
		}
	}
	return m, logp, nil
}

// Chi2 is the weighted squared residual of m against the data, each point
// smeared by its own resolution. Points without an uncertainty are skipped.
func (o *Objective) Chi2(m reflect.Model) float64 {
	r := m.Reflectivity(o.Data.Q, o.Data.DQ)
	var chi2 float64
	for i := range r {
		if !(o.Data.DR[i] > 0) {
			continue
		}
		d := (o.Data.R[i] - r[i]) / o.Data.DR[i]
		chi2 += d * d
	}
	return chi2
}

// Cost is the negative log posterior, chi²/2 minus the log prior. Parameter
// values that build no valid model cost +Inf.
func (o *Objective) Cost(raw []float64) float64 {
	m, logp, err := o.Model(raw)
	if err != nil || math.IsInf(logp, -1) {
		return math.Inf(1)
	}
	return o.Chi2(m)/2 - logp
}

// Settings control the minimisation.
type Settings struct {
	MaxEvals     int
	Population   int // 0 = 4 + 3·dim/2
	InitStepSize float64
	Seed         uint64
	Logger       *slog.Logger
}

// Result is the best point visited.
type Result struct {
	Values      []float64
	Cost        float64
	Chi2        float64
	Evaluations int
	Status      string
}

// Minimize runs CMA-ES over the normalised parameters, starting from the
// values in the objective's sample config. The best evaluation is returned,
// which need not be CMA-ES's final mean.
func Minimize(o *Objective, s Settings) (Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	params := o.Params
	dim := params.Dim()
	initX := params.Normalize(params.Clamp(params.Values(o.Config.Sample)))

	popSize := s.Population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}

	best := Result{Cost: math.Inf(1)}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := params.Clamp(params.Denormalize(x))
			cost := o.Cost(raw)
			best.Evaluations++
			if cost < best.Cost {
				best.Cost = cost
				best.Values = raw
			}
			if best.Evaluations%100 == 0 {
				logger.Debug("fit progress", "evals", best.Evaluations, "best", best.Cost)
			}
			return cost
		},
	}
	settings := &optimize.Settings{
		FuncEvaluations: s.MaxEvals,
		Concurrent:      0, // Sequential evaluation
	}
	method := &optimize.CmaEsChol{
		InitStepSize: s.InitStepSize,
		Population:   popSize,
		Src:          rand.NewPCG(s.Seed, s.Seed),
	}

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		logger.Warn("optimization ended", "error", err)
	}
	if best.Values == nil || math.IsInf(best.Cost, 1) {
		return Result{}, fmt.Errorf("fit: no parameter set in range builds a valid model")
	}
	if result != nil {
		best.Status = result.Status.String()
	}

	m, _, err := o.Model(best.Values)
	if err != nil {
		return Result{}, err
	}
	best.Chi2 = o.Chi2(m)
	return best, nil
}
