package optim

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/crtsim/internal/experiment"
)

// BuildFunc builds a fresh experiment for one grid point.
type BuildFunc func(params map[string]float64) (*experiment.Experiment, error)

// Evaluation is the outcome of one grid point.
type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

type Option func(*GridSearch)

// WithWorkers evaluates up to n grid points at once. build must then be
// safe for concurrent use; ChargeBuilder is.
func WithWorkers(n int) Option {
	return func(g *GridSearch) {
		if n > 0 {
			g.workers = n
		}
	}
}

func NewGridSearch(params []string, ranges [][]float64, opts ...Option) *GridSearch {
	g := &GridSearch{paramNames: params, ranges: ranges, workers: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Points enumerates the grid with the last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	if len(g.ranges) == 0 || len(g.paramNames) != len(g.ranges) || n == 0 {
		return nil
	}

	idx := make([]int, len(g.ranges))
	out := make([]map[string]float64, 0, n)
	for {
		p := make(map[string]float64, len(g.paramNames))
		for d, name := range g.paramNames {
			p[name] = g.ranges[d][idx[d]]
		}
		out = append(out, p)

		d := len(idx) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(g.ranges[d]) {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return out
		}
	}
}

// Evaluate runs one experiment per grid point and reports metricName for
// each, in Points order.
func (g *GridSearch) Evaluate(ctx context.Context, build BuildFunc, metricName string) ([]Evaluation, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid search: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}

	points := g.Points()
	evals := make([]Evaluation, len(points))
	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup

	for i, p := range points {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, p map[string]float64) {
			defer wg.Done()
			defer func() { <-sem }()
			evals[i] = evaluate(ctx, build, p, metricName)
		}(i, p)
	}
	wg.Wait()

	return evals, ctx.Err()
}

func evaluate(ctx context.Context, build BuildFunc, params map[string]float64, metricName string) Evaluation {
	ev := Evaluation{Params: params, Value: math.NaN()}

	exp, err := build(params)
	if err != nil {
		ev.Err = err
		return ev
	}
	result, err := exp.Run(ctx)
	if err != nil {
		ev.Err = err
		return ev
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		ev.Err = fmt.Errorf("grid search: metric %q not reported", metricName)
		return ev
	}
	ev.Value = val
	return ev
}

// Search returns the parameters with the lowest value of metricName. Points
// whose build or run fails are skipped; it is an error only if every point
// fails. Ties go to the earliest point.
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, metricName string) (map[string]float64, float64, error) {
	evals, err := g.Evaluate(ctx, build, metricName)
	if evals == nil && err != nil {
		return nil, 0, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	var lastErr error
	for _, ev := range evals {
		if ev.Params == nil {
			continue
		}
		if ev.Err != nil {
			lastErr = ev.Err
			continue
		}
		if ev.Value < best {
			best, bestParams = ev.Value, ev.Params
		}
	}

	if err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("grid search: empty grid")
		}
		return nil, 0, lastErr
	}
	return bestParams, best, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
