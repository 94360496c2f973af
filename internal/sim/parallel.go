package sim

import (
	"sync"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
)

// parallelThreshold is the moving-particle count below which a tick runs on
// the calling goroutine.
const parallelThreshold = 64

// outcome is the result of one particle's step, applied after all steps
// are computed.
type outcome struct {
	active bool
	next   dynamo.Particle
	err    error
}

func (m *Manager) computeOutcomes(plates []geometry.Plate, dt float64) {
	n := len(m.particles)
	if cap(m.outcomes) < n {
		m.outcomes = make([]outcome, n)
	}
	m.outcomes = m.outcomes[:n]

	moving := 0
	for i := range m.particles {
		m.outcomes[i] = outcome{active: m.particles[i].Phase == dynamo.PhaseMoving}
		if m.outcomes[i].active {
			moving++
		}
	}

	if m.workers <= 1 || moving < parallelThreshold {
		m.computeRange(0, n, plates, dt)
		return
	}

	var wg sync.WaitGroup
	chunk := (n + m.workers - 1) / m.workers
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			m.computeRange(start, end, plates, dt)
		}(start, end)
	}
	wg.Wait()
}

func (m *Manager) computeRange(start, end int, plates []geometry.Plate, dt float64) {
	for i := start; i < end; i++ {
		if !m.outcomes[i].active {
			continue
		}
		m.outcomes[i].next, m.outcomes[i].err = m.step(m.particles[i].Particle, plates, dt)
	}
}
