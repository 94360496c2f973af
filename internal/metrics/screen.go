package metrics

import (
	"math"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/geometry"
	"github.com/san-kum/crtsim/internal/sim"
)

// Landed returns the particles that reached the screen during the tick
// described by report, in stop order.
func Landed(particles []dynamo.Particle, report *sim.TickReport) []dynamo.Particle {
	if report == nil || len(report.Stopped) == 0 {
		return nil
	}
	byID := make(map[dynamo.ParticleID]int, len(particles))
	for i, p := range particles {
		byID[p.ID] = i
	}
	out := make([]dynamo.Particle, 0, len(report.Stopped))
	for _, id := range report.Stopped {
		if i, ok := byID[id]; ok {
			out = append(out, particles[i])
		}
	}
	return out
}

// ScreenHits counts particles that reached the screen.
type ScreenHits struct {
	name string
	hits int
}

func NewScreenHits() *ScreenHits { return &ScreenHits{name: "screen_hits"} }

func (s *ScreenHits) Name() string { return s.name }

func (s *ScreenHits) OnTick(_ int, _ []dynamo.Particle, report *sim.TickReport) {
	s.hits += len(report.Stopped)
}

func (s *ScreenHits) Value() float64 { return float64(s.hits) }

func (s *ScreenHits) Reset() { s.hits = 0 }

// Deflection tracks the landing coordinate along one screen axis. Value
// is the mean; Spread is the standard deviation (spot size).
type Deflection struct {
	name  string
	axis  geometry.Axis
	n     int
	mean  float64
	m2    float64
	last  float64
	lastN int
}

func NewDeflection(axis geometry.Axis) *Deflection {
	return &Deflection{name: "mean_deflection", axis: axis}
}

func (d *Deflection) Name() string { return d.name }

func (d *Deflection) OnTick(_ int, particles []dynamo.Particle, report *sim.TickReport) {
	landed := Landed(particles, report)
	d.lastN = len(landed)
	d.last = 0
	for _, p := range landed {
		x := geometry.Component(p.Position, d.axis)
		d.last += x
		// Welford update.
		d.n++
		delta := x - d.mean
		d.mean += delta / float64(d.n)
		d.m2 += delta * (x - d.mean)
	}
	if d.lastN > 0 {
		d.last /= float64(d.lastN)
	}
}

func (d *Deflection) Value() float64 { return d.mean }

// Last returns the mean landing coordinate of the latest tick and how many
// particles it covers.
func (d *Deflection) Last() (float64, int) { return d.last, d.lastN }

func (d *Deflection) Spread() float64 {
	if d.n < 2 {
		return 0
	}
	return math.Sqrt(d.m2 / float64(d.n-1))
}

func (d *Deflection) Reset() {
	d.n, d.lastN = 0, 0
	d.mean, d.m2, d.last = 0, 0, 0
}

// SpotSize reports the spread of a Deflection.
type SpotSize struct {
	d *Deflection
}

func NewSpotSize(d *Deflection) *SpotSize { return &SpotSize{d: d} }

func (s *SpotSize) Name() string { return "spot_size" }

// OnTick is a no-op; the wrapped Deflection is observed separately.
func (s *SpotSize) OnTick(int, []dynamo.Particle, *sim.TickReport) {}

func (s *SpotSize) Value() float64 { return s.d.Spread() }

func (s *SpotSize) Reset() {}

// TargetError is the distance between the mean landing coordinate and a
// target. Before anything lands it reports |target|.
type TargetError struct {
	d      *Deflection
	target float64
}

func NewTargetError(d *Deflection, target float64) *TargetError {
	return &TargetError{d: d, target: target}
}

func (t *TargetError) Name() string { return "target_error" }

func (t *TargetError) OnTick(int, []dynamo.Particle, *sim.TickReport) {}

func (t *TargetError) Value() float64 { return math.Abs(t.d.Value() - t.target) }

func (t *TargetError) Reset() {}
