package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/crtsim/internal/experiment"
)

// ParticleRow is one particle in one sampled frame.
type ParticleRow struct {
	Tick     int     `csv:"tick"`
	Time     float64 `csv:"time"`
	Particle uint64  `csv:"particle"`
	Phase    string  `csv:"phase"`
	Age      int     `csv:"age"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	VX       float64 `csv:"vx"`
	VY       float64 `csv:"vy"`
	VZ       float64 `csv:"vz"`
}

type HitRow struct {
	Tick     int     `csv:"tick"`
	Particle uint64  `csv:"particle"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	Speed    float64 `csv:"speed"`
}

func FrameRows(res *experiment.Result) []ParticleRow {
	rows := make([]ParticleRow, 0)
	for _, f := range res.Frames {
		for _, p := range f.Particles {
			rows = append(rows, ParticleRow{
				Tick:     f.Tick,
				Time:     f.Time,
				Particle: uint64(p.ID),
				Phase:    p.Phase.String(),
				Age:      p.Age,
				X:        p.Position.X,
				Y:        p.Position.Y,
				Z:        p.Position.Z,
				VX:       p.Velocity.X,
				VY:       p.Velocity.Y,
				VZ:       p.Velocity.Z,
			})
		}
	}
	return rows
}

func HitRows(res *experiment.Result) []HitRow {
	rows := make([]HitRow, 0, len(res.Hits))
	for _, h := range res.Hits {
		rows = append(rows, HitRow{
			Tick:     h.Tick,
			Particle: uint64(h.Particle),
			X:        h.Position.X,
			Y:        h.Position.Y,
			Z:        h.Position.Z,
			Speed:    speed(h),
		})
	}
	return rows
}

// FramesCSV writes every sampled particle as one CSV row.
func FramesCSV(w io.Writer, res *experiment.Result) error {
	if err := gocsv.Marshal(FrameRows(res), w); err != nil {
		return fmt.Errorf("writing frames: %w", err)
	}
	return nil
}

func HitsCSV(w io.Writer, res *experiment.Result) error {
	if err := gocsv.Marshal(HitRows(res), w); err != nil {
		return fmt.Errorf("writing hits: %w", err)
	}
	return nil
}
