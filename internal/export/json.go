package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/crtsim/internal/experiment"
	"gonum.org/v1/gonum/spatial/r3"
)

type ExportData struct {
	Scene      string             `json:"scene"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Dt         float64            `json:"dt"`
	Ticks      int                `json:"ticks"`
	Plates     []string           `json:"plates"`
	Frames     []FrameData        `json:"frames"`
	Hits       []HitRow           `json:"hits"`
	Faults     []string           `json:"faults,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

type FrameData struct {
	Tick      int            `json:"tick"`
	Time      float64        `json:"time"`
	Charges   []float64      `json:"charges"`
	Particles []ParticleData `json:"particles"`
}

type ParticleData struct {
	ID       uint64     `json:"id"`
	Phase    string     `json:"phase"`
	Age      int        `json:"age"`
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
}

func vec(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

func speed(h experiment.Hit) float64 { return r3.Norm(h.Velocity) }

// Frame converts a sampled frame to its wire form.
func Frame(f experiment.Frame) FrameData {
	out := FrameData{
		Tick:      f.Tick,
		Time:      f.Time,
		Charges:   f.Charges,
		Particles: make([]ParticleData, len(f.Particles)),
	}
	for i, p := range f.Particles {
		out.Particles[i] = ParticleData{
			ID:       uint64(p.ID),
			Phase:    p.Phase.String(),
			Age:      p.Age,
			Position: vec(p.Position),
			Velocity: vec(p.Velocity),
		}
	}
	return out
}

func NewExportData(res *experiment.Result) ExportData {
	data := ExportData{
		Scene:      res.Scene,
		Integrator: res.Integrator,
		Controller: res.Controller,
		Dt:         res.Dt,
		Ticks:      res.Ticks,
		Plates:     res.Plates,
		Frames:     make([]FrameData, len(res.Frames)),
		Hits:       HitRows(res),
		Metrics:    res.Metrics,
	}
	for i, f := range res.Frames {
		data.Frames[i] = Frame(f)
	}
	for _, f := range res.Faults {
		data.Faults = append(data.Faults, f.Error())
	}
	return data
}

func JSON(w io.Writer, res *experiment.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(res))
}
