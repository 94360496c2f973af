package export

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/crtsim/internal/dynamo"
	"github.com/san-kum/crtsim/internal/experiment"
	"github.com/san-kum/crtsim/internal/geometry"
)

// SVGOptions selects the side view: Horizontal is usually the travel axis
// and Vertical the deflection axis.
type SVGOptions struct {
	Width      int
	Height     int
	Horizontal geometry.Axis
	Vertical   geometry.Axis
	Stroke     string
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 400, Horizontal: geometry.AxisX, Vertical: geometry.AxisY, Stroke: "#00ff00"}
}

type point struct{ X, Y float64 }

type bounds struct{ minX, maxX, minY, maxY float64 }

func (b *bounds) add(p point) {
	b.minX = math.Min(b.minX, p.X)
	b.maxX = math.Max(b.maxX, p.X)
	b.minY = math.Min(b.minY, p.Y)
	b.maxY = math.Max(b.maxY, p.Y)
}

// pad adds 10% on each side.
func (b *bounds) pad() {
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
}

func (b *bounds) project(p point, width, height int) (float64, float64) {
	x := (p.X - b.minX) / (b.maxX - b.minX) * float64(width)
	y := float64(height) - (p.Y-b.minY)/(b.maxY-b.minY)*float64(height)
	return x, y
}

// trajectories collects each particle's sampled positions in frame order,
// projected onto the two axes. Particle order is first appearance.
func trajectories(res *experiment.Result, h, v geometry.Axis) ([]dynamo.ParticleID, map[dynamo.ParticleID][]point) {
	var order []dynamo.ParticleID
	paths := make(map[dynamo.ParticleID][]point)
	for _, f := range res.Frames {
		for _, p := range f.Particles {
			if _, ok := paths[p.ID]; !ok {
				order = append(order, p.ID)
			}
			paths[p.ID] = append(paths[p.ID], point{geometry.Component(p.Position, h), geometry.Component(p.Position, v)})
		}
	}
	return order, paths
}

// TrajectoriesToSVG draws every sampled particle path and the plates that
// are edge-on in the chosen view. Plates are red when positive and blue
// when negative, fading with |charge|.
func TrajectoriesToSVG(res *experiment.Result, plates []geometry.Plate, opts SVGOptions) string {
	order, paths := trajectories(res, opts.Horizontal, opts.Vertical)

	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, id := range order {
		for _, p := range paths[id] {
			b.add(p)
		}
	}
	segments := plateSegments(plates, opts)
	for _, s := range segments {
		b.add(s.a)
		b.add(s.b)
	}
	if math.IsInf(b.minX, 1) {
		return ""
	}
	b.pad()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opts.Width, opts.Height, opts.Width, opts.Height)

	maxQ := 0.0
	for _, s := range segments {
		maxQ = math.Max(maxQ, math.Abs(s.charge))
	}
	for _, s := range segments {
		x1, y1 := b.project(s.a, opts.Width, opts.Height)
		x2, y2 := b.project(s.b, opts.Width, opts.Height)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-opacity="%.2f" stroke-width="3"><title>%s</title></line>
`, x1, y1, x2, y2, chargeColor(s.charge), chargeOpacity(s.charge, maxQ), html.EscapeString(s.name))
	}

	for _, id := range order {
		pts := paths[id]
		if len(pts) < 2 {
			continue
		}
		sb.WriteString(`<path fill="none" stroke="` + html.EscapeString(opts.Stroke) + `" stroke-width="1" d="M`)
		for i, p := range pts {
			x, y := b.project(p, opts.Width, opts.Height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

type segment struct {
	name   string
	a, b   point
	charge float64
}

// plateSegments returns the plates seen edge-on: those whose normal is one
// of the two view axes.
func plateSegments(plates []geometry.Plate, opts SVGOptions) []segment {
	var out []segment
	for _, p := range plates {
		if p.Normal != opts.Horizontal && p.Normal != opts.Vertical {
			continue
		}
		u, v := p.Normal.InPlane()
		half := p.HalfExtents[0]
		along := u
		if v == opts.Horizontal || v == opts.Vertical {
			along, half = v, p.HalfExtents[1]
		}
		lo := geometry.With(p.Center, along, geometry.Component(p.Center, along)-half)
		hi := geometry.With(p.Center, along, geometry.Component(p.Center, along)+half)
		out = append(out, segment{
			name:   p.Name,
			a:      point{geometry.Component(lo, opts.Horizontal), geometry.Component(lo, opts.Vertical)},
			b:      point{geometry.Component(hi, opts.Horizontal), geometry.Component(hi, opts.Vertical)},
			charge: p.Charge,
		})
	}
	return out
}

func chargeColor(q float64) string {
	switch {
	case q > 0:
		return "#ff4040"
	case q < 0:
		return "#4080ff"
	}
	return "#808080"
}

func chargeOpacity(q, maxQ float64) float64 {
	if maxQ == 0 {
		return 0.5
	}
	return 0.3 + 0.7*math.Abs(q)/maxQ
}
