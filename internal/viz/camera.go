package viz

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is a simple orbiting perspective projection around Target.
type Camera struct {
	Target     r3.Vec
	Distance   float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera(target r3.Vec, extent float64) *Camera {
	if extent <= 0 {
		extent = 1
	}
	return &Camera{Target: target, Distance: 4 * extent, RotX: -0.4, RotY: 0.6, Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(p r3.Vec) r3.Vec {
	p = r3.Sub(p, c.Target)
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	return r3.Scale(c.Zoom, p)
}

// Project maps a world point to canvas sub-pixels. It returns depth and
// whether the point is in front of the camera and on screen.
func (c *Camera) Project(p r3.Vec, sw, sh int) (int, int, float64, bool) {
	rot := c.rotate(p)
	if rot.Z >= c.Distance-1e-9 {
		return 0, 0, 0, false
	}
	scale := c.Distance / (c.Distance - rot.Z)
	pScale := float64(min(sw, sh)) / (c.Distance / 2)
	sx := int(rot.X*scale*pScale) + sw/2
	sy := int(-rot.Y*scale*pScale) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type edge struct{ a, b r3.Vec }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// render3D draws edges back to front; an edge with equal ends is a point.
func render3D(c *Canvas, edges []edge, cam *Camera) {
	sw, sh := c.Pixels()
	proj := make([]projectedEdge, 0, len(edges))
	for _, e := range edges {
		x1, y1, d1, v1 := cam.Project(e.a, sw, sh)
		x2, y2, d2, v2 := cam.Project(e.b, sw, sh)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}
