package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type obb struct {
	center mgl64.Vec3
	axes   [3]mgl64.Vec3
	half   mgl64.Vec3
}

func newOBB(b *body) obb {
	return obb{center: b.pos, axes: localAxes(b.rot), half: b.shape.HalfExtents}
}

func (o obb) radius(l mgl64.Vec3) float64 {
	r := 0.0
	for i, a := range o.axes {
		r += math.Abs(a.Dot(l)) * o.half[i]
	}
	return r
}

// candidateAxes returns the 15 separating axis candidates of two oriented
// boxes as unit vectors, minus edge pairs that are parallel.
func candidateAxes(a, b obb) []mgl64.Vec3 {
	axes := make([]mgl64.Vec3, 0, 15)
	axes = append(axes, a.axes[:]...)
	axes = append(axes, b.axes[:]...)
	for _, x := range a.axes {
		for _, y := range b.axes {
			c := x.Cross(y)
			if l := c.Len(); l > 1e-6 {
				axes = append(axes, c.Mul(1/l))
			}
		}
	}
	return axes
}

// penetration finds the axis along which a and b overlap least. The normal
// points from a to b. Boxes that only touch do not penetrate.
func penetration(a, b obb) (normal mgl64.Vec3, depth float64, ok bool) {
	d := b.center.Sub(a.center)
	depth = math.Inf(1)
	for _, l := range candidateAxes(a, b) {
		proj := d.Dot(l)
		overlap := a.radius(l) + b.radius(l) - math.Abs(proj)
		if overlap <= 0 {
			return mgl64.Vec3{}, 0, false
		}
		if overlap < depth {
			depth = overlap
			if proj < 0 {
				l = l.Mul(-1)
			}
			normal = l
		}
	}
	return normal, depth, true
}

// boxesOverlap runs the separating axis test over two oriented boxes.
func boxesOverlap(a, b obb) bool {
	_, _, ok := penetration(a, b)
	return ok
}
