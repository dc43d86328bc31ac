package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	contactIterations = 8
	// contactSlop leaves a hair of clearance so resolved boxes test apart.
	contactSlop = 1e-3
	groundEps   = 1e-6
)

// resolveContacts pushes interpenetrating boxes apart and removes the part
// of their relative velocity that drives them into each other. Bodies that
// touched something are damped once per step like a ground contact.
func (w *World) resolveContacts() {
	touched := make(map[*body]bool)
	for iter := 0; iter < contactIterations; iter++ {
		resolved := true
		for i := 0; i < len(w.order); i++ {
			a := w.bodies[w.order[i]]
			for j := i + 1; j < len(w.order); j++ {
				b := w.bodies[w.order[j]]
				if a.frozen && b.frozen {
					continue
				}
				n, depth, ok := penetration(newOBB(a), newOBB(b))
				if !ok {
					continue
				}
				resolved = false
				w.separate(a, b, n, depth, touched)
			}
		}
		if resolved {
			break
		}
	}
	for b := range touched {
		b.vel[0] *= w.cfg.Friction
		b.vel[2] *= w.cfg.Friction
		b.angVel = b.angVel.Mul(w.cfg.AngularFriction)
	}
}

// separate moves a against n and b along n until they no longer overlap.
// n points from a to b.
func (w *World) separate(a, b *body, n mgl64.Vec3, depth float64, touched map[*body]bool) {
	if w.grounded(a) && w.grounded(b) && math.Abs(n.Y()) > 0.5 {
		// both lie on the board: slide them apart instead of stacking
		n, depth = horizontalSeparation(newOBB(a), newOBB(b))
	}
	moveA := w.movable(a, n.Mul(-1))
	moveB := w.movable(b, n)
	if moveA && moveB && math.Abs(n.Y()) > 0.5 {
		// the lower body carries the upper one
		if n.Y() > 0 {
			moveA = false
		} else {
			moveB = false
		}
	}
	if !moveA && !moveB {
		return
	}

	push := depth + contactSlop
	switch {
	case moveA && moveB:
		a.pos = a.pos.Sub(n.Mul(push / 2))
		b.pos = b.pos.Add(n.Mul(push / 2))
	case moveA:
		a.pos = a.pos.Sub(n.Mul(push))
	default:
		b.pos = b.pos.Add(n.Mul(push))
	}

	if rel := b.vel.Sub(a.vel).Dot(n); rel < 0 {
		switch {
		case moveA && moveB:
			a.vel = a.vel.Add(n.Mul(rel / 2))
			b.vel = b.vel.Sub(n.Mul(rel / 2))
		case moveA:
			a.vel = a.vel.Add(n.Mul(rel))
		default:
			b.vel = b.vel.Sub(n.Mul(rel))
		}
	}

	if moveA {
		w.keepAboveBoard(a)
		touched[a] = true
	}
	if moveB {
		w.keepAboveBoard(b)
		touched[b] = true
	}
}

// movable reports whether b may be pushed along dir. A body resting on the
// board is not pushed into it.
func (w *World) movable(b *body, dir mgl64.Vec3) bool {
	if b.frozen {
		return false
	}
	return !(w.grounded(b) && dir.Y() < -0.5)
}

func (w *World) grounded(b *body) bool {
	return w.overBoard(b.pos) && b.pos.Y()-supportHeight(b) <= w.cfg.BoardY+groundEps
}

func (w *World) keepAboveBoard(b *body) {
	if !w.overBoard(b.pos) {
		return
	}
	if bottom := b.pos.Y() - supportHeight(b); bottom < w.cfg.BoardY {
		b.pos[1] += w.cfg.BoardY - bottom
	}
}

// horizontalSeparation returns the unit board-plane direction from a to b
// and how far the boxes overlap along it.
func horizontalSeparation(a, b obb) (mgl64.Vec3, float64) {
	d := b.center.Sub(a.center)
	n := mgl64.Vec3{d.X(), 0, d.Z()}
	if n.Len() < 1e-9 {
		n = mgl64.Vec3{1, 0, 0}
	}
	n = n.Normalize()
	depth := a.radius(n) + b.radius(n) - math.Abs(d.Dot(n))
	if depth < 0 {
		depth = 0
	}
	return n, depth
}
