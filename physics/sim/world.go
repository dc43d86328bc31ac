// Package sim is a small deterministic rigid-body stand-in used to run tables
// headless. Boxes fall under gravity, land on a square board and come to rest
// on whichever face or edge is nearest to level. Bodies that leave the board
// keep falling. Boxes that interpenetrate are pushed apart along the axis of
// least penetration, so graves come to rest side by side or stacked.
package sim

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/physics"
)

type Config struct {
	Gravity   float64
	BoardHalf float64
	BoardY    float64

	Restitution float64
	// RestingSpeed is the impact speed below which a landing does not bounce.
	RestingSpeed float64
	// Friction and AngularFriction scale velocities on every step in contact.
	Friction        float64
	AngularFriction float64
	// Righting is the gain pulling a grounded body toward its nearest level pose.
	Righting float64
	// SleepSpeed snaps grounded velocities below it to zero.
	SleepSpeed float64
}

// DefaultConfig returns tuning for a board of the given world edge length.
func DefaultConfig(boardSize float64) Config {
	return Config{
		Gravity:         -20,
		BoardHalf:       boardSize / 2,
		BoardY:          0,
		Restitution:     0.3,
		RestingSpeed:    1.0,
		Friction:        0.85,
		AngularFriction: 0.85,
		Righting:        40,
		SleepSpeed:      0.01,
	}
}

type body struct {
	shape  physics.BoxShape
	pos    mgl64.Vec3
	vel    mgl64.Vec3
	angVel mgl64.Vec3
	rot    mgl64.Quat
	frozen bool
}

// World implements physics.Engine. It is not safe for concurrent use; the
// owning table drives it from its loop.
type World struct {
	cfg    Config
	bodies map[physics.BodyID]*body
	// spawn order; contacts are resolved in it so runs are reproducible
	order  []physics.BodyID
	nextID physics.BodyID
}

var _ physics.Engine = (*World)(nil)

func New(cfg Config) *World {
	return &World{
		cfg:    cfg,
		bodies: make(map[physics.BodyID]*body),
		nextID: 1,
	}
}

func (w *World) Spawn(shape physics.BoxShape, position mgl64.Vec3, orientation mgl64.Quat) physics.BodyID {
	id := w.nextID
	w.nextID++
	w.bodies[id] = &body{
		shape: shape,
		pos:   position,
		rot:   orientation.Normalize(),
	}
	w.order = append(w.order, id)
	return id
}

func (w *World) Remove(id physics.BodyID) {
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int {
	return len(w.bodies)
}

func (w *World) ApplyImpulse(id physics.BodyID, impulse mgl64.Vec3) {
	if b, ok := w.bodies[id]; ok && !b.frozen {
		b.vel = b.vel.Add(impulse)
	}
}

func (w *World) ApplyTorque(id physics.BodyID, torque mgl64.Vec3) {
	if b, ok := w.bodies[id]; ok && !b.frozen {
		b.angVel = b.angVel.Add(torque)
	}
}

func (w *World) LinearVelocity(id physics.BodyID) mgl64.Vec3 {
	if b, ok := w.bodies[id]; ok {
		return b.vel
	}
	return mgl64.Vec3{}
}

func (w *World) AngularVelocity(id physics.BodyID) mgl64.Vec3 {
	if b, ok := w.bodies[id]; ok {
		return b.angVel
	}
	return mgl64.Vec3{}
}

func (w *World) Position(id physics.BodyID) mgl64.Vec3 {
	if b, ok := w.bodies[id]; ok {
		return b.pos
	}
	return mgl64.Vec3{}
}

func (w *World) Orientation(id physics.BodyID) mgl64.Quat {
	if b, ok := w.bodies[id]; ok {
		return b.rot
	}
	return mgl64.QuatIdent()
}

func (w *World) Freeze(id physics.BodyID) {
	if b, ok := w.bodies[id]; ok {
		b.vel = mgl64.Vec3{}
		b.angVel = mgl64.Vec3{}
		b.frozen = true
	}
}

func (w *World) TestOverlap(a, b physics.BodyID) bool {
	ba, ok := w.bodies[a]
	if !ok {
		return false
	}
	bb, ok := w.bodies[b]
	if !ok {
		return false
	}
	return boxesOverlap(newOBB(ba), newOBB(bb))
}

func (w *World) Step(dt time.Duration) {
	h := dt.Seconds()
	if h <= 0 {
		return
	}
	for _, id := range w.order {
		b := w.bodies[id]
		if b.frozen {
			continue
		}
		b.vel[1] += w.cfg.Gravity * h
		b.pos = b.pos.Add(b.vel.Mul(h))
		b.rot = integrate(b.rot, b.angVel, h)
		w.resolveGround(b, h)
	}
	w.resolveContacts()
}

func (w *World) overBoard(p mgl64.Vec3) bool {
	return math.Abs(p.X()) <= w.cfg.BoardHalf && math.Abs(p.Z()) <= w.cfg.BoardHalf
}

func (w *World) resolveGround(b *body, h float64) {
	if !w.overBoard(b.pos) {
		return
	}
	bottom := b.pos.Y() - supportHeight(b)
	if bottom > w.cfg.BoardY {
		return
	}

	b.pos[1] += w.cfg.BoardY - bottom
	if b.vel[1] < 0 {
		if -b.vel[1] < w.cfg.RestingSpeed {
			b.vel[1] = 0
		} else {
			b.vel[1] = -b.vel[1] * w.cfg.Restitution
		}
	}

	b.vel[0] *= w.cfg.Friction
	b.vel[2] *= w.cfg.Friction
	b.angVel = b.angVel.Mul(w.cfg.AngularFriction)
	b.angVel = b.angVel.Add(righting(b.rot).Mul(w.cfg.Righting * h))

	if math.Hypot(b.vel[0], b.vel[2]) < w.cfg.SleepSpeed {
		b.vel[0], b.vel[2] = 0, 0
	}
	if b.angVel.Len() < w.cfg.SleepSpeed {
		b.angVel = mgl64.Vec3{}
	}
}

// integrate advances q by angular velocity omega (world frame) over h seconds.
func integrate(q mgl64.Quat, omega mgl64.Vec3, h float64) mgl64.Quat {
	if omega.Len() == 0 {
		return q
	}
	spin := mgl64.Quat{W: 0, V: omega}.Mul(q).Scale(0.5 * h)
	return q.Add(spin).Normalize()
}

func localAxes(q mgl64.Quat) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{
		q.Rotate(mgl64.Vec3{1, 0, 0}),
		q.Rotate(mgl64.Vec3{0, 1, 0}),
		q.Rotate(mgl64.Vec3{0, 0, 1}),
	}
}

// supportHeight is how far the lowest corner of the box hangs below its centre.
func supportHeight(b *body) float64 {
	axes := localAxes(b.rot)
	h := 0.0
	for i, a := range axes {
		h += math.Abs(a.Y()) * b.shape.HalfExtents[i]
	}
	return h
}

// righting returns an angular direction scaled by the tilt angle that turns
// the most vertical local axis onto world up (or down).
func righting(q mgl64.Quat) mgl64.Vec3 {
	axes := localAxes(q)
	best := 0
	for i := 1; i < 3; i++ {
		if math.Abs(axes[i].Y()) > math.Abs(axes[best].Y()) {
			best = i
		}
	}
	a := axes[best]
	if a.Y() < 0 {
		a = a.Mul(-1)
	}
	up := mgl64.Vec3{0, 1, 0}
	axis := a.Cross(up)
	s := axis.Len()
	if s < 1e-9 {
		return mgl64.Vec3{}
	}
	angle := math.Atan2(s, a.Dot(up))
	return axis.Mul(angle / s)
}
