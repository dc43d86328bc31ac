// Package physicstest provides a scripted physics.Engine for tests. Bodies
// never move on their own; tests place them and set their velocities.
package physicstest

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/physics"
)

type Body struct {
	Shape    physics.BoxShape
	Pos      mgl64.Vec3
	Vel      mgl64.Vec3
	AngVel   mgl64.Vec3
	Rot      mgl64.Quat
	Frozen   bool
	Impulses []mgl64.Vec3
	Torques  []mgl64.Vec3
}

type Engine struct {
	Bodies   map[physics.BodyID]*Body
	Spawned  []physics.BodyID
	Removed  []physics.BodyID
	Overlaps map[[2]physics.BodyID]bool
	Steps    int
	next     physics.BodyID
}

var _ physics.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{
		Bodies:   make(map[physics.BodyID]*Body),
		Overlaps: make(map[[2]physics.BodyID]bool),
		next:     1,
	}
}

func (e *Engine) Spawn(shape physics.BoxShape, position mgl64.Vec3, orientation mgl64.Quat) physics.BodyID {
	id := e.next
	e.next++
	e.Bodies[id] = &Body{Shape: shape, Pos: position, Rot: orientation}
	e.Spawned = append(e.Spawned, id)
	return id
}

func (e *Engine) Remove(id physics.BodyID) {
	delete(e.Bodies, id)
	e.Removed = append(e.Removed, id)
}

func (e *Engine) ApplyImpulse(id physics.BodyID, impulse mgl64.Vec3) {
	if b, ok := e.Bodies[id]; ok {
		b.Vel = b.Vel.Add(impulse)
		b.Impulses = append(b.Impulses, impulse)
	}
}

func (e *Engine) ApplyTorque(id physics.BodyID, torque mgl64.Vec3) {
	if b, ok := e.Bodies[id]; ok {
		b.AngVel = b.AngVel.Add(torque)
		b.Torques = append(b.Torques, torque)
	}
}

func (e *Engine) LinearVelocity(id physics.BodyID) mgl64.Vec3 {
	if b, ok := e.Bodies[id]; ok {
		return b.Vel
	}
	return mgl64.Vec3{}
}

func (e *Engine) AngularVelocity(id physics.BodyID) mgl64.Vec3 {
	if b, ok := e.Bodies[id]; ok {
		return b.AngVel
	}
	return mgl64.Vec3{}
}

func (e *Engine) Position(id physics.BodyID) mgl64.Vec3 {
	if b, ok := e.Bodies[id]; ok {
		return b.Pos
	}
	return mgl64.Vec3{}
}

func (e *Engine) Orientation(id physics.BodyID) mgl64.Quat {
	if b, ok := e.Bodies[id]; ok {
		return b.Rot
	}
	return mgl64.QuatIdent()
}

func (e *Engine) Freeze(id physics.BodyID) {
	if b, ok := e.Bodies[id]; ok {
		b.Vel, b.AngVel = mgl64.Vec3{}, mgl64.Vec3{}
		b.Frozen = true
	}
}

func (e *Engine) TestOverlap(a, b physics.BodyID) bool {
	return e.Overlaps[[2]physics.BodyID{a, b}] || e.Overlaps[[2]physics.BodyID{b, a}]
}

func (e *Engine) Step(time.Duration) {
	e.Steps++
}

// Rest puts body id on the board, motionless, in orientation rot.
func (e *Engine) Rest(id physics.BodyID, rot mgl64.Quat) {
	if b, ok := e.Bodies[id]; ok {
		b.Pos = mgl64.Vec3{b.Pos.X(), 0.1, b.Pos.Z()}
		b.Vel, b.AngVel = mgl64.Vec3{}, mgl64.Vec3{}
		b.Rot = rot
	}
}

// Drop moves body id well below the board.
func (e *Engine) Drop(id physics.BodyID) {
	if b, ok := e.Bodies[id]; ok {
		b.Pos = mgl64.Vec3{b.Pos.X(), -10, b.Pos.Z()}
	}
}

// Overlap marks two bodies as penetrating.
func (e *Engine) Overlap(a, b physics.BodyID) {
	e.Overlaps[[2]physics.BodyID{a, b}] = true
}
