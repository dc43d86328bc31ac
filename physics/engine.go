// Package physics declares what the game needs from a rigid-body engine.
// The engine itself is a collaborator; see physics/sim for the in-process one.
package physics

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyID identifies a body inside an Engine.
type BodyID int64

// BoxShape is a box collision volume given by its half extents along the
// body's local right (X), up (Y) and forward (Z) axes.
type BoxShape struct {
	HalfExtents mgl64.Vec3
}

// Engine is the slice of a rigid-body engine the round resolver drives.
// Impulse and torque are instantaneous (velocity-change) impulses.
type Engine interface {
	Spawn(shape BoxShape, position mgl64.Vec3, orientation mgl64.Quat) BodyID
	Remove(body BodyID)

	ApplyImpulse(body BodyID, impulse mgl64.Vec3)
	ApplyTorque(body BodyID, torque mgl64.Vec3)

	LinearVelocity(body BodyID) mgl64.Vec3
	AngularVelocity(body BodyID) mgl64.Vec3
	Position(body BodyID) mgl64.Vec3
	Orientation(body BodyID) mgl64.Quat

	// Freeze zeroes the body's velocities and removes it from simulation.
	Freeze(body BodyID)
	// TestOverlap reports whether two bodies' collision volumes penetrate.
	TestOverlap(a, b BodyID) bool

	Step(dt time.Duration)
}
