package game

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/launch"
)

const (
	powerDistance  = 300.0
	speedReference = 1500.0
	basePower      = 2.5
	upwardBias     = 0.1
	impulseJitter  = 0.3
	torqueJitter   = 4.0
)

// LaunchParams are the throw parameters derived from a launch command.
type LaunchParams struct {
	Power       float64
	SpeedFactor float64
	FinalPower  float64
	Spread      float64
	Direction   mgl64.Vec3
}

// ComputeLaunch maps drag length and speed to throw strength and spawn
// spread. The command must already be valid.
func ComputeLaunch(cmd launch.Command) LaunchParams {
	power := clamp(cmd.Distance/powerDistance, 0.2, 1.0)
	speedFactor := clamp(cmd.Speed/speedReference, 0.6, 1.1)

	flat := mgl64.Vec3{cmd.Direction.X(), 0, cmd.Direction.Y()}.Normalize()
	dir := flat.Add(mgl64.Vec3{0, upwardBias, 0}).Normalize()

	return LaunchParams{
		Power:       power,
		SpeedFactor: speedFactor,
		FinalPower:  basePower * power * speedFactor,
		Spread:      clamp(cmd.Distance/powerDistance, 0.4, 1.2),
		Direction:   dir,
	}
}

// spawnPosition scatters a grave around origin and lifts it above the board.
func spawnPosition(rng *rand.Rand, origin mgl64.Vec3, spread, height float64) mgl64.Vec3 {
	x := origin.X() + (rng.Float64()*2-1)*spread
	z := origin.Z() + (rng.Float64()*2-1)*spread
	return mgl64.Vec3{x, height, z}
}

func throwImpulse(rng *rand.Rand, p LaunchParams) mgl64.Vec3 {
	return p.Direction.Mul(p.FinalPower).Add(insideUnitSphere(rng).Mul(impulseJitter))
}

func throwTorque(rng *rand.Rand) mgl64.Vec3 {
	return insideUnitSphere(rng).Mul(torqueJitter)
}

func insideUnitSphere(rng *rand.Rand) mgl64.Vec3 {
	for {
		v := mgl64.Vec3{rng.Float64()*2 - 1, rng.Float64()*2 - 1, rng.Float64()*2 - 1}
		if v.Dot(v) <= 1 {
			return v
		}
	}
}

// randomRotation draws a uniformly distributed orientation.
func randomRotation(rng *rand.Rand) mgl64.Quat {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a := math.Sqrt(1 - u1)
	b := math.Sqrt(u1)
	return mgl64.Quat{
		W: a * math.Sin(2*math.Pi*u2),
		V: mgl64.Vec3{
			a * math.Cos(2*math.Pi*u2),
			b * math.Sin(2*math.Pi*u3),
			b * math.Cos(2*math.Pi*u3),
		},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
