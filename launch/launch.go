// Package launch turns a drag gesture on the table into a launch command for
// the round resolver.
package launch

import (
	"errors"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MinDragPixels is the shortest drag that still counts as a throw.
	MinDragPixels = 5.0
	// MinDragTime keeps speed finite for drags released within the same frame.
	MinDragTime = 10 * time.Millisecond
)

var ErrInvalidCommand = errors.New("launch command has invalid fields")

// Gesture is a raw drag captured by the UI: screen points in pixels, the time
// span of the drag and the board point under the drag start.
type Gesture struct {
	StartScreen mgl64.Vec2
	EndScreen   mgl64.Vec2
	StartedAt   time.Time
	EndedAt     time.Time
	OriginWorld mgl64.Vec3
}

// Command is what the resolver consumes.
type Command struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec2 // unit
	Distance  float64    // pixels
	Speed     float64    // pixels per second
}

// FromGesture converts g into a Command. Drags shorter than MinDragPixels are
// discarded and ok is false.
func FromGesture(g Gesture) (cmd Command, ok bool) {
	drag := g.EndScreen.Sub(g.StartScreen)
	distance := drag.Len()
	if distance < MinDragPixels || math.IsNaN(distance) {
		return Command{}, false
	}

	elapsed := g.EndedAt.Sub(g.StartedAt)
	if elapsed < MinDragTime {
		elapsed = MinDragTime
	}

	return Command{
		Origin:    g.OriginWorld,
		Direction: drag.Mul(1 / distance),
		Distance:  distance,
		Speed:     distance / elapsed.Seconds(),
	}, true
}

// Validate rejects commands that did not come from FromGesture and carry
// values the resolver cannot use.
func (c Command) Validate() error {
	if c.Distance < 0 || c.Speed < 0 || math.IsNaN(c.Distance) || math.IsNaN(c.Speed) {
		return ErrInvalidCommand
	}
	l := c.Direction.Len()
	if math.IsNaN(l) || math.Abs(l-1) > 1e-6 {
		return ErrInvalidCommand
	}
	for _, v := range c.Origin {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidCommand
		}
	}
	return nil
}
