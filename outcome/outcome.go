// Package outcome reads a settled grave's resting pose as a game result.
package outcome

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Outcome is the face a grave came to rest on.
type Outcome int

const (
	Front    Outcome = iota // lying flat, face up
	Back                    // lying flat, face down
	Side                    // standing on a long edge
	Vertical                // standing on a short edge
)

// All lists every outcome in declaration order.
var All = []Outcome{Front, Back, Side, Vertical}

func (o Outcome) String() string {
	switch o {
	case Front:
		return "front"
	case Back:
		return "back"
	case Side:
		return "side"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// Steps is how many cells the outcome is worth.
func (o Outcome) Steps() int {
	switch o {
	case Front:
		return 1
	case Side:
		return 5
	case Vertical:
		return 10
	default:
		return 0
	}
}

// Tag names the material the UI paints a settled grave with.
func (o Outcome) Tag() string {
	switch o {
	case Front:
		return "red"
	case Back:
		return "blue"
	case Side:
		return "yellow"
	case Vertical:
		return "green"
	default:
		return ""
	}
}

// Classify projects the piece's local right, up and forward axes onto world up
// and picks the axis that points most nearly vertically.
func Classify(orientation mgl64.Quat) Outcome {
	q := orientation.Normalize()
	dotRight := q.Rotate(mgl64.Vec3{1, 0, 0}).Y()
	dotUp := q.Rotate(mgl64.Vec3{0, 1, 0}).Y()
	dotForward := q.Rotate(mgl64.Vec3{0, 0, 1}).Y()
	return classifyDots(dotUp, dotRight, dotForward)
}

// classifyDots resolves ties up > forward > right.
func classifyDots(dotUp, dotRight, dotForward float64) Outcome {
	absUp := math.Abs(dotUp)
	absRight := math.Abs(dotRight)
	absForward := math.Abs(dotForward)

	if absUp >= absForward && absUp >= absRight {
		if dotUp > 0 {
			return Front
		}
		return Back
	}
	if absForward >= absRight {
		return Side
	}
	return Vertical
}
