package launch

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFromGesture_DiscardsShortDrag(t *testing.T) {
	now := time.Now()
	_, ok := FromGesture(Gesture{
		StartScreen: mgl64.Vec2{100, 100},
		EndScreen:   mgl64.Vec2{103, 103},
		StartedAt:   now,
		EndedAt:     now.Add(200 * time.Millisecond),
	})
	if ok {
		t.Error("A 4.2px drag should be discarded")
	}
}

func TestFromGesture_BuildsCommand(t *testing.T) {
	now := time.Now()
	origin := mgl64.Vec3{1, 0, -2}
	cmd, ok := FromGesture(Gesture{
		StartScreen: mgl64.Vec2{0, 0},
		EndScreen:   mgl64.Vec2{300, 400},
		StartedAt:   now,
		EndedAt:     now.Add(500 * time.Millisecond),
		OriginWorld: origin,
	})
	if !ok {
		t.Fatal("Expected a command")
	}
	if cmd.Distance != 500 {
		t.Errorf("Expected distance 500, got %f", cmd.Distance)
	}
	if math.Abs(cmd.Speed-1000) > 1e-9 {
		t.Errorf("Expected speed 1000, got %f", cmd.Speed)
	}
	if !cmd.Direction.ApproxEqual(mgl64.Vec2{0.6, 0.8}) {
		t.Errorf("Expected direction (0.6,0.8), got %v", cmd.Direction)
	}
	if cmd.Origin != origin {
		t.Errorf("Expected origin %v, got %v", origin, cmd.Origin)
	}
	if err := cmd.Validate(); err != nil {
		t.Errorf("Command from gesture should validate, got %v", err)
	}
}

func TestFromGesture_ClampsZeroDuration(t *testing.T) {
	now := time.Now()
	cmd, ok := FromGesture(Gesture{
		StartScreen: mgl64.Vec2{0, 0},
		EndScreen:   mgl64.Vec2{10, 0},
		StartedAt:   now,
		EndedAt:     now,
	})
	if !ok {
		t.Fatal("Expected a command")
	}
	if math.Abs(cmd.Speed-1000) > 1e-9 {
		t.Errorf("Expected speed 10px/10ms = 1000, got %f", cmd.Speed)
	}
}

func TestCommand_Validate(t *testing.T) {
	bad := []Command{
		{Direction: mgl64.Vec2{1, 0}, Distance: -1},
		{Direction: mgl64.Vec2{1, 0}, Speed: math.NaN()},
		{Direction: mgl64.Vec2{2, 0}},
		{Direction: mgl64.Vec2{1, 0}, Origin: mgl64.Vec3{math.Inf(1), 0, 0}},
	}
	for i, c := range bad {
		if err := c.Validate(); !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("case %d: expected ErrInvalidCommand, got %v", i, err)
		}
	}
}
