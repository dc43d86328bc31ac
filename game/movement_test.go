package game

import (
	"testing"
	"time"

	"github.com/wfunc/gravesugoroku/board"
)

func newTestMover(t *testing.T, steps int) (*Mover, *Player, *board.PathLoop, board.Geometry) {
	t.Helper()
	path, err := board.BuildOuterPath(9)
	if err != nil {
		t.Fatalf("BuildOuterPath failed: %v", err)
	}
	geo := board.NewGeometry(9, 9, 0)
	p := &Player{PathIndex: 30, Position: cellPosition(geo, path, 30, 0.5)}
	cfg := MovementConfig{CellDuration: 150 * time.Millisecond, Pause: 50 * time.Millisecond}
	return NewMover(p, steps, path, geo, 0.5, cfg), p, path, geo
}

func TestMover_StepsOneCellAtATime(t *testing.T) {
	m, p, path, geo := newTestMover(t, 3)

	entered := m.Advance(75 * time.Millisecond)
	if len(entered) != 1 || entered[0] != 31 {
		t.Fatalf("Expected to enter 31, got %v", entered)
	}
	if m.Phase() != MoverInterpolating {
		t.Errorf("Expected interpolating, got %s", m.Phase())
	}
	from := cellPosition(geo, path, 30, 0.5)
	to := cellPosition(geo, path, 31, 0.5)
	mid := from.Add(to).Mul(0.5)
	if !p.Position.ApproxEqualThreshold(mid, 1e-9) {
		t.Errorf("Expected halfway position %v, got %v", mid, p.Position)
	}

	if entered := m.Advance(100 * time.Millisecond); len(entered) != 0 {
		t.Errorf("Expected no new cell during the lerp and pause, got %v", entered)
	}
	if m.Phase() != MoverPausing {
		t.Errorf("Expected pausing, got %s", m.Phase())
	}

	entered = m.Advance(30 * time.Millisecond)
	if len(entered) != 1 || entered[0] != 0 {
		t.Fatalf("Expected to wrap to 0, got %v", entered)
	}
	if m.Remaining() != 1 {
		t.Errorf("Expected 1 remaining, got %d", m.Remaining())
	}
}

func TestMover_FinishesAfterLastPause(t *testing.T) {
	m, p, path, geo := newTestMover(t, 3)

	m.Advance(599 * time.Millisecond)
	if m.Done() {
		t.Fatal("Expected the walk to still be pausing")
	}
	m.Advance(time.Millisecond)
	if !m.Done() {
		t.Fatalf("Expected done, got %s", m.Phase())
	}
	if p.PathIndex != 1 {
		t.Errorf("Expected index 1, got %d", p.PathIndex)
	}
	if want := cellPosition(geo, path, 1, 0.5); !p.Position.ApproxEqual(want) {
		t.Errorf("Expected %v, got %v", want, p.Position)
	}
}

func TestMover_ZeroSteps(t *testing.T) {
	m, p, _, _ := newTestMover(t, 0)
	if entered := m.Advance(0); len(entered) != 0 {
		t.Errorf("Expected no cells, got %v", entered)
	}
	if !m.Done() || p.PathIndex != 30 {
		t.Errorf("Expected done in place, got %s at %d", m.Phase(), p.PathIndex)
	}
}

func TestMover_LargeTickCoversWholeWalk(t *testing.T) {
	m, p, _, _ := newTestMover(t, 5)
	entered := m.Advance(10 * time.Second)
	want := []int{31, 0, 1, 2, 3}
	if len(entered) != len(want) {
		t.Fatalf("Expected %v, got %v", want, entered)
	}
	for i := range want {
		if entered[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, entered)
			break
		}
	}
	if !m.Done() || p.PathIndex != 3 {
		t.Errorf("Expected done at 3, got %s at %d", m.Phase(), p.PathIndex)
	}
}

func TestMover_Backwards(t *testing.T) {
	m, p, _, _ := newTestMover(t, -2)
	m.Advance(time.Second)
	if p.PathIndex != 28 {
		t.Errorf("Expected index 28, got %d", p.PathIndex)
	}
}
