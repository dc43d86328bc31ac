package dice

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/physics"
	"github.com/wfunc/gravesugoroku/physics/physicstest"
)

const tick = 20 * time.Millisecond

func newTrackedPiece(t *testing.T) (*physicstest.Engine, *Tracker, *Queue, *Piece) {
	t.Helper()
	engine := physicstest.New()
	queue := NewQueue(4)
	tracker := NewTracker(DefaultTrackerConfig(), engine, queue)
	pool := NewPool(4)
	body := engine.Spawn(physics.BoxShape{}, mgl64.Vec3{0, 5, 0}, mgl64.QuatIdent())
	piece, err := pool.Acquire(body)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	return engine, tracker, queue, piece
}

func TestTracker_SettlesAfterStopTime(t *testing.T) {
	engine, tracker, queue, piece := newTrackedPiece(t)
	engine.Rest(piece.Body, mgl64.QuatIdent())

	for i := 0; i < 14; i++ {
		tracker.Step(piece, tick)
	}
	if piece.Settled || queue.Len() != 0 {
		t.Fatal("Piece should not settle before 300ms of stillness")
	}

	tracker.Step(piece, tick)
	if !piece.Settled {
		t.Fatal("Piece should settle after 300ms of stillness")
	}
	if queue.Len() != 1 {
		t.Fatalf("Expected 1 settlement message, got %d", queue.Len())
	}
	if piece.OutOfBounds {
		t.Error("A piece at rest on the board is not out of bounds")
	}
}

func TestTracker_MotionResetsTimer(t *testing.T) {
	engine, tracker, queue, piece := newTrackedPiece(t)
	engine.Rest(piece.Body, mgl64.QuatIdent())

	for i := 0; i < 10; i++ {
		tracker.Step(piece, tick)
	}
	engine.Bodies[piece.Body].AngVel = mgl64.Vec3{0, 0.2, 0}
	tracker.Step(piece, tick)
	engine.Bodies[piece.Body].AngVel = mgl64.Vec3{}

	for i := 0; i < 14; i++ {
		tracker.Step(piece, tick)
	}
	if piece.Settled {
		t.Fatal("Timer should have restarted after the piece moved")
	}
	tracker.Step(piece, tick)
	if !piece.Settled || queue.Len() != 1 {
		t.Fatalf("Expected settlement after a fresh 300ms, settled=%v queued=%d", piece.Settled, queue.Len())
	}
}

func TestTracker_FallPreemptsAndFreezes(t *testing.T) {
	engine, tracker, queue, piece := newTrackedPiece(t)
	engine.Bodies[piece.Body].Vel = mgl64.Vec3{3, -8, 0}
	engine.Drop(piece.Body)

	tracker.Step(piece, tick)
	if !piece.Settled || !piece.OutOfBounds {
		t.Fatalf("Expected an immediate out-of-bounds settlement, got settled=%v oob=%v", piece.Settled, piece.OutOfBounds)
	}
	body := engine.Bodies[piece.Body]
	if !body.Frozen || body.Vel.Len() != 0 {
		t.Error("Fallen body should be frozen with zero velocity")
	}

	var got []Settled
	queue.Drain(func(s Settled) { got = append(got, s) })
	if len(got) != 1 || !got[0].Fell || got[0].PieceID != piece.ID {
		t.Fatalf("Expected one fell message for piece %d, got %+v", piece.ID, got)
	}
}

func TestTracker_EmitsAtMostOnce(t *testing.T) {
	engine, tracker, queue, piece := newTrackedPiece(t)
	engine.Rest(piece.Body, mgl64.QuatIdent())
	for i := 0; i < 50; i++ {
		tracker.Step(piece, tick)
	}
	engine.Drop(piece.Body)
	for i := 0; i < 5; i++ {
		tracker.Step(piece, tick)
	}
	if queue.Len() != 1 {
		t.Errorf("Expected exactly 1 message over the piece's life, got %d", queue.Len())
	}
	if piece.OutOfBounds {
		t.Error("A piece that already settled must not be re-judged as fallen")
	}
}

func TestTracker_NeverSettlesWhileMoving(t *testing.T) {
	engine, tracker, queue, piece := newTrackedPiece(t)
	engine.Bodies[piece.Body].Vel = mgl64.Vec3{0.06, 0, 0}
	for i := 0; i < 200; i++ {
		tracker.Step(piece, tick)
	}
	if piece.Settled || queue.Len() != 0 {
		t.Error("A piece above the threshold should never settle")
	}
}
