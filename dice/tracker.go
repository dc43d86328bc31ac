package dice

import (
	"time"

	"github.com/wfunc/gravesugoroku/logger"
	"github.com/wfunc/gravesugoroku/physics"
)

type TrackerConfig struct {
	// VelocityThreshold bounds both linear and angular speed of a still piece.
	VelocityThreshold float64
	// StopTime is how long a piece must stay still to count as stopped.
	StopTime time.Duration
	// FallY is the height below which a piece has left the board.
	FallY float64
}

func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		VelocityThreshold: 0.05,
		StopTime:          300 * time.Millisecond,
		FallY:             -3,
	}
}

// Tracker decides when pieces are done moving. It holds no per-piece state;
// that lives on the Piece so one tracker serves the whole pool.
type Tracker struct {
	cfg    TrackerConfig
	engine physics.Engine
	queue  *Queue
}

func NewTracker(cfg TrackerConfig, engine physics.Engine, queue *Queue) *Tracker {
	return &Tracker{cfg: cfg, engine: engine, queue: queue}
}

// Step samples p's body after a physics step of length dt. Each piece posts
// at most one Settled message over its life.
func (t *Tracker) Step(p *Piece, dt time.Duration) {
	if p.Settled || !p.active {
		return
	}

	p.Position = t.engine.Position(p.Body)
	p.Orientation = t.engine.Orientation(p.Body)

	if p.Position.Y() < t.cfg.FallY {
		p.OutOfBounds = true
		p.Settled = true
		p.LinearSpeed, p.AngularSpeed = 0, 0
		t.engine.Freeze(p.Body)
		t.post(p)
		return
	}

	p.LinearSpeed = t.engine.LinearVelocity(p.Body).Len()
	p.AngularSpeed = t.engine.AngularVelocity(p.Body).Len()

	if p.LinearSpeed < t.cfg.VelocityThreshold && p.AngularSpeed < t.cfg.VelocityThreshold {
		p.stillFor += dt
		if p.stillFor >= t.cfg.StopTime {
			p.Settled = true
			t.post(p)
		}
		return
	}
	p.stillFor = 0
}

func (t *Tracker) post(p *Piece) {
	ok := t.queue.Post(Settled{
		PieceID:     p.ID,
		Fell:        p.OutOfBounds,
		Orientation: p.Orientation,
		Position:    p.Position,
	})
	if !ok {
		logger.Log.Errorf("settlement queue full, dropped piece %d", p.ID)
	}
}
