// Package dice tracks the grave pieces thrown in a round: a fixed pool of
// piece slots, the per-piece settlement tracker and the queue settlement
// messages travel on.
package dice

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/physics"
)

var ErrPoolExhausted = errors.New("dice pool has no free slot")

// Piece is one thrown grave. ID is the slot index and is only meaningful
// within the round that acquired it.
type Piece struct {
	ID          int
	Body        physics.BodyID
	Position    mgl64.Vec3
	Orientation mgl64.Quat

	LinearSpeed  float64
	AngularSpeed float64

	// Settled is set by the tracker when the piece stops or falls off.
	Settled     bool
	OutOfBounds bool
	// HasSettled is set once the resolver has counted the piece.
	HasSettled bool

	stillFor time.Duration
	active   bool
}

func (p *Piece) reset(id int) {
	*p = Piece{ID: id, Orientation: mgl64.QuatIdent()}
}

// Pool is a fixed set of piece slots recycled between rounds.
type Pool struct {
	slots []Piece
	used  int
}

func NewPool(capacity int) *Pool {
	p := &Pool{slots: make([]Piece, capacity)}
	for i := range p.slots {
		p.slots[i].reset(i)
	}
	return p
}

// Acquire binds the next free slot to body.
func (p *Pool) Acquire(body physics.BodyID) (*Piece, error) {
	if p.used >= len(p.slots) {
		return nil, ErrPoolExhausted
	}
	piece := &p.slots[p.used]
	piece.reset(p.used)
	piece.Body = body
	piece.active = true
	p.used++
	return piece, nil
}

// Get returns the active piece in slot id.
func (p *Pool) Get(id int) (*Piece, bool) {
	if id < 0 || id >= p.used {
		return nil, false
	}
	return &p.slots[id], true
}

// Active returns the pieces in use, in slot order.
func (p *Pool) Active() []*Piece {
	out := make([]*Piece, 0, p.used)
	for i := 0; i < p.used; i++ {
		out = append(out, &p.slots[i])
	}
	return out
}

// Release frees every slot, calling fn for each piece that was in use so the
// caller can drop the physics body.
func (p *Pool) Release(fn func(*Piece)) {
	for i := 0; i < p.used; i++ {
		if fn != nil {
			fn(&p.slots[i])
		}
		p.slots[i].reset(i)
	}
	p.used = 0
}

func (p *Pool) Len() int { return p.used }

func (p *Pool) Cap() int { return len(p.slots) }
