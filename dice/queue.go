package dice

import "github.com/go-gl/mathgl/mgl64"

// Settled reports that a piece stopped moving or fell off the board.
type Settled struct {
	PieceID     int
	Fell        bool
	Orientation mgl64.Quat
	Position    mgl64.Vec3
}

// Queue carries Settled messages from the trackers to their single consumer.
type Queue struct {
	ch chan Settled
}

func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan Settled, capacity)}
}

// Post enqueues s without blocking and reports whether it fit.
func (q *Queue) Post(s Settled) bool {
	select {
	case q.ch <- s:
		return true
	default:
		return false
	}
}

// Drain hands every queued message to fn and returns how many there were.
func (q *Queue) Drain(fn func(Settled)) int {
	n := 0
	for {
		select {
		case s := <-q.ch:
			n++
			fn(s)
		default:
			return n
		}
	}
}

// Reset discards anything still queued.
func (q *Queue) Reset() {
	q.Drain(func(Settled) {})
}

func (q *Queue) Len() int { return len(q.ch) }
