package dice

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/physics"
)

func TestPool_AcquireAndRelease(t *testing.T) {
	pool := NewPool(2)
	a, err := pool.Acquire(10)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	b, _ := pool.Acquire(11)
	if a.ID != 0 || b.ID != 1 {
		t.Errorf("Expected slot ids 0 and 1, got %d and %d", a.ID, b.ID)
	}
	if _, err := pool.Acquire(12); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("Expected ErrPoolExhausted, got %v", err)
	}

	a.Settled = true
	var released []physics.BodyID
	pool.Release(func(p *Piece) { released = append(released, p.Body) })
	if len(released) != 2 || released[0] != 10 || released[1] != 11 {
		t.Errorf("Expected bodies 10 and 11 released, got %v", released)
	}
	if pool.Len() != 0 {
		t.Errorf("Expected empty pool, got %d", pool.Len())
	}

	c, _ := pool.Acquire(20)
	if c != a {
		t.Error("Slots should be reused between rounds")
	}
	if c.Settled || c.Body != 20 || c.Orientation != mgl64.QuatIdent() {
		t.Errorf("Reused slot should be reset, got %+v", c)
	}
}

func TestPool_Get(t *testing.T) {
	pool := NewPool(4)
	pool.Acquire(1)
	if _, ok := pool.Get(0); !ok {
		t.Error("Expected slot 0 to be active")
	}
	if _, ok := pool.Get(1); ok {
		t.Error("Slot 1 was never acquired")
	}
	if _, ok := pool.Get(-1); ok {
		t.Error("Negative ids are invalid")
	}
	if got := len(pool.Active()); got != 1 {
		t.Errorf("Expected 1 active piece, got %d", got)
	}
}

func TestQueue_PostAndDrain(t *testing.T) {
	q := NewQueue(2)
	if !q.Post(Settled{PieceID: 0}) || !q.Post(Settled{PieceID: 1}) {
		t.Fatal("Posts within capacity should succeed")
	}
	if q.Post(Settled{PieceID: 2}) {
		t.Error("Post beyond capacity should fail without blocking")
	}
	var ids []int
	if n := q.Drain(func(s Settled) { ids = append(ids, s.PieceID) }); n != 2 {
		t.Errorf("Expected 2 drained, got %d", n)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 1 {
		t.Errorf("Expected FIFO order [0 1], got %v", ids)
	}
	q.Post(Settled{})
	q.Reset()
	if q.Len() != 0 {
		t.Error("Reset should empty the queue")
	}
}
