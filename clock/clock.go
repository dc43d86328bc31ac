// Package clock is a game clock: periodic phases kept in a time-ordered heap
// and run one after another on a single goroutine. Time only moves when
// Advance is called, either by Run from the wall clock or directly by tests.
package clock

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInvalidInterval = errors.New("clock interval must be positive")

// MaxCatchUp bounds how much game time one wall-clock tick may advance, so a
// stalled process does not replay a long backlog of steps.
const MaxCatchUp = 250 * time.Millisecond

type Task struct {
	ID       int64
	Next     time.Duration
	Interval time.Duration
	Callback func(dt time.Duration)
	index    int
	removed  bool
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

// Tasks due at the same instant run in registration order.
func (q taskQueue) Less(i, j int) bool {
	if q[i].Next == q[j].Next {
		return q[i].ID < q[j].ID
	}
	return q[i].Next < q[j].Next
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	task := x.(*Task)
	task.index = len(*q)
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	task.index = -1
	*q = old[0 : n-1]
	return task
}

type Clock struct {
	queue  taskQueue
	tasks  map[int64]*Task
	mutex  sync.Mutex
	now    time.Duration
	nextID int64
}

func New() *Clock {
	c := &Clock{nextID: 1, tasks: make(map[int64]*Task)}
	heap.Init(&c.queue)
	return c
}

// Every runs fn each interval of game time. fn receives the interval.
func (c *Clock) Every(interval time.Duration, fn func(dt time.Duration)) (int64, error) {
	if interval <= 0 {
		return 0, ErrInvalidInterval
	}
	return c.add(interval, interval, fn), nil
}

// After runs fn once, delay from now.
func (c *Clock) After(delay time.Duration, fn func(dt time.Duration)) int64 {
	return c.add(delay, 0, fn)
}

func (c *Clock) add(delay, interval time.Duration, fn func(time.Duration)) int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	task := &Task{
		ID:       c.nextID,
		Next:     c.now + delay,
		Interval: interval,
		Callback: fn,
	}
	c.nextID++
	c.tasks[task.ID] = task
	heap.Push(&c.queue, task)
	return task.ID
}

func (c *Clock) Remove(id int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	task, ok := c.tasks[id]
	if !ok {
		return
	}
	delete(c.tasks, id)
	task.removed = true
	// a task being run is off the heap
	if task.index >= 0 {
		heap.Remove(&c.queue, task.index)
	}
}

// Now is the game time elapsed since New.
func (c *Clock) Now() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

// Advance moves game time forward by d, running every task that falls due in
// order. Callbacks run without the lock held and may add or remove tasks.
func (c *Clock) Advance(d time.Duration) int {
	c.mutex.Lock()
	target := c.now + d
	ran := 0
	for c.queue.Len() > 0 && c.queue[0].Next <= target {
		task := heap.Pop(&c.queue).(*Task)
		c.now = task.Next
		c.mutex.Unlock()

		dt := task.Interval
		if dt == 0 {
			dt = d
		}
		task.Callback(dt)
		ran++

		c.mutex.Lock()
		switch {
		case task.removed:
		case task.Interval > 0:
			task.Next += task.Interval
			heap.Push(&c.queue, task)
		default:
			delete(c.tasks, task.ID)
		}
	}
	c.now = target
	c.mutex.Unlock()
	return ran
}

// Run advances the clock from the wall clock every resolution until ctx is
// done.
func (c *Clock) Run(ctx context.Context, resolution time.Duration) error {
	if resolution <= 0 {
		return ErrInvalidInterval
	}
	ticker := time.NewTicker(resolution)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if elapsed > MaxCatchUp {
				elapsed = MaxCatchUp
			}
			c.Advance(elapsed)
		}
	}
}
