package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/gravesugoroku/game"
	"github.com/wfunc/gravesugoroku/logger"
	"github.com/wfunc/gravesugoroku/models"
	"github.com/wfunc/gravesugoroku/persistence"
)

var ErrArchiveClosed = errors.New("archive closed")

const writeTimeout = 5 * time.Second

// Archive turns table events into round and match records and writes them
// from its own goroutine, so tables never wait on the database.
type Archive struct {
	db      persistence.Database
	records chan interface{}
	started map[string]time.Time // tableID -> first event

	mutex   sync.Mutex
	closed  bool
	dropped int
	wg      sync.WaitGroup
}

func NewArchive(db persistence.Database, buffer int) *Archive {
	a := &Archive{
		db:      db,
		records: make(chan interface{}, buffer),
		started: make(map[string]time.Time),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// OnTableEvent records completed rounds and finished matches.
func (a *Archive) OnTableEvent(tableID string, ev game.Event) {
	now := time.Now()

	a.mutex.Lock()
	if _, ok := a.started[tableID]; !ok {
		a.started[tableID] = now
	}
	startedAt := a.started[tableID]
	a.mutex.Unlock()

	switch p := ev.Payload.(type) {
	case game.RoundCompleted:
		a.enqueue(models.RoundRecord{
			TableID:    tableID,
			Turn:       ev.Turn,
			Player:     ev.Player,
			TotalSteps: p.TotalSteps,
			Counts:     p.Counts,
			Fallen:     p.Fallen,
			Reason:     p.Reason,
			CreatedAt:  now,
		})
	case game.GameWon:
		a.enqueue(models.MatchRecord{
			TableID:     tableID,
			PlayerCount: p.PlayerCount,
			Winner:      ev.Player,
			Turns:       ev.Turn + 1,
			StartedAt:   startedAt,
			FinishedAt:  now,
		})
		a.Forget(tableID)
	}
}

// Forget drops bookkeeping for a table that went away without a winner.
func (a *Archive) Forget(tableID string) {
	a.mutex.Lock()
	delete(a.started, tableID)
	a.mutex.Unlock()
}

func (a *Archive) enqueue(rec interface{}) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.closed {
		return
	}
	select {
	case a.records <- rec:
	default:
		a.dropped++
		logger.Log.Warnf("archive queue full, dropped %T", rec)
	}
}

func (a *Archive) run() {
	defer a.wg.Done()
	for rec := range a.records {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		switch r := rec.(type) {
		case models.RoundRecord:
			err = a.db.SaveRound(ctx, r)
		case models.MatchRecord:
			err = a.db.SaveMatch(ctx, r)
		}
		cancel()
		if err != nil {
			logger.Log.Errorf("archive write %T: %v", rec, err)
		}
	}
}

// ListMatches returns recent finished matches, newest first.
func (a *Archive) ListMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	return a.db.ListMatches(ctx, limit)
}

// Dropped counts records lost to a full queue.
func (a *Archive) Dropped() int {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.dropped
}

// Close flushes queued records and stops the worker. The database is left
// open.
func (a *Archive) Close() error {
	a.mutex.Lock()
	if a.closed {
		a.mutex.Unlock()
		return ErrArchiveClosed
	}
	a.closed = true
	close(a.records)
	a.mutex.Unlock()

	a.wg.Wait()
	return nil
}
