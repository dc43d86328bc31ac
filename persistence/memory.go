package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/gravesugoroku/models"
)

// Memory keeps records in process. It backs the "none" driver, so a table
// server runs without a database and forgets everything on exit.
type Memory struct {
	mutex   sync.RWMutex
	rounds  []models.RoundRecord
	matches []models.MatchRecord
	limit   int
}

// NewMemory keeps at most limit records of each kind, dropping the oldest.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

func (m *Memory) SaveRound(ctx context.Context, rec models.RoundRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rounds = append(m.rounds, rec)
	if m.limit > 0 && len(m.rounds) > m.limit {
		m.rounds = m.rounds[len(m.rounds)-m.limit:]
	}
	return nil
}

func (m *Memory) SaveMatch(ctx context.Context, rec models.MatchRecord) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.matches = append(m.matches, rec)
	if m.limit > 0 && len(m.matches) > m.limit {
		m.matches = m.matches[len(m.matches)-m.limit:]
	}
	return nil
}

func (m *Memory) ListMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	limit = clampLimit(limit)
	out := make([]models.MatchRecord, 0, limit)
	for i := len(m.matches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.matches[i])
	}
	return out, nil
}

// Rounds returns a copy of the stored rounds, oldest first.
func (m *Memory) Rounds() []models.RoundRecord {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]models.RoundRecord, len(m.rounds))
	copy(out, m.rounds)
	return out
}

func (m *Memory) Close() error { return nil }
