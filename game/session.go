package game

import (
	"errors"
	"fmt"
)

const NoWinner = -1

var ErrInvalidPlayerCount = errors.New("player count must be between 2 and 4")

// SessionContext carries the table setup and the match result between the
// resolver and whoever displays the result.
type SessionContext struct {
	PlayerCount int
	WinnerIndex int
}

func NewSessionContext(playerCount int) (*SessionContext, error) {
	s := &SessionContext{}
	if err := s.SetPlayerCount(playerCount); err != nil {
		return nil, err
	}
	s.ResetResult()
	return s, nil
}

func (s *SessionContext) SetPlayerCount(n int) error {
	if n < MinPlayers || n > MaxPlayers {
		return fmt.Errorf("%w: %d", ErrInvalidPlayerCount, n)
	}
	s.PlayerCount = n
	return nil
}

// ResetResult clears the winner.
func (s *SessionContext) ResetResult() {
	s.WinnerIndex = NoWinner
}

// Reset restores the defaults: four players, no winner.
func (s *SessionContext) Reset() {
	s.PlayerCount = MaxPlayers
	s.ResetResult()
}

// SetWinner records the first winner; later calls are ignored.
func (s *SessionContext) SetWinner(player int) bool {
	if s.WinnerIndex != NoWinner {
		return false
	}
	s.WinnerIndex = player
	return true
}

func (s *SessionContext) HasWinner() bool {
	return s.WinnerIndex != NoWinner
}

// WinnerText is the line the result screen shows.
func (s *SessionContext) WinnerText() string {
	if !s.HasWinner() {
		return "Winner: ?"
	}
	return fmt.Sprintf("%dP wins!", s.WinnerIndex+1)
}
