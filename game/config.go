package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/dice"
	"github.com/wfunc/gravesugoroku/physics"
)

const (
	MinPlayers = 2
	MaxPlayers = 4
)

var ErrInvalidConfig = errors.New("invalid game config")

// MovementConfig times the cell-by-cell walk of a piece.
type MovementConfig struct {
	CellDuration time.Duration
	Pause        time.Duration
}

type Config struct {
	GraveCount int
	GridSize   int
	BoardSize  float64
	BoardY     float64
	// SpawnHeight is added above the board and half the grave height when
	// graves are dropped in.
	SpawnHeight float64
	// PieceY is the height player pieces travel at.
	PieceY     float64
	GraveShape physics.BoxShape
	Tracker    dice.TrackerConfig
	Movement   MovementConfig
	Seed       int64
}

func DefaultConfig() Config {
	return Config{
		GraveCount:  4,
		GridSize:    9,
		BoardSize:   9,
		BoardY:      0,
		SpawnHeight: 4.5,
		PieceY:      0.5,
		GraveShape:  physics.BoxShape{HalfExtents: mgl64.Vec3{0.5, 0.08, 0.3}},
		Tracker:     dice.DefaultTrackerConfig(),
		Movement: MovementConfig{
			CellDuration: 150 * time.Millisecond,
			Pause:        50 * time.Millisecond,
		},
		Seed: 1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.GraveCount < 1:
		return fmt.Errorf("%w: grave count %d", ErrInvalidConfig, c.GraveCount)
	case c.GridSize < 2:
		return fmt.Errorf("%w: grid size %d", ErrInvalidConfig, c.GridSize)
	case c.BoardSize <= 0:
		return fmt.Errorf("%w: board size %f", ErrInvalidConfig, c.BoardSize)
	case c.Movement.CellDuration < 0 || c.Movement.Pause < 0:
		return fmt.Errorf("%w: negative movement timing", ErrInvalidConfig)
	case c.Tracker.StopTime < 0 || c.Tracker.VelocityThreshold <= 0:
		return fmt.Errorf("%w: settle thresholds", ErrInvalidConfig)
	}
	return nil
}
