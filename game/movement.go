package game

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/board"
)

type MoverPhase int

const (
	MoverStepping MoverPhase = iota
	MoverInterpolating
	MoverPausing
	MoverDone
)

func (p MoverPhase) String() string {
	switch p {
	case MoverStepping:
		return "stepping"
	case MoverInterpolating:
		return "interpolating"
	case MoverPausing:
		return "pausing"
	case MoverDone:
		return "done"
	default:
		return "unknown"
	}
}

// Mover walks a player piece along the path one cell at a time: the path
// index advances, the piece lerps to the new cell, then pauses. It is driven
// by Advance and owns no goroutine; dropping it cancels the walk.
type Mover struct {
	player *Player
	path   *board.PathLoop
	geo    board.Geometry
	pieceY float64
	cfg    MovementConfig

	remaining int
	dir       int

	phase     MoverPhase
	elapsed   time.Duration
	pauseLeft time.Duration
	from, to  mgl64.Vec3
}

// NewMover prepares a walk of steps cells. Negative steps walk backwards.
func NewMover(player *Player, steps int, path *board.PathLoop, geo board.Geometry, pieceY float64, cfg MovementConfig) *Mover {
	dir := 1
	if steps < 0 {
		dir = -1
		steps = -steps
	}
	return &Mover{
		player:    player,
		path:      path,
		geo:       geo,
		pieceY:    pieceY,
		cfg:       cfg,
		remaining: steps,
		dir:       dir,
		phase:     MoverStepping,
	}
}

func (m *Mover) Phase() MoverPhase { return m.phase }

func (m *Mover) Done() bool { return m.phase == MoverDone }

func (m *Mover) Remaining() int { return m.remaining }

// Advance moves the walk forward by dt and returns the path indices entered
// during the call, in order.
func (m *Mover) Advance(dt time.Duration) []int {
	var entered []int
	for m.phase != MoverDone && (dt > 0 || m.phase == MoverStepping) {
		switch m.phase {
		case MoverStepping:
			if m.remaining == 0 {
				m.phase = MoverDone
				break
			}
			m.remaining--
			m.player.PathIndex = m.path.Wrap(m.player.PathIndex + m.dir)
			entered = append(entered, m.player.PathIndex)
			m.from = m.player.Position
			m.to = cellPosition(m.geo, m.path, m.player.PathIndex, m.pieceY)
			m.elapsed = 0
			m.phase = MoverInterpolating

		case MoverInterpolating:
			need := m.cfg.CellDuration - m.elapsed
			if dt >= need {
				dt -= need
				m.player.Position = m.to
				m.pauseLeft = m.cfg.Pause
				m.phase = MoverPausing
				continue
			}
			m.elapsed += dt
			dt = 0
			t := float64(m.elapsed) / float64(m.cfg.CellDuration)
			m.player.Position = m.from.Add(m.to.Sub(m.from).Mul(t))

		case MoverPausing:
			if dt >= m.pauseLeft {
				dt -= m.pauseLeft
				m.pauseLeft = 0
				m.phase = MoverStepping
				continue
			}
			m.pauseLeft -= dt
			dt = 0
		}
	}
	return entered
}

func cellPosition(geo board.Geometry, path *board.PathLoop, index int, pieceY float64) mgl64.Vec3 {
	p := geo.GridToWorld(path.At(index))
	return mgl64.Vec3{p.X(), geo.Y + pieceY, p.Z()}
}

// facing is the world direction of travel when leaving index.
func facing(path *board.PathLoop, index int) mgl64.Vec3 {
	dx, dz := path.Direction(index)
	return mgl64.Vec3{float64(dx), 0, float64(dz)}
}
