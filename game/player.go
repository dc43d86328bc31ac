package game

import "github.com/go-gl/mathgl/mgl64"

// EvolutionStage is a player's promotion level. It only ever goes up.
type EvolutionStage int

const (
	Stage0 EvolutionStage = iota
	Stage1
	Stage2
)

const FinalStage = Stage2

func (s EvolutionStage) String() string {
	switch s {
	case Stage0:
		return "white"
	case Stage1:
		return "gray"
	case Stage2:
		return "black"
	default:
		return "unknown"
	}
}

var seatColors = []string{"red", "blue", "yellow", "green"}

// Player is one seat at the table.
type Player struct {
	ID             int
	PathIndex      int
	StartPathIndex int
	Stage          EvolutionStage
	Position       mgl64.Vec3
	Facing         mgl64.Vec3
}

// AdvanceEvolution promotes the player one stage and reports whether anything
// changed. At the final stage it does nothing.
func (p *Player) AdvanceEvolution() bool {
	if p.Stage >= FinalStage {
		return false
	}
	p.Stage++
	return true
}

func (p *Player) AtStart() bool {
	return p.PathIndex == p.StartPathIndex
}

// Color is the seat's outline colour.
func (p *Player) Color() string {
	if p.ID < 0 || p.ID >= len(seatColors) {
		return ""
	}
	return seatColors[p.ID]
}
