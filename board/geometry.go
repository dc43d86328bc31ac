package board

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Geometry converts between grid cells and world coordinates. The board is a
// BoardSize square centred on the world origin at height Y.
type Geometry struct {
	GridSize  int
	BoardSize float64
	Y         float64
}

func NewGeometry(gridSize int, boardSize, y float64) Geometry {
	return Geometry{GridSize: gridSize, BoardSize: boardSize, Y: y}
}

// CellSize is the world pitch between neighbouring cells.
func (g Geometry) CellSize() float64 {
	return g.BoardSize / float64(g.GridSize)
}

// GridToWorld returns the world centre of a cell at board height.
func (g Geometry) GridToWorld(cell GridCell) mgl64.Vec3 {
	cs := g.CellSize()
	start := -g.BoardSize/2 + cs/2
	return mgl64.Vec3{start + float64(cell.X)*cs, g.Y, start + float64(cell.Z)*cs}
}

// WorldToGrid floors a world position onto the cell that contains it. The
// result may lie outside the board; check it with IsInsideBoard.
func (g Geometry) WorldToGrid(pos mgl64.Vec3) GridCell {
	cs := g.CellSize()
	start := -g.BoardSize / 2
	return GridCell{
		X: int(math.Floor((pos.X() - start) / cs)),
		Z: int(math.Floor((pos.Z() - start) / cs)),
	}
}

func (g Geometry) IsInsideBoard(x, z int) bool {
	return x >= 0 && x < g.GridSize && z >= 0 && z < g.GridSize
}

// ContainsWorld reports whether a world point lies over the board surface.
func (g Geometry) ContainsWorld(x, z float64) bool {
	half := g.BoardSize / 2
	return x >= -half && x <= half && z >= -half && z <= half
}
