// Package board describes the square sugoroku board: the closed ring of cells
// pieces travel along and the mapping between grid cells and world space.
package board

import (
	"errors"
	"fmt"
)

// ErrGridTooSmall is returned when a board has no ring to walk.
var ErrGridTooSmall = errors.New("grid size must be at least 2")

// GridCell is a board cell addressed by column X and row Z.
type GridCell struct {
	X int `msgpack:"x" json:"x"`
	Z int `msgpack:"z" json:"z"`
}

func (c GridCell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Z)
}

// PathLoop is the outer ring of a board, walked clockwise from (size-1, 0).
// It is immutable once built.
type PathLoop struct {
	size  int
	cells []GridCell
	index map[GridCell]int
}

// BuildOuterPath walks the four edges of a size×size grid: up the x=max column,
// left along z=max, down x=0 and right along z=0, stopping before the start
// cell comes round again.
func BuildOuterPath(size int) (*PathLoop, error) {
	if size < 2 {
		return nil, ErrGridTooSmall
	}
	max := size - 1
	cells := make([]GridCell, 0, 4*max)

	for z := 0; z <= max; z++ {
		cells = append(cells, GridCell{X: max, Z: z})
	}
	for x := max - 1; x >= 0; x-- {
		cells = append(cells, GridCell{X: x, Z: max})
	}
	for z := max - 1; z >= 0; z-- {
		cells = append(cells, GridCell{X: 0, Z: z})
	}
	for x := 1; x < max; x++ {
		cells = append(cells, GridCell{X: x, Z: 0})
	}

	index := make(map[GridCell]int, len(cells))
	for i, c := range cells {
		index[c] = i
	}
	return &PathLoop{size: size, cells: cells, index: index}, nil
}

// Len returns the number of cells in the loop, 4*(size-1).
func (p *PathLoop) Len() int { return len(p.cells) }

// Size returns the edge length of the grid the loop was built for.
func (p *PathLoop) Size() int { return p.size }

// Wrap maps any index, negative included, into [0, Len).
func (p *PathLoop) Wrap(i int) int {
	n := len(p.cells)
	return ((i % n) + n) % n
}

// At returns the cell at index i after wrapping.
func (p *PathLoop) At(i int) GridCell {
	return p.cells[p.Wrap(i)]
}

// IndexOf returns the loop index of cell, or false if the cell is not on the ring.
func (p *PathLoop) IndexOf(cell GridCell) (int, bool) {
	i, ok := p.index[cell]
	return i, ok
}

// Cells returns a copy of the loop.
func (p *PathLoop) Cells() []GridCell {
	out := make([]GridCell, len(p.cells))
	copy(out, p.cells)
	return out
}

// Direction returns the unit grid step taken when leaving index i forward.
func (p *PathLoop) Direction(i int) (dx, dz int) {
	from, to := p.At(i), p.At(i+1)
	return to.X - from.X, to.Z - from.Z
}

// IsCorner reports whether cell sits on two board edges at once.
func (p *PathLoop) IsCorner(cell GridCell) bool {
	max := p.size - 1
	return (cell.X == 0 || cell.X == max) && (cell.Z == 0 || cell.Z == max)
}

// CornerStarts returns the starting cells for n seats in seat order:
// (max,0), (max,max), (0,max), (0,0).
func (p *PathLoop) CornerStarts(n int) []GridCell {
	max := p.size - 1
	corners := []GridCell{
		{X: max, Z: 0},
		{X: max, Z: max},
		{X: 0, Z: max},
		{X: 0, Z: 0},
	}
	if n > len(corners) {
		n = len(corners)
	}
	if n < 0 {
		n = 0
	}
	return corners[:n]
}
