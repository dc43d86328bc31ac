package game

import "github.com/wfunc/gravesugoroku/board"

type PlayerView struct {
	ID        int            `msgpack:"id" json:"id"`
	PathIndex int            `msgpack:"path_index" json:"path_index"`
	Cell      board.GridCell `msgpack:"cell" json:"cell"`
	Stage     string         `msgpack:"stage" json:"stage"`
	Color     string         `msgpack:"color" json:"color"`
	Position  [3]float64     `msgpack:"position" json:"position"`
}

type PieceView struct {
	ID          int        `msgpack:"id" json:"id"`
	Position    [3]float64 `msgpack:"position" json:"position"`
	Orientation [4]float64 `msgpack:"orientation" json:"orientation"`
	Settled     bool       `msgpack:"settled" json:"settled"`
	Fell        bool       `msgpack:"fell" json:"fell"`
}

type RoundView struct {
	Expected   int            `msgpack:"expected" json:"expected"`
	Settled    int            `msgpack:"settled" json:"settled"`
	TotalSteps int            `msgpack:"total_steps" json:"total_steps"`
	Counts     map[string]int `msgpack:"counts" json:"counts"`
}

// Snapshot is a copy of the table state safe to hand to other goroutines.
type Snapshot struct {
	Phase         Phase        `msgpack:"phase" json:"phase"`
	Turn          int          `msgpack:"turn" json:"turn"`
	CurrentPlayer int          `msgpack:"current_player" json:"current_player"`
	Moving        bool         `msgpack:"moving" json:"moving"`
	Players       []PlayerView `msgpack:"players" json:"players"`
	Pieces        []PieceView  `msgpack:"pieces" json:"pieces"`
	Round         *RoundView   `msgpack:"round,omitempty" json:"round,omitempty"`
	Winner        int          `msgpack:"winner" json:"winner"`
	WinnerText    string       `msgpack:"winner_text" json:"winner_text"`
}

func (r *Resolver) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:         r.Phase(),
		Turn:          r.turn,
		CurrentPlayer: r.current,
		Moving:        r.mover != nil,
		Winner:        r.session.WinnerIndex,
		WinnerText:    r.session.WinnerText(),
	}
	for _, p := range r.players {
		snap.Players = append(snap.Players, PlayerView{
			ID:        p.ID,
			PathIndex: p.PathIndex,
			Cell:      r.path.At(p.PathIndex),
			Stage:     p.Stage.String(),
			Color:     p.Color(),
			Position:  p.Position,
		})
	}
	for _, piece := range r.pool.Active() {
		q := piece.Orientation
		snap.Pieces = append(snap.Pieces, PieceView{
			ID:          piece.ID,
			Position:    piece.Position,
			Orientation: [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
			Settled:     piece.Settled,
			Fell:        piece.OutOfBounds,
		})
	}
	if r.round != nil {
		snap.Round = &RoundView{
			Expected:   r.round.PiecesExpected,
			Settled:    r.round.PiecesSettled,
			TotalSteps: r.round.TotalSteps,
			Counts:     r.round.CountsByTag(),
		}
	}
	return snap
}
