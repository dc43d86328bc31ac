package game

import "github.com/wfunc/gravesugoroku/outcome"

// RoundState aggregates one round's settlements. A piece counts once.
type RoundState struct {
	PiecesExpected int
	PiecesSettled  int
	AnyFellOff     bool
	FallenCount    int
	TotalSteps     int
	Counts         map[outcome.Outcome]int

	settled map[int]bool
}

func NewRoundState(expected int) *RoundState {
	return &RoundState{
		PiecesExpected: expected,
		Counts:         make(map[outcome.Outcome]int),
		settled:        make(map[int]bool, expected),
	}
}

// Record adds a piece's result and reports false if the piece was already
// counted. Fallen pieces add no steps.
func (r *RoundState) Record(pieceID int, fell bool, o outcome.Outcome) bool {
	if r.settled[pieceID] {
		return false
	}
	r.settled[pieceID] = true

	if fell {
		r.AnyFellOff = true
		r.FallenCount++
	} else {
		r.TotalSteps += o.Steps()
		r.Counts[o]++
	}
	r.PiecesSettled++
	return true
}

func (r *RoundState) Has(pieceID int) bool {
	return r.settled[pieceID]
}

func (r *RoundState) Complete() bool {
	return r.PiecesSettled >= r.PiecesExpected
}

// CountsByTag keys the outcome counts by material tag for reporting.
func (r *RoundState) CountsByTag() map[string]int {
	out := make(map[string]int, len(outcome.All))
	for _, o := range outcome.All {
		out[o.Tag()] = r.Counts[o]
	}
	return out
}
