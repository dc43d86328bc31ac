package game

import "github.com/wfunc/gravesugoroku/board"

type EventKind string

const (
	EventTurnStarted      EventKind = "turn_started"
	EventRoundLaunched    EventKind = "round_launched"
	EventPieceSettled     EventKind = "piece_settled"
	EventRoundCompleted   EventKind = "round_completed"
	EventPlayerStepped    EventKind = "player_stepped"
	EventMovementFinished EventKind = "movement_finished"
	EventEvolved          EventKind = "evolved"
	EventGameWon          EventKind = "game_won"
)

// Event is something observers of a table may want to know about.
type Event struct {
	Kind    EventKind `msgpack:"kind" json:"kind"`
	Turn    int       `msgpack:"turn" json:"turn"`
	Player  int       `msgpack:"player" json:"player"`
	Payload any       `msgpack:"payload,omitempty" json:"payload,omitempty"`
}

type RoundLaunched struct {
	Pieces     int     `msgpack:"pieces" json:"pieces"`
	FinalPower float64 `msgpack:"final_power" json:"final_power"`
	Spread     float64 `msgpack:"spread" json:"spread"`
}

type PieceSettled struct {
	PieceID int    `msgpack:"piece_id" json:"piece_id"`
	Fell    bool   `msgpack:"fell" json:"fell"`
	Outcome string `msgpack:"outcome,omitempty" json:"outcome,omitempty"`
	Steps   int    `msgpack:"steps" json:"steps"`
}

// Invalidation reasons carried by RoundCompleted.
const (
	ReasonFell    = "fell"
	ReasonOverlap = "overlap"
)

type RoundCompleted struct {
	TotalSteps int            `msgpack:"total_steps" json:"total_steps"`
	Counts     map[string]int `msgpack:"counts" json:"counts"`
	Fallen     int            `msgpack:"fallen" json:"fallen"`
	// Reason is empty when the round moves the player.
	Reason string `msgpack:"reason,omitempty" json:"reason,omitempty"`
}

func (r RoundCompleted) Valid() bool { return r.Reason == "" }

type PlayerMoved struct {
	PathIndex int            `msgpack:"path_index" json:"path_index"`
	Cell      board.GridCell `msgpack:"cell" json:"cell"`
}

type Evolved struct {
	Stage string `msgpack:"stage" json:"stage"`
}

type GameWon struct {
	PlayerCount int    `msgpack:"player_count" json:"player_count"`
	WinnerText  string `msgpack:"winner_text" json:"winner_text"`
}
