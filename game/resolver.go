// Package game is the turn and round resolver of a grave sugoroku table:
// it throws graves into the physics engine, counts how they land, walks the
// current player's piece and applies the corner and win rules.
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/wfunc/gravesugoroku/board"
	"github.com/wfunc/gravesugoroku/dice"
	"github.com/wfunc/gravesugoroku/launch"
	"github.com/wfunc/gravesugoroku/logger"
	"github.com/wfunc/gravesugoroku/outcome"
	"github.com/wfunc/gravesugoroku/physics"
	"github.com/wfunc/gravesugoroku/state"
)

var (
	ErrWrongState          = errors.New("ignored in current state")
	ErrDuplicateSettlement = errors.New("piece already settled this round")
	ErrUnknownPiece        = errors.New("unknown piece")
	ErrGameOver            = errors.New("game is over")
)

// Resolver owns a table's game state. It is not safe for concurrent use;
// the room that hosts it calls it from one goroutine.
type Resolver struct {
	cfg     Config
	path    *board.PathLoop
	geo     board.Geometry
	engine  physics.Engine
	session *SessionContext
	rng     *rand.Rand
	log     *zap.SugaredLogger

	players []*Player
	current int
	turn    int

	pool    *dice.Pool
	queue   *dice.Queue
	tracker *dice.Tracker
	round   *RoundState
	mover   *Mover
	// stage of the moving player when the walk began
	stageBefore EvolutionStage

	machine                             *state.BaseStateMachine
	idle, awaiting, resolving, finished state.State

	events []Event
}

// NewResolver seats session.PlayerCount players on their corners and enters
// Idle for the first player.
func NewResolver(cfg Config, engine physics.Engine, session *SessionContext) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := session.SetPlayerCount(session.PlayerCount); err != nil {
		return nil, err
	}
	path, err := board.BuildOuterPath(cfg.GridSize)
	if err != nil {
		return nil, err
	}
	session.ResetResult()

	queue := dice.NewQueue(cfg.GraveCount)
	r := &Resolver{
		cfg:     cfg,
		path:    path,
		geo:     board.NewGeometry(cfg.GridSize, cfg.BoardSize, cfg.BoardY),
		engine:  engine,
		session: session,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		log:     logger.Log,
		pool:    dice.NewPool(cfg.GraveCount),
		queue:   queue,
		tracker: dice.NewTracker(cfg.Tracker, engine, queue),
	}
	r.seatPlayers()
	r.buildMachine()
	return r, nil
}

func (r *Resolver) seatPlayers() {
	starts := r.path.CornerStarts(r.session.PlayerCount)
	r.players = make([]*Player, len(starts))
	for i, cell := range starts {
		idx, _ := r.path.IndexOf(cell)
		r.players[i] = &Player{
			ID:             i,
			PathIndex:      idx,
			StartPathIndex: idx,
			Stage:          Stage0,
			Position:       cellPosition(r.geo, r.path, idx, r.cfg.PieceY),
			Facing:         facing(r.path, idx),
		}
	}
}

// SetLogger replaces the logger, typically with one tagged by table id.
func (r *Resolver) SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		r.log = l
	}
}

func (r *Resolver) Phase() Phase {
	return Phase(r.machine.GetCurrentState().GetID())
}

func (r *Resolver) CurrentPlayer() *Player { return r.players[r.current] }

func (r *Resolver) Players() []*Player { return r.players }

func (r *Resolver) Turn() int { return r.turn }

func (r *Resolver) Path() *board.PathLoop { return r.path }

func (r *Resolver) Geometry() board.Geometry { return r.geo }

func (r *Resolver) Session() *SessionContext { return r.session }

// Round is the round in flight, nil outside Resolving.
func (r *Resolver) Round() *RoundState { return r.round }

// Moving reports whether a piece walk is in progress.
func (r *Resolver) Moving() bool { return r.mover != nil }

// OnPlayPressed arms the launch input for the current player.
func (r *Resolver) OnPlayPressed() error {
	if err := r.machine.ChangeState(r.awaiting); err != nil {
		return r.rejected("play", err)
	}
	return nil
}

// OnLaunchReceived throws the round's graves. An invalid command is rejected
// and leaves the resolver waiting for another launch.
func (r *Resolver) OnLaunchReceived(cmd launch.Command) error {
	if !r.machine.CanChange(r.resolving.GetID()) {
		return r.rejected("launch", state.ErrTransitionNotAllowed)
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := r.machine.ChangeState(r.resolving); err != nil {
		return r.rejected("launch", err)
	}
	return r.spawnRound(cmd)
}

func (r *Resolver) spawnRound(cmd launch.Command) error {
	r.mover = nil
	r.clearPieces()
	r.round = NewRoundState(r.cfg.GraveCount)

	params := ComputeLaunch(cmd)
	shape := r.cfg.GraveShape
	height := r.cfg.BoardY + shape.HalfExtents.Y() + r.cfg.SpawnHeight

	for i := 0; i < r.cfg.GraveCount; i++ {
		pos := spawnPosition(r.rng, cmd.Origin, params.Spread, height)
		body := r.engine.Spawn(shape, pos, randomRotation(r.rng))
		if _, err := r.pool.Acquire(body); err != nil {
			r.engine.Remove(body)
			return err
		}
		r.engine.ApplyImpulse(body, throwImpulse(r.rng, params))
		r.engine.ApplyTorque(body, throwTorque(r.rng))
	}

	r.emit(EventRoundLaunched, RoundLaunched{
		Pieces:     r.cfg.GraveCount,
		FinalPower: params.FinalPower,
		Spread:     params.Spread,
	})
	r.log.Infof("Player %d launched %d graves power=%.2f spread=%.2f",
		r.current+1, r.cfg.GraveCount, params.FinalPower, params.Spread)
	return nil
}

// FixedUpdate runs after each physics step: it samples every piece in flight
// and consumes the settlements they produced.
func (r *Resolver) FixedUpdate(dt time.Duration) {
	if r.round == nil {
		return
	}
	for _, p := range r.pool.Active() {
		r.tracker.Step(p, dt)
	}
	r.queue.Drain(func(s dice.Settled) {
		if err := r.OnPieceSettled(s); err != nil {
			r.log.Warnf("settlement of piece %d: %v", s.PieceID, err)
		}
	})
}

// OnPieceSettled counts one piece. Each piece is counted once per round.
func (r *Resolver) OnPieceSettled(s dice.Settled) error {
	if r.Phase() != PhaseResolving || r.round == nil || r.round.Complete() {
		return r.rejected("settlement", state.ErrTransitionNotAllowed)
	}
	piece, ok := r.pool.Get(s.PieceID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPiece, s.PieceID)
	}
	if piece.HasSettled || r.round.Has(s.PieceID) {
		return fmt.Errorf("%w: %d", ErrDuplicateSettlement, s.PieceID)
	}
	piece.HasSettled = true
	piece.Settled = true
	piece.OutOfBounds = s.Fell

	ev := PieceSettled{PieceID: s.PieceID, Fell: s.Fell}
	var o outcome.Outcome
	if !s.Fell {
		o = outcome.Classify(s.Orientation)
		ev.Outcome = o.String()
		ev.Steps = o.Steps()
	}
	r.round.Record(s.PieceID, s.Fell, o)
	r.emit(EventPieceSettled, ev)

	if r.round.Complete() {
		r.completeRound()
	}
	return nil
}

func (r *Resolver) completeRound() {
	round := r.round
	result := RoundCompleted{
		TotalSteps: round.TotalSteps,
		Counts:     round.CountsByTag(),
		Fallen:     round.FallenCount,
	}
	switch {
	case round.AnyFellOff:
		result.Reason = ReasonFell
	case r.piecesOverlap():
		result.Reason = ReasonOverlap
	}
	r.emit(EventRoundCompleted, result)

	if !result.Valid() {
		r.log.Infof("Player %d round invalid (%s), turn passes", r.current+1, result.Reason)
		r.passTurn()
		return
	}

	p := r.CurrentPlayer()
	r.log.Infof("Player %d moves %d", r.current+1, round.TotalSteps)
	r.stageBefore = p.Stage
	r.mover = NewMover(p, round.TotalSteps, r.path, r.geo, r.cfg.PieceY, r.cfg.Movement)
}

func (r *Resolver) piecesOverlap() bool {
	active := r.pool.Active()
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if r.engine.TestOverlap(active[i].Body, active[j].Body) {
				return true
			}
		}
	}
	return false
}

// Update advances frame-rate work, currently the piece walk.
func (r *Resolver) Update(dt time.Duration) {
	r.machine.GetCurrentState().OnUpdate(dt)
}

func (r *Resolver) advanceMovement(dt time.Duration) {
	if r.mover == nil {
		return
	}
	for _, idx := range r.mover.Advance(dt) {
		r.emit(EventPlayerStepped, PlayerMoved{PathIndex: idx, Cell: r.path.At(idx)})
	}
	if r.mover.Done() {
		r.mover = nil
		r.finishMovement()
	}
}

func (r *Resolver) finishMovement() {
	p := r.CurrentPlayer()
	cell := r.path.At(p.PathIndex)
	r.emit(EventMovementFinished, PlayerMoved{PathIndex: p.PathIndex, Cell: cell})

	if r.path.IsCorner(cell) && p.AdvanceEvolution() {
		p.Facing = facing(r.path, p.PathIndex)
		r.emit(EventEvolved, Evolved{Stage: p.Stage.String()})
		r.log.Infof("Player %d evolved to %s at %s", p.ID+1, p.Stage, cell)
	}

	if p.AtStart() && p.Stage == FinalStage && r.stageBefore == FinalStage {
		r.session.SetWinner(p.ID)
		r.emit(EventGameWon, GameWon{PlayerCount: len(r.players), WinnerText: r.session.WinnerText()})
		r.log.Infof("Player %d wins", p.ID+1)
		if err := r.machine.ChangeState(r.finished); err != nil {
			r.log.Errorf("finish game: %v", err)
		}
		return
	}
	r.passTurn()
}

// NextTurn hands the turn to the next seat once the current round is over.
func (r *Resolver) NextTurn() error {
	if r.Phase() == PhaseFinished {
		return ErrGameOver
	}
	if r.Phase() != PhaseResolving || r.mover != nil || (r.round != nil && !r.round.Complete()) {
		return r.rejected("next turn", state.ErrTransitionNotAllowed)
	}
	r.passTurn()
	return nil
}

func (r *Resolver) passTurn() {
	r.current = (r.current + 1) % len(r.players)
	r.turn++
	if err := r.machine.ChangeState(r.idle); err != nil {
		r.log.Errorf("next turn: %v", err)
	}
}

func (r *Resolver) clearRound() {
	r.mover = nil
	r.round = nil
	r.clearPieces()
}

func (r *Resolver) clearPieces() {
	r.pool.Release(func(p *dice.Piece) {
		r.engine.Remove(p.Body)
	})
	r.queue.Reset()
}

func (r *Resolver) emit(kind EventKind, payload any) {
	r.events = append(r.events, Event{
		Kind:    kind,
		Turn:    r.turn,
		Player:  r.current,
		Payload: payload,
	})
}

// DrainEvents returns the events since the last call.
func (r *Resolver) DrainEvents() []Event {
	out := r.events
	r.events = nil
	return out
}

func (r *Resolver) rejected(action string, cause error) error {
	if r.Phase() == PhaseFinished {
		return fmt.Errorf("%s: %w", action, ErrGameOver)
	}
	return fmt.Errorf("%s while %s: %w (%w)", action, r.Phase(), ErrWrongState, cause)
}

// Pieces returns the graves of the current round.
func (r *Resolver) Pieces() []*dice.Piece {
	return r.pool.Active()
}
