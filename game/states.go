package game

import (
	"time"

	"github.com/wfunc/gravesugoroku/state"
)

// Phase is the resolver's externally visible state.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseAwaitingLaunch Phase = "awaiting_launch"
	PhaseResolving      Phase = "resolving"
	PhaseFinished       Phase = "finished"
)

// 等待开始: the current player has not pressed play yet.
type idleState struct {
	state.Base
	r *Resolver
}

func (s *idleState) OnEnter() {
	s.r.clearRound()
	s.r.emit(EventTurnStarted, nil)
	s.r.log.Infof("Player %d's turn", s.r.current+1)
}

// 等待投掷
type awaitingLaunchState struct {
	state.Base
	r *Resolver
}

func (s *awaitingLaunchState) OnEnter() {
	s.r.log.Debugf("Player %d may launch", s.r.current+1)
}

// 结算中: graves in flight, then the piece walk.
type resolvingState struct {
	state.Base
	r *Resolver
}

func (s *resolvingState) OnUpdate(dt time.Duration) {
	s.r.advanceMovement(dt)
}

type finishedState struct {
	state.Base
	r *Resolver
}

func (s *finishedState) OnEnter() {
	s.r.log.Infof("Game over: %s", s.r.session.WinnerText())
}

func (r *Resolver) buildMachine() {
	idle := &idleState{Base: state.Base{ID: string(PhaseIdle)}, r: r}
	awaiting := &awaitingLaunchState{Base: state.Base{ID: string(PhaseAwaitingLaunch)}, r: r}
	resolving := &resolvingState{Base: state.Base{ID: string(PhaseResolving)}, r: r}
	finished := &finishedState{Base: state.Base{ID: string(PhaseFinished)}, r: r}

	r.idle, r.awaiting, r.resolving, r.finished = idle, awaiting, resolving, finished

	r.machine = state.NewStrictStateMachine(idle)
	r.machine.AddTransition(idle, awaiting, nil)
	r.machine.AddTransition(awaiting, resolving, nil)
	r.machine.AddTransition(resolving, idle, nil)
	r.machine.AddTransition(resolving, finished, r.session.HasWinner)
}
