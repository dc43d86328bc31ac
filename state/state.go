package state

import (
	"errors"
	"sync"
	"time"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	OnUpdate(dt time.Duration)
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现
//
// A permissive machine allows any change unless a registered condition
// rejects it. A strict machine only allows registered transitions.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	strict       bool
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// NewStrictStateMachine builds a machine that rejects every transition that
// was not added with AddTransition.
func NewStrictStateMachine(initialState State) *BaseStateMachine {
	machine := NewBaseStateMachine(initialState)
	machine.strict = true
	return machine
}

// ChangeState swaps the current state. OnExit and OnEnter run after the lock
// is released so they may query the machine.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	old := sm.currentState
	if !sm.allowed(old.GetID(), newState.GetID()) {
		sm.mutex.Unlock()
		return ErrTransitionNotAllowed
	}
	sm.currentState = newState
	sm.mutex.Unlock()

	old.OnExit()
	newState.OnEnter()
	return nil
}

func (sm *BaseStateMachine) allowed(fromID, toID string) bool {
	conditions, exists := sm.transitions[fromID]
	if !exists {
		return !sm.strict
	}
	condition, exists := conditions[toID]
	if !exists {
		return !sm.strict
	}
	return condition == nil || condition()
}

// CanChange reports whether a change to the state with id toID would be allowed.
func (sm *BaseStateMachine) CanChange(toID string) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.allowed(sm.currentState.GetID(), toID)
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// 状态基础结构
type Base struct {
	ID string
}

func (s *Base) GetID() string {
	return s.ID
}

func (s *Base) OnEnter() {
	// 默认实现
}

func (s *Base) OnExit() {
	// 默认实现
}

func (s *Base) OnUpdate(dt time.Duration) {
	// 默认实现
}
