package room

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wfunc/gravesugoroku/clock"
	"github.com/wfunc/gravesugoroku/game"
	"github.com/wfunc/gravesugoroku/launch"
	"github.com/wfunc/gravesugoroku/logger"
	"github.com/wfunc/gravesugoroku/network"
	"github.com/wfunc/gravesugoroku/physics"
	"github.com/wfunc/gravesugoroku/physics/sim"
	"github.com/wfunc/gravesugoroku/session"
)

var (
	ErrInboxFull  = errors.New("room inbox full")
	ErrRoomClosed = errors.New("room closed")
	ErrShortDrag  = errors.New("drag too short to launch")
)

const inboxSize = 64

// RoomStatus 表示房间的业务状态
type RoomStatus int

const (
	StatusWaiting RoomStatus = iota
	StatusPlaying
	StatusFinished
	StatusClosed
)

func (s RoomStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusPlaying:
		return "playing"
	case StatusFinished:
		return "finished"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a table.
type Options struct {
	Game        game.Config
	PlayerCount int
	FixedStep   time.Duration
	FrameStep   time.Duration
	Gravity     float64
	// Engine defaults to a sim world sized to the board.
	Engine physics.Engine
}

func DefaultOptions() Options {
	return Options{
		Game:        game.DefaultConfig(),
		PlayerCount: game.MaxPlayers,
		FixedStep:   20 * time.Millisecond,
		FrameStep:   16 * time.Millisecond,
		Gravity:     -20,
	}
}

type CommandKind int

const (
	CommandPlay CommandKind = iota
	CommandLaunch
	CommandGesture
)

// Command is UI input queued for the table goroutine.
type Command struct {
	Kind      CommandKind
	SessionID string
	MsgID     uint16
	Launch    launch.Command
	Gesture   launch.Gesture
}

// Room hosts one table: the resolver, its physics engine and the clock that
// drives both. All game state is touched only from clock callbacks.
type Room struct {
	ID         string
	Name       string
	MaxPlayers int
	Players    map[string]*session.Session // sessionID -> session
	CreatedAt  time.Time

	opts        Options
	resolver    *game.Resolver
	engine      physics.Engine
	clock       *clock.Clock
	inbox       chan Command
	broadcaster Broadcaster
	sinks       []EventSink
	observers   []TickObserver
	log         *zap.SugaredLogger

	status      RoomStatus
	statusMutex sync.RWMutex
	playerMutex sync.RWMutex

	snapshot  game.Snapshot
	snapMutex sync.RWMutex

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewRoom 创建一个新房间. The room does not run until Start; Advance drives
// it by hand.
func NewRoom(id, name string, opts Options, broadcaster Broadcaster, sinks ...EventSink) (*Room, error) {
	gameSession, err := game.NewSessionContext(opts.PlayerCount)
	if err != nil {
		return nil, err
	}
	engine := opts.Engine
	if engine == nil {
		cfg := sim.DefaultConfig(opts.Game.BoardSize)
		cfg.BoardY = opts.Game.BoardY
		if opts.Gravity != 0 {
			cfg.Gravity = opts.Gravity
		}
		engine = sim.New(cfg)
	}
	resolver, err := game.NewResolver(opts.Game, engine, gameSession)
	if err != nil {
		return nil, err
	}

	room := &Room{
		ID:          id,
		Name:        name,
		MaxPlayers:  1,
		Players:     make(map[string]*session.Session),
		CreatedAt:   time.Now(),
		opts:        opts,
		resolver:    resolver,
		engine:      engine,
		clock:       clock.New(),
		inbox:       make(chan Command, inboxSize),
		broadcaster: broadcaster,
		sinks:       sinks,
		log:         logger.Log.With("table", id),
		status:      StatusWaiting,
	}
	resolver.SetLogger(room.log)
	for _, s := range sinks {
		if o, ok := s.(TickObserver); ok {
			room.observers = append(room.observers, o)
		}
	}

	// physics first so a frame sees settlements from the same instant
	if _, err := room.clock.Every(opts.FixedStep, room.physicsStep); err != nil {
		return nil, err
	}
	if _, err := room.clock.Every(opts.FrameStep, room.frameStep); err != nil {
		return nil, err
	}
	room.refreshSnapshot()
	return room, nil
}

// Start runs the room from the wall clock until Close.
func (r *Room) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	resolution := r.opts.FixedStep
	if r.opts.FrameStep < resolution {
		resolution = r.opts.FrameStep
	}
	go func() {
		defer close(r.done)
		r.clock.Run(ctx, resolution)
	}()
}

// Advance drives the room by d of game time without a wall clock. It must
// not be mixed with Start.
func (r *Room) Advance(d time.Duration) {
	r.clock.Advance(d)
}

// Close 关闭房间，停止主循环
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		r.SetStatus(StatusClosed)
		if r.cancel != nil {
			r.cancel()
			<-r.done
		}
	})
}

// Submit queues a UI command for the next frame.
func (r *Room) Submit(cmd Command) error {
	if r.GetStatus() == StatusClosed {
		return ErrRoomClosed
	}
	select {
	case r.inbox <- cmd:
		return nil
	default:
		return ErrInboxFull
	}
}

// Snapshot returns the table state as of the last frame.
func (r *Room) Snapshot() game.Snapshot {
	r.snapMutex.RLock()
	defer r.snapMutex.RUnlock()
	return r.snapshot
}

func (r *Room) physicsStep(dt time.Duration) {
	start := time.Now()
	r.engine.Step(dt)
	r.resolver.FixedUpdate(dt)
	r.observe("physics", time.Since(start))
}

func (r *Room) frameStep(dt time.Duration) {
	start := time.Now()
	for drained := false; !drained; {
		select {
		case cmd := <-r.inbox:
			r.apply(cmd)
		default:
			drained = true
		}
	}
	r.resolver.Update(dt)
	events := r.resolver.DrainEvents()
	r.publish(events)
	r.refreshSnapshot()
	if len(events) > 0 || r.resolver.Phase() == game.PhaseResolving {
		r.broadcastPayload(network.MsgTypeTableState, r.Snapshot())
	}
	r.observe("frame", time.Since(start))
}

func (r *Room) apply(cmd Command) {
	var err error
	switch cmd.Kind {
	case CommandPlay:
		err = r.resolver.OnPlayPressed()
	case CommandLaunch:
		err = r.resolver.OnLaunchReceived(cmd.Launch)
	case CommandGesture:
		c, ok := launch.FromGesture(cmd.Gesture)
		if !ok {
			err = ErrShortDrag
			break
		}
		err = r.resolver.OnLaunchReceived(c)
	}
	if err == nil {
		return
	}
	r.log.Debugw("command rejected", "kind", cmd.Kind, "error", err)
	if s, ok := r.GetPlayer(cmd.SessionID); ok {
		if sendErr := s.SendPayload(network.MsgTypeError, network.ErrorReply{MsgID: cmd.MsgID, Message: err.Error()}); sendErr != nil {
			r.log.Warnf("send error reply: %v", sendErr)
		}
	}
}

func (r *Room) publish(events []game.Event) {
	for _, ev := range events {
		for _, sink := range r.sinks {
			sink.OnTableEvent(r.ID, ev)
		}
		r.broadcastPayload(network.MsgTypeTableEvent, ev)

		if ev.Kind == game.EventGameWon {
			r.SetStatus(StatusFinished)
			snap := r.resolver.Snapshot()
			r.broadcastPayload(network.MsgTypeGameEnd, network.GameEnd{
				TableID:    r.ID,
				Winner:     snap.Winner,
				WinnerText: snap.WinnerText,
			})
		}
	}
}

func (r *Room) refreshSnapshot() {
	snap := r.resolver.Snapshot()
	r.snapMutex.Lock()
	r.snapshot = snap
	r.snapMutex.Unlock()
}

func (r *Room) observe(phase string, d time.Duration) {
	for _, o := range r.observers {
		o.ObserveTick(phase, d)
	}
}

func (r *Room) broadcastPayload(msgID uint16, v interface{}) {
	if r.broadcaster == nil {
		return
	}
	data, err := network.Encode(v)
	if err != nil {
		r.log.Errorf("encode message %d: %v", msgID, err)
		return
	}
	if err := r.broadcaster.BroadcastToRoom(r.ID, msgID, data); err != nil {
		r.log.Debugf("broadcast message %d: %v", msgID, err)
	}
}

// Broadcast sends a message to all players in the room.
func (r *Room) Broadcast(msgID uint16, data []byte) error {
	if r.broadcaster == nil {
		return nil
	}
	return r.broadcaster.BroadcastToRoom(r.ID, msgID, data)
}

// --- 房间核心逻辑 ---

// AddPlayer attaches a UI session. A table takes one UI at a time.
func (r *Room) AddPlayer(s *session.Session) bool {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if len(r.Players) >= r.MaxPlayers {
		return false
	}

	r.Players[s.ID] = s
	s.SetRoom(r.ID)
	if r.GetStatus() == StatusWaiting {
		r.SetStatus(StatusPlaying)
	}
	return true
}

// RemovePlayer 从房间移除一个玩家
func (r *Room) RemovePlayer(sessionID string) {
	r.playerMutex.Lock()
	defer r.playerMutex.Unlock()

	if player, exists := r.Players[sessionID]; exists {
		player.SetRoom("")
		delete(r.Players, sessionID)
	}
	if len(r.Players) == 0 && r.GetStatus() == StatusPlaying {
		r.SetStatus(StatusWaiting)
	}
}

// GetPlayer 获取单个玩家
func (r *Room) GetPlayer(sessionID string) (*session.Session, bool) {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	player, exists := r.Players[sessionID]
	return player, exists
}

// GetSessions returns a slice of all sessions in the room (thread-safe).
func (r *Room) GetSessions() []*session.Session {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()

	sessions := make([]*session.Session, 0, len(r.Players))
	for _, s := range r.Players {
		sessions = append(sessions, s)
	}
	return sessions
}

func (r *Room) PlayerCount() int {
	r.playerMutex.RLock()
	defer r.playerMutex.RUnlock()
	return len(r.Players)
}

// SetStatus 设置房间的业务状态
func (r *Room) SetStatus(status RoomStatus) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	if r.status == StatusClosed {
		return
	}
	r.status = status
}

// GetStatus 获取房间的业务状态
func (r *Room) GetStatus() RoomStatus {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.status
}

// --- 房间管理器 ---

// Manager 管理所有房间
type Manager struct {
	rooms map[string]*Room
	mutex sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager() *Manager {
	return &Manager{
		rooms: make(map[string]*Room),
	}
}

// CreateRoom builds a room and registers it. An empty id gets a fresh uuid.
func (m *Manager) CreateRoom(id, name string, opts Options, broadcaster Broadcaster, sinks ...EventSink) (*Room, error) {
	if id == "" {
		id = uuid.NewString()
	}
	room, err := NewRoom(id, name, opts, broadcaster, sinks...)
	if err != nil {
		return nil, err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rooms[id] = room
	return room, nil
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id string) {
	m.mutex.Lock()
	room, exists := m.rooms[id]
	delete(m.rooms, id)
	m.mutex.Unlock()

	if exists {
		room.Close()
	}
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// FindAvailableRoom returns a table nobody is driving, if any.
func (m *Manager) FindAvailableRoom() *Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, room := range m.rooms {
		if room.GetStatus() == StatusWaiting && room.PlayerCount() < room.MaxPlayers {
			return room
		}
	}
	return nil
}

func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CloseAll stops every room.
func (m *Manager) CloseAll() {
	for _, room := range m.Rooms() {
		m.RemoveRoom(room.ID)
	}
}
