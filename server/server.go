package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/gravesugoroku/broadcast"
	"github.com/wfunc/gravesugoroku/logger"
	"github.com/wfunc/gravesugoroku/monitor"
	"github.com/wfunc/gravesugoroku/network"
	"github.com/wfunc/gravesugoroku/room"
	"github.com/wfunc/gravesugoroku/services"
	"github.com/wfunc/gravesugoroku/session"
	sugoroku_rpc "github.com/wfunc/gravesugoroku/rpc"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableFull     = errors.New("table already has a player")
	ErrNotAtTable    = errors.New("session is not at a table")
)

type Options struct {
	Addr    string
	RPCAddr string
	// Heartbeat is the read deadline cadence; zero disables it.
	Heartbeat time.Duration
	// OrphanGrace is how long a table without a UI waits to be rejoined
	// before it is closed. Zero closes it as soon as its UI leaves.
	OrphanGrace time.Duration
	// Room is the template for every new table.
	Room room.Options
}

// orphan is a pending close of a table nobody is driving.
type orphan struct {
	timer *time.Timer
}

type GameServer struct {
	opts           Options
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	broadcaster    *broadcast.RoomBroadcaster
	rpcServer      *sugoroku_rpc.Server
	monitor        *monitor.Monitor
	archive        *services.Archive
	httpServer     *http.Server
	sinks          []room.EventSink
	orphans        map[string]*orphan // tableID -> pending close
	orphanMutex    sync.Mutex
	shutdownChan   chan struct{}
	shutdownOnce   sync.Once
}

// NewGameServer wires tables to the archive and metrics. Either may be nil.
func NewGameServer(opts Options, archive *services.Archive, mon *monitor.Monitor) (*GameServer, error) {
	s := &GameServer{
		opts:           opts,
		roomManager:    room.NewRoomManager(),
		sessionManager: session.NewManager(),
		monitor:        mon,
		archive:        archive,
		orphans:        make(map[string]*orphan),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.httpServer = &http.Server{Addr: opts.Addr, Handler: s.Handler()}
	if mon != nil {
		s.sinks = append(s.sinks, mon)
	}
	if archive != nil {
		s.sinks = append(s.sinks, archive)
	}

	rpcServer, err := sugoroku_rpc.NewServer(opts.RPCAddr)
	if err != nil {
		return nil, err
	}
	var matches sugoroku_rpc.MatchLister
	if archive != nil {
		matches = archive
	}
	if err := rpcServer.Register(sugoroku_rpc.NewTableService(s.roomManager, matches)); err != nil {
		rpcServer.Stop()
		return nil, err
	}
	s.rpcServer = rpcServer
	return s, nil
}

func (s *GameServer) Rooms() *room.Manager { return s.roomManager }

func (s *GameServer) Sessions() *session.Manager { return s.sessionManager }

// Handler serves the websocket endpoint.
func (s *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start blocks serving HTTP until Shutdown.
func (s *GameServer) Start() error {
	go s.rpcServer.Start()

	logger.Log.Infof("Game server listening on %s", s.opts.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *GameServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)
		s.rpcServer.Stop()
		err = s.httpServer.Shutdown(ctx)
		s.orphanMutex.Lock()
		for id, o := range s.orphans {
			o.timer.Stop()
			delete(s.orphans, id)
		}
		s.orphanMutex.Unlock()
		for _, sess := range s.sessionManager.All() {
			sess.Close()
		}
		s.roomManager.CloseAll()
	})
	return err
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	if s.opts.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.opts.Heartbeat)
	}
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncConnections()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		// a table lives as long as the UI driving it
		if tableID := sess.Room(); tableID != "" {
			s.closeTable(tableID)
		}
		if s.monitor != nil {
			s.monitor.DecConnections()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			if s.monitor != nil {
				s.monitor.IncMessagesReceived()
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	var err error
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
		err = sess.Send(network.MsgTypeHeartbeat, nil)
	case network.MsgTypeCreateTable:
		err = s.handleCreateTable(sess, packet)
	case network.MsgTypeJoinTable:
		err = s.handleJoinTable(sess, packet)
	case network.MsgTypeLeaveTable:
		err = s.handleLeaveTable(sess)
	case network.MsgTypePlay:
		err = s.submit(sess, room.Command{Kind: room.CommandPlay, MsgID: packet.MsgID})
	case network.MsgTypeLaunch:
		err = s.handleLaunch(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
		return
	}
	if err != nil {
		logger.Log.Debugw("request failed", "session", sess.GetID(), "msg", packet.MsgID, "error", err)
		s.replyError(sess, packet.MsgID, err)
	}
}

func (s *GameServer) handleCreateTable(sess *session.Session, packet *network.Packet) error {
	var req network.CreateTable
	if err := packet.Decode(&req); err != nil {
		return err
	}
	if sess.Room() != "" {
		if err := s.handleLeaveTable(sess); err != nil {
			return err
		}
	}

	opts := s.opts.Room
	if req.PlayerCount != 0 {
		opts.PlayerCount = req.PlayerCount
	}
	if req.Seed != 0 {
		opts.Game.Seed = req.Seed
	}
	table, err := s.roomManager.CreateRoom("", "Grave Sugoroku", opts, s.broadcaster, s.sinks...)
	if err != nil {
		return err
	}
	table.AddPlayer(sess)
	table.Start()
	s.updateActiveTables()

	logger.Log.Infof("Session %s created table %s", sess.GetID(), table.ID)
	return sess.SendPayload(network.MsgTypeJoined, network.Joined{
		TableID:     table.ID,
		SessionID:   sess.GetID(),
		PlayerCount: opts.PlayerCount,
	})
}

// handleJoinTable attaches to a table that lost its UI. An empty table ID
// picks any such table. The session leaves its current table first.
func (s *GameServer) handleJoinTable(sess *session.Session, packet *network.Packet) error {
	var req network.JoinTable
	if err := packet.Decode(&req); err != nil {
		return err
	}

	var table *room.Room
	if req.TableID == "" {
		table = s.roomManager.FindAvailableRoom()
	} else {
		table, _ = s.roomManager.GetRoom(req.TableID)
	}
	if table == nil {
		return ErrTableNotFound
	}
	if table.ID != sess.Room() {
		if table.PlayerCount() >= table.MaxPlayers {
			return ErrTableFull
		}
		if sess.Room() != "" {
			if err := s.handleLeaveTable(sess); err != nil {
				return err
			}
		}
		if err := s.attach(table, sess); err != nil {
			return err
		}
	}

	logger.Log.Infof("Session %s joined table %s", sess.GetID(), table.ID)
	return sess.SendPayload(network.MsgTypeJoined, network.Joined{
		TableID:     table.ID,
		SessionID:   sess.GetID(),
		PlayerCount: len(table.Snapshot().Players),
	})
}

// handleLeaveTable detaches the UI. The table stays open for OrphanGrace so
// it can be rejoined.
func (s *GameServer) handleLeaveTable(sess *session.Session) error {
	tableID := sess.Room()
	if tableID == "" {
		return ErrNotAtTable
	}
	sess.SetRoom("")
	table, ok := s.roomManager.GetRoom(tableID)
	if !ok {
		return nil
	}
	table.RemovePlayer(sess.GetID())
	if table.PlayerCount() == 0 {
		s.scheduleOrphan(table)
	}
	return nil
}

// attach seats sess at table unless the table was closed meanwhile, and
// cancels its pending close.
func (s *GameServer) attach(table *room.Room, sess *session.Session) error {
	s.orphanMutex.Lock()
	defer s.orphanMutex.Unlock()
	if current, ok := s.roomManager.GetRoom(table.ID); !ok || current != table {
		return ErrTableNotFound
	}
	if !table.AddPlayer(sess) {
		return ErrTableFull
	}
	if o, ok := s.orphans[table.ID]; ok {
		o.timer.Stop()
		delete(s.orphans, table.ID)
	}
	return nil
}

func (s *GameServer) scheduleOrphan(table *room.Room) {
	if s.opts.OrphanGrace <= 0 {
		s.closeTable(table.ID)
		return
	}
	s.orphanMutex.Lock()
	defer s.orphanMutex.Unlock()
	if o, ok := s.orphans[table.ID]; ok {
		o.timer.Stop()
	}
	o := &orphan{}
	o.timer = time.AfterFunc(s.opts.OrphanGrace, func() {
		s.reapOrphan(table, o)
	})
	s.orphans[table.ID] = o
}

func (s *GameServer) cancelOrphan(tableID string) {
	s.orphanMutex.Lock()
	defer s.orphanMutex.Unlock()
	if o, ok := s.orphans[tableID]; ok {
		o.timer.Stop()
		delete(s.orphans, tableID)
	}
}

// reapOrphan closes table if o is still its pending close and nobody joined.
func (s *GameServer) reapOrphan(table *room.Room, o *orphan) {
	s.orphanMutex.Lock()
	if s.orphans[table.ID] != o {
		s.orphanMutex.Unlock()
		return
	}
	delete(s.orphans, table.ID)
	idle := table.PlayerCount() == 0
	if idle {
		s.roomManager.RemoveRoom(table.ID)
	}
	s.orphanMutex.Unlock()

	if idle {
		logger.Log.Infof("Table %s closed after waiting %v for a player", table.ID, s.opts.OrphanGrace)
		s.forgetTable(table.ID)
	}
}

func (s *GameServer) handleLaunch(sess *session.Session, packet *network.Packet) error {
	var req network.Launch
	if err := network.Decode(packet.Data, &req); err != nil {
		return err
	}
	return s.submit(sess, room.Command{
		Kind:    room.CommandGesture,
		MsgID:   packet.MsgID,
		Gesture: req.Gesture(time.Now()),
	})
}

func (s *GameServer) submit(sess *session.Session, cmd room.Command) error {
	tableID := sess.Room()
	if tableID == "" {
		return ErrNotAtTable
	}
	table, ok := s.roomManager.GetRoom(tableID)
	if !ok {
		return ErrTableNotFound
	}
	cmd.SessionID = sess.GetID()
	return table.Submit(cmd)
}

func (s *GameServer) closeTable(tableID string) {
	s.cancelOrphan(tableID)
	s.roomManager.RemoveRoom(tableID)
	s.forgetTable(tableID)
}

func (s *GameServer) forgetTable(tableID string) {
	if s.archive != nil {
		s.archive.Forget(tableID)
	}
	s.updateActiveTables()
}

func (s *GameServer) updateActiveTables() {
	if s.monitor != nil {
		s.monitor.SetActiveTables(s.roomManager.Count())
	}
}

func (s *GameServer) replyError(sess *session.Session, msgID uint16, err error) {
	if sendErr := sess.SendPayload(network.MsgTypeError, network.ErrorReply{MsgID: msgID, Message: err.Error()}); sendErr != nil {
		logger.Log.Warnf("send error reply to %s: %v", sess.GetID(), sendErr)
	}
}
