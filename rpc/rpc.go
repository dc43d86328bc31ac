package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sort"
	"time"

	"github.com/wfunc/gravesugoroku/game"
	"github.com/wfunc/gravesugoroku/logger"
	"github.com/wfunc/gravesugoroku/models"
	"github.com/wfunc/gravesugoroku/room"
)

var (
	ErrTableNotFound = errors.New("table not found")
	ErrNoArchive     = errors.New("match archive not configured")
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
}

// NewServer creates a new RPC server.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
		rpc:      rpc.NewServer(),
	}, nil
}

// Register exposes a service's exported methods.
func (s *Server) Register(service interface{}) error {
	return s.rpc.Register(service)
}

// Addr is the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// MatchLister is the part of the archive the admin service reads.
type MatchLister interface {
	ListMatches(ctx context.Context, limit int) ([]models.MatchRecord, error)
}

// TableService is the struct that exposes RPC methods.
type TableService struct {
	rooms   *room.Manager
	matches MatchLister
}

// NewTableService creates a new TableService.
func NewTableService(rooms *room.Manager, matches MatchLister) *TableService {
	return &TableService{rooms: rooms, matches: matches}
}

// Methods follow the net/rpc signature: exported method, exported arguments,
// second argument is a pointer, return type is error.
type StatusArgs struct {
	TableID string
}

type StatusReply struct {
	Status   string
	Snapshot game.Snapshot
}

func (ts *TableService) Status(args *StatusArgs, reply *StatusReply) error {
	table, ok := ts.rooms.GetRoom(args.TableID)
	if !ok {
		return ErrTableNotFound
	}
	reply.Status = table.GetStatus().String()
	reply.Snapshot = table.Snapshot()
	return nil
}

type TablesArgs struct {
	Status string // optional filter
}

type TableInfo struct {
	ID        string
	Name      string
	Status    string
	Phase     string
	Turn      int
	CreatedAt time.Time
}

type TablesReply struct {
	Tables []TableInfo
}

func (ts *TableService) Tables(args *TablesArgs, reply *TablesReply) error {
	for _, table := range ts.rooms.Rooms() {
		status := table.GetStatus().String()
		if args.Status != "" && args.Status != status {
			continue
		}
		snap := table.Snapshot()
		reply.Tables = append(reply.Tables, TableInfo{
			ID:        table.ID,
			Name:      table.Name,
			Status:    status,
			Phase:     string(snap.Phase),
			Turn:      snap.Turn,
			CreatedAt: table.CreatedAt,
		})
	}
	sort.Slice(reply.Tables, func(i, j int) bool {
		return reply.Tables[i].CreatedAt.Before(reply.Tables[j].CreatedAt)
	})
	return nil
}

type MatchesArgs struct {
	Limit int
}

type MatchesReply struct {
	Matches []models.MatchRecord
}

func (ts *TableService) Matches(args *MatchesArgs, reply *MatchesReply) error {
	if ts.matches == nil {
		return ErrNoArchive
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	matches, err := ts.matches.ListMatches(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Matches = matches
	return nil
}
