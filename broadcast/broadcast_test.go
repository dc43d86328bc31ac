package broadcast

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/wfunc/gravesugoroku/network"
	"github.com/wfunc/gravesugoroku/physics/physicstest"
	"github.com/wfunc/gravesugoroku/room"
	"github.com/wfunc/gravesugoroku/session"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent []uint16
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestRoomBroadcaster(t *testing.T) {
	rooms := room.NewRoomManager()
	sessions := session.NewManager()
	b := NewRoomBroadcaster(rooms, sessions)

	opts := room.DefaultOptions()
	opts.PlayerCount = 2
	opts.Engine = physicstest.New()
	table, err := rooms.CreateRoom("t1", "T1", opts, b)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	inRoom := &MockConnection{}
	outside := &MockConnection{}
	s1 := session.NewSession("s1", inRoom)
	s2 := session.NewSession("s2", outside)
	sessions.Add(s1)
	sessions.Add(s2)
	table.AddPlayer(s1)

	if err := b.BroadcastToRoom("t1", network.MsgTypeTableState, nil); err != nil {
		t.Fatalf("BroadcastToRoom failed: %v", err)
	}
	if len(inRoom.sent) != 1 || len(outside.sent) != 0 {
		t.Errorf("Expected only the table UI to receive, got %d and %d", len(inRoom.sent), len(outside.sent))
	}

	if err := b.BroadcastToRoom("missing", 1, nil); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}

	b.BroadcastToAll(network.MsgTypeHeartbeat, nil)
	if len(inRoom.sent) != 2 || len(outside.sent) != 1 {
		t.Errorf("Expected everyone to receive, got %d and %d", len(inRoom.sent), len(outside.sent))
	}
}
