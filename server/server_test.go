package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/gravesugoroku/game"
	"github.com/wfunc/gravesugoroku/monitor"
	"github.com/wfunc/gravesugoroku/network"
	"github.com/wfunc/gravesugoroku/persistence"
	"github.com/wfunc/gravesugoroku/room"
	"github.com/wfunc/gravesugoroku/services"
)

type testClient struct {
	raw  *websocket.Conn
	conn *network.WSConnection
}

func newTestServer(t *testing.T, grace time.Duration) (*GameServer, *httptest.Server) {
	t.Helper()
	archive := services.NewArchive(persistence.NewMemory(10), 16)
	s, err := NewGameServer(Options{
		RPCAddr:     "127.0.0.1:0",
		OrphanGrace: grace,
		Room:        room.DefaultOptions(),
	}, archive, monitor.NewMonitor("server_test"))
	if err != nil {
		t.Fatalf("NewGameServer failed: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Shutdown(ctx)
		srv.Close()
		archive.Close()
	})
	return s, srv
}

func dial(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	raw, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	raw.SetReadDeadline(time.Now().Add(5 * time.Second))
	return &testClient{raw: raw, conn: network.NewWSConnection(raw)}
}

func (c *testClient) send(t *testing.T, msgID uint16, v interface{}) {
	t.Helper()
	var err error
	if v == nil {
		err = c.conn.Send(msgID, nil)
	} else {
		err = c.conn.SendPayload(msgID, v)
	}
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
}

// waitFor reads packets until match accepts one.
func (c *testClient) waitFor(t *testing.T, msgID uint16, match func(*network.Packet) bool) *network.Packet {
	t.Helper()
	for {
		packet, err := c.conn.ReadPacket()
		if err != nil {
			t.Fatalf("Waiting for msg %d: %v", msgID, err)
		}
		if packet.MsgID == msgID && (match == nil || match(packet)) {
			return packet
		}
	}
}

func TestHeartbeat(t *testing.T) {
	_, srv := newTestServer(t, time.Minute)
	c := dial(t, srv)
	defer c.raw.Close()

	c.send(t, network.MsgTypeHeartbeat, nil)
	c.waitFor(t, network.MsgTypeHeartbeat, nil)
}

func TestPlayWithoutTable(t *testing.T) {
	_, srv := newTestServer(t, time.Minute)
	c := dial(t, srv)
	defer c.raw.Close()

	c.send(t, network.MsgTypePlay, nil)
	packet := c.waitFor(t, network.MsgTypeError, nil)

	var reply network.ErrorReply
	if err := packet.Decode(&reply); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if reply.MsgID != network.MsgTypePlay || reply.Message != ErrNotAtTable.Error() {
		t.Errorf("Unexpected error reply %+v", reply)
	}
}

func TestJoinUnknownTable(t *testing.T) {
	_, srv := newTestServer(t, time.Minute)
	c := dial(t, srv)
	defer c.raw.Close()

	c.send(t, network.MsgTypeJoinTable, network.JoinTable{TableID: "missing"})
	packet := c.waitFor(t, network.MsgTypeError, nil)

	var reply network.ErrorReply
	if err := packet.Decode(&reply); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if reply.Message != ErrTableNotFound.Error() {
		t.Errorf("Expected %q, got %q", ErrTableNotFound, reply.Message)
	}
}

func TestCreateTableAndLaunch(t *testing.T) {
	s, srv := newTestServer(t, time.Minute)
	c := dial(t, srv)

	c.send(t, network.MsgTypeCreateTable, network.CreateTable{PlayerCount: 2, Seed: 3})
	packet := c.waitFor(t, network.MsgTypeJoined, nil)

	var joined network.Joined
	if err := packet.Decode(&joined); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if joined.TableID == "" || joined.PlayerCount != 2 {
		t.Fatalf("Unexpected joined reply %+v", joined)
	}
	table, ok := s.Rooms().GetRoom(joined.TableID)
	if !ok {
		t.Fatalf("Expected table %s to exist", joined.TableID)
	}
	if table.GetStatus() != room.StatusPlaying {
		t.Errorf("Expected playing, got %v", table.GetStatus())
	}

	// second press arrives while already waiting for a launch
	c.send(t, network.MsgTypePlay, nil)
	c.send(t, network.MsgTypePlay, nil)
	c.waitFor(t, network.MsgTypeError, func(p *network.Packet) bool {
		var reply network.ErrorReply
		return p.Decode(&reply) == nil && reply.MsgID == network.MsgTypePlay
	})

	c.send(t, network.MsgTypeLaunch, network.Launch{EndY: -200, DurationMs: 200})
	c.waitFor(t, network.MsgTypeTableEvent, func(p *network.Packet) bool {
		var ev game.Event
		return p.Decode(&ev) == nil && ev.Kind == game.EventRoundLaunched
	})

	c.raw.Close()
	deadline := time.Now().Add(2 * time.Second)
	for s.Rooms().Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected table to close with its UI")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLeaveAndRejoin(t *testing.T) {
	s, srv := newTestServer(t, time.Minute)
	first := dial(t, srv)
	defer first.raw.Close()

	first.send(t, network.MsgTypeCreateTable, network.CreateTable{})
	first.waitFor(t, network.MsgTypeJoined, nil)
	first.send(t, network.MsgTypeLeaveTable, nil)

	second := dial(t, srv)
	defer second.raw.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Rooms().FindAvailableRoom() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("Expected table to become available")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second.send(t, network.MsgTypeJoinTable, network.JoinTable{})
	packet := second.waitFor(t, network.MsgTypeJoined, nil)
	var joined network.Joined
	if err := packet.Decode(&joined); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if joined.PlayerCount != 4 {
		t.Errorf("Expected 4 players, got %d", joined.PlayerCount)
	}
	if s.Rooms().Count() != 1 {
		t.Errorf("Expected 1 table, got %d", s.Rooms().Count())
	}
}

func decodeJoined(t *testing.T, packet *network.Packet) network.Joined {
	t.Helper()
	var joined network.Joined
	if err := packet.Decode(&joined); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return joined
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestJoinLeavesCurrentTable(t *testing.T) {
	s, srv := newTestServer(t, time.Minute)
	first := dial(t, srv)
	defer first.raw.Close()
	second := dial(t, srv)

	first.send(t, network.MsgTypeCreateTable, network.CreateTable{})
	left := decodeJoined(t, first.waitFor(t, network.MsgTypeJoined, nil))
	first.send(t, network.MsgTypeLeaveTable, nil)

	second.send(t, network.MsgTypeCreateTable, network.CreateTable{})
	own := decodeJoined(t, second.waitFor(t, network.MsgTypeJoined, nil))

	tableA, _ := s.Rooms().GetRoom(left.TableID)
	waitUntil(t, "first table to lose its UI", func() bool { return tableA.PlayerCount() == 0 })

	second.send(t, network.MsgTypeJoinTable, network.JoinTable{TableID: left.TableID})
	joined := decodeJoined(t, second.waitFor(t, network.MsgTypeJoined, nil))
	if joined.TableID != left.TableID {
		t.Fatalf("Expected to join %s, got %s", left.TableID, joined.TableID)
	}

	tableB, ok := s.Rooms().GetRoom(own.TableID)
	if !ok {
		t.Fatalf("Expected table %s to wait for a new UI", own.TableID)
	}
	if tableB.PlayerCount() != 0 {
		t.Errorf("Expected old table to be empty, got %d players", tableB.PlayerCount())
	}
	if tableA.PlayerCount() != 1 {
		t.Errorf("Expected joined table to have 1 player, got %d", tableA.PlayerCount())
	}
	if got := s.Rooms().FindAvailableRoom(); got != tableB {
		t.Errorf("Expected the old table to be available again")
	}

	// the table a UI drives closes with it; the one it left keeps waiting
	second.raw.Close()
	waitUntil(t, "joined table to close", func() bool {
		_, ok := s.Rooms().GetRoom(left.TableID)
		return !ok
	})
	if _, ok := s.Rooms().GetRoom(own.TableID); !ok {
		t.Errorf("Expected table %s to still wait out its grace period", own.TableID)
	}
}

func TestLeftTableClosesAfterGrace(t *testing.T) {
	for _, grace := range []time.Duration{0, 50 * time.Millisecond} {
		s, srv := newTestServer(t, grace)
		c := dial(t, srv)

		c.send(t, network.MsgTypeCreateTable, network.CreateTable{})
		c.waitFor(t, network.MsgTypeJoined, nil)
		c.send(t, network.MsgTypeLeaveTable, nil)

		waitUntil(t, "left table to close", func() bool { return s.Rooms().Count() == 0 })
		c.raw.Close()
	}
}

func TestRejoinCancelsClose(t *testing.T) {
	s, srv := newTestServer(t, 300*time.Millisecond)
	c := dial(t, srv)
	defer c.raw.Close()

	c.send(t, network.MsgTypeCreateTable, network.CreateTable{})
	created := decodeJoined(t, c.waitFor(t, network.MsgTypeJoined, nil))
	c.send(t, network.MsgTypeLeaveTable, nil)
	c.send(t, network.MsgTypeJoinTable, network.JoinTable{TableID: created.TableID})
	c.waitFor(t, network.MsgTypeJoined, nil)

	time.Sleep(500 * time.Millisecond)
	table, ok := s.Rooms().GetRoom(created.TableID)
	if !ok {
		t.Fatal("Expected rejoined table to stay open")
	}
	if table.PlayerCount() != 1 {
		t.Errorf("Expected 1 player, got %d", table.PlayerCount())
	}
}
