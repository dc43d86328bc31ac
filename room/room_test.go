package room

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/wfunc/gravesugoroku/game"
	"github.com/wfunc/gravesugoroku/launch"
	"github.com/wfunc/gravesugoroku/network"
	"github.com/wfunc/gravesugoroku/physics/physicstest"
	"github.com/wfunc/gravesugoroku/session"
)

// MockBroadcaster is a test double for the Broadcaster interface.
type MockBroadcaster struct {
	mutex sync.Mutex
	sent  []uint16
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, msgID)
	return nil
}

func (m *MockBroadcaster) count(msgID uint16) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	n := 0
	for _, id := range m.sent {
		if id == msgID {
			n++
		}
	}
	return n
}

// MockSink records table events and tick phases.
type MockSink struct {
	events []game.Event
	ticks  map[string]int
}

func (m *MockSink) OnTableEvent(tableID string, ev game.Event) {
	m.events = append(m.events, ev)
}

func (m *MockSink) ObserveTick(phase string, d time.Duration) {
	if m.ticks == nil {
		m.ticks = make(map[string]int)
	}
	m.ticks[phase]++
}

func (m *MockSink) kinds(kind game.EventKind) int {
	n := 0
	for _, ev := range m.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

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

// newTestSession creates a dummy session for testing purposes.
func newTestSession(id string) *session.Session {
	return session.NewSession(id, &MockConnection{})
}

func testOptions(eng *physicstest.Engine) Options {
	opts := DefaultOptions()
	opts.PlayerCount = 2
	opts.Engine = eng
	return opts
}

func newTestRoom(t *testing.T, id string) (*Room, *physicstest.Engine, *MockBroadcaster, *MockSink) {
	t.Helper()
	eng := physicstest.New()
	b := &MockBroadcaster{}
	sink := &MockSink{}
	room, err := NewRoom(id, "Test Table", testOptions(eng), b, sink)
	if err != nil {
		t.Fatalf("NewRoom failed: %v", err)
	}
	return room, eng, b, sink
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager()
	mockBroadcaster := &MockBroadcaster{}

	roomID := "test_room_1"
	room, err := manager.CreateRoom(roomID, "Test Room", testOptions(physicstest.New()), mockBroadcaster)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if room.ID != roomID {
		t.Errorf("Expected room ID %s, got %s", roomID, room.ID)
	}

	retrievedRoom, exists := manager.GetRoom(roomID)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}

	if retrievedRoom != room {
		t.Error("GetRoom should return the same room instance")
	}

	generated, err := manager.CreateRoom("", "Anonymous", testOptions(physicstest.New()), mockBroadcaster)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if generated.ID == "" || manager.Count() != 2 {
		t.Errorf("Expected a generated id and 2 rooms, got %q and %d", generated.ID, manager.Count())
	}

	manager.RemoveRoom(roomID)
	if _, exists := manager.GetRoom(roomID); exists {
		t.Error("RemoveRoom should drop the room")
	}
	if room.GetStatus() != StatusClosed {
		t.Errorf("Expected removed room closed, got %s", room.GetStatus())
	}
}

func TestRoomManager_RejectsBadOptions(t *testing.T) {
	manager := NewRoomManager()
	opts := testOptions(physicstest.New())
	opts.PlayerCount = 7
	if _, err := manager.CreateRoom("bad", "Bad", opts, nil); !errors.Is(err, game.ErrInvalidPlayerCount) {
		t.Errorf("Expected ErrInvalidPlayerCount, got %v", err)
	}
	if manager.Count() != 0 {
		t.Errorf("Expected no rooms, got %d", manager.Count())
	}
}

func TestRoom_AddPlayer_Full(t *testing.T) {
	room, _, _, _ := newTestRoom(t, "test_room_3")

	player1 := newTestSession("player1")
	player2 := newTestSession("player2")

	// Add first player, should succeed
	if !room.AddPlayer(player1) {
		t.Fatal("Failed to add the first player")
	}
	if player1.Room() != room.ID {
		t.Errorf("Expected session bound to %s, got %s", room.ID, player1.Room())
	}
	if room.GetStatus() != StatusPlaying {
		t.Errorf("Expected playing, got %s", room.GetStatus())
	}

	// Add second player, should fail
	if room.AddPlayer(player2) {
		t.Fatal("Should not be able to add a second UI to a table")
	}

	room.RemovePlayer(player1.GetID())
	if room.PlayerCount() != 0 {
		t.Errorf("Expected player count to be 0 after removing player, got %d", room.PlayerCount())
	}
	if room.GetStatus() != StatusWaiting {
		t.Errorf("Expected waiting after the UI left, got %s", room.GetStatus())
	}
}

func TestRoomManager_FindAvailableRoom(t *testing.T) {
	manager := NewRoomManager()
	room, err := manager.CreateRoom("t1", "T1", testOptions(physicstest.New()), nil)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if manager.FindAvailableRoom() != room {
		t.Fatal("Expected the empty table to be available")
	}
	room.AddPlayer(newTestSession("ui"))
	if manager.FindAvailableRoom() != nil {
		t.Error("Expected no table available once driven")
	}
}

func TestRoom_PlaysARound(t *testing.T) {
	room, eng, b, sink := newTestRoom(t, "table")
	ui := newTestSession("ui")
	room.AddPlayer(ui)

	room.Advance(20 * time.Millisecond)
	if sink.kinds(game.EventTurnStarted) != 1 {
		t.Fatalf("Expected the first turn_started, got %v", sink.events)
	}

	if err := room.Submit(Command{Kind: CommandPlay, SessionID: ui.ID}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	end := time.Now()
	gesture := launch.Gesture{
		StartScreen: mgl64.Vec2{0, 0},
		EndScreen:   mgl64.Vec2{0, 150},
		StartedAt:   end.Add(-200 * time.Millisecond),
		EndedAt:     end,
	}
	if err := room.Submit(Command{Kind: CommandGesture, SessionID: ui.ID, Gesture: gesture}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	room.Advance(20 * time.Millisecond)

	if snap := room.Snapshot(); snap.Phase != game.PhaseResolving || len(snap.Pieces) != 4 {
		t.Fatalf("Expected resolving with 4 graves, got %s with %d", snap.Phase, len(snap.Pieces))
	}

	for _, id := range eng.Spawned {
		eng.Rest(id, mgl64.QuatIdent())
	}
	room.Advance(2 * time.Second)

	snap := room.Snapshot()
	if snap.Phase != game.PhaseIdle || snap.CurrentPlayer != 1 {
		t.Fatalf("Expected idle on player 1, got %s on %d", snap.Phase, snap.CurrentPlayer)
	}
	if snap.Players[0].PathIndex != 4 {
		t.Errorf("Expected player 0 at index 4, got %d", snap.Players[0].PathIndex)
	}
	if sink.kinds(game.EventRoundCompleted) != 1 || sink.kinds(game.EventTurnStarted) != 2 {
		t.Errorf("Unexpected events %v", sink.events)
	}
	if sink.ticks["physics"] == 0 || sink.ticks["frame"] == 0 {
		t.Errorf("Expected tick observations, got %v", sink.ticks)
	}
	if b.count(network.MsgTypeTableEvent) != len(sink.events) {
		t.Errorf("Expected every event broadcast, got %d of %d", b.count(network.MsgTypeTableEvent), len(sink.events))
	}
	if b.count(network.MsgTypeTableState) == 0 {
		t.Error("Expected table state broadcasts")
	}
	if eng.Steps == 0 {
		t.Error("Expected the engine to be stepped")
	}
}

func TestRoom_RejectedCommandRepliesError(t *testing.T) {
	room, _, _, _ := newTestRoom(t, "table")
	conn := &MockConnection{}
	ui := session.NewSession("ui", conn)
	room.AddPlayer(ui)

	cmd := launch.Command{Direction: mgl64.Vec2{1, 0}, Distance: 100, Speed: 100}
	room.Submit(Command{Kind: CommandLaunch, SessionID: ui.ID, MsgID: network.MsgTypeLaunch, Launch: cmd})
	room.Advance(20 * time.Millisecond)

	found := false
	for _, id := range conn.sent {
		if id == network.MsgTypeError {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an error reply, got %v", conn.sent)
	}
	if room.Snapshot().Phase != game.PhaseIdle {
		t.Errorf("Expected idle, got %s", room.Snapshot().Phase)
	}
}

func TestRoom_InboxFullAndClosed(t *testing.T) {
	room, _, _, _ := newTestRoom(t, "table")
	for i := 0; i < inboxSize; i++ {
		if err := room.Submit(Command{Kind: CommandPlay}); err != nil {
			t.Fatalf("Submit %d failed: %v", i, err)
		}
	}
	if err := room.Submit(Command{Kind: CommandPlay}); !errors.Is(err, ErrInboxFull) {
		t.Errorf("Expected ErrInboxFull, got %v", err)
	}

	room.Close()
	if err := room.Submit(Command{Kind: CommandPlay}); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("Expected ErrRoomClosed, got %v", err)
	}
}

func TestRoom_StartAndClose(t *testing.T) {
	room, _, _, _ := newTestRoom(t, "table")
	room.Start()

	if err := room.Submit(Command{Kind: CommandPlay}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for room.Snapshot().Phase != game.PhaseAwaitingLaunch && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	room.Close()

	if room.Snapshot().Phase != game.PhaseAwaitingLaunch {
		t.Errorf("Expected the running room to accept play, got %s", room.Snapshot().Phase)
	}
	if room.GetStatus() != StatusClosed {
		t.Errorf("Expected closed, got %s", room.GetStatus())
	}
}
