package room

import (
	"time"

	"github.com/wfunc/gravesugoroku/game"
)

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// EventSink receives every event a table produces, on the table's goroutine.
// Implementations must not block.
type EventSink interface {
	OnTableEvent(tableID string, ev game.Event)
}

// TickObserver is implemented by sinks that also want loop timings.
type TickObserver interface {
	ObserveTick(phase string, d time.Duration)
}
