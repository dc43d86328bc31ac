package network

import (
	"errors"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wfunc/gravesugoroku/launch"
)

const (
	MsgTypeHeartbeat   = 1
	MsgTypeJoinTable   = 101
	MsgTypeLeaveTable  = 102
	MsgTypeCreateTable = 103
	MsgTypePlay        = 201
	MsgTypeLaunch      = 202
	MsgTypeTableState  = 301
	MsgTypeTableEvent  = 302
	MsgTypeJoined      = 303
	MsgTypeGameEnd     = 305
	MsgTypeError       = 399
)

// MaxPayload is the largest body the 2-byte length field can describe.
const MaxPayload = math.MaxUint16

var ErrPayloadTooLarge = errors.New("payload exceeds packet size")

type CreateTable struct {
	PlayerCount int   `msgpack:"player_count"`
	Seed        int64 `msgpack:"seed,omitempty"`
}

type JoinTable struct {
	TableID string `msgpack:"table_id"`
}

type Joined struct {
	TableID     string `msgpack:"table_id"`
	SessionID   string `msgpack:"session_id"`
	PlayerCount int    `msgpack:"player_count"`
}

// Launch is a drag gesture as the UI measured it: screen points in pixels,
// the drag duration and the board point under the drag start.
type Launch struct {
	StartX     float64 `msgpack:"sx"`
	StartY     float64 `msgpack:"sy"`
	EndX       float64 `msgpack:"ex"`
	EndY       float64 `msgpack:"ey"`
	DurationMs int64   `msgpack:"ms"`
	OriginX    float64 `msgpack:"ox"`
	OriginY    float64 `msgpack:"oy"`
	OriginZ    float64 `msgpack:"oz"`
}

// Gesture rebuilds the drag as if it ended at end.
func (l Launch) Gesture(end time.Time) launch.Gesture {
	return launch.Gesture{
		StartScreen: mgl64.Vec2{l.StartX, l.StartY},
		EndScreen:   mgl64.Vec2{l.EndX, l.EndY},
		StartedAt:   end.Add(-time.Duration(l.DurationMs) * time.Millisecond),
		EndedAt:     end,
		OriginWorld: mgl64.Vec3{l.OriginX, l.OriginY, l.OriginZ},
	}
}

type GameEnd struct {
	TableID    string `msgpack:"table_id"`
	Winner     int    `msgpack:"winner"`
	WinnerText string `msgpack:"winner_text"`
}

type ErrorReply struct {
	MsgID   uint16 `msgpack:"msg_id"`
	Message string `msgpack:"message"`
}

// Encode marshals a payload and checks it fits in one packet.
func Encode(v interface{}) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	return data, nil
}

func Decode(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}
