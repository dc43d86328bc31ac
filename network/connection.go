package network

import (
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// headerSize covers the message id and the body length, both big endian.
const headerSize = 4

// ErrMalformedPacket is returned for frames whose header does not match the
// body that came with it.
var ErrMalformedPacket = errors.New("malformed packet")

// Packet is one framed message. Data aliases the websocket frame it was read
// from.
type Packet struct {
	MsgID uint16
	Data  []byte
}

// Decode unpacks the msgpack body into v. Bodyless packets leave v untouched.
func (p *Packet) Decode(v interface{}) error {
	if len(p.Data) == 0 {
		return nil
	}
	return Decode(p.Data, v)
}

// Connection carries framed packets between a table server and one UI.
type Connection interface {
	Send(msgID uint16, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadPacket() (*Packet, error)
}

// WSConnection frames packets over binary websocket messages, one packet
// per message. Sends are serialized; reads must come from one goroutine.
type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	heartbeat time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

// EncodeFrame prefixes data with its header.
func EncodeFrame(msgID uint16, data []byte) ([]byte, error) {
	if len(data) > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	frame := make([]byte, headerSize+len(data))
	binary.BigEndian.PutUint16(frame[0:2], msgID)
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(data)))
	copy(frame[headerSize:], data)
	return frame, nil
}

// DecodeFrame splits a websocket message into a packet. The length field
// must account for every byte after the header.
func DecodeFrame(frame []byte) (*Packet, error) {
	if len(frame) < headerSize {
		return nil, ErrMalformedPacket
	}
	length := int(binary.BigEndian.Uint16(frame[2:4]))
	if len(frame)-headerSize != length {
		return nil, ErrMalformedPacket
	}
	return &Packet{
		MsgID: binary.BigEndian.Uint16(frame[0:2]),
		Data:  frame[headerSize:],
	}, nil
}

func (c *WSConnection) Send(msgID uint16, data []byte) error {
	frame, err := EncodeFrame(msgID, data)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// SendPayload msgpack-encodes v and sends it under msgID.
func (c *WSConnection) SendPayload(msgID uint16, v interface{}) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	return c.Send(msgID, data)
}

func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.heartbeat > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.heartbeat * 2))
	}
	return DecodeFrame(frame)
}

// ReadPayload reads the next packet and decodes its body into v.
func (c *WSConnection) ReadPayload(v interface{}) (uint16, error) {
	packet, err := c.ReadPacket()
	if err != nil {
		return 0, err
	}
	return packet.MsgID, packet.Decode(v)
}

// SetHeartbeat requires the peer to send something at least every two
// intervals. Each packet read extends the deadline.
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.heartbeat = interval
	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
