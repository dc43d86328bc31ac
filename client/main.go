package main

import (
	"bufio"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/gravesugoroku/game"
	"github.com/wfunc/gravesugoroku/network"
)

// A console UI: it creates a table and plays every seat from stdin.
//
//	play                 press the play button
//	launch <dx> <dy> <ms> drag by (dx, dy) pixels over ms milliseconds
//	quit
func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	players := flag.Int("players", 4, "player count")
	seed := flag.Int64("seed", 0, "table seed, 0 for the server default")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()
	conn := network.NewWSConnection(c)

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			packet, err := conn.ReadPacket()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			printPacket(packet)
		}
	}()

	log.Println("Sending Create Table request...")
	if err := conn.SendPayload(network.MsgTypeCreateTable, network.CreateTable{PlayerCount: *players, Seed: *seed}); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Type 'play', then 'launch 0 -200 250'.")

	lines := make(chan string)
	go func() {
		reader := bufio.NewScanner(os.Stdin)
		for reader.Scan() {
			lines <- strings.TrimSpace(reader.Text())
		}
		close(lines)
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			closeConn(c, done)
			return
		case <-heartbeat.C:
			if err := conn.Send(network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case text, ok := <-lines:
			if !ok || text == "quit" {
				closeConn(c, done)
				return
			}
			if err := handleLine(conn, text); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func handleLine(conn *network.WSConnection, text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "play":
		log.Println("-> SENT: play")
		return conn.Send(network.MsgTypePlay, nil)
	case "launch":
		req, err := parseLaunch(fields[1:])
		if err != nil {
			log.Printf("usage: launch <dx> <dy> <ms>: %v", err)
			return nil
		}
		log.Printf("-> SENT: launch %+v", req)
		return conn.SendPayload(network.MsgTypeLaunch, req)
	default:
		log.Printf("unknown command %q", fields[0])
		return nil
	}
}

func parseLaunch(args []string) (network.Launch, error) {
	var req network.Launch
	if len(args) != 3 {
		return req, strconv.ErrSyntax
	}
	dx, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return req, err
	}
	dy, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return req, err
	}
	ms, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return req, err
	}
	req.EndX, req.EndY, req.DurationMs = dx, dy, ms
	return req, nil
}

func printPacket(packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeTableEvent:
		var ev game.Event
		if err := packet.Decode(&ev); err == nil {
			log.Printf("<- EVENT turn=%d player=%d %s %v", ev.Turn, ev.Player, ev.Kind, ev.Payload)
		}
	case network.MsgTypeJoined:
		var joined network.Joined
		if err := packet.Decode(&joined); err == nil {
			log.Printf("<- JOINED table %s with %d players", joined.TableID, joined.PlayerCount)
		}
	case network.MsgTypeGameEnd:
		var end network.GameEnd
		if err := packet.Decode(&end); err == nil {
			log.Printf("<- %s", end.WinnerText)
		}
	case network.MsgTypeError:
		var reply network.ErrorReply
		if err := packet.Decode(&reply); err == nil {
			log.Printf("<- ERROR (msg %d): %s", reply.MsgID, reply.Message)
		}
	case network.MsgTypeTableState, network.MsgTypeHeartbeat:
		// too chatty for a console
	default:
		log.Printf("<- RECV (ID: %d): %d bytes", packet.MsgID, len(packet.Data))
	}
}

func closeConn(c *websocket.Conn, done chan struct{}) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		log.Println("Write close error:", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}
