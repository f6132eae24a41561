package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"github.com/wfunc/gombiful/network"
	"github.com/wfunc/gombiful/session"
)

type terminal struct {
	conn    *websocket.Conn
	resumer *session.Resumer
	sendMu  sync.Mutex
	seq     int

	mu       sync.Mutex
	pending  map[int]pendingCall
	name     string
	playerID string
}

type pendingCall struct {
	op   uint16
	role session.Role
}

// send formats and sends a message to the WebSocket server.
func (t *terminal) send(msgID uint16, req network.Request, role session.Role) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	t.seq++
	req.Seq = t.seq
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	packet, err := network.Frame(msgID, data)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.pending[req.Seq] = pendingCall{op: msgID, role: role}
	t.mu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (t *terminal) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		packet, err := network.Parse(message)
		if err != nil {
			log.Printf("Received invalid packet of size %d", len(message))
			continue
		}
		switch packet.MsgID {
		case network.MsgTypeState:
			var push network.StatePush
			if err := packet.Decode(&push); err == nil {
				t.printState(push)
			}
		case network.MsgTypeReply:
			var reply network.Reply
			if err := packet.Decode(&reply); err == nil {
				t.handleReply(reply)
			}
		}
	}
}

func (t *terminal) handleReply(reply network.Reply) {
	t.mu.Lock()
	call, ok := t.pending[reply.Seq]
	delete(t.pending, reply.Seq)
	name := t.name
	t.mu.Unlock()

	if !reply.Success {
		log.Printf("%s failed (%s): %s", network.OpName(reply.Op), reply.Kind, reply.Error)
		if ok && call.op == network.MsgTypeResume {
			_ = t.resumer.Forget()
		}
		return
	}
	if data, err := json.Marshal(reply.Data); err == nil && reply.Data != nil {
		log.Printf("%s ok: %s", network.OpName(reply.Op), data)
	} else {
		log.Printf("%s ok", network.OpName(reply.Op))
	}

	if !ok {
		return
	}
	switch call.op {
	case network.MsgTypeCreateRoom, network.MsgTypeJoinRoom, network.MsgTypeResume:
		var joined struct {
			RoomCode string `json:"roomCode"`
			PlayerID string `json:"playerId"`
		}
		raw, _ := json.Marshal(reply.Data)
		if err := json.Unmarshal(raw, &joined); err == nil && joined.RoomCode != "" {
			if err := t.resumer.Remember(call.role, joined.RoomCode, joined.PlayerID, name); err != nil {
				log.Printf("Could not save session: %v", err)
			}
		}
	case network.MsgTypeLeaveRoom:
		_ = t.resumer.Forget()
	}
}

func (t *terminal) printState(push network.StatePush) {
	if push.Gone {
		log.Printf("Game %s no longer exists", push.RoomCode)
		_ = t.resumer.Forget()
		return
	}
	if push.Error != "" {
		log.Printf("Game %s: connection problem: %s", push.RoomCode, push.Error)
		return
	}
	doc := push.Session
	if doc == nil {
		return
	}
	log.Printf("== %s | %s | round %d | %d songs left", doc.RoomCode, doc.Status, doc.CurrentRound, push.RemainingSongs)
	if doc.CurrentSong != nil {
		year := "????"
		if doc.CurrentSong.Year > 0 {
			year = strconv.Itoa(doc.CurrentSong.Year)
		}
		log.Printf("   now playing: %s - %s (%s)", doc.CurrentSong.Artist, doc.CurrentSong.Title, year)
	}
	for _, st := range doc.Standings() {
		p := doc.Players[st.PlayerID]
		marker := " "
		if st.PlayerID == t.playerID {
			marker = "*"
		}
		answered := ""
		if p.HasAnswered {
			answered = " (answered)"
		}
		log.Printf(" %s %-12s %2d cards %d tokens%s", marker, st.Name, st.Score, st.Tokens, answered)
		if st.PlayerID == t.playerID {
			years := make([]string, len(p.Timeline))
			for i, s := range p.Timeline {
				years[i] = fmt.Sprintf("[%d] %d", i, s.Year)
			}
			log.Printf("   your timeline: %s  [%d]", strings.Join(years, " "), len(p.Timeline))
		}
	}
	if doc.RevealData != nil {
		ids := make([]string, 0, len(doc.RevealData.Results))
		for id := range doc.RevealData.Results {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			r := doc.RevealData.Results[id]
			log.Printf("   %s: correct=%v %s", id, r.Correct, r.Message)
		}
	}
	if doc.Winner != nil {
		log.Printf("   winner: %s with %d cards", doc.Winner.Name, doc.Winner.Score)
	}
}

// setName takes the name from words when given and returns the one in use.
func (t *terminal) setName(words []string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := strings.Join(words, " "); n != "" {
		t.name = n
	}
	return t.name
}

func (t *terminal) command(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	switch fields[0] {
	case "create":
		return t.send(network.MsgTypeCreateRoom, network.Request{PlayerID: t.playerID, Name: t.setName(fields[1:])}, session.RoleDJ)
	case "join":
		if len(fields) < 2 {
			return errors.New("usage: join CODE [NAME]")
		}
		return t.send(network.MsgTypeJoinRoom, network.Request{PlayerID: t.playerID, Name: t.setName(fields[2:]), RoomCode: fields[1]}, session.RolePlayer)
	case "start":
		return t.send(network.MsgTypeStartGame, network.Request{}, "")
	case "place":
		index, err := strconv.Atoi(arg(1))
		if err != nil {
			return errors.New("usage: place N")
		}
		return t.send(network.MsgTypeSubmit, network.Request{Index: index}, "")
	case "skip":
		return t.send(network.MsgTypeSkipToken, network.Request{}, "")
	case "reveal":
		return t.send(network.MsgTypeReveal, network.Request{Force: arg(1) == "force"}, "")
	case "round":
		return t.send(network.MsgTypePlayRound, network.Request{Force: arg(1) == "force"}, "")
	case "next":
		return t.send(network.MsgTypeAdvance, network.Request{}, "")
	case "skipsong":
		return t.send(network.MsgTypeSkipSong, network.Request{}, "")
	case "end":
		return t.send(network.MsgTypeEndGame, network.Request{}, "")
	case "leave":
		return t.send(network.MsgTypeLeaveRoom, network.Request{}, "")
	case "help":
		log.Println("commands: create [NAME] | join CODE [NAME] | start | place N | skip | reveal [force] | round [force] | next | skipsong | end | leave")
		return nil
	}
	return fmt.Errorf("unknown command %q, try help", fields[0])
}

func main() {
	serverURL := pflag.StringP("server", "s", "http://localhost:8080", "game server base URL")
	cachePath := pflag.String("cache", session.DefaultCachePath(), "where to keep the session for reconnecting")
	name := pflag.StringP("name", "n", "", "display name")
	fresh := pflag.Bool("fresh", false, "discard any saved session")
	heartbeat := pflag.Duration("heartbeat", session.DefaultHeartbeatInterval, "keep-alive interval")
	pflag.Parse()

	base, err := url.Parse(*serverURL)
	if err != nil {
		log.Fatalf("Bad server URL: %v", err)
	}
	cache := session.FileCache{Path: *cachePath}
	resumer := session.NewResumer(cache, &remoteStore{base: *serverURL, client: &http.Client{Timeout: 5 * time.Second}}, 0)
	if *fresh {
		_ = resumer.Forget()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	ws := *base
	ws.Scheme = "ws"
	if base.Scheme == "https" {
		ws.Scheme = "wss"
	}
	ws.Path = strings.TrimSuffix(base.Path, "/") + "/ws"
	log.Printf("Connecting to %s", ws.String())

	c, _, err := websocket.DefaultDialer.Dial(ws.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	t := &terminal{
		conn:     c,
		resumer:  resumer,
		pending:  make(map[int]pendingCall),
		name:     *name,
		playerID: resumer.PlayerID(),
	}

	done := make(chan struct{})
	go t.readLoop(done)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	id, err := resumer.Resume(ctx)
	cancel()
	switch {
	case err == nil:
		log.Printf("Resuming game %s as %s", id.RoomCode, id.PlayerName)
		t.setName([]string{id.PlayerName})
		if err := t.send(network.MsgTypeResume, network.Request{Role: string(id.Role), PlayerID: id.PlayerID, RoomCode: id.RoomCode}, id.Role); err != nil {
			log.Println("Write error:", err)
			return
		}
	case errors.Is(err, session.ErrSessionGone):
		log.Println("Your previous game has ended.")
	case !errors.Is(err, session.ErrNoSession):
		log.Printf("Could not check saved session: %v", err)
	}

	go func() {
		ticker := time.NewTicker(*heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				t.sendMu.Lock()
				packet, _ := network.Frame(network.MsgTypeHeartbeat, nil)
				err := c.WriteMessage(websocket.BinaryMessage, packet)
				t.sendMu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	log.Println("Client started. Type 'help' for commands.")

	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSpace(text)
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := t.command(line); err != nil {
				log.Println(err)
			}
		}
	}
}
