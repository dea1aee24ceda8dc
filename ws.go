package main

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. Its uuid doubles as the player id
// for the lifetime of the connection.
type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	room     *Room

	mu     sync.Mutex
	closed bool
}

// Send implements eventSink. Slow clients are skipped rather than allowed
// to block the room, and sends after Close are dropped; the reaper can
// close a room while a join still holds a reference to it.
func (c *Client) Send(event any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- event:
	default:
	}
}

// Close ends the write pump. Called by the room side once this player has
// been removed. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// readPump parses intents off the wire. The first accepted intent must
// seat the client in a room; everything after that drains through the
// room's run loop so per-room processing stays strictly ordered.
func (c *Client) readPump(o *Orchestrator) {
	defer func() {
		if c.room != nil {
			select {
			case c.room.intents <- intentEnvelope{playerID: c.playerID, disconnect: true}:
			case <-c.room.done:
				c.Close()
			}
		} else {
			c.Close()
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case IntentCreateRoom:
			if c.room != nil {
				c.Send(ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: "already in a room"})
				continue
			}
			room, err := o.createRoom(c.playerID, strings.TrimSpace(msg.Nickname), msg.Mode, c)
			if err != nil {
				c.Send(ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: err.Error()})
				continue
			}
			c.room = room

		case IntentJoinRoom:
			if c.room != nil {
				c.Send(ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: "already in a room"})
				continue
			}
			room, ev := o.joinRoom(strings.ToUpper(strings.TrimSpace(msg.RoomCode)), c.playerID, strings.TrimSpace(msg.Nickname), c)
			if ev != nil {
				c.Send(*ev)
				continue
			}
			c.room = room

		default:
			if c.room == nil {
				c.Send(ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: "create or join a room first"})
				continue
			}
			select {
			case c.room.intents <- intentEnvelope{playerID: c.playerID, msg: msg}:
			case <-c.room.done:
				return
			}
		}
	}
}

func serveWS(cfg *Config, o *Orchestrator) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SERVE: Upgrade error from %s: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: uuid.NewString(),
		}

		go client.writePump()
		client.readPump(o)
	}
}

// qrHandler generates a PNG QR code for sharing a room link.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../room/:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// registerGameRoutes wires the orchestrator into the router:
//   - /ws              → WebSocket carrying all intents and events
//   - /room/:code/qr   → PNG QR code for sharing a room
func registerGameRoutes(cfg *Config, mux *httprouter.Router, o *Orchestrator) {
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, o))
	mux.GET(cfg.prefix+"/room/:code/qr", qrHandler)
}
