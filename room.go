package main

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"
)

type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusSelecting RoomStatus = "selecting"
	StatusPlaying   RoomStatus = "playing"
	StatusCompleted RoomStatus = "completed"
)

const (
	ModeSolo      = "solo"
	ModeTwoPlayer = "two-player"
)

var ErrRoomNotFound = errors.New("room not found")

// eventSink receives outward events for one participant. The websocket
// client implements it; tests substitute a recording sink. Close is owned
// by the room side, never by the reader.
type eventSink interface {
	Send(event any)
	Close()
}

// Player is one participant. ID is the transport-session identity; Score
// accumulates within a game and resets to zero at each game start.
type Player struct {
	ID       string
	Nickname string
	Score    int

	sink eventSink
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{ID: p.ID, Nickname: p.Nickname, Score: p.Score}
}

type prediction struct {
	targetID string
	answer   string
}

type intentEnvelope struct {
	playerID   string
	msg        ClientMessage
	disconnect bool
}

// Room is one game session. Index 0 of players is always the authority.
// All mutation happens under mu; the per-room run loop additionally
// serializes intents in arrival order.
type Room struct {
	id      string
	appMode string

	mu         sync.RWMutex
	players    []*Player
	status     RoomStatus
	settings   GameSettings
	questions  []Question
	currentQ   Question
	round      int // 1-based, 0 before play begins
	roundDone  bool
	answers    map[string]string
	preds      map[string]prediction
	ready      map[string]bool
	exclusive  bool
	exclQueue  []Question
	handshake  *GameSettings
	createdAt  time.Time
	lastActive time.Time

	intents   chan intentEnvelope
	done      chan struct{}
	closeOnce sync.Once
}

func newRoom(id, mode string) *Room {
	now := time.Now()

	status := StatusSelecting
	if mode == ModeTwoPlayer {
		status = StatusWaiting
	}

	return &Room{
		id:         id,
		appMode:    mode,
		status:     status,
		answers:    make(map[string]string),
		preds:      make(map[string]prediction),
		ready:      make(map[string]bool),
		createdAt:  now,
		lastActive: now,
		intents:    make(chan intentEnvelope, 16),
		done:       make(chan struct{}),
	}
}

func (r *Room) playerByID(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) isAuthority(id string) bool {
	return len(r.players) > 0 && r.players[0].ID == id
}

func (r *Room) playerInfos() []PlayerInfo {
	infos := make([]PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		infos = append(infos, p.info())
	}
	return infos
}

// broadcastLocked sends an event to every participant. Assumes r.mu held.
func (r *Room) broadcastLocked(event any) {
	for _, p := range r.players {
		if p.sink != nil {
			p.sink.Send(event)
		}
	}
}

func (r *Room) sendToLocked(playerID string, event any) {
	if p := r.playerByID(playerID); p != nil && p.sink != nil {
		p.sink.Send(event)
	}
}

func (r *Room) touchLocked() {
	r.lastActive = time.Now()
}

// close stops the room's run loop and disconnects any remaining
// participants. Idempotent.
func (r *Room) close() {
	r.closeOnce.Do(func() {
		close(r.done)

		r.mu.Lock()
		for _, p := range r.players {
			if p.sink != nil {
				p.sink.Close()
			}
		}
		r.mu.Unlock()
	})
}

// Registry holds all live rooms keyed by code, so each code is its own
// isolated session.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func newRegistry(idleTimeout time.Duration) *Registry {
	reg := &Registry{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go reg.reaperLoop()
	}
	return reg
}

const roomCodeLength = 6

// newRoomCode generates a crypto-random room code and ensures it doesn't
// collide with existing rooms.
func (reg *Registry) newRoomCode() string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		code := string(out)

		reg.mu.Lock()
		_, exists := reg.rooms[code]
		reg.mu.Unlock()

		if !exists {
			return code
		}
	}
}

func (reg *Registry) createRoom(mode string) *Room {
	code := reg.newRoomCode()
	room := newRoom(code, mode)

	reg.mu.Lock()
	reg.rooms[code] = room
	reg.mu.Unlock()

	return room
}

func (reg *Registry) getRoom(code string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (reg *Registry) removeRoom(code string) {
	reg.mu.Lock()
	room, ok := reg.rooms[code]
	delete(reg.rooms, code)
	reg.mu.Unlock()

	if ok {
		room.close()
	}
}

// reaperLoop periodically removes rooms that have been idle longer than
// idleTimeout.
func (reg *Registry) reaperLoop() {
	ticker := time.NewTicker(reg.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-reg.idleTimeout)

		reg.mu.Lock()
		for code, room := range reg.rooms {
			room.mu.RLock()
			last := room.lastActive
			room.mu.RUnlock()

			if last.Before(cutoff) {
				delete(reg.rooms, code)
				room.close()
			}
		}
		reg.mu.Unlock()
	}
}
