package main

import (
	"fmt"
	"sync"
	"testing"
)

// recordingSink captures every event sent to one player.
type recordingSink struct {
	mu     sync.Mutex
	events []any
	closed bool
}

func (s *recordingSink) Send(event any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *recordingSink) all() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.events...)
}

// lastError returns the most recent ErrorEvent, if any.
func (s *recordingSink) lastError() *ErrorEvent {
	for _, e := range reverse(s.all()) {
		if ev, ok := e.(ErrorEvent); ok {
			return &ev
		}
	}
	return nil
}

func (s *recordingSink) roundResults() []RoundResultsEvent {
	var out []RoundResultsEvent
	for _, e := range s.all() {
		if ev, ok := e.(RoundResultsEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) gameOvers() []GameOverEvent {
	var out []GameOverEvent
	for _, e := range s.all() {
		if ev, ok := e.(GameOverEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

func reverse(events []any) []any {
	out := make([]any, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, events[i])
	}
	return out
}

// stubProvider serves fixed pools so tests control content availability.
type stubProvider struct {
	standard  []Question
	exclusive []Question
}

func (p *stubProvider) Fetch(category string, count, tierCeiling int, exclusiveOnly bool) []Question {
	pool := p.standard
	if exclusiveOnly {
		pool = p.exclusive
	}
	out := append([]Question(nil), pool...)
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

func makeQuestions(n int) []Question {
	qs := make([]Question, 0, n)
	for i := 1; i <= n; i++ {
		qs = append(qs, Question{
			ID:         fmt.Sprintf("q-%03d", i),
			Text:       fmt.Sprintf("Question %d", i),
			Options:    []string{"A", "B"},
			Category:   "friendship",
			TierRating: 1,
		})
	}
	return qs
}

func newTestOrchestrator(t *testing.T, provider QuestionProvider) *Orchestrator {
	t.Helper()

	if provider == nil {
		provider = &stubProvider{standard: makeQuestions(10)}
	}

	cfg := &Config{}
	return newOrchestrator(cfg, newRegistry(0), provider)
}

// twoPlayerRoom seats Alice (authority) and Bob.
func twoPlayerRoom(t *testing.T, o *Orchestrator) (*Room, *recordingSink, *recordingSink) {
	t.Helper()

	alice := &recordingSink{}
	room, err := o.createRoom("alice-id", "Alice", ModeTwoPlayer, alice)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	bob := &recordingSink{}
	if _, ev := o.joinRoom(room.id, "bob-id", "Bob", bob); ev != nil {
		t.Fatalf("join room: %v", ev)
	}

	return room, alice, bob
}

func defaultSettings(style string, rounds int) *GameSettings {
	return &GameSettings{
		Category:       "friendship",
		Style:          style,
		ContentTier:    2,
		RoundTimeLimit: 30,
		TotalRounds:    rounds,
	}
}

// startedGame runs the full start handshake and returns a playing room.
func startedGame(t *testing.T, o *Orchestrator, style string, rounds int) (*Room, *recordingSink, *recordingSink) {
	t.Helper()

	room, alice, bob := twoPlayerRoom(t, o)

	o.handleStartGame(room, "alice-id", defaultSettings(style, rounds))
	o.handleConfirmStart(room, "bob-id")

	if got := roomStatus(room); got != StatusPlaying {
		t.Fatalf("expected room to be playing, got %s", got)
	}

	return room, alice, bob
}

func roomStatus(r *Room) RoomStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

func roomRound(r *Room) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.round
}

func playerScore(t *testing.T, r *Room, id string) int {
	t.Helper()

	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.playerByID(id)
	if p == nil {
		t.Fatalf("player %s not in room", id)
	}
	return p.Score
}
