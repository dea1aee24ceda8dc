package main

import (
	"errors"
	"testing"
)

func TestDisconnectDuringSelectingKeepsRoomAlive(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	room, alice, _ := twoPlayerRoom(t, o)

	o.handleDisconnect(room, "bob-id")

	if roomStatus(room) != StatusSelecting {
		t.Fatalf("room should survive a lobby departure, got %s", roomStatus(room))
	}

	var left *PlayerLeftEvent
	for _, e := range alice.all() {
		if ev, ok := e.(PlayerLeftEvent); ok {
			left = &ev
		}
	}
	if left == nil || left.Nickname != "Bob" {
		t.Fatalf("expected player-left notice for Bob, got %+v", left)
	}
	if len(alice.gameOvers()) != 0 {
		t.Fatal("no game-over expected outside of play")
	}

	// The freed seat can be refilled.
	carol := &recordingSink{}
	if _, ev := o.joinRoom(room.id, "carol-id", "Carol", carol); ev != nil {
		t.Fatalf("rejoin after departure: %+v", ev)
	}

	room.mu.RLock()
	defer room.mu.RUnlock()
	if len(room.players) != 2 {
		t.Fatalf("expected 2 players after rejoin, got %d", len(room.players))
	}
}

func TestDisconnectMidGameEndsSession(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	room, alice, _ := startedGame(t, o, StylePrediction, 3)

	o.handleSubmitAnswer(room, "bob-id", "B")
	o.handleDisconnect(room, "bob-id")

	if roomStatus(room) != StatusCompleted {
		t.Fatalf("expected session to end when opponent leaves, got %s", roomStatus(room))
	}

	overs := alice.gameOvers()
	if len(overs) != 1 || overs[0].Reason != ReasonOpponentLeft {
		t.Fatalf("expected opponent-left game over, got %+v", overs)
	}

	room.mu.RLock()
	defer room.mu.RUnlock()
	if _, ok := room.answers["bob-id"]; ok {
		t.Fatal("departed player's answer must be purged")
	}
	if room.playerByID("bob-id") != nil {
		t.Fatal("departed player must be removed")
	}
}

func TestDisconnectOfExclusiveAuthority(t *testing.T) {
	provider := &stubProvider{
		standard: makeQuestions(5),
		exclusive: []Question{
			{ID: "x-1", TierRating: TierExclusive},
			{ID: "x-2", TierRating: TierExclusive},
		},
	}
	o := newTestOrchestrator(t, provider)
	room, _, bob := twoPlayerRoom(t, o)

	settings := defaultSettings(StyleRevealOnly, 3)
	settings.Exclusive = true
	o.handleStartGame(room, "alice-id", settings)
	o.handleConfirmStart(room, "bob-id")

	o.handleDisconnect(room, "alice-id")

	overs := bob.gameOvers()
	if len(overs) != 1 || overs[0].Reason != ReasonExclusiveHostLeft {
		t.Fatalf("expected exclusive-host-left game over, got %+v", overs)
	}
}

func TestLastDepartureDestroysRoom(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	room, alice, _ := twoPlayerRoom(t, o)

	o.handleDisconnect(room, "bob-id")
	o.handleDisconnect(room, "alice-id")

	if _, err := o.registry.getRoom(room.id); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected room destroyed after last departure, got %v", err)
	}
	if !alice.closed {
		t.Fatal("expected the departing player's sink to be closed")
	}
}

func TestDisconnectClearsPendingHandshake(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	room, _, _ := twoPlayerRoom(t, o)

	o.handleStartGame(room, "alice-id", defaultSettings(StylePrediction, 2))

	o.handleDisconnect(room, "bob-id")

	room.mu.RLock()
	handshake := room.handshake
	room.mu.RUnlock()
	if handshake != nil {
		t.Fatal("pending handshake must not outlive the confirming player")
	}

	// Alice alone can now start directly, no handshake needed.
	o.handleStartGame(room, "alice-id", defaultSettings(StyleRevealOnly, 2))
	if roomStatus(room) != StatusPlaying {
		t.Fatalf("expected immediate start after opponent left, got %s", roomStatus(room))
	}
}

func TestDisconnectUnknownPlayerIsNoOp(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	room, _, _ := twoPlayerRoom(t, o)

	o.handleDisconnect(room, "stranger-id")

	if roomStatus(room) != StatusSelecting {
		t.Fatalf("unexpected status change: %s", roomStatus(room))
	}

	room.mu.RLock()
	defer room.mu.RUnlock()
	if len(room.players) != 2 {
		t.Fatal("membership must be untouched")
	}
}
