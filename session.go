package main

import (
	"fmt"
)

// Orchestrator owns the room registry and drives every session's state
// machine. All room mutation funnels through one run loop per room, so
// intents are processed to completion in arrival order.
type Orchestrator struct {
	cfg       *Config
	registry  *Registry
	questions QuestionProvider
}

func newOrchestrator(cfg *Config, registry *Registry, questions QuestionProvider) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		questions: questions,
	}
}

// runRoom drains the room's intent channel until the room is closed.
func (o *Orchestrator) runRoom(room *Room) {
	for {
		select {
		case env := <-room.intents:
			o.dispatch(room, env)
		case <-room.done:
			return
		}
	}
}

func (o *Orchestrator) dispatch(room *Room, env intentEnvelope) {
	if env.disconnect {
		o.handleDisconnect(room, env.playerID)
		return
	}

	switch env.msg.Type {
	case IntentStartGame:
		o.handleStartGame(room, env.playerID, env.msg.Settings)
	case IntentConfirmStart:
		o.handleConfirmStart(room, env.playerID)
	case IntentSubmitAnswer:
		o.handleSubmitAnswer(room, env.playerID, env.msg.Answer)
	case IntentSubmitPredict:
		o.handleSubmitPrediction(room, env.playerID, env.msg.TargetID, env.msg.Prediction)
	case IntentPlayerReady:
		o.handlePlayerReady(room, env.playerID)
	case IntentRoundTimeout:
		o.handleRoundTimeout(room, env.playerID)
	case IntentToggleExclusive:
		o.handleToggleExclusive(room, env.playerID)
	case IntentEndExclusive:
		o.handleEndExclusive(room, env.playerID)
	case IntentResetRoom:
		o.handleResetRoom(room, env.playerID)
	default:
		room.mu.Lock()
		room.sendToLocked(env.playerID, ErrorEvent{
			Type:    "error",
			Code:    ErrCodeInvalidIntent,
			Message: fmt.Sprintf("unknown intent type %q", env.msg.Type),
		})
		room.mu.Unlock()
	}
}

// createRoom makes a new room with the creator seated as authority and
// starts its run loop.
func (o *Orchestrator) createRoom(playerID, nickname, mode string, sink eventSink) (*Room, error) {
	if mode != ModeSolo && mode != ModeTwoPlayer {
		return nil, fmt.Errorf("invalid app mode %q", mode)
	}
	if nickname == "" {
		return nil, fmt.Errorf("nickname must not be empty")
	}

	room := o.registry.createRoom(mode)

	room.mu.Lock()
	room.players = append(room.players, &Player{
		ID:       playerID,
		Nickname: nickname,
		sink:     sink,
	})
	room.sendToLocked(playerID, RoomCreatedEvent{
		Type:     "room-created",
		RoomCode: room.id,
		PlayerID: playerID,
		Mode:     mode,
	})
	room.mu.Unlock()

	go o.runRoom(room)

	logf(o.cfg, "ROOMS: Player %q created %s room %s", nickname, mode, room.id)

	return room, nil
}

// joinRoom seats a second player. Only two-player rooms with a free seat
// accept joiners, and only before play begins.
func (o *Orchestrator) joinRoom(code, playerID, nickname string, sink eventSink) (*Room, *ErrorEvent) {
	room, err := o.registry.getRoom(code)
	if err != nil {
		return nil, &ErrorEvent{Type: "error", Code: ErrCodeRoomNotFound, Message: "no room with that code"}
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.appMode != ModeTwoPlayer || len(room.players) >= 2 {
		return nil, &ErrorEvent{Type: "error", Code: ErrCodeRoomFull, Message: "room is not accepting players"}
	}
	if room.status != StatusWaiting && room.status != StatusSelecting {
		return nil, &ErrorEvent{Type: "error", Code: ErrCodeWrongStatus, Message: "game already in progress"}
	}
	if nickname == "" {
		return nil, &ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: "nickname must not be empty"}
	}

	room.touchLocked()
	room.players = append(room.players, &Player{
		ID:       playerID,
		Nickname: nickname,
		sink:     sink,
	})
	room.status = StatusSelecting

	room.broadcastLocked(RoomReadyEvent{
		Type:    "room-ready",
		Players: room.playerInfos(),
	})

	logf(o.cfg, "ROOMS: Player %q joined room %s", nickname, room.id)

	return room, nil
}

// validateLocked runs the common intent checks: membership, authority
// gating, and status gating. Returns nil when the intent may proceed.
// Assumes room.mu held.
func (r *Room) validateLocked(playerID string, needsAuthority bool, statuses ...RoomStatus) *ErrorEvent {
	if r.playerByID(playerID) == nil {
		return &ErrorEvent{Type: "error", Code: ErrCodeNotMember, Message: "you are not in this room"}
	}

	if needsAuthority && !r.isAuthority(playerID) {
		return &ErrorEvent{Type: "error", Code: ErrCodeNotAuthority, Message: "only the room creator can do that"}
	}

	for _, s := range statuses {
		if r.status == s {
			return nil
		}
	}
	return &ErrorEvent{Type: "error", Code: ErrCodeWrongStatus, Message: fmt.Sprintf("not allowed while room is %s", r.status)}
}

func validateSettings(s *GameSettings, appMode string) *ErrorEvent {
	reject := func(msg string) *ErrorEvent {
		return &ErrorEvent{Type: "error", Code: ErrCodeInvalidSettings, Message: msg}
	}

	switch {
	case s == nil:
		return reject("missing game settings")
	case s.Category == "":
		return reject("a category must be chosen")
	case s.Style != StylePrediction && s.Style != StyleRevealOnly:
		return reject("style must be prediction or reveal-only")
	case s.Style == StylePrediction && appMode == ModeSolo:
		return reject("prediction style needs two players")
	case s.ContentTier < 1 || s.ContentTier > TierExclusive:
		return reject(fmt.Sprintf("content tier must be between 1 and %d", TierExclusive))
	case s.TotalRounds < 1 || s.TotalRounds > 50:
		return reject("total rounds must be between 1 and 50")
	case s.RoundTimeLimit < 0:
		return reject("round time limit must not be negative")
	}
	return nil
}

// handleStartGame is the authority's start intent. With both players
// present the settings are parked as a pending handshake until the other
// player confirms; solo or single-occupant rooms start immediately.
func (o *Orchestrator) handleStartGame(room *Room, playerID string, settings *GameSettings) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, true, StatusSelecting); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}
	if ev := validateSettings(settings, room.appMode); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}

	if room.appMode == ModeTwoPlayer && len(room.players) == 2 {
		room.handshake = settings
		room.sendToLocked(room.players[1].ID, StartProposedEvent{
			Type:     "start-proposed",
			Settings: *settings,
		})
		room.sendToLocked(playerID, StartPendingEvent{Type: "start-pending"})
		logf(o.cfg, "GAME: Start proposed in room %s, awaiting confirmation", room.id)
		return
	}

	o.commitGameStartLocked(room, *settings)
}

// handleConfirmStart is the non-authority player's acknowledgment of a
// pending handshake; it is the only other trigger of commitGameStart.
func (o *Orchestrator) handleConfirmStart(room *Room, playerID string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, false, StatusSelecting); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}

	if room.handshake == nil {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeHandshakeMismatch, Message: "no game start is awaiting confirmation"})
		return
	}
	if room.isAuthority(playerID) {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeHandshakeMismatch, Message: "the other player must confirm the start"})
		return
	}

	settings := *room.handshake
	room.handshake = nil

	o.commitGameStartLocked(room, settings)
}

// handleResetRoom returns a finished room to the selecting phase with
// scores and configuration zeroed.
func (o *Orchestrator) handleResetRoom(room *Room, playerID string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, true, StatusCompleted); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}

	for _, p := range room.players {
		p.Score = 0
	}

	room.settings = GameSettings{}
	room.questions = nil
	room.currentQ = Question{}
	room.round = 0
	room.roundDone = false
	room.exclusive = false
	room.exclQueue = nil
	room.handshake = nil
	room.answers = make(map[string]string)
	room.preds = make(map[string]prediction)
	room.ready = make(map[string]bool)
	room.status = StatusSelecting

	room.broadcastLocked(RoomResetEvent{
		Type:    "room-reset",
		Players: room.playerInfos(),
	})

	logf(o.cfg, "GAME: Room %s reset to selecting", room.id)
}
