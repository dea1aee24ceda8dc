package main

import (
	"strings"
)

// SentinelAnswer is back-filled for any player who missed the round timer,
// purely to unblock the round barrier. It never scores.
const SentinelAnswer = "[Time Expired]"

// commitGameStartLocked is the single start transition, reached either
// directly (solo / one player present) or via handshake confirmation.
// On content shortage the room stays in selecting. Assumes room.mu held.
func (o *Orchestrator) commitGameStartLocked(room *Room, settings GameSettings) {
	batch := o.questions.Fetch(settings.Category, settings.TotalRounds, settings.ContentTier, false)
	if len(batch) < settings.TotalRounds {
		room.sendToLocked(room.players[0].ID, ErrorEvent{
			Type:    "error",
			Code:    ErrCodeContentShortage,
			Message: "not enough questions available for the chosen category and tier",
		})
		return
	}

	room.exclusive = false
	room.exclQueue = nil

	var first Question
	if settings.Exclusive {
		pool := o.questions.Fetch(settings.Category, 0, settings.ContentTier, true)
		if len(pool) == 0 {
			// Silent fallback to standard content; only the authority
			// hears about it.
			room.sendToLocked(room.players[0].ID, ExclusiveModeEvent{Type: "exclusive-mode", Active: false, Fallback: true})
			settings.Exclusive = false
		} else {
			room.exclusive = true
			first = pool[0]
			room.exclQueue = pool[1:]
			room.broadcastLocked(ExclusiveModeEvent{Type: "exclusive-mode", Active: true})
		}
	}
	if !room.exclusive {
		first = batch[0]
	}

	for _, p := range room.players {
		p.Score = 0
	}

	room.settings = settings
	room.questions = batch
	room.currentQ = first
	room.round = 1
	room.roundDone = false
	room.answers = make(map[string]string)
	room.preds = make(map[string]prediction)
	room.ready = make(map[string]bool)
	room.status = StatusPlaying

	room.broadcastLocked(GameStartedEvent{
		Type:        "game-started",
		Settings:    settings,
		Round:       1,
		TotalRounds: settings.TotalRounds,
		Question:    first,
		Players:     room.playerInfos(),
	})

	logf(o.cfg, "GAME: Room %s started (%s, %s, %d rounds, exclusive=%t)",
		room.id, settings.Category, settings.Style, settings.TotalRounds, room.exclusive)
}

func (o *Orchestrator) handleSubmitAnswer(room *Room, playerID, answer string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, false, StatusPlaying); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}
	if room.roundDone {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeWrongStatus, Message: "round already scored"})
		return
	}
	if answer == "" {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: "answer must not be empty"})
		return
	}

	// Idempotence: the first submission wins, a second one is rejected
	// and never overwrites it.
	if _, dup := room.answers[playerID]; dup {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeDuplicateAnswer, Message: "you already answered this round"})
		return
	}

	room.answers[playerID] = answer

	o.checkRoundBarrierLocked(room, false)
}

func (o *Orchestrator) handleSubmitPrediction(room *Room, playerID, targetID, predicted string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, false, StatusPlaying); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}
	if room.settings.Style != StylePrediction {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: "predictions are not part of this game style"})
		return
	}
	if room.roundDone {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeWrongStatus, Message: "round already scored"})
		return
	}
	if targetID == playerID || room.playerByID(targetID) == nil {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeInvalidTarget, Message: "prediction target must be the other player"})
		return
	}
	if predicted == "" {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeInvalidIntent, Message: "prediction must not be empty"})
		return
	}

	if _, dup := room.preds[playerID]; dup {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeDuplicatePredict, Message: "you already predicted this round"})
		return
	}

	room.preds[playerID] = prediction{targetID: targetID, answer: predicted}

	o.checkRoundBarrierLocked(room, false)
}

// checkRoundBarrierLocked computes results as soon as every currently
// present player has supplied the round's required inputs. Membership is
// re-evaluated live each call. Assumes room.mu held.
func (o *Orchestrator) checkRoundBarrierLocked(room *Room, timedOut bool) {
	for _, p := range room.players {
		if _, ok := room.answers[p.ID]; !ok {
			return
		}
		if room.settings.Style == StylePrediction {
			if _, ok := room.preds[p.ID]; !ok {
				return
			}
		}
	}

	o.scoreRoundLocked(room, timedOut)
}

// handleRoundTimeout is the transport-delivered round timer expiry. Every
// missing input is back-filled with the sentinel so the barrier cannot be
// held open forever.
func (o *Orchestrator) handleRoundTimeout(room *Room, playerID string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, false, StatusPlaying); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}
	if room.roundDone {
		return
	}

	for _, p := range room.players {
		if _, ok := room.answers[p.ID]; !ok {
			room.answers[p.ID] = SentinelAnswer
		}
		if room.settings.Style == StylePrediction {
			if _, ok := room.preds[p.ID]; !ok {
				if other := room.otherPlayerLocked(p.ID); other != nil {
					room.preds[p.ID] = prediction{targetID: other.ID, answer: SentinelAnswer}
				}
			}
		}
	}

	logf(o.cfg, "GAME: Round %d in room %s forced to completion by timeout", room.round, room.id)

	o.scoreRoundLocked(room, true)
}

func (r *Room) otherPlayerLocked(playerID string) *Player {
	for _, p := range r.players {
		if p.ID != playerID {
			return p
		}
	}
	return nil
}

// scoreRoundLocked freezes the round, applies scoring, and emits results.
// Reveal-only rounds award nothing; prediction rounds award one point per
// case-insensitive exact match against the target's actual answer.
// Sentinel predictions never score. Assumes room.mu held.
func (o *Orchestrator) scoreRoundLocked(room *Room, timedOut bool) {
	room.roundDone = true

	room.broadcastLocked(RoundCompleteEvent{
		Type:     "round-complete",
		Round:    room.round,
		TimedOut: timedOut,
	})

	results := make([]PlayerRoundResult, 0, len(room.players))

	for _, p := range room.players {
		res := PlayerRoundResult{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Answer:   room.answers[p.ID],
		}

		if room.settings.Style == StylePrediction {
			if pred, ok := room.preds[p.ID]; ok {
				res.Prediction = pred.answer
				res.PredictedTargetID = pred.targetID

				actual, answered := room.answers[pred.targetID]
				if answered &&
					!strings.EqualFold(pred.answer, SentinelAnswer) &&
					!strings.EqualFold(actual, SentinelAnswer) &&
					strings.EqualFold(pred.answer, actual) {
					res.IsCorrectPrediction = true
					res.PointsEarned = 1
					p.Score++
				}
			}
		}

		results = append(results, res)
	}

	room.broadcastLocked(RoundResultsEvent{
		Type:         "round-results",
		Round:        room.round,
		QuestionID:   room.currentQ.ID,
		QuestionText: room.currentQ.Text,
		Results:      results,
		Players:      room.playerInfos(),
	})
}

// handlePlayerReady records a results acknowledgment. The round advances
// only once every currently present player has acknowledged; this is the
// system's single advancement barrier.
func (o *Orchestrator) handlePlayerReady(room *Room, playerID string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, false, StatusPlaying); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}
	if !room.roundDone {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeNotReadyForAdvance, Message: "the round has not been scored yet"})
		return
	}

	room.ready[playerID] = true

	for _, p := range room.players {
		if !room.ready[p.ID] {
			return
		}
	}

	o.advanceRoundLocked(room)
}

// advanceRoundLocked clears per-round state and either deals the next
// prompt or ends the game. Assumes room.mu held.
func (o *Orchestrator) advanceRoundLocked(room *Room) {
	room.answers = make(map[string]string)
	room.preds = make(map[string]prediction)
	room.ready = make(map[string]bool)
	room.roundDone = false
	room.round++

	switch {
	case room.exclusive && len(room.exclQueue) > 0:
		room.currentQ = room.exclQueue[0]
		room.exclQueue = room.exclQueue[1:]

	case room.exclusive:
		o.endGameLocked(room, ReasonExclusiveExhausted)
		return

	case room.round > room.settings.TotalRounds:
		o.endGameLocked(room, ReasonFinished)
		return

	default:
		room.currentQ = room.questions[room.round-1]
	}

	room.broadcastLocked(NewRoundEvent{
		Type:     "new-round",
		Round:    room.round,
		Question: room.currentQ,
	})
}

// handleToggleExclusive switches a running game onto (or off) the
// top-tier queue; the change takes effect with the next round.
func (o *Orchestrator) handleToggleExclusive(room *Room, playerID string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, true, StatusPlaying); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}

	if room.exclusive {
		room.exclusive = false
		room.exclQueue = nil
		room.broadcastLocked(ExclusiveModeEvent{Type: "exclusive-mode", Active: false})
		logf(o.cfg, "GAME: Exclusive mode disabled in room %s", room.id)
		return
	}

	pool := o.questions.Fetch(room.settings.Category, 0, room.settings.ContentTier, true)
	if len(pool) == 0 {
		room.sendToLocked(playerID, ExclusiveModeEvent{Type: "exclusive-mode", Active: false, Fallback: true})
		return
	}

	room.exclusive = true
	room.exclQueue = pool
	room.broadcastLocked(ExclusiveModeEvent{Type: "exclusive-mode", Active: true})

	logf(o.cfg, "GAME: Exclusive mode enabled in room %s (%d queued)", room.id, len(pool))
}

// handleEndExclusive lets the authority close out an exclusive session;
// the game ends rather than dropping back to standard content.
func (o *Orchestrator) handleEndExclusive(room *Room, playerID string) {
	room.mu.Lock()
	defer room.mu.Unlock()

	room.touchLocked()

	if ev := room.validateLocked(playerID, true, StatusPlaying); ev != nil {
		room.sendToLocked(playerID, *ev)
		return
	}
	if !room.exclusive {
		room.sendToLocked(playerID, ErrorEvent{Type: "error", Code: ErrCodeExclusiveInactive, Message: "exclusive mode is not active"})
		return
	}

	o.endGameLocked(room, ReasonExclusiveEnded)
}

// endGameLocked moves the room to completed and reports final scores.
// Assumes room.mu held.
func (o *Orchestrator) endGameLocked(room *Room, reason string) {
	room.status = StatusCompleted
	room.roundDone = false
	room.answers = make(map[string]string)
	room.preds = make(map[string]prediction)
	room.ready = make(map[string]bool)

	room.broadcastLocked(GameOverEvent{
		Type:    "game-over",
		Reason:  reason,
		Players: room.playerInfos(),
	})

	logf(o.cfg, "GAME: Room %s finished (%s)", room.id, reason)
}
