package main

// handleDisconnect reacts to a transport-level departure: the player is
// removed along with any per-round entries they contributed, then the
// room either terminates or merely notifies survivors.
func (o *Orchestrator) handleDisconnect(room *Room, playerID string) {
	room.mu.Lock()

	player := room.playerByID(playerID)
	if player == nil {
		room.mu.Unlock()
		return
	}

	wasAuthority := room.isAuthority(playerID)

	dst := room.players[:0]
	for _, p := range room.players {
		if p.ID == playerID {
			continue
		}
		dst = append(dst, p)
	}
	room.players = dst

	delete(room.answers, playerID)
	delete(room.preds, playerID)
	delete(room.ready, playerID)
	room.handshake = nil

	if player.sink != nil {
		player.sink.Close()
	}

	room.touchLocked()

	if len(room.players) == 0 {
		room.mu.Unlock()
		o.registry.removeRoom(room.id)
		logf(o.cfg, "ROOMS: Room %s destroyed, last player %q left", room.id, player.Nickname)
		return
	}

	room.broadcastLocked(PlayerLeftEvent{
		Type:     "player-left",
		PlayerID: player.ID,
		Nickname: player.Nickname,
	})

	switch {
	case room.exclusive && wasAuthority && room.status == StatusPlaying:
		// Exclusive content needs its gatekeeper present.
		o.endGameLocked(room, ReasonExclusiveHostLeft)

	case room.status == StatusPlaying:
		// A two-player round can never complete with one player, so the
		// session ends with a reason the survivor's UI can distinguish
		// from a normal finish.
		o.endGameLocked(room, ReasonOpponentLeft)
	}

	room.mu.Unlock()

	logf(o.cfg, "ROOMS: Player %q left room %s", player.Nickname, room.id)
}
