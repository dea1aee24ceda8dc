package main

// Messages coming from clients. Type selects which fields are meaningful;
// everything is validated at the transport boundary before it reaches the
// state machine.
type ClientMessage struct {
	Type       string        `json:"type"`                 // one of the Intent* constants
	Nickname   string        `json:"nickname,omitempty"`   // create-room / join-room
	RoomCode   string        `json:"room_code,omitempty"`  // join-room
	Mode       string        `json:"mode,omitempty"`       // create-room: "solo" or "two-player"
	Settings   *GameSettings `json:"settings,omitempty"`   // start-game
	Answer     string        `json:"answer,omitempty"`     // submit-answer
	TargetID   string        `json:"target_id,omitempty"`  // submit-prediction
	Prediction string        `json:"prediction,omitempty"` // submit-prediction
}

// Client -> server intent types.
const (
	IntentCreateRoom      = "create-room"
	IntentJoinRoom        = "join-room"
	IntentStartGame       = "start-game"
	IntentConfirmStart    = "confirm-start"
	IntentSubmitAnswer    = "submit-answer"
	IntentSubmitPredict   = "submit-prediction"
	IntentPlayerReady     = "player-ready"
	IntentRoundTimeout    = "round-timeout"
	IntentToggleExclusive = "toggle-exclusive-mode"
	IntentEndExclusive    = "end-exclusive-mode"
	IntentResetRoom       = "reset-room"
)

// GameSettings is chosen by the authority in the selecting phase and is
// immutable once play begins.
type GameSettings struct {
	Category       string `json:"category"`
	Style          string `json:"style"` // "prediction" or "reveal-only"
	ContentTier    int    `json:"content_tier"`
	RoundTimeLimit int    `json:"round_time_limit"` // seconds, enforced client-side
	TotalRounds    int    `json:"total_rounds"`
	Exclusive      bool   `json:"exclusive"`
}

const (
	StylePrediction = "prediction"
	StyleRevealOnly = "reveal-only"
)

// PlayerInfo is the public view of a player, embedded in several events.
type PlayerInfo struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

type RoomCreatedEvent struct {
	Type     string `json:"type"` // "room-created"
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
	Mode     string `json:"mode"`
}

// RoomReadyEvent is broadcast once both seats are filled and the room
// enters the selecting phase.
type RoomReadyEvent struct {
	Type    string       `json:"type"` // "room-ready"
	Players []PlayerInfo `json:"players"`
}

// StartProposedEvent is sent to the non-authority player when the authority
// asks to begin; play does not start until they confirm.
type StartProposedEvent struct {
	Type     string       `json:"type"` // "start-proposed"
	Settings GameSettings `json:"settings"`
}

// StartPendingEvent tells the authority their start request is waiting on
// the other player's confirmation.
type StartPendingEvent struct {
	Type string `json:"type"` // "start-pending"
}

type GameStartedEvent struct {
	Type        string       `json:"type"` // "game-started"
	Settings    GameSettings `json:"settings"`
	Round       int          `json:"round"`
	TotalRounds int          `json:"total_rounds"`
	Question    Question     `json:"question"`
	Players     []PlayerInfo `json:"players"`
}

type NewRoundEvent struct {
	Type     string   `json:"type"` // "new-round"
	Round    int      `json:"round"`
	Question Question `json:"question"`
}

// RoundCompleteEvent signals that the round barrier is satisfied and any
// client-side timers should stop; results follow immediately.
type RoundCompleteEvent struct {
	Type     string `json:"type"` // "round-complete"
	Round    int    `json:"round"`
	TimedOut bool   `json:"timed_out"`
}

// PlayerRoundResult is one player's line in a RoundResultsEvent.
type PlayerRoundResult struct {
	PlayerID            string `json:"player_id"`
	Nickname            string `json:"nickname"`
	Answer              string `json:"answer"`
	Prediction          string `json:"prediction,omitempty"`
	PredictedTargetID   string `json:"predicted_target_id,omitempty"`
	IsCorrectPrediction bool   `json:"is_correct_prediction,omitempty"`
	PointsEarned        int    `json:"points_earned"`
}

type RoundResultsEvent struct {
	Type         string              `json:"type"` // "round-results"
	Round        int                 `json:"round"`
	QuestionID   string              `json:"question_id"`
	QuestionText string              `json:"question_text"`
	Results      []PlayerRoundResult `json:"results"`
	Players      []PlayerInfo        `json:"players"` // scores after this round
}

type PlayerLeftEvent struct {
	Type     string `json:"type"` // "player-left"
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
}

type GameOverEvent struct {
	Type    string       `json:"type"` // "game-over"
	Reason  string       `json:"reason"`
	Players []PlayerInfo `json:"players"`
}

// Game-over reasons, so clients can tell "opponent left" apart from a
// normal finish.
const (
	ReasonFinished           = "finished"
	ReasonOpponentLeft       = "opponent-left"
	ReasonExclusiveExhausted = "exclusive-exhausted"
	ReasonExclusiveEnded     = "exclusive-ended"
	ReasonExclusiveHostLeft  = "exclusive-host-left"
)

// ExclusiveModeEvent notifies the room about exclusive-tier activation.
// Fallback is set when the top-tier pool was empty and standard content is
// used instead.
type ExclusiveModeEvent struct {
	Type     string `json:"type"` // "exclusive-mode"
	Active   bool   `json:"active"`
	Fallback bool   `json:"fallback,omitempty"`
}

type RoomResetEvent struct {
	Type    string       `json:"type"` // "room-reset"
	Players []PlayerInfo `json:"players"`
}

// ErrorEvent is sent only to the client whose intent was rejected; room
// state is never changed by a rejected intent.
type ErrorEvent struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes carried by ErrorEvent.
const (
	ErrCodeRoomNotFound       = "room-not-found"
	ErrCodeRoomFull           = "room-full"
	ErrCodeNotMember          = "not-a-member"
	ErrCodeNotAuthority       = "not-authority"
	ErrCodeWrongStatus        = "wrong-status"
	ErrCodeInvalidSettings    = "invalid-settings"
	ErrCodeContentShortage    = "content-shortage"
	ErrCodeDuplicateAnswer    = "duplicate-answer"
	ErrCodeDuplicatePredict   = "duplicate-prediction"
	ErrCodeInvalidTarget      = "invalid-target"
	ErrCodeInvalidIntent      = "invalid-intent"
	ErrCodeHandshakeMismatch  = "handshake-mismatch"
	ErrCodeExclusiveInactive  = "exclusive-inactive"
	ErrCodeNotReadyForAdvance = "not-ready-for-advance"
)
