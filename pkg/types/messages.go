package types

// Client -> Server
//
// POST /api/room/join         { name, password? }
// POST /api/room/next-round   { playerId, roundDurationSeconds? }
// POST /api/room/answer       { playerId, answerTitle }
// POST /api/room/reset-scores { playerId }
// POST /api/room/leave        { playerId }
// GET  /api/room/state?playerId=

type JoinRequest struct {
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
}

type NextRoundRequest struct {
	PlayerID             string `json:"playerId"`
	RoundDurationSeconds *int   `json:"roundDurationSeconds,omitempty"`
}

type AnswerRequest struct {
	PlayerID    string `json:"playerId"`
	AnswerTitle string `json:"answerTitle"`
}

type PlayerRequest struct {
	PlayerID string `json:"playerId"`
}

// Server -> Client

type JoinResponse struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type NextRoundResponse struct {
	RoundNumber int         `json:"roundNumber"`
	Round       PublicRound `json:"round"`
}

// AnswerResponse reveals the correct title whether or not the guess was right.
type AnswerResponse struct {
	Correct             bool         `json:"correct"`
	CorrectOpeningTitle string       `json:"correctOpeningTitle"`
	OpeningID           string       `json:"openingId"`
	Scoreboard          []ScoreEntry `json:"scoreboard"`
}

type ResetScoresResponse struct {
	OK         bool         `json:"ok"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// QuizRound is a standalone round payload, correct answer included.
type QuizRound struct {
	OpeningID           string   `json:"openingId"`
	AudioURL            string   `json:"audioUrl"`
	Options             []Option `json:"options"`
	CorrectOpeningTitle string   `json:"correctOpeningTitle"`
}
