package types

type Option struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ScoreEntry struct {
	PlayerID  string `json:"playerId"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Correct   int    `json:"correct"`
	Attempted int    `json:"attempted"`
}

// PublicRound never carries the correct title.
type PublicRound struct {
	OpeningID string   `json:"openingId"`
	AudioURL  string   `json:"audioUrl"`
	Options   []Option `json:"options"`
}

type RoundView struct {
	PublicRound
	RoundDurationSeconds int   `json:"roundDurationSeconds"`
	RoundEndsAt          int64 `json:"roundEndsAt"` // epoch millis
}

// RoomState is what a polling client sees once per second.
type RoomState struct {
	RoomID             string       `json:"roomId"`
	RoundNumber        int          `json:"roundNumber"`
	Round              *RoundView   `json:"round"`
	HasAnswered        bool         `json:"hasAnswered"`
	RoundResolved      bool         `json:"roundResolved"`
	RoundWinnerName    *string      `json:"roundWinnerName"`
	CanStartNextRound  bool         `json:"canStartNextRound"`
	NextRoundOwnerName *string      `json:"nextRoundOwnerName"`
	Scoreboard         []ScoreEntry `json:"scoreboard"`
}
