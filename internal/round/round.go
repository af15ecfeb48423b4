package round

import (
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/DoyleJ11/op-quiz-backend/internal/domain"
	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

var (
	ErrInvalidDuration    = domain.Validation("Round duration must be one of: 5, 10, 20 seconds")
	ErrRoundActive        = domain.Conflict("Current opening is still active")
	ErrNoParticipants     = domain.Conflict("No players available to start a round")
	ErrNoRound            = domain.NotFound("No active round")
	ErrLateJoiner         = domain.Conflict("You joined after this opening started. Wait for the next one")
	ErrExpired            = domain.Conflict("Time is up for this opening")
	ErrAlreadyResolved    = domain.Conflict("Opening already solved. Wait for the next one")
	ErrBlankAnswer        = domain.Validation("Answer title is required")
	ErrAlreadyAnswered    = domain.Conflict("Player already answered this round")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseActive   Phase = "active"
	PhaseResolved Phase = "resolved"
)

// Payload is what the opening source hands over for a new round.
type Payload struct {
	OpeningID    string
	AudioURL     string
	Options      []types.Option
	CorrectTitle string
}

type Round struct {
	Payload
	DurationSec  int
	StartedAt    time.Time
	Participants map[string]bool
	Answered     map[string]bool
	WinnerID     string
}

func (r *Round) Deadline() time.Time {
	return r.StartedAt.Add(time.Duration(r.DurationSec) * time.Second)
}

func (r *Round) IsExpired(now time.Time) bool {
	return !now.Before(r.Deadline())
}

func (r *Round) IsResolved(now time.Time) bool {
	return r.WinnerID != "" || len(r.Answered) >= len(r.Participants) || r.IsExpired(now)
}

func (r *Round) Public() types.PublicRound {
	return types.PublicRound{
		OpeningID: r.OpeningID,
		AudioURL:  r.AudioURL,
		Options:   r.Options,
	}
}

func (r *Round) clone() *Round {
	c := *r
	c.Participants = maps.Clone(r.Participants)
	c.Answered = maps.Clone(r.Answered)
	return &c
}

// State is the room-wide round bookkeeping. Number only ever grows.
type State struct {
	Current *Round
	Number  int
}

type CommandType string

const (
	CmdStart        CommandType = "Start"
	CmdAnswer       CommandType = "Answer"
	CmdRemovePlayer CommandType = "RemovePlayer"
	CmdClearPlayers CommandType = "ClearPlayers"
)

type Command struct {
	Type         CommandType
	PlayerID     string
	Answer       string
	DurationSec  int
	Payload      Payload
	Participants []string
}

type EventType string

const (
	EvtRoundStarted       EventType = "RoundStarted"
	EvtAnswerRecorded     EventType = "AnswerRecorded"
	EvtRoundWon           EventType = "RoundWon"
	EvtRoundResolved      EventType = "RoundResolved"
	EvtParticipantRemoved EventType = "ParticipantRemoved"
	EvtWinnerCleared      EventType = "WinnerCleared"
)

type Event struct {
	Type     EventType
	PlayerID string
	Correct  bool
}

/*
	CmdStart        -> EvtRoundStarted
	CmdAnswer       -> EvtAnswerRecorded [-> EvtRoundWon] [-> EvtRoundResolved]
	CmdRemovePlayer -> EvtParticipantRemoved [-> EvtWinnerCleared] [-> EvtRoundResolved]
	CmdClearPlayers -> EvtRoundResolved (when a round exists)

	Apply never mutates s. On error the returned state is s unchanged, so the caller
	can persist side effects first and commit the new state only when they succeed.
*/

func Apply(s State, cmd Command, now time.Time) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStart:
		return start(s, cmd, now)
	case CmdAnswer:
		return answer(s, cmd, now)
	case CmdRemovePlayer:
		return removePlayer(s, cmd, now)
	case CmdClearPlayers:
		return clearPlayers(s)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func start(s State, cmd Command, now time.Time) ([]Event, State, error) {
	if !ValidDuration(cmd.DurationSec) {
		return nil, s, ErrInvalidDuration
	}
	if s.Current != nil && !s.Current.IsResolved(now) {
		return nil, s, ErrRoundActive
	}
	if len(cmd.Participants) == 0 {
		return nil, s, ErrNoParticipants
	}

	participants := make(map[string]bool, len(cmd.Participants))
	for _, id := range cmd.Participants {
		participants[id] = true
	}

	newState := State{
		Current: &Round{
			Payload:      cmd.Payload,
			DurationSec:  cmd.DurationSec,
			StartedAt:    now,
			Participants: participants,
			Answered:     map[string]bool{},
		},
		Number: s.Number + 1,
	}
	return []Event{{Type: EvtRoundStarted}}, newState, nil
}

func answer(s State, cmd Command, now time.Time) ([]Event, State, error) {
	cur := s.Current
	if cur == nil {
		return nil, s, ErrNoRound
	}
	if !cur.Participants[cmd.PlayerID] {
		return nil, s, ErrLateJoiner
	}
	if cur.IsExpired(now) {
		return nil, s, ErrExpired
	}
	if cur.IsResolved(now) {
		return nil, s, ErrAlreadyResolved
	}
	title := strings.TrimSpace(cmd.Answer)
	if title == "" {
		return nil, s, ErrBlankAnswer
	}
	if cur.Answered[cmd.PlayerID] {
		return nil, s, ErrAlreadyAnswered
	}

	// Exact, case-sensitive match. No fuzzy matching.
	correct := title == cur.CorrectTitle

	next := cur.clone()
	next.Answered[cmd.PlayerID] = true
	events := []Event{{Type: EvtAnswerRecorded, PlayerID: cmd.PlayerID, Correct: correct}}

	if correct && next.WinnerID == "" {
		next.WinnerID = cmd.PlayerID
		events = append(events, Event{Type: EvtRoundWon, PlayerID: cmd.PlayerID})
	}
	if next.IsResolved(now) {
		events = append(events, Event{Type: EvtRoundResolved})
	}

	return events, State{Current: next, Number: s.Number}, nil
}

func removePlayer(s State, cmd Command, now time.Time) ([]Event, State, error) {
	cur := s.Current
	if cur == nil {
		return nil, s, nil
	}
	if !cur.Participants[cmd.PlayerID] && !cur.Answered[cmd.PlayerID] && cur.WinnerID != cmd.PlayerID {
		return nil, s, nil
	}

	wasResolved := cur.IsResolved(now)
	next := cur.clone()
	delete(next.Participants, cmd.PlayerID)
	delete(next.Answered, cmd.PlayerID)
	events := []Event{{Type: EvtParticipantRemoved, PlayerID: cmd.PlayerID}}

	if next.WinnerID == cmd.PlayerID {
		next.WinnerID = ""
		events = append(events, Event{Type: EvtWinnerCleared, PlayerID: cmd.PlayerID})
	}
	if !wasResolved && next.IsResolved(now) {
		events = append(events, Event{Type: EvtRoundResolved})
	}

	return events, State{Current: next, Number: s.Number}, nil
}

func clearPlayers(s State) ([]Event, State, error) {
	if s.Current == nil {
		return nil, s, nil
	}
	next := s.Current.clone()
	clear(next.Participants)
	clear(next.Answered)
	next.WinnerID = ""
	return []Event{{Type: EvtRoundResolved}}, State{Current: next, Number: s.Number}, nil
}
