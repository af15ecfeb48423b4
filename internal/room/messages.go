package room

import (
	"math/rand/v2"

	"github.com/DoyleJ11/op-quiz-backend/pkg/types"
)

type msg interface{ isRoomMsg() }

type reply[T any] struct {
	val T
	err error
}

type joinMsg struct {
	name  string
	reply chan reply[types.JoinResponse]
}

type stateMsg struct {
	playerID string
	reply    chan reply[types.RoomState]
}

type nextRoundMsg struct {
	playerID string
	duration *int
	reply    chan reply[types.NextRoundResponse]
}

type answerMsg struct {
	playerID, title string
	reply           chan reply[types.AnswerResponse]
}

type resetScoresMsg struct {
	playerID string
	reply    chan reply[[]types.ScoreEntry]
}

type leaveMsg struct {
	playerID string
	reply    chan reply[struct{}]
}

type wipeMsg struct {
	reply chan reply[struct{}]
}

type forkRandMsg struct {
	reply chan reply[*rand.Rand]
}

func (joinMsg) isRoomMsg()        {}
func (stateMsg) isRoomMsg()       {}
func (nextRoundMsg) isRoomMsg()   {}
func (answerMsg) isRoomMsg()      {}
func (resetScoresMsg) isRoomMsg() {}
func (leaveMsg) isRoomMsg()       {}
func (wipeMsg) isRoomMsg()        {}
func (forkRandMsg) isRoomMsg()    {}
