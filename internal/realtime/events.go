package realtime

import (
	"github.com/manimovassagh/planning-poker/internal/models"
	"github.com/manimovassagh/planning-poker/internal/stats"
)

// Event is an outbound broadcast payload. One struct per event kind; the
// transport serializes them as {"type": EventType(), "data": event}.
type Event interface {
	EventType() string
}

// Broadcaster is the room-scoped fan-out transport the coordinator
// publishes into. It never reads events back.
type Broadcaster interface {
	BroadcastToRoom(roomID uint, event Event)
	OnlineUsers(roomID uint) []uint
}

type UserJoinedEvent struct {
	User models.User `json:"user"`
	Role string      `json:"role"`
}

func (UserJoinedEvent) EventType() string { return "room:user_joined" }

type UserLeftEvent struct {
	UserID uint `json:"user_id"`
}

func (UserLeftEvent) EventType() string { return "room:user_left" }

// ParticipantsEvent hydrates a newly joined connection. It is sent only to
// that connection, never broadcast.
type ParticipantsEvent struct {
	Participants []models.RoomParticipant `json:"participants"`
}

func (ParticipantsEvent) EventType() string { return "room:participants" }

type SessionEndedEvent struct {
	RoomID uint `json:"room_id"`
}

func (SessionEndedEvent) EventType() string { return "room:session_ended" }

type PresenceEvent struct {
	OnlineUsers []uint `json:"online_users"`
}

func (PresenceEvent) EventType() string { return "presence:update" }

type StoryAddedEvent struct {
	Story models.Story `json:"story"`
}

func (StoryAddedEvent) EventType() string { return "story:added" }

type StoryUpdatedEvent struct {
	Story models.Story `json:"story"`
}

func (StoryUpdatedEvent) EventType() string { return "story:updated" }

type StoryDeletedEvent struct {
	StoryID uint `json:"story_id"`
}

func (StoryDeletedEvent) EventType() string { return "story:deleted" }

type VotingStartedEvent struct {
	StoryID  uint `json:"story_id"`
	RoundID  uint `json:"round_id"`
	RoundNum int  `json:"round_num"`
}

func (VotingStartedEvent) EventType() string { return "story:voting_started" }

type RevotingEvent struct {
	StoryID  uint `json:"story_id"`
	RoundID  uint `json:"round_id"`
	RoundNum int  `json:"round_num"`
}

func (RevotingEvent) EventType() string { return "story:revoting" }

// VoteSubmittedEvent deliberately carries no vote value: individual values
// stay private until reveal.
type VoteSubmittedEvent struct {
	UserID   uint `json:"user_id"`
	HasVoted bool `json:"has_voted"`
}

func (VoteSubmittedEvent) EventType() string { return "vote:submitted" }

// AllVotedEvent is a content-free signal prompting the facilitator to
// reveal.
type AllVotedEvent struct{}

func (AllVotedEvent) EventType() string { return "vote:all_in" }

type VotesRevealedEvent struct {
	RoundID uint            `json:"round_id"`
	Votes   []models.Vote   `json:"votes"`
	Stats   stats.VoteStats `json:"stats"`
}

func (VotesRevealedEvent) EventType() string { return "vote:revealed" }

type StoryFinalizedEvent struct {
	StoryID       uint   `json:"story_id"`
	FinalEstimate string `json:"final_estimate"`
}

func (StoryFinalizedEvent) EventType() string { return "story:finalized" }
