// Package realtime orchestrates inbound participant actions: authority and
// membership checks, state mutation through the services, then broadcast of
// the resulting events to the room.
package realtime

import (
	"sync"

	"github.com/manimovassagh/planning-poker/internal/models"
	"github.com/manimovassagh/planning-poker/internal/services"
)

// Coordinator serializes actions per room: every handler acquires the
// room's mutex for its whole read-modify-write-broadcast sequence, so
// actions on the same room queue while different rooms proceed in
// parallel. Within a room, broadcasts therefore reach every connection in
// the order they were produced.
type Coordinator struct {
	rooms   *services.RoomService
	stories *services.StoryService
	voting  *services.VotingService
	hub     Broadcaster

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewCoordinator(rooms *services.RoomService, stories *services.StoryService, voting *services.VotingService, hub Broadcaster) *Coordinator {
	return &Coordinator{
		rooms:   rooms,
		stories: stories,
		voting:  voting,
		hub:     hub,
		locks:   make(map[uint]*sync.Mutex),
	}
}

func (c *Coordinator) lockRoom(roomID uint) func() {
	c.mu.Lock()
	l, ok := c.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[roomID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Join registers (or re-registers, idempotently) the identity as a room
// member, announces it, and returns the hydration events for the caller's
// own connection.
func (c *Coordinator) Join(roomID, userID uint) ([]Event, error) {
	defer c.lockRoom(roomID)()

	participant, err := c.rooms.Join(roomID, userID)
	if err != nil {
		return nil, err
	}

	c.hub.BroadcastToRoom(roomID, UserJoinedEvent{
		User: participant.User,
		Role: participant.Role,
	})
	c.hub.BroadcastToRoom(roomID, PresenceEvent{OnlineUsers: c.hub.OnlineUsers(roomID)})

	participants, err := c.rooms.ListParticipants(roomID)
	if err != nil {
		return nil, err
	}

	return []Event{ParticipantsEvent{Participants: participants}}, nil
}

// Leave announces that the identity's connection left the room. The
// membership record and any votes stay untouched.
func (c *Coordinator) Leave(roomID, userID uint) {
	defer c.lockRoom(roomID)()

	c.hub.BroadcastToRoom(roomID, UserLeftEvent{UserID: userID})
	c.hub.BroadcastToRoom(roomID, PresenceEvent{OnlineUsers: c.hub.OnlineUsers(roomID)})
}

func (c *Coordinator) EndSession(roomID, userID uint) error {
	defer c.lockRoom(roomID)()

	if err := c.rooms.EndSession(roomID, userID); err != nil {
		return err
	}

	c.hub.BroadcastToRoom(roomID, SessionEndedEvent{RoomID: roomID})
	return nil
}

func (c *Coordinator) AddStory(roomID, userID uint, title, description string) (*models.Story, error) {
	defer c.lockRoom(roomID)()

	story, err := c.stories.CreateStory(roomID, userID, title, description)
	if err != nil {
		return nil, err
	}

	c.hub.BroadcastToRoom(roomID, StoryAddedEvent{Story: *story})
	return story, nil
}

func (c *Coordinator) UpdateStory(storyID, userID uint, title, description *string) (*models.Story, error) {
	story, err := c.stories.GetStory(storyID)
	if err != nil {
		return nil, err
	}
	defer c.lockRoom(story.RoomID)()

	updated, err := c.stories.UpdateStory(storyID, userID, title, description)
	if err != nil {
		return nil, err
	}

	c.hub.BroadcastToRoom(updated.RoomID, StoryUpdatedEvent{Story: *updated})
	return updated, nil
}

func (c *Coordinator) DeleteStory(storyID, userID uint) error {
	story, err := c.stories.GetStory(storyID)
	if err != nil {
		return err
	}
	defer c.lockRoom(story.RoomID)()

	if err := c.stories.DeleteStory(storyID, userID); err != nil {
		return err
	}

	c.hub.BroadcastToRoom(story.RoomID, StoryDeletedEvent{StoryID: storyID})
	return nil
}

func (c *Coordinator) StartVoting(storyID, userID uint) error {
	story, err := c.stories.GetStory(storyID)
	if err != nil {
		return err
	}
	defer c.lockRoom(story.RoomID)()

	round, err := c.voting.StartVoting(storyID, userID)
	if err != nil {
		return err
	}

	c.hub.BroadcastToRoom(round.RoomID, VotingStartedEvent{
		StoryID:  round.StoryID,
		RoundID:  round.RoundID,
		RoundNum: round.RoundNum,
	})
	return nil
}

func (c *Coordinator) StartRevote(storyID, userID uint) error {
	story, err := c.stories.GetStory(storyID)
	if err != nil {
		return err
	}
	defer c.lockRoom(story.RoomID)()

	round, err := c.voting.StartRevote(storyID, userID)
	if err != nil {
		return err
	}

	c.hub.BroadcastToRoom(round.RoomID, RevotingEvent{
		StoryID:  round.StoryID,
		RoundID:  round.RoundID,
		RoundNum: round.RoundNum,
	})
	return nil
}

// SubmitVote records the vote and announces only the fact of voting. When
// the last eligible voter is in, the content-free all-in signal follows in
// the same critical section, so no reveal can interleave.
func (c *Coordinator) SubmitVote(storyID, roundID, userID uint, value string) error {
	story, err := c.stories.GetStory(storyID)
	if err != nil {
		return err
	}
	defer c.lockRoom(story.RoomID)()

	result, err := c.voting.SubmitVote(roundID, userID, value)
	if err != nil {
		return err
	}

	c.hub.BroadcastToRoom(result.RoomID, VoteSubmittedEvent{
		UserID:   result.UserID,
		HasVoted: true,
	})
	if result.AllVoted {
		c.hub.BroadcastToRoom(result.RoomID, AllVotedEvent{})
	}
	return nil
}

func (c *Coordinator) Reveal(storyID, roundID, userID uint) error {
	story, err := c.stories.GetStory(storyID)
	if err != nil {
		return err
	}
	defer c.lockRoom(story.RoomID)()

	result, err := c.voting.Reveal(roundID, userID)
	if err != nil {
		return err
	}

	c.hub.BroadcastToRoom(result.RoomID, VotesRevealedEvent{
		RoundID: result.RoundID,
		Votes:   result.Votes,
		Stats:   result.Stats,
	})
	return nil
}

func (c *Coordinator) SetFinal(storyID, userID uint, value string) error {
	story, err := c.stories.GetStory(storyID)
	if err != nil {
		return err
	}
	defer c.lockRoom(story.RoomID)()

	updated, err := c.voting.SetFinal(storyID, userID, value)
	if err != nil {
		return err
	}

	c.hub.BroadcastToRoom(updated.RoomID, StoryFinalizedEvent{
		StoryID:       updated.ID,
		FinalEstimate: updated.FinalEstimate,
	})
	return nil
}
