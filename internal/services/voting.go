package services

import (
	"fmt"
	"time"

	"github.com/manimovassagh/planning-poker/internal/apperr"
	"github.com/manimovassagh/planning-poker/internal/models"
	"github.com/manimovassagh/planning-poker/internal/stats"

	"gorm.io/gorm"
)

// VotingService owns the per-story state machine
// (pending -> voting <-> revealed -> final) and the vote ledger of each
// round: one stored value per (round, participant), overwrite while open,
// frozen at reveal.
type VotingService struct {
	db *gorm.DB
}

func NewVotingService(db *gorm.DB) *VotingService {
	return &VotingService{db: db}
}

type RoundInfo struct {
	RoomID   uint `json:"-"`
	StoryID  uint `json:"story_id"`
	RoundID  uint `json:"round_id"`
	RoundNum int  `json:"round_num"`
}

type VoteResult struct {
	RoomID   uint
	UserID   uint
	AllVoted bool
}

type RevealResult struct {
	RoomID  uint
	RoundID uint
	Votes   []models.Vote
	Stats   stats.VoteStats
}

// StartVoting opens a new round for the story. Round numbers increase by
// one per opened round and are never reused, even across re-votes.
func (s *VotingService) StartVoting(storyID, userID uint) (*RoundInfo, error) {
	story, room, err := s.storyWithRoom(storyID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the facilitator can start voting", apperr.ErrForbidden)
	}
	if story.Status == models.StoryStatusVoting {
		return nil, fmt.Errorf("%w: story already has an open round", apperr.ErrInvalidState)
	}

	var round models.VotingRound
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var roundCount int64
		if err := tx.Model(&models.VotingRound{}).Where("story_id = ?", storyID).
			Count(&roundCount).Error; err != nil {
			return err
		}

		round = models.VotingRound{
			StoryID:   storyID,
			RoundNum:  int(roundCount) + 1,
			StartedAt: time.Now(),
		}
		if err := tx.Create(&round).Error; err != nil {
			return err
		}

		return tx.Model(story).Update("status", models.StoryStatusVoting).Error
	})
	if err != nil {
		return nil, err
	}

	return &RoundInfo{
		RoomID:   room.ID,
		StoryID:  storyID,
		RoundID:  round.ID,
		RoundNum: round.RoundNum,
	}, nil
}

// SubmitVote upserts the participant's vote while the round is open. A
// closed round rejects the write. Retried submissions are idempotent by
// construction.
func (s *VotingService) SubmitVote(roundID, userID uint, value string) (*VoteResult, error) {
	var round models.VotingRound
	if err := s.db.First(&round, roundID).Error; err != nil {
		return nil, fmt.Errorf("%w: round", apperr.ErrNotFound)
	}
	if round.RevealedAt != nil {
		return nil, fmt.Errorf("%w: round already revealed", apperr.ErrInvalidState)
	}

	story, room, err := s.storyWithRoom(round.StoryID)
	if err != nil {
		return nil, err
	}

	var membership int64
	s.db.Model(&models.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", room.ID, userID).
		Count(&membership)
	if membership == 0 {
		return nil, fmt.Errorf("%w: not a participant of this room", apperr.ErrForbidden)
	}

	var existing models.Vote
	if err := s.db.Where("round_id = ? AND user_id = ?", roundID, userID).
		First(&existing).Error; err == nil {
		if err := s.db.Model(&existing).Update("value", value).Error; err != nil {
			return nil, err
		}
	} else {
		vote := models.Vote{
			RoundID: roundID,
			StoryID: story.ID,
			UserID:  userID,
			Value:   value,
		}
		if err := s.db.Create(&vote).Error; err != nil {
			return nil, err
		}
	}

	allVoted, err := s.allVoted(roundID, room.ID)
	if err != nil {
		return nil, err
	}

	return &VoteResult{RoomID: room.ID, UserID: userID, AllVoted: allVoted}, nil
}

// Reveal closes the round, freezes the ledger and computes the round's
// statistics. A second reveal of the same round is rejected so stats are
// derived exactly once.
func (s *VotingService) Reveal(roundID, userID uint) (*RevealResult, error) {
	var round models.VotingRound
	if err := s.db.First(&round, roundID).Error; err != nil {
		return nil, fmt.Errorf("%w: round", apperr.ErrNotFound)
	}

	story, room, err := s.storyWithRoom(round.StoryID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the facilitator can reveal votes", apperr.ErrForbidden)
	}
	if round.RevealedAt != nil {
		return nil, fmt.Errorf("%w: round already revealed", apperr.ErrInvalidState)
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&round).Update("revealed_at", &now).Error; err != nil {
			return err
		}
		return tx.Model(story).Update("status", models.StoryStatusRevealed).Error
	})
	if err != nil {
		return nil, err
	}

	votes, err := s.allVotes(roundID)
	if err != nil {
		return nil, err
	}

	values := make([]string, len(votes))
	for i, v := range votes {
		values[i] = v.Value
	}

	return &RevealResult{
		RoomID:  room.ID,
		RoundID: roundID,
		Votes:   votes,
		Stats:   stats.Compute(values),
	}, nil
}

// StartRevote opens the next round from a revealed (or finalized) story.
// Same mechanics as StartVoting; the distinction only matters for the
// broadcast event kind.
func (s *VotingService) StartRevote(storyID, userID uint) (*RoundInfo, error) {
	return s.StartVoting(storyID, userID)
}

// SetFinal records the accepted estimate. A prior reveal is the usual path
// but is not required; the facilitator may settle a story directly.
func (s *VotingService) SetFinal(storyID, userID uint, value string) (*models.Story, error) {
	story, room, err := s.storyWithRoom(storyID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the facilitator can set the final estimate", apperr.ErrForbidden)
	}

	story.Status = models.StoryStatusFinal
	story.FinalEstimate = value
	if err := s.db.Save(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

// CountVotes reports how many votes the round's ledger holds.
func (s *VotingService) CountVotes(roundID uint) (int, error) {
	var count int64
	err := s.db.Model(&models.Vote{}).Where("round_id = ?", roundID).Count(&count).Error
	return int(count), err
}

// allVotes exposes vote values and must only be called at or after reveal.
func (s *VotingService) allVotes(roundID uint) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.Preload("User").
		Where("round_id = ?", roundID).
		Order("created_at ASC").
		Find(&votes).Error
	return votes, err
}

// allVoted checks the one-vote-per-eligible-voter condition: participants
// with the voter role, plus the facilitator if one holds a membership.
func (s *VotingService) allVoted(roundID, roomID uint) (bool, error) {
	var voters int64
	if err := s.db.Model(&models.RoomParticipant{}).
		Where("room_id = ? AND role = ?", roomID, models.RoleVoter).
		Count(&voters).Error; err != nil {
		return false, err
	}

	var facilitators int64
	if err := s.db.Model(&models.RoomParticipant{}).
		Where("room_id = ? AND role = ?", roomID, models.RoleFacilitator).
		Count(&facilitators).Error; err != nil {
		return false, err
	}

	eligible := voters
	if facilitators > 0 {
		eligible++
	}

	var voteCount int64
	if err := s.db.Model(&models.Vote{}).Where("round_id = ?", roundID).
		Count(&voteCount).Error; err != nil {
		return false, err
	}

	return eligible > 0 && voteCount >= eligible, nil
}

func (s *VotingService) storyWithRoom(storyID uint) (*models.Story, *models.Room, error) {
	var story models.Story
	if err := s.db.First(&story, storyID).Error; err != nil {
		return nil, nil, fmt.Errorf("%w: story", apperr.ErrNotFound)
	}
	var room models.Room
	if err := s.db.First(&room, story.RoomID).Error; err != nil {
		return nil, nil, fmt.Errorf("%w: room", apperr.ErrNotFound)
	}
	return &story, &room, nil
}
