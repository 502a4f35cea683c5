package services

import (
	"fmt"

	"github.com/manimovassagh/planning-poker/internal/apperr"
	"github.com/manimovassagh/planning-poker/internal/models"

	"gorm.io/gorm"
)

type StoryService struct {
	db *gorm.DB
}

func NewStoryService(db *gorm.DB) *StoryService {
	return &StoryService{db: db}
}

func (s *StoryService) CreateStory(roomID, userID uint, title, description string) (*models.Story, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return nil, fmt.Errorf("%w: room", apperr.ErrNotFound)
	}
	if room.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the facilitator can add stories", apperr.ErrForbidden)
	}

	var maxOrder int
	s.db.Model(&models.Story{}).Where("room_id = ?", roomID).
		Select("COALESCE(MAX(sort_order), 0)").Scan(&maxOrder)

	story := models.Story{
		RoomID:      roomID,
		Title:       title,
		Description: description,
		Status:      models.StoryStatusPending,
		SortOrder:   maxOrder + 1,
	}
	if err := s.db.Create(&story).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

func (s *StoryService) GetStory(storyID uint) (*models.Story, error) {
	var story models.Story
	if err := s.db.First(&story, storyID).Error; err != nil {
		return nil, fmt.Errorf("%w: story", apperr.ErrNotFound)
	}
	return &story, nil
}

func (s *StoryService) ListStories(roomID, userID uint) ([]models.Story, error) {
	var count int64
	s.db.Model(&models.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count)
	if count == 0 {
		return nil, fmt.Errorf("%w: not a participant of this room", apperr.ErrForbidden)
	}

	var stories []models.Story
	err := s.db.Where("room_id = ?", roomID).Order("sort_order ASC").Find(&stories).Error
	return stories, err
}

// ListStoriesWithHistory loads every story with its rounds and their votes,
// for replay of completed sessions.
func (s *StoryService) ListStoriesWithHistory(roomID, userID uint) ([]models.Story, error) {
	var count int64
	s.db.Model(&models.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count)
	if count == 0 {
		return nil, fmt.Errorf("%w: not a participant of this room", apperr.ErrForbidden)
	}

	var stories []models.Story
	err := s.db.Where("room_id = ?", roomID).
		Order("sort_order ASC").
		Preload("Rounds", func(db *gorm.DB) *gorm.DB {
			return db.Order("round_num ASC")
		}).
		Preload("Rounds.Votes", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Rounds.Votes.User").
		Find(&stories).Error
	return stories, err
}

func (s *StoryService) UpdateStory(storyID, userID uint, title, description *string) (*models.Story, error) {
	story, room, err := s.storyWithRoom(storyID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the facilitator can update stories", apperr.ErrForbidden)
	}

	if title != nil {
		story.Title = *title
	}
	if description != nil {
		story.Description = *description
	}
	if err := s.db.Save(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}

// DeleteStory removes the story and cascades over its rounds and votes.
func (s *StoryService) DeleteStory(storyID, userID uint) error {
	story, room, err := s.storyWithRoom(storyID)
	if err != nil {
		return err
	}
	if room.OwnerID != userID {
		return fmt.Errorf("%w: only the facilitator can delete stories", apperr.ErrForbidden)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("story_id = ?", storyID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("story_id = ?", storyID).Delete(&models.VotingRound{}).Error; err != nil {
			return err
		}
		return tx.Delete(story).Error
	})
}

func (s *StoryService) storyWithRoom(storyID uint) (*models.Story, *models.Room, error) {
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
