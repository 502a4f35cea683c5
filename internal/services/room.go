package services

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/manimovassagh/planning-poker/internal/apperr"
	"github.com/manimovassagh/planning-poker/internal/models"

	"gorm.io/gorm"
)

// No I, O, 0 or 1, so codes stay unambiguous when read aloud.
const roomCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	roomCodeLength   = 6
	roomCodeAttempts = 10
)

type RoomService struct {
	db *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

// CreateRoom creates the room and the creator's facilitator membership in
// one transaction. The facilitator role is fixed here and never reassigned.
func (s *RoomService) CreateRoom(ownerID uint, name, cardScale string) (*models.Room, error) {
	if _, ok := models.CardScales[cardScale]; !ok {
		return nil, fmt.Errorf("%w: unknown card scale %q", apperr.ErrValidation, cardScale)
	}

	code, err := s.generateUniqueCode()
	if err != nil {
		return nil, err
	}

	room := models.Room{
		Name:      name,
		Code:      code,
		OwnerID:   ownerID,
		Status:    models.RoomStatusActive,
		CardScale: cardScale,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		participant := models.RoomParticipant{
			RoomID:   room.ID,
			UserID:   ownerID,
			Role:     models.RoleFacilitator,
			JoinedAt: time.Now(),
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		return nil, err
	}

	return &room, nil
}

func (s *RoomService) GetRoom(roomID uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return nil, fmt.Errorf("%w: room", apperr.ErrNotFound)
	}
	return &room, nil
}

// GetRoomForUser hydrates a room with participants and ordered stories.
// Only members may read it.
func (s *RoomService) GetRoomForUser(roomID, userID uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		Preload("Participants.User").
		Preload("Stories", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&room, roomID).Error; err != nil {
		return nil, fmt.Errorf("%w: room", apperr.ErrNotFound)
	}

	if !s.IsParticipant(roomID, userID) {
		return nil, fmt.Errorf("%w: not a participant of this room", apperr.ErrForbidden)
	}

	return &room, nil
}

func (s *RoomService) GetRoomByCode(code string) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("code = ?", strings.ToUpper(code)).First(&room).Error; err != nil {
		return nil, fmt.Errorf("%w: room", apperr.ErrNotFound)
	}
	return &room, nil
}

func (s *RoomService) ListUserRooms(userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.
		Joins("JOIN room_participants ON room_participants.room_id = rooms.id").
		Where("room_participants.user_id = ?", userID).
		Order("rooms.updated_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (s *RoomService) ListCompletedRooms(userID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.
		Joins("JOIN room_participants ON room_participants.room_id = rooms.id").
		Where("room_participants.user_id = ? AND rooms.status = ?", userID, models.RoomStatusCompleted).
		Order("rooms.updated_at DESC").
		Limit(50).
		Find(&rooms).Error
	return rooms, err
}

// Join is idempotent: an existing membership is returned unchanged, a new
// one is created with the voter role. Rooms that are gone or no longer
// active reject the join.
func (s *RoomService) Join(roomID, userID uint) (*models.RoomParticipant, error) {
	var room models.Room
	if err := s.db.Where("id = ? AND status = ?", roomID, models.RoomStatusActive).
		First(&room).Error; err != nil {
		return nil, fmt.Errorf("%w: room", apperr.ErrNotFound)
	}

	var existing models.RoomParticipant
	if err := s.db.Preload("User").
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&existing).Error; err == nil {
		return &existing, nil
	}

	participant := models.RoomParticipant{
		RoomID:   roomID,
		UserID:   userID,
		Role:     models.RoleVoter,
		JoinedAt: time.Now(),
	}
	if err := s.db.Create(&participant).Error; err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	s.db.Preload("User").First(&participant, participant.ID)
	return &participant, nil
}

func (s *RoomService) UpdateRoom(roomID, userID uint, name string) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return nil, fmt.Errorf("%w: room", apperr.ErrNotFound)
	}
	if room.OwnerID != userID {
		return nil, fmt.Errorf("%w: only the facilitator can update the room", apperr.ErrForbidden)
	}

	room.Name = name
	if err := s.db.Save(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteRoom removes the room and everything under it.
func (s *RoomService) DeleteRoom(roomID, userID uint) error {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return fmt.Errorf("%w: room", apperr.ErrNotFound)
	}
	if room.OwnerID != userID {
		return fmt.Errorf("%w: only the facilitator can delete the room", apperr.ErrForbidden)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var storyIDs []uint
		if err := tx.Model(&models.Story{}).Where("room_id = ?", roomID).
			Pluck("id", &storyIDs).Error; err != nil {
			return err
		}
		if len(storyIDs) > 0 {
			if err := tx.Where("story_id IN ?", storyIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
			if err := tx.Where("story_id IN ?", storyIDs).Delete(&models.VotingRound{}).Error; err != nil {
				return err
			}
			if err := tx.Where("room_id = ?", roomID).Delete(&models.Story{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.RoomParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
}

// EndSession completes an active room. The transition is one-way and
// owner-only.
func (s *RoomService) EndSession(roomID, userID uint) error {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return fmt.Errorf("%w: room", apperr.ErrNotFound)
	}
	if room.OwnerID != userID {
		return fmt.Errorf("%w: only the facilitator can end the session", apperr.ErrForbidden)
	}
	if room.Status != models.RoomStatusActive {
		return fmt.Errorf("%w: room already completed", apperr.ErrInvalidState)
	}

	room.Status = models.RoomStatusCompleted
	return s.db.Save(&room).Error
}

func (s *RoomService) IsFacilitator(roomID, userID uint) bool {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return false
	}
	return room.OwnerID == userID
}

func (s *RoomService) IsParticipant(roomID, userID uint) bool {
	var count int64
	s.db.Model(&models.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count)
	return count > 0
}

func (s *RoomService) ListParticipants(roomID uint) ([]models.RoomParticipant, error) {
	var participants []models.RoomParticipant
	err := s.db.Preload("User").
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

func (s *RoomService) generateUniqueCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		code := make([]byte, roomCodeLength)
		for i, b := range buf {
			code[i] = roomCodeCharset[int(b)%len(roomCodeCharset)]
		}

		var count int64
		s.db.Model(&models.Room{}).Where("code = ?", string(code)).Count(&count)
		if count == 0 {
			return string(code), nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique room code", apperr.ErrConflict)
}
