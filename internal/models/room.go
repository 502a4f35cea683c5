package models

import "time"

type Room struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"size:100;not null" json:"name"`
	Code         string            `gorm:"size:6;uniqueIndex;not null" json:"code"`
	OwnerID      uint              `gorm:"not null;index" json:"owner_id"`
	Owner        User              `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Status       string            `gorm:"size:20;not null;default:'active'" json:"status"`
	CardScale    string            `gorm:"size:20;not null;default:'fibonacci'" json:"card_scale"`
	Participants []RoomParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
	Stories      []Story           `gorm:"foreignKey:RoomID" json:"stories,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

const (
	RoomStatusActive    = "active"
	RoomStatusCompleted = "completed"

	RoleFacilitator = "facilitator"
	RoleVoter       = "voter"
	RoleObserver    = "observer"
)

// CardScales maps a scale name to its card deck. Votes are stored as the
// literal card string, so decks may mix numeric and categorical values.
var CardScales = map[string][]string{
	"fibonacci": {"0", "1", "2", "3", "5", "8", "13", "21", "34", "?"},
	"tshirt":    {"XS", "S", "M", "L", "XL", "?"},
	"powers":    {"1", "2", "4", "8", "16", "32", "?"},
}

type RoomParticipant struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	RoomID   uint      `gorm:"not null;uniqueIndex:idx_room_user" json:"room_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_room_user" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Role     string    `gorm:"size:20;not null;default:'voter'" json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
