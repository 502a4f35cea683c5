package models

import "time"

type Story struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	RoomID        uint          `gorm:"not null;index" json:"room_id"`
	Title         string        `gorm:"size:255;not null" json:"title"`
	Description   string        `gorm:"type:text" json:"description,omitempty"`
	Status        string        `gorm:"size:20;not null;default:'pending'" json:"status"`
	FinalEstimate string        `gorm:"size:20" json:"final_estimate,omitempty"`
	SortOrder     int           `gorm:"not null;default:0" json:"sort_order"`
	Rounds        []VotingRound `gorm:"foreignKey:StoryID" json:"rounds,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

const (
	StoryStatusPending  = "pending"
	StoryStatusVoting   = "voting"
	StoryStatusRevealed = "revealed"
	StoryStatusFinal    = "final"
)

// A round is open while RevealedAt is null and closed forever after.
type VotingRound struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	StoryID    uint       `gorm:"not null;uniqueIndex:idx_story_round" json:"story_id"`
	RoundNum   int        `gorm:"not null;uniqueIndex:idx_story_round" json:"round_num"`
	StartedAt  time.Time  `json:"started_at"`
	RevealedAt *time.Time `json:"revealed_at,omitempty"`
	Votes      []Vote     `gorm:"foreignKey:RoundID" json:"votes,omitempty"`
}

type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoundID   uint      `gorm:"not null;uniqueIndex:idx_round_user" json:"round_id"`
	StoryID   uint      `gorm:"not null;index" json:"story_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_round_user" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
	Value     string    `gorm:"size:20;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
}
