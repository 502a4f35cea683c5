package services

import (
	"fmt"
	"testing"

	"github.com/manimovassagh/planning-poker/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A second pooled connection would get its own empty in-memory DB.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Room{},
		&models.RoomParticipant{},
		&models.Story{},
		&models.VotingRound{},
		&models.Vote{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()

	user := models.User{
		Email:        fmt.Sprintf("%s@example.com", name),
		DisplayName:  name,
		PasswordHash: "irrelevant",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", name, err)
	}
	return user
}

// createTestRoom creates a room owned by the given user, including the
// facilitator membership.
func createTestRoom(t *testing.T, db *gorm.DB, ownerID uint) *models.Room {
	t.Helper()

	room, err := NewRoomService(db).CreateRoom(ownerID, "Sprint 42", "fibonacci")
	if err != nil {
		t.Fatalf("failed to create room: %v", err)
	}
	return room
}
