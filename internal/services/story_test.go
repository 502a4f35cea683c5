package services

import (
	"errors"
	"testing"

	"github.com/manimovassagh/planning-poker/internal/apperr"
	"github.com/manimovassagh/planning-poker/internal/models"
)

func TestCreateStoryAssignsOrder(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice")
	room := createTestRoom(t, db, owner.ID)
	svc := NewStoryService(db)

	for i, title := range []string{"Checkout flow", "Search filters", "Bulk export"} {
		story, err := svc.CreateStory(room.ID, owner.ID, title, "")
		if err != nil {
			t.Fatalf("CreateStory %q: %v", title, err)
		}
		if story.SortOrder != i+1 {
			t.Errorf("%q sort order = %d, want %d", title, story.SortOrder, i+1)
		}
		if story.Status != models.StoryStatusPending {
			t.Errorf("%q status = %q, want pending", title, story.Status)
		}
	}
}

func TestCreateStoryNonFacilitator(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice")
	voter := createTestUser(t, db, "bob")
	room := createTestRoom(t, db, owner.ID)
	svc := NewStoryService(db)

	if _, err := NewRoomService(db).Join(room.ID, voter.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if _, err := svc.CreateStory(room.ID, voter.ID, "Checkout flow", ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestListStoriesMembersOnly(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice")
	outsider := createTestUser(t, db, "mallory")
	room := createTestRoom(t, db, owner.ID)
	svc := NewStoryService(db)

	if _, err := svc.CreateStory(room.ID, owner.ID, "Checkout flow", ""); err != nil {
		t.Fatalf("CreateStory: %v", err)
	}

	stories, err := svc.ListStories(room.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListStories as member: %v", err)
	}
	if len(stories) != 1 {
		t.Errorf("story count = %d, want 1", len(stories))
	}

	if _, err := svc.ListStories(room.ID, outsider.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("outsider list: err = %v, want ErrForbidden", err)
	}
}

func TestUpdateStoryPartialFields(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice")
	room := createTestRoom(t, db, owner.ID)
	svc := NewStoryService(db)

	story, _ := svc.CreateStory(room.ID, owner.ID, "Checkout flow", "old description")

	title := "Checkout flow v2"
	updated, err := svc.UpdateStory(story.ID, owner.ID, &title, nil)
	if err != nil {
		t.Fatalf("UpdateStory: %v", err)
	}
	if updated.Title != "Checkout flow v2" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.Description != "old description" {
		t.Errorf("description changed unexpectedly: %q", updated.Description)
	}
}

func TestDeleteStoryCascades(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice")
	room := createTestRoom(t, db, owner.ID)
	stories := NewStoryService(db)
	voting := NewVotingService(db)

	story, _ := stories.CreateStory(room.ID, owner.ID, "Checkout flow", "")
	keeper, _ := stories.CreateStory(room.ID, owner.ID, "Search filters", "")

	round, err := voting.StartVoting(story.ID, owner.ID)
	if err != nil {
		t.Fatalf("StartVoting: %v", err)
	}
	if _, err := voting.SubmitVote(round.RoundID, owner.ID, "5"); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}

	if err := stories.DeleteStory(story.ID, owner.ID); err != nil {
		t.Fatalf("DeleteStory: %v", err)
	}

	var rounds, votes int64
	db.Model(&models.VotingRound{}).Where("story_id = ?", story.ID).Count(&rounds)
	db.Model(&models.Vote{}).Where("story_id = ?", story.ID).Count(&votes)
	if rounds != 0 || votes != 0 {
		t.Errorf("rounds = %d, votes = %d after delete, want 0 each", rounds, votes)
	}

	if _, err := stories.GetStory(story.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted story lookup: err = %v, want ErrNotFound", err)
	}
	if _, err := stories.GetStory(keeper.ID); err != nil {
		t.Errorf("sibling story should survive: %v", err)
	}
}

func TestListStoriesWithHistory(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "alice")
	voter := createTestUser(t, db, "bob")
	room := createTestRoom(t, db, owner.ID)
	stories := NewStoryService(db)
	voting := NewVotingService(db)

	if _, err := NewRoomService(db).Join(room.ID, voter.ID); err != nil {
		t.Fatalf("Join: %v", err)
	}

	story, _ := stories.CreateStory(room.ID, owner.ID, "Checkout flow", "")

	// Two rounds: the first revealed, the second a revote.
	first, _ := voting.StartVoting(story.ID, owner.ID)
	if _, err := voting.SubmitVote(first.RoundID, owner.ID, "5"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := voting.SubmitVote(first.RoundID, voter.ID, "13"); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := voting.Reveal(first.RoundID, owner.ID); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	second, _ := voting.StartRevote(story.ID, owner.ID)
	if _, err := voting.SubmitVote(second.RoundID, voter.ID, "8"); err != nil {
		t.Fatalf("revote: %v", err)
	}

	loaded, err := stories.ListStoriesWithHistory(room.ID, owner.ID)
	if err != nil {
		t.Fatalf("ListStoriesWithHistory: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("story count = %d, want 1", len(loaded))
	}

	rounds := loaded[0].Rounds
	if len(rounds) != 2 {
		t.Fatalf("round count = %d, want 2", len(rounds))
	}
	if rounds[0].RoundNum != 1 || rounds[1].RoundNum != 2 {
		t.Errorf("rounds out of order: %d, %d", rounds[0].RoundNum, rounds[1].RoundNum)
	}
	if len(rounds[0].Votes) != 2 {
		t.Errorf("round 1 votes = %d, want 2", len(rounds[0].Votes))
	}
	if len(rounds[1].Votes) != 1 {
		t.Errorf("round 2 votes = %d, want 1", len(rounds[1].Votes))
	}
	if rounds[0].Votes[0].User.DisplayName == "" {
		t.Error("vote user not hydrated")
	}
}
