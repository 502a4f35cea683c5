package handlers

import (
	"net/http"
	"strconv"

	"github.com/manimovassagh/planning-poker/internal/services"

	"github.com/gin-gonic/gin"
)

// HistoryHandler serves completed-session replay: membership and votes are
// never deleted, so past rounds remain readable after a room ends.
type HistoryHandler struct {
	roomService  *services.RoomService
	storyService *services.StoryService
}

func NewHistoryHandler(roomService *services.RoomService, storyService *services.StoryService) *HistoryHandler {
	return &HistoryHandler{roomService: roomService, storyService: storyService}
}

func (h *HistoryHandler) ListCompletedRooms(c *gin.Context) {
	userID := c.GetUint("user_id")
	rooms, err := h.roomService.ListCompletedRooms(userID)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *HistoryHandler) GetStoryHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	stories, err := h.storyService.ListStoriesWithHistory(uint(roomID), userID)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stories": stories})
}
