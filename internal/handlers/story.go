package handlers

import (
	"net/http"
	"strconv"

	"github.com/manimovassagh/planning-poker/internal/realtime"
	"github.com/manimovassagh/planning-poker/internal/services"

	"github.com/gin-gonic/gin"
)

// StoryHandler routes story CRUD through the coordinator so REST mutations
// share the per-room ordering and broadcasts with the websocket actions.
type StoryHandler struct {
	coordinator  *realtime.Coordinator
	storyService *services.StoryService
}

func NewStoryHandler(coordinator *realtime.Coordinator, storyService *services.StoryService) *StoryHandler {
	return &StoryHandler{coordinator: coordinator, storyService: storyService}
}

type CreateStoryRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=2000"`
}

type UpdateStoryRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

func (h *StoryHandler) CreateStory(c *gin.Context) {
	userID := c.GetUint("user_id")
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	var req CreateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	story, err := h.coordinator.AddStory(uint(roomID), userID, req.Title, req.Description)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"story": story})
}

func (h *StoryHandler) ListStories(c *gin.Context) {
	userID := c.GetUint("user_id")
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	stories, err := h.storyService.ListStories(uint(roomID), userID)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

func (h *StoryHandler) UpdateStory(c *gin.Context) {
	userID := c.GetUint("user_id")
	storyID, err := strconv.ParseUint(c.Param("storyId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	var req UpdateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	story, err := h.coordinator.UpdateStory(uint(storyID), userID, req.Title, req.Description)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": story})
}

func (h *StoryHandler) DeleteStory(c *gin.Context) {
	userID := c.GetUint("user_id")
	storyID, err := strconv.ParseUint(c.Param("storyId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid story id"})
		return
	}

	if err := h.coordinator.DeleteStory(uint(storyID), userID); err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "story deleted"})
}
