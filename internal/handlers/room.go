package handlers

import (
	"net/http"
	"strconv"

	"github.com/manimovassagh/planning-poker/internal/services"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService *services.RoomService
}

func NewRoomHandler(roomService *services.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

type CreateRoomRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	CardScale string `json:"card_scale" binding:"required"`
}

type UpdateRoomRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := c.GetUint("user_id")
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(userID, req.Name, req.CardScale)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room": room})
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := c.GetUint("user_id")
	rooms, err := h.roomService.ListUserRooms(userID)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	userID := c.GetUint("user_id")
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	room, err := h.roomService.GetRoomForUser(uint(roomID), userID)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

// GetRoomByCode resolves a join code to a room so a client can preview it
// before joining.
func (h *RoomHandler) GetRoomByCode(c *gin.Context) {
	room, err := h.roomService.GetRoomByCode(c.Param("code"))
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID := c.GetUint("user_id")
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	participant, err := h.roomService.Join(uint(roomID), userID)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	userID := c.GetUint("user_id")
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	var req UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	room, err := h.roomService.UpdateRoom(uint(roomID), userID, req.Name)
	if err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"room": room})
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID := c.GetUint("user_id")
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	if err := h.roomService.DeleteRoom(uint(roomID), userID); err != nil {
		c.JSON(errStatus(err), ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "room deleted"})
}
