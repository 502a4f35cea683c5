package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/manimovassagh/planning-poker/internal/realtime"
	"github.com/manimovassagh/planning-poker/internal/services"
	"github.com/manimovassagh/planning-poker/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	authService *services.AuthService
	coordinator *realtime.Coordinator
	hub         *ws.Hub
}

func NewWSHandler(authService *services.AuthService, coordinator *realtime.Coordinator, hub *ws.Hub) *WSHandler {
	return &WSHandler{authService: authService, coordinator: coordinator, hub: hub}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Inbound action envelope. Payloads are decoded per action type.
type wsRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type roomPayload struct {
	RoomID uint `json:"room_id"`
}

type storyPayload struct {
	StoryID uint `json:"story_id"`
}

type votePayload struct {
	StoryID uint   `json:"story_id"`
	RoundID uint   `json:"round_id"`
	Value   string `json:"value"`
}

type revealPayload struct {
	StoryID uint `json:"story_id"`
	RoundID uint `json:"round_id"`
}

type finalPayload struct {
	StoryID       uint   `json:"story_id"`
	FinalEstimate string `json:"final_estimate"`
}

// HandleWebSocket authenticates the connection, then serves its action
// loop until the peer goes away. A dropped connection leaves every joined
// room but deletes nothing.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	userID, err := h.authService.ValidateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(userID, conn)
	joined := make(map[uint]bool)

	defer func() {
		for roomID := range joined {
			h.hub.LeaveRoom(roomID, client)
			h.coordinator.Leave(roomID, client.UserID)
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.dispatch(client, joined, data)
	}
}

// dispatch runs one inbound action. Authority and state failures are
// dropped without disturbing the room; only the acting connection's fate
// is tied to its own messages.
func (h *WSHandler) dispatch(client *ws.Client, joined map[uint]bool, data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("ws: malformed message from client %s: %v", client.ID, err)
		return
	}

	switch req.Type {
	case "room:join":
		var p roomPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		h.hub.JoinRoom(p.RoomID, client)
		events, err := h.coordinator.Join(p.RoomID, client.UserID)
		if err != nil {
			h.hub.LeaveRoom(p.RoomID, client)
			log.Printf("ws: join room %d rejected for user %d: %v", p.RoomID, client.UserID, err)
			return
		}
		joined[p.RoomID] = true
		for _, e := range events {
			if err := client.Send(e); err != nil {
				return
			}
		}

	case "room:leave":
		var p roomPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		if !joined[p.RoomID] {
			return
		}
		delete(joined, p.RoomID)
		h.hub.LeaveRoom(p.RoomID, client)
		h.coordinator.Leave(p.RoomID, client.UserID)

	case "room:end_session":
		var p roomPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		if err := h.coordinator.EndSession(p.RoomID, client.UserID); err != nil {
			log.Printf("ws: end session room %d rejected for user %d: %v", p.RoomID, client.UserID, err)
		}

	case "story:start_voting":
		var p storyPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		if err := h.coordinator.StartVoting(p.StoryID, client.UserID); err != nil {
			log.Printf("ws: start voting story %d rejected for user %d: %v", p.StoryID, client.UserID, err)
		}

	case "vote:submit":
		var p votePayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		if err := h.coordinator.SubmitVote(p.StoryID, p.RoundID, client.UserID, p.Value); err != nil {
			log.Printf("ws: vote on round %d rejected for user %d: %v", p.RoundID, client.UserID, err)
		}

	case "vote:reveal":
		var p revealPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		if err := h.coordinator.Reveal(p.StoryID, p.RoundID, client.UserID); err != nil {
			log.Printf("ws: reveal round %d rejected for user %d: %v", p.RoundID, client.UserID, err)
		}

	case "story:start_revote":
		var p storyPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		if err := h.coordinator.StartRevote(p.StoryID, client.UserID); err != nil {
			log.Printf("ws: revote story %d rejected for user %d: %v", p.StoryID, client.UserID, err)
		}

	case "story:set_final":
		var p finalPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		if err := h.coordinator.SetFinal(p.StoryID, client.UserID, p.FinalEstimate); err != nil {
			log.Printf("ws: set final story %d rejected for user %d: %v", p.StoryID, client.UserID, err)
		}

	default:
		log.Printf("ws: unknown action %q from client %s", req.Type, client.ID)
	}
}
