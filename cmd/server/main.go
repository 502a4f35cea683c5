package main

import (
	"log"

	"github.com/manimovassagh/planning-poker/internal/config"
	"github.com/manimovassagh/planning-poker/internal/database"
	"github.com/manimovassagh/planning-poker/internal/handlers"
	"github.com/manimovassagh/planning-poker/internal/middleware"
	"github.com/manimovassagh/planning-poker/internal/realtime"
	"github.com/manimovassagh/planning-poker/internal/services"
	"github.com/manimovassagh/planning-poker/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()

	authService := services.NewAuthService(db, cfg.JWTSecret)
	roomService := services.NewRoomService(db)
	storyService := services.NewStoryService(db)
	votingService := services.NewVotingService(db)

	coordinator := realtime.NewCoordinator(roomService, storyService, votingService, hub)

	authHandler := handlers.NewAuthHandler(authService)
	roomHandler := handlers.NewRoomHandler(roomService)
	storyHandler := handlers.NewStoryHandler(coordinator, storyService)
	historyHandler := handlers.NewHistoryHandler(roomService, storyService)
	wsHandler := handlers.NewWSHandler(authService, coordinator, hub)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/ws", wsHandler.HandleWebSocket)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/me", middleware.JWTAuth(authService), authHandler.Me)
		}

		rooms := api.Group("/rooms")
		rooms.Use(middleware.JWTAuth(authService))
		{
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("", roomHandler.ListRooms)
			rooms.GET("/join/:code", roomHandler.GetRoomByCode)
			rooms.GET("/:id", roomHandler.GetRoom)
			rooms.POST("/:id/join", roomHandler.JoinRoom)
			rooms.PATCH("/:id", roomHandler.UpdateRoom)
			rooms.DELETE("/:id", roomHandler.DeleteRoom)

			rooms.POST("/:id/stories", storyHandler.CreateStory)
			rooms.GET("/:id/stories", storyHandler.ListStories)
			rooms.PATCH("/:id/stories/:storyId", storyHandler.UpdateStory)
			rooms.DELETE("/:id/stories/:storyId", storyHandler.DeleteStory)
		}

		history := api.Group("/history")
		history.Use(middleware.JWTAuth(authService))
		{
			history.GET("/rooms", historyHandler.ListCompletedRooms)
			history.GET("/rooms/:id/stories", historyHandler.GetStoryHistory)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
