package routes

import (
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AbhigyanRaj/TruCare/internal/chat"
	"github.com/AbhigyanRaj/TruCare/internal/config"
	"github.com/AbhigyanRaj/TruCare/internal/handlers"
	"github.com/AbhigyanRaj/TruCare/internal/middleware"
	"github.com/AbhigyanRaj/TruCare/internal/repository"
	"github.com/AbhigyanRaj/TruCare/internal/services"
	chatws "github.com/AbhigyanRaj/TruCare/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	scheduledSessionRepo := repository.NewScheduledSessionRepository(db)
	reportRepo := repository.NewChatReportRepository(db)
	moodRepo := repository.NewMoodRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)

	broker := chat.NewBroker()
	chatService := services.NewChatService(conversationRepo, messageRepo, scheduledSessionRepo, userRepo, broker)
	reportService := services.NewReportService(reportRepo, conversationRepo, messageRepo, userRepo)
	liveSessions := services.NewLiveSessionManager(
		chatService,
		reportService,
		time.Duration(cfg.SessionDurationMin)*time.Minute,
	)
	sessionService := services.NewSessionService(scheduledSessionRepo, userRepo)
	assistantService := services.NewAssistantService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	wellnessService := services.NewWellnessService(moodRepo, assessmentRepo)

	chatHub := chatws.NewHub()
	go chatHub.Run()

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	chatHandler := handlers.NewChatHandler(chatService, liveSessions, chatHub, broker, cfg.JWTSecret)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	reportHandler := handlers.NewReportHandler(reportService)
	assistantHandler := handlers.NewAssistantHandler(assistantService)
	wellnessHandler := handlers.NewWellnessHandler(wellnessService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	users := authProtected.Group("/users")
	users.Get("/roster", authHandler.ListRoster)

	conversations := authProtected.Group("/conversations")
	conversations.Get("", chatHandler.ListConversations)
	conversations.Post("/open", chatHandler.OpenConversation)
	conversations.Get("/:id/messages", chatHandler.GetMessages)
	conversations.Post("/:id/messages", chatHandler.SendMessage)
	conversations.Post("/:id/read", chatHandler.MarkRead)
	conversations.Get("/:id/session", chatHandler.SessionState)
	conversations.Post("/:id/session/start", chatHandler.StartSession)
	conversations.Post("/:id/session/end", chatHandler.EndSession)
	conversations.Post("/:id/session/dismiss", chatHandler.DismissSession)

	sessions := authProtected.Group("/sessions")
	sessions.Post("", sessionHandler.ScheduleSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id/status", sessionHandler.UpdateSession)

	reports := authProtected.Group("/reports")
	reports.Get("/patient/:patientId", reportHandler.ListPatientReports)
	reports.Get("/:id", reportHandler.GetReport)

	assistant := authProtected.Group("/assistant")
	assistant.Post("/message", assistantHandler.QuickReply)
	assistant.Post("/ai", assistantHandler.AIReply)

	wellness := authProtected.Group("/wellness")
	wellness.Post("/mood", wellnessHandler.LogMood)
	wellness.Get("/mood", wellnessHandler.MoodHistory)
	wellness.Post("/assessments", wellnessHandler.SubmitAssessment)
	wellness.Get("/assessments/:userId", wellnessHandler.ListAssessments)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))
}
