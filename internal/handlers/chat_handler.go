package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/chat"
	"github.com/AbhigyanRaj/TruCare/internal/models"
	"github.com/AbhigyanRaj/TruCare/internal/services"
	chatws "github.com/AbhigyanRaj/TruCare/internal/websocket"
	"github.com/AbhigyanRaj/TruCare/pkg/utils"
)

type chatApplicationService interface {
	ListConversations(ctx context.Context, actorID int64, role string) ([]models.Conversation, error)
	OpenConversation(ctx context.Context, actorID int64, role string, doctorID int64, patientID int64) (*models.Conversation, []models.ChatMessage, error)
	ListMessages(ctx context.Context, actorID int64, role string, conversationID string) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, actorID int64, role string, conversationID string, body string) (*models.ChatMessage, error)
	MarkConversationRead(ctx context.Context, actorID int64, role string, conversationID string) error
}

type liveSessionService interface {
	Start(ctx context.Context, actorID int64, role string, conversationID string) error
	End(ctx context.Context, actorID int64, role string, conversationID string) (*models.ChatReport, error)
	Close(conversationID string)
	State(conversationID string) services.SessionState
}

type ChatHandler struct {
	service   chatApplicationService
	live      liveSessionService
	hub       *chatws.Hub
	broker    *chat.Broker
	jwtSecret string
}

func NewChatHandler(
	service chatApplicationService,
	live liveSessionService,
	hub *chatws.Hub,
	broker *chat.Broker,
	jwtSecret string,
) *ChatHandler {
	return &ChatHandler{
		service:   service,
		live:      live,
		hub:       hub,
		broker:    broker,
		jwtSecret: jwtSecret,
	}
}

type openConversationRequest struct {
	DoctorID  int64 `json:"doctor_id"`
	PatientID int64 `json:"patient_id"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	conversations, err := h.service.ListConversations(c.Context(), userID, role)
	if err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

// OpenConversation creates the conversation on first open and marks it read
// for the caller. The caller supplies the pair; their own id must be one of
// the two.
func (h *ChatHandler) OpenConversation(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	var req openConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, messages, err := h.service.OpenConversation(c.Context(), userID, role, req.DoctorID, req.PatientID)
	if err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{
		"conversation": conversation,
		"messages":     messages,
	})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	conversationID := c.Params("id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	messages, err := h.service.ListMessages(c.Context(), userID, role, conversationID)
	if err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	message, err := h.service.SendMessage(c.Context(), userID, role, c.Params("id"), req.Body)
	if err != nil {
		return mapChatError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	if err := h.service.MarkConversationRead(c.Context(), userID, role, c.Params("id")); err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *ChatHandler) StartSession(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	if err := h.live.Start(c.Context(), userID, role, c.Params("id")); err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"state": h.live.State(c.Params("id"))})
}

// EndSession is the doctor's "Save & End": the transcript is archived to an
// immutable report before the live session is torn down.
func (h *ChatHandler) EndSession(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	report, err := h.live.End(c.Context(), userID, role, c.Params("id"))
	if err != nil {
		return mapChatError(c, err)
	}
	return c.JSON(fiber.Map{"report": report})
}

// DismissSession tears the live session down without archiving anything.
// The message log itself is untouched.
func (h *ChatHandler) DismissSession(c *fiber.Ctx) error {
	if _, _, ok := requireChatActor(c); !ok {
		return nil
	}

	h.live.Close(c.Params("id"))
	return c.JSON(fiber.Map{"state": h.live.State(c.Params("id"))})
}

func (h *ChatHandler) SessionState(c *fiber.Ctx) error {
	if _, _, ok := requireChatActor(c); !ok {
		return nil
	}
	return c.JSON(fiber.Map{"state": h.live.State(c.Params("id"))})
}

func (h *ChatHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userIDStr, _ := conn.Locals("user_id").(string)
	role, _ := conn.Locals("role").(string)
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		_ = conn.Close()
		return
	}

	client := chatws.NewClient(h.hub, conn, userID, role, h.broker)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service)
}

func (h *ChatHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

// requireChatActor pulls the authenticated chat participant out of the
// request context. When it returns false the error response has already
// been written.
func requireChatActor(c *fiber.Ctx) (int64, string, bool) {
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RolePatient && role != models.RoleDoctor) {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		return 0, "", false
	}
	userID, err := parseAuthUserID(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		return 0, "", false
	}
	return userID, role, true
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrDoctorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Doctor not found"})
	case errors.Is(err, services.ErrPatientNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Patient not found"})
	case errors.Is(err, services.ErrSessionAlreadyActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session already active"})
	case errors.Is(err, services.ErrSessionNotActive):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "No active session"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
