package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/AbhigyanRaj/TruCare/internal/services"
)

type assistantApplicationService interface {
	RuleReply(message string) string
	AIReply(ctx context.Context, history []services.AITurn) (string, error)
}

type AssistantHandler struct {
	service assistantApplicationService
}

func NewAssistantHandler(service assistantApplicationService) *AssistantHandler {
	return &AssistantHandler{service: service}
}

type quickReplyRequest struct {
	Message string `json:"message"`
}

type aiReplyRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// QuickReply is the on-device-style pattern responder: no model call, a
// deterministic canned answer per topic.
func (h *AssistantHandler) QuickReply(c *fiber.Ctx) error {
	if _, _, ok := requireChatActor(c); !ok {
		return nil
	}

	var req quickReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message is required"})
	}

	return c.JSON(fiber.Map{"reply": h.service.RuleReply(req.Message)})
}

// AIReply forwards the conversation history to the language model behind a
// therapist system prompt. The last entry must be the user's new message.
func (h *AssistantHandler) AIReply(c *fiber.Ctx) error {
	if _, _, ok := requireChatActor(c); !ok {
		return nil
	}

	var req aiReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Messages are required"})
	}

	history := make([]services.AITurn, 0, len(req.Messages))
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		history = append(history, services.AITurn{Role: m.Role, Content: m.Content})
	}
	if len(history) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Messages are required"})
	}

	reply, err := h.service.AIReply(c.Context(), history)
	if err != nil {
		// The service already substituted a safe fallback reply; surface it
		// instead of an error so the client chat never dead-ends.
		return c.JSON(fiber.Map{"reply": reply, "degraded": true})
	}
	return c.JSON(fiber.Map{"reply": reply})
}
