package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/chat"
	"github.com/matalai-travel/chat-backend/internal/genai"
	"github.com/matalai-travel/chat-backend/internal/store/models"
	"github.com/matalai-travel/chat-backend/pkg/logger"
)

type ChatRequest struct {
	Message string            `json:"message"`
	History []models.ChatTurn `json:"history"`
}

type ChatHandler struct {
	pipeline *chat.Pipeline
}

func NewChatHandler(pipeline *chat.Pipeline) *ChatHandler {
	return &ChatHandler{pipeline: pipeline}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "'message' is required and must be a non-empty string",
		})
	}

	response, err := h.pipeline.Process(c.Context(), chat.Request{
		Message: req.Message,
		History: req.History,
	})
	if err != nil {
		if errors.Is(err, genai.ErrUpstream) {
			logger.Error("Upstream generation service failure", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "The assistant is temporarily unavailable. Please try again shortly.",
			})
		}
		logger.Error("Failed to process chat message", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(fiber.Map{
		"reply":      response.Reply,
		"request_id": response.ID,
	})
}
