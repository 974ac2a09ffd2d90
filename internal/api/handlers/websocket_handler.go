package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/chat"
	"github.com/matalai-travel/chat-backend/internal/genai"
	"github.com/matalai-travel/chat-backend/internal/store/models"
	"github.com/matalai-travel/chat-backend/pkg/logger"
)

// WebSocketHandler serves the chat widget over a persistent
// connection. Each inbound message is still a self-contained request
// (the widget sends its own history); the reply goes back whole, no
// token streaming.
type WebSocketHandler struct {
	pipeline *chat.Pipeline
}

func NewWebSocketHandler(pipeline *chat.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{pipeline: pipeline}
}

type wsMessage struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	History []models.ChatTurn `json:"history"`
}

// HandleConnection reads in a dedicated goroutine so a closed socket is
// noticed while a reply is still being generated; the connection
// context is cancelled on close and aborts any in-flight upstream call.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	msgs := make(chan wsMessage)
	go func() {
		defer close(msgs)
		for {
			var msg wsMessage
			if err := c.ReadJSON(&msg); err != nil {
				logger.Debug("WebSocket read ended", zap.Error(err))
				cancel()
				return
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range msgs {
		if msg.Type != "chat" {
			continue
		}

		msg.Message = strings.TrimSpace(msg.Message)
		if msg.Message == "" {
			h.sendError(c, "'message' is required and must be a non-empty string")
			continue
		}

		response, err := h.pipeline.Process(ctx, chat.Request{
			Message: msg.Message,
			History: msg.History,
		})
		if err != nil {
			if ctx.Err() != nil {
				// Client went away mid-request; nothing to reply to.
				return
			}
			logger.Error("Failed to process WebSocket chat message", zap.Error(err))
			if errors.Is(err, genai.ErrUpstream) {
				h.sendError(c, "The assistant is temporarily unavailable. Please try again shortly.")
			} else {
				h.sendError(c, "Failed to process message")
			}
			continue
		}

		h.send(c, map[string]interface{}{
			"type":       "reply",
			"reply":      response.Reply,
			"request_id": response.ID,
		})
	}
}

func (h *WebSocketHandler) send(c *websocket.Conn, msg map[string]interface{}) {
	if err := c.WriteJSON(msg); err != nil {
		logger.Warn("Failed to write WebSocket message", zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	h.send(c, map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
