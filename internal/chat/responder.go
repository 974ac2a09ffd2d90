package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/genai"
	"github.com/matalai-travel/chat-backend/internal/store/models"
	"github.com/matalai-travel/chat-backend/pkg/logger"
)

// Generator is the outbound text-generation capability.
type Generator interface {
	Generate(ctx context.Context, contents []genai.Content) (*genai.Result, error)
}

// Fixed user-facing templates for non-transport generation outcomes.
// These are terminal replies, never raw upstream content.
const (
	TruncationApology = "I'm sorry — that answer ran longer than I can share in one go. Could you try a slightly narrower question?"
	GenericApology    = "I'm sorry, I wasn't able to put a reply together just now. Please try again in a moment, or contact our travel specialists directly."
)

// SafetyApology names the blocked category without surfacing any
// partial upstream content.
func SafetyApology(category string) string {
	return fmt.Sprintf("I'm sorry, I can't help with that request (it was flagged by our %s content filter). I'd be happy to answer anything about our lodges and safaris.", humanizeCategory(category))
}

const systemPersona = `You are Tau, the safari travel specialist for Matalai, a collection of luxury lodges in South Africa, Botswana and Mozambique.
Stay warmly in character as a knowledgeable human specialist; never mention that you are an AI, a language model, or an automated system.
Ground every answer in the CONTEXT section below. Prefer it over anything you believe you know; if the context doesn't cover the question, say so honestly rather than inventing lodge details.
For booking requests, availability or pricing, do not quote figures — direct the guest to our travel specialists at enquiries@matalai.travel.
Keep replies concise and conversational, suitable for a small chat window.`

// Responder owns the final pipeline stage: compose the full turn
// sequence, invoke the generation service and interpret its outcome.
type Responder struct {
	generator Generator
}

func NewResponder(generator Generator) *Responder {
	return &Responder{generator: generator}
}

// Reply returns the user-facing reply text. The only error it returns
// is a transport-level upstream failure (genai.ErrUpstream); every
// other outcome is mapped to a terminal reply string.
func (r *Responder) Reply(ctx context.Context, message string, history []models.ChatTurn, contextText string) (string, error) {
	contents := buildContents(message, history, contextText)

	result, err := r.generator.Generate(ctx, contents)
	if err != nil {
		return "", err
	}

	switch {
	case result.Blocked:
		logger.Warn("Generation blocked by safety filter",
			zap.String("category", result.BlockedCategory),
		)
		return SafetyApology(result.BlockedCategory), nil
	case result.FinishReason == genai.FinishMaxTokens:
		logger.Warn("Generation truncated at output limit")
		return TruncationApology, nil
	case result.Text != "":
		return result.Text, nil
	default:
		// Empty or unrecognized upstream shape; guard against silent
		// API changes.
		logger.Error("Generation returned no usable text",
			zap.String("finish_reason", result.FinishReason),
		)
		return GenericApology, nil
	}
}

// buildContents assembles system persona + context as a priming
// exchange (the generateContent API has no system role), then the
// caller-supplied history, then the new user turn.
func buildContents(message string, history []models.ChatTurn, contextText string) []genai.Content {
	system := fmt.Sprintf("%s\n\nCONTEXT:\n%s", systemPersona, contextText)

	contents := []genai.Content{
		{Role: models.RoleUser, Parts: []genai.Part{{Text: system}}},
		{Role: models.RoleModel, Parts: []genai.Part{{Text: "Understood. I'm Tau, Matalai's safari specialist — how can I help?"}}},
	}

	for _, turn := range history {
		contents = append(contents, genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{{Text: turn.Text()}},
		})
	}

	return append(contents, genai.Content{
		Role:  models.RoleUser,
		Parts: []genai.Part{{Text: message}},
	})
}

func humanizeCategory(category string) string {
	c := strings.TrimPrefix(category, "HARM_CATEGORY_")
	c = strings.ReplaceAll(c, "_", " ")
	if c == "" {
		return "safety"
	}
	return strings.ToLower(c)
}
