// Package genai is a thin client for the Gemini generateContent REST
// API: role-tagged contents in, generated text plus finish/safety
// signals out. It deliberately does not interpret outcomes into
// user-facing copy; that belongs to the chat responder.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/pkg/circuitbreaker"
	"github.com/matalai-travel/chat-backend/pkg/config"
	"github.com/matalai-travel/chat-backend/pkg/logger"
	"github.com/matalai-travel/chat-backend/pkg/retry"
)

// ErrUpstream marks transport-level failures of the generation service
// (network errors, non-2xx statuses, open circuit, timeout). Handlers
// map it to 502.
var ErrUpstream = errors.New("generation service unavailable")

const (
	FinishStop      = "STOP"
	FinishMaxTokens = "MAX_TOKENS"
	FinishSafety    = "SAFETY"
)

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []Content        `json:"contents"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type SafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
		FinishReason  string         `json:"finishReason"`
		SafetyRatings []SafetyRating `json:"safetyRatings"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason   string         `json:"blockReason"`
		SafetyRatings []SafetyRating `json:"safetyRatings"`
	} `json:"promptFeedback"`
}

// Result is the interpreted-enough response: raw text, the finish
// reason, and whether safety filtering blocked the exchange.
type Result struct {
	Text            string
	FinishReason    string
	Blocked         bool
	BlockedCategory string
}

// Block medium-and-above across the four harm categories; the widget
// fronts a public marketing site.
var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

type Client struct {
	httpClient  *http.Client
	endpoint    string
	model       string
	apiKey      string
	genConfig   generationConfig
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(cfg config.GenAIConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	cb := circuitbreaker.New("genai", circuitbreaker.Config{
		MaxRequests:      5,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.DefaultConfig()
	retryConfig.Logger = logger.GetLogger()

	logger.Info("Generation client initialized",
		zap.String("model", cfg.Model),
	)

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		genConfig: generationConfig{
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// Generate sends the turn sequence upstream and returns the interpreted
// result. All transport-level failures come back wrapped in ErrUpstream.
func (c *Client) Generate(ctx context.Context, contents []Content) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := generateRequest{
		Contents:         contents,
		SafetySettings:   defaultSafetySettings,
		GenerationConfig: c.genConfig,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)

	var result *Result
	err = c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to build generation request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUpstream, err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
			}

			if resp.StatusCode != http.StatusOK {
				logger.Error("Generation service returned non-success status",
					zap.Int("status", resp.StatusCode),
					zap.ByteString("body", truncate(respBody, 512)),
				)
				return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
			}

			result = parseResponse(respBody)
			return nil
		})
	})
	if err != nil {
		// Deadline expiry and an open circuit are transport failures
		// like any other; callers must see ErrUpstream for all of them.
		if !errors.Is(err, ErrUpstream) &&
			(errors.Is(err, circuitbreaker.ErrCircuitOpen) ||
				errors.Is(err, circuitbreaker.ErrTooManyRequests) ||
				errors.Is(err, context.DeadlineExceeded) ||
				errors.Is(err, context.Canceled)) {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, err
	}

	return result, nil
}

// parseResponse tolerates unexpected shapes: anything unrecognized
// yields an empty Result, which the responder maps to a generic
// apology rather than an error.
func parseResponse(body []byte) *Result {
	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.Error("Failed to parse generation response", zap.Error(err))
		return &Result{}
	}

	if parsed.PromptFeedback.BlockReason != "" {
		return &Result{
			Blocked:         true,
			BlockedCategory: blockedCategory(parsed.PromptFeedback.SafetyRatings, parsed.PromptFeedback.BlockReason),
		}
	}

	if len(parsed.Candidates) == 0 {
		return &Result{}
	}

	candidate := parsed.Candidates[0]
	if candidate.FinishReason == FinishSafety {
		return &Result{
			FinishReason:    FinishSafety,
			Blocked:         true,
			BlockedCategory: blockedCategory(candidate.SafetyRatings, "SAFETY"),
		}
	}

	text := ""
	for _, part := range candidate.Content.Parts {
		text += part.Text
	}

	return &Result{
		Text:         text,
		FinishReason: candidate.FinishReason,
	}
}

func blockedCategory(ratings []SafetyRating, fallback string) string {
	for _, rating := range ratings {
		if rating.Probability == "MEDIUM" || rating.Probability == "HIGH" {
			return rating.Category
		}
	}
	return fallback
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
