// Package chat orchestrates one request through the response
// strategies: intent-matched action first, then retrieval-augmented
// generation. Each stage may fail without aborting the request.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/intent"
	"github.com/matalai-travel/chat-backend/internal/metrics"
	"github.com/matalai-travel/chat-backend/internal/store/models"
	"github.com/matalai-travel/chat-backend/pkg/logger"
	"github.com/matalai-travel/chat-backend/pkg/utils"
)

type Matcher interface {
	Match(message string) (intent.ActionID, bool)
}

type ActionExecutor interface {
	Execute(ctx context.Context, id intent.ActionID, message string) (string, bool)
}

type ContextRetriever interface {
	Retrieve(ctx context.Context, message string) string
}

type Replier interface {
	Reply(ctx context.Context, message string, history []models.ChatTurn, contextText string) (string, error)
}

// ReplyCache is optional; a nil cache disables caching entirely.
type ReplyCache interface {
	GetReply(ctx context.Context, key string) (string, bool, error)
	SetReply(ctx context.Context, key, reply string, ttl time.Duration) error
}

type Request struct {
	Message string
	History []models.ChatTurn
}

type Response struct {
	ID       string
	Reply    string
	Strategy string
	Latency  time.Duration
}

// Strategy labels for logging and metrics.
const (
	StrategyAction   = "action"
	StrategyFallback = "fallback"
	StrategyCache    = "cache"
)

type Pipeline struct {
	matcher      Matcher
	executor     ActionExecutor
	retriever    ContextRetriever
	responder    Replier
	cache        ReplyCache
	historyLimit int
	cacheTTL     time.Duration
}

func NewPipeline(matcher Matcher, executor ActionExecutor, retriever ContextRetriever, responder Replier, cache ReplyCache, historyLimit int, cacheTTL time.Duration) *Pipeline {
	if historyLimit <= 0 {
		historyLimit = 8
	}
	return &Pipeline{
		matcher:      matcher,
		executor:     executor,
		retriever:    retriever,
		responder:    responder,
		cache:        cache,
		historyLimit: historyLimit,
		cacheTTL:     cacheTTL,
	}
}

// Process runs one message through the pipeline. The request is
// self-contained: history arrives with the call and nothing is kept
// afterwards. The only error returned is an upstream generation
// failure; everything else resolves to a reply.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	requestID := uuid.New().String()

	history := sanitizeHistory(req.History, p.historyLimit)

	logger.Info("Processing chat message",
		zap.String("request_id", requestID),
		zap.Int("history_turns", len(history)),
	)

	// Replies depend on history, so only history-free requests are
	// cacheable.
	cacheKey := ""
	if p.cache != nil && len(history) == 0 {
		cacheKey = utils.HashString(intent.Normalize(req.Message))
		if reply, hit, err := p.cache.GetReply(ctx, cacheKey); err != nil {
			logger.Warn("Reply cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("reply").Inc()
			return p.finish(requestID, reply, StrategyCache, start), nil
		} else {
			metrics.CacheMisses.WithLabelValues("reply").Inc()
		}
	}

	if actionID, matched := p.matcher.Match(req.Message); matched {
		metrics.IntentMatches.WithLabelValues("matched").Inc()
		logger.Debug("Intent matched",
			zap.String("request_id", requestID),
			zap.String("action", string(actionID)),
		)

		if reply, ok := p.executor.Execute(ctx, actionID, req.Message); ok {
			metrics.ActionOutcomes.WithLabelValues("reply").Inc()
			p.storeReply(ctx, cacheKey, reply)
			return p.finish(requestID, reply, StrategyAction, start), nil
		}

		metrics.ActionOutcomes.WithLabelValues("fallthrough").Inc()
		logger.Info("Action fell through to retrieval",
			zap.String("request_id", requestID),
			zap.String("action", string(actionID)),
		)
	} else {
		metrics.IntentMatches.WithLabelValues("none").Inc()
	}

	contextText := p.retriever.Retrieve(ctx, req.Message)

	reply, err := p.responder.Reply(ctx, req.Message, history, contextText)
	if err != nil {
		metrics.RequestTotal.WithLabelValues("upstream_error").Inc()
		logger.Error("Generation failed",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, err
	}

	p.storeReply(ctx, cacheKey, reply)
	return p.finish(requestID, reply, StrategyFallback, start), nil
}

func (p *Pipeline) finish(requestID, reply, strategy string, start time.Time) *Response {
	latency := time.Since(start)
	metrics.RequestTotal.WithLabelValues(strategy).Inc()
	metrics.RequestDuration.WithLabelValues(strategy).Observe(latency.Seconds())

	logger.Info("Chat message processed",
		zap.String("request_id", requestID),
		zap.String("strategy", strategy),
		zap.Duration("latency", latency),
	)

	return &Response{
		ID:       requestID,
		Reply:    reply,
		Strategy: strategy,
		Latency:  latency,
	}
}

func (p *Pipeline) storeReply(ctx context.Context, cacheKey, reply string) {
	if p.cache == nil || cacheKey == "" {
		return
	}
	if err := p.cache.SetReply(ctx, cacheKey, reply, p.cacheTTL); err != nil {
		logger.Warn("Reply cache write failed", zap.Error(err))
	}
}

// sanitizeHistory drops malformed turns and keeps only the most recent
// limit entries.
func sanitizeHistory(history []models.ChatTurn, limit int) []models.ChatTurn {
	valid := make([]models.ChatTurn, 0, len(history))
	for _, turn := range history {
		if turn.IsValid() {
			valid = append(valid, turn)
		}
	}
	if len(valid) > limit {
		valid = valid[len(valid)-limit:]
	}
	return valid
}
