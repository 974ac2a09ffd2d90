package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matalai-travel/chat-backend/internal/genai"
	"github.com/matalai-travel/chat-backend/internal/intent"
	"github.com/matalai-travel/chat-backend/internal/store/models"
)

type fakeMatcher struct {
	action  intent.ActionID
	matched bool
}

func (f *fakeMatcher) Match(string) (intent.ActionID, bool) { return f.action, f.matched }

type fakeExecutor struct {
	reply  string
	ok     bool
	called int
}

func (f *fakeExecutor) Execute(context.Context, intent.ActionID, string) (string, bool) {
	f.called++
	return f.reply, f.ok
}

type fakeRetriever struct {
	contextText string
	called      int
}

func (f *fakeRetriever) Retrieve(context.Context, string) string {
	f.called++
	return f.contextText
}

type fakeReplier struct {
	reply      string
	err        error
	gotHistory []models.ChatTurn
	gotContext string
	gotMessage string
	called     int
}

func (f *fakeReplier) Reply(_ context.Context, message string, history []models.ChatTurn, contextText string) (string, error) {
	f.called++
	f.gotMessage = message
	f.gotHistory = history
	f.gotContext = contextText
	return f.reply, f.err
}

type fakeCache struct {
	entries map[string]string
	sets    int
}

func newFakeCache() *fakeCache { return &fakeCache{entries: map[string]string{}} }

func (f *fakeCache) GetReply(_ context.Context, key string) (string, bool, error) {
	reply, ok := f.entries[key]
	return reply, ok, nil
}

func (f *fakeCache) SetReply(_ context.Context, key, reply string, _ time.Duration) error {
	f.sets++
	f.entries[key] = reply
	return nil
}

func TestPipelineActionPath(t *testing.T) {
	matcher := &fakeMatcher{action: "list_lodges_botswana", matched: true}
	executor := &fakeExecutor{reply: "Okay, here are our lodges in Botswana:\n- Baobab Point (Makgadikgadi)", ok: true}
	retriever := &fakeRetriever{}
	replier := &fakeReplier{}

	p := NewPipeline(matcher, executor, retriever, replier, nil, 8, 0)
	resp, err := p.Process(context.Background(), Request{Message: "lodges in botswana"})
	require.NoError(t, err)

	assert.Equal(t, StrategyAction, resp.Strategy)
	assert.Equal(t, executor.reply, resp.Reply)
	assert.NotEmpty(t, resp.ID)

	t.Run("generation path is never reached", func(t *testing.T) {
		assert.Zero(t, retriever.called)
		assert.Zero(t, replier.called)
	})
}

func TestPipelineFallbackPath(t *testing.T) {
	t.Run("no intent match goes straight to generation", func(t *testing.T) {
		retriever := &fakeRetriever{contextText: "Topic: packing\nLight neutral layers."}
		replier := &fakeReplier{reply: "Pack light, neutral layers."}

		p := NewPipeline(&fakeMatcher{}, &fakeExecutor{}, retriever, replier, nil, 8, 0)
		resp, err := p.Process(context.Background(), Request{Message: "what should I wear?"})
		require.NoError(t, err)

		assert.Equal(t, StrategyFallback, resp.Strategy)
		assert.Equal(t, "Pack light, neutral layers.", resp.Reply)
		assert.Equal(t, "Topic: packing\nLight neutral layers.", replier.gotContext)
	})

	t.Run("action fallthrough continues to generation", func(t *testing.T) {
		matcher := &fakeMatcher{action: "kb_missing_topic", matched: true}
		executor := &fakeExecutor{ok: false}
		retriever := &fakeRetriever{contextText: "ctx"}
		replier := &fakeReplier{reply: "generated"}

		p := NewPipeline(matcher, executor, retriever, replier, nil, 8, 0)
		resp, err := p.Process(context.Background(), Request{Message: "anything"})
		require.NoError(t, err)

		assert.Equal(t, 1, executor.called)
		assert.Equal(t, 1, retriever.called)
		assert.Equal(t, StrategyFallback, resp.Strategy)
	})

	t.Run("upstream failure propagates to the caller", func(t *testing.T) {
		replier := &fakeReplier{err: genai.ErrUpstream}

		p := NewPipeline(&fakeMatcher{}, &fakeExecutor{}, &fakeRetriever{}, replier, nil, 8, 0)
		_, err := p.Process(context.Background(), Request{Message: "hello"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, genai.ErrUpstream))
	})
}

func TestPipelineHistory(t *testing.T) {
	mkTurn := func(role, text string) models.ChatTurn {
		return models.ChatTurn{Role: role, Parts: []models.TurnPart{{Text: text}}}
	}

	t.Run("malformed turns are dropped before generation", func(t *testing.T) {
		replier := &fakeReplier{reply: "ok"}
		p := NewPipeline(&fakeMatcher{}, &fakeExecutor{}, &fakeRetriever{}, replier, nil, 8, 0)

		_, err := p.Process(context.Background(), Request{
			Message: "hi",
			History: []models.ChatTurn{
				mkTurn(models.RoleUser, "fine"),
				mkTurn("system", "bad role"),
				mkTurn(models.RoleModel, ""),
				mkTurn(models.RoleModel, "also fine"),
			},
		})
		require.NoError(t, err)
		require.Len(t, replier.gotHistory, 2)
		assert.Equal(t, "fine", replier.gotHistory[0].Text())
		assert.Equal(t, "also fine", replier.gotHistory[1].Text())
	})

	t.Run("only the most recent turns are kept", func(t *testing.T) {
		replier := &fakeReplier{reply: "ok"}
		p := NewPipeline(&fakeMatcher{}, &fakeExecutor{}, &fakeRetriever{}, replier, nil, 3, 0)

		var history []models.ChatTurn
		for _, text := range []string{"one", "two", "three", "four", "five"} {
			history = append(history, mkTurn(models.RoleUser, text))
		}

		_, err := p.Process(context.Background(), Request{Message: "hi", History: history})
		require.NoError(t, err)
		require.Len(t, replier.gotHistory, 3)
		assert.Equal(t, "three", replier.gotHistory[0].Text())
		assert.Equal(t, "five", replier.gotHistory[2].Text())
	})
}

func TestPipelineCache(t *testing.T) {
	t.Run("repeat history-free requests are served from cache", func(t *testing.T) {
		cache := newFakeCache()
		replier := &fakeReplier{reply: "generated once"}
		p := NewPipeline(&fakeMatcher{}, &fakeExecutor{}, &fakeRetriever{}, replier, cache, 8, time.Minute)

		first, err := p.Process(context.Background(), Request{Message: "How big is the delta?"})
		require.NoError(t, err)
		assert.Equal(t, StrategyFallback, first.Strategy)

		second, err := p.Process(context.Background(), Request{Message: "how big is the delta"})
		require.NoError(t, err)
		assert.Equal(t, StrategyCache, second.Strategy)
		assert.Equal(t, "generated once", second.Reply)
		assert.Equal(t, 1, replier.called)
	})

	t.Run("requests with history bypass the cache", func(t *testing.T) {
		cache := newFakeCache()
		replier := &fakeReplier{reply: "fresh"}
		p := NewPipeline(&fakeMatcher{}, &fakeExecutor{}, &fakeRetriever{}, replier, cache, 8, time.Minute)

		history := []models.ChatTurn{
			{Role: models.RoleUser, Parts: []models.TurnPart{{Text: "earlier"}}},
		}

		_, err := p.Process(context.Background(), Request{Message: "same question", History: history})
		require.NoError(t, err)
		_, err = p.Process(context.Background(), Request{Message: "same question", History: history})
		require.NoError(t, err)

		assert.Equal(t, 2, replier.called)
		assert.Zero(t, cache.sets)
	})

	t.Run("action replies are cached too", func(t *testing.T) {
		cache := newFakeCache()
		matcher := &fakeMatcher{action: "list_lodges", matched: true}
		executor := &fakeExecutor{reply: "the list", ok: true}
		p := NewPipeline(matcher, executor, &fakeRetriever{}, &fakeReplier{}, cache, 8, time.Minute)

		_, err := p.Process(context.Background(), Request{Message: "list lodges"})
		require.NoError(t, err)
		resp, err := p.Process(context.Background(), Request{Message: "list lodges"})
		require.NoError(t, err)

		assert.Equal(t, StrategyCache, resp.Strategy)
		assert.Equal(t, 1, executor.called)
	})
}
