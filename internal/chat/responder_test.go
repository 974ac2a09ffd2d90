package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matalai-travel/chat-backend/internal/genai"
	"github.com/matalai-travel/chat-backend/internal/store/models"
)

type fakeGenerator struct {
	result   *genai.Result
	err      error
	contents []genai.Content
}

func (f *fakeGenerator) Generate(_ context.Context, contents []genai.Content) (*genai.Result, error) {
	f.contents = contents
	return f.result, f.err
}

func TestResponderReply(t *testing.T) {
	t.Run("model text is returned verbatim", func(t *testing.T) {
		gen := &fakeGenerator{result: &genai.Result{
			Text:         "The Delta is magical in June — shall I tell you about Okavango Trails?",
			FinishReason: genai.FinishStop,
		}}

		reply, err := NewResponder(gen).Reply(context.Background(), "when should I go?", nil, "some context")
		require.NoError(t, err)
		assert.Equal(t, "The Delta is magical in June — shall I tell you about Okavango Trails?", reply)
	})

	t.Run("safety block maps to the safety apology", func(t *testing.T) {
		gen := &fakeGenerator{result: &genai.Result{
			Blocked:         true,
			BlockedCategory: "HARM_CATEGORY_DANGEROUS_CONTENT",
		}}

		reply, err := NewResponder(gen).Reply(context.Background(), "msg", nil, "ctx")
		require.NoError(t, err)
		assert.Equal(t, SafetyApology("HARM_CATEGORY_DANGEROUS_CONTENT"), reply)
		assert.Contains(t, reply, "dangerous content")
	})

	t.Run("token truncation maps to the truncation apology", func(t *testing.T) {
		gen := &fakeGenerator{result: &genai.Result{
			Text:         "a partial ans",
			FinishReason: genai.FinishMaxTokens,
		}}

		reply, err := NewResponder(gen).Reply(context.Background(), "msg", nil, "ctx")
		require.NoError(t, err)
		assert.Equal(t, TruncationApology, reply)
	})

	t.Run("empty result maps to the generic apology", func(t *testing.T) {
		gen := &fakeGenerator{result: &genai.Result{}}

		reply, err := NewResponder(gen).Reply(context.Background(), "msg", nil, "ctx")
		require.NoError(t, err)
		assert.Equal(t, GenericApology, reply)
	})

	t.Run("transport errors propagate unchanged", func(t *testing.T) {
		upstream := fmt.Errorf("%w: status 503", genai.ErrUpstream)
		gen := &fakeGenerator{err: upstream}

		_, err := NewResponder(gen).Reply(context.Background(), "msg", nil, "ctx")
		require.Error(t, err)
		assert.True(t, errors.Is(err, genai.ErrUpstream))
	})
}

func TestBuildContents(t *testing.T) {
	history := []models.ChatTurn{
		{Role: models.RoleUser, Parts: []models.TurnPart{{Text: "Any lodges in Botswana?"}}},
		{Role: models.RoleModel, Parts: []models.TurnPart{{Text: "Four of them, in fact."}}},
	}

	gen := &fakeGenerator{result: &genai.Result{Text: "ok", FinishReason: genai.FinishStop}}
	_, err := NewResponder(gen).Reply(context.Background(), "Which is best for kids?", history, "CONTEXT TEXT HERE")
	require.NoError(t, err)

	contents := gen.contents
	require.Len(t, contents, 5)

	t.Run("priming exchange comes first and carries the context", func(t *testing.T) {
		assert.Equal(t, models.RoleUser, contents[0].Role)
		assert.Contains(t, contents[0].Parts[0].Text, "You are Tau")
		assert.Contains(t, contents[0].Parts[0].Text, "CONTEXT:\nCONTEXT TEXT HERE")
		assert.Equal(t, models.RoleModel, contents[1].Role)
	})

	t.Run("history sits between priming and the new message", func(t *testing.T) {
		assert.Equal(t, "Any lodges in Botswana?", contents[2].Parts[0].Text)
		assert.Equal(t, "Four of them, in fact.", contents[3].Parts[0].Text)
	})

	t.Run("new user message comes last", func(t *testing.T) {
		last := contents[len(contents)-1]
		assert.Equal(t, models.RoleUser, last.Role)
		assert.Equal(t, "Which is best for kids?", last.Parts[0].Text)
	})
}

func TestHumanizeCategory(t *testing.T) {
	assert.Equal(t, "harassment", humanizeCategory("HARM_CATEGORY_HARASSMENT"))
	assert.Equal(t, "sexually explicit", humanizeCategory("HARM_CATEGORY_SEXUALLY_EXPLICIT"))
	assert.Equal(t, "safety", humanizeCategory(""))
}
