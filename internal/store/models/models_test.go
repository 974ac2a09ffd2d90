package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalListScan(t *testing.T) {
	t.Run("NULL column scans as absent", func(t *testing.T) {
		var l OptionalList
		require.NoError(t, l.Scan(nil))
		assert.False(t, l.Valid)
		assert.False(t, l.HasValues())
	})

	t.Run("empty array scans as present but empty", func(t *testing.T) {
		var l OptionalList
		require.NoError(t, l.Scan([]byte("{}")))
		assert.True(t, l.Valid)
		assert.False(t, l.HasValues())
	})

	t.Run("populated array scans as present with values", func(t *testing.T) {
		var l OptionalList
		require.NoError(t, l.Scan([]byte(`{"game drives","mokoro trips"}`)))
		assert.True(t, l.Valid)
		assert.True(t, l.HasValues())
		assert.Equal(t, []string{"game drives", "mokoro trips"}, l.Values)
	})
}

func TestChatTurn(t *testing.T) {
	t.Run("multiple parts join with newlines", func(t *testing.T) {
		turn := ChatTurn{Role: RoleModel, Parts: []TurnPart{{Text: "first"}, {Text: "second"}}}
		assert.Equal(t, "first\nsecond", turn.Text())
	})

	t.Run("validity requires a known role and text", func(t *testing.T) {
		assert.True(t, ChatTurn{Role: RoleUser, Parts: []TurnPart{{Text: "hi"}}}.IsValid())
		assert.True(t, ChatTurn{Role: RoleModel, Parts: []TurnPart{{Text: "hi"}}}.IsValid())
		assert.False(t, ChatTurn{Role: "assistant", Parts: []TurnPart{{Text: "hi"}}}.IsValid())
		assert.False(t, ChatTurn{Role: RoleUser}.IsValid())
		assert.False(t, ChatTurn{Role: RoleUser, Parts: []TurnPart{{Text: ""}}}.IsValid())
	})
}
