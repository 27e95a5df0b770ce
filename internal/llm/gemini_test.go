package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mikabot/internal/domain"
)

func TestBuildContents(t *testing.T) {
	history := []domain.ConversationTurn{
		{Role: domain.RoleUser, Text: "hi"},
		{Role: domain.RoleAssistant, Text: "Hehe! hello"},
		{Role: domain.RoleUser, Text: ""},
	}

	contents := buildContents(history, "persona\nUser: how are you?")

	require.Len(t, contents, 3, "empty turns are skipped")
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "hi", contents[0].Parts[0].Text)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "Hehe! hello", contents[1].Parts[0].Text)
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, "persona\nUser: how are you?", contents[2].Parts[0].Text)
}

func TestBuildContents_NoHistory(t *testing.T) {
	contents := buildContents(nil, "prompt")
	require.Len(t, contents, 1)
	assert.Equal(t, "prompt", contents[0].Parts[0].Text)
}
