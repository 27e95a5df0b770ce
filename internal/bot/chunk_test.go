package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestChunkText(t *testing.T) {
	assert.Nil(t, chunkText("", 10))
	assert.Equal(t, []string{"short"}, chunkText("short", 10))

	chunks := chunkText("aaaa bbbb cccc", 10)
	assert.Equal(t, []string{"aaaa bbbb", "cccc"}, chunks)

	hard := strings.Repeat("x", 25)
	assert.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, chunkText(hard, 10))
}

func TestChunkText_RespectsLimitInRunes(t *testing.T) {
	text := strings.Repeat("💖 sparkle ", 500)
	for _, chunk := range chunkText(text, discordMaxMessageLength) {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), discordMaxMessageLength)
	}
	joined := strings.Join(chunkText(text, discordMaxMessageLength), " ")
	assert.Equal(t, strings.Fields(text), strings.Fields(joined), "no words are lost")
}
