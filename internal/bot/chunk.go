package bot

import (
	"strings"
	"unicode"
)

// chunkText splits text into pieces of at most limit runes, preferring to break
// after a newline or space in the second half of each window.
func chunkText(text string, limit int) []string {
	if limit <= 0 || text == "" {
		return nil
	}
	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' || unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}
		if chunk := strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace); chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
	}
	if rest := strings.TrimSpace(string(runes)); rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
