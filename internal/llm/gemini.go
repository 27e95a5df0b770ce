// Package llm adapts generative-language services to the dialogue backend contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"mikabot/internal/domain"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash-lite"

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("generative backend returned an empty response")

// GeminiBackend implements dialogue.Backend on the Gemini API.
type GeminiBackend struct {
	client *genai.Client
	model  string
	log    logrus.FieldLogger
}

// NewGeminiBackend creates a Gemini API client for model.
func NewGeminiBackend(ctx context.Context, apiKey, model string, logger logrus.FieldLogger) (*GeminiBackend, error) {
	if strings.TrimSpace(model) == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client init: %w", err)
	}
	log := logger.WithFields(logrus.Fields{"component": "gemini", "model": model})
	log.Info("Gemini backend initialized")
	return &GeminiBackend{client: client, model: model, log: log}, nil
}

// Converse sends history followed by prompt as a single generate call.
func (g *GeminiBackend) Converse(ctx context.Context, history []domain.ConversationTurn, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(history, prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// buildContents maps turns to Gemini contents; assistant turns use the "model" role.
func buildContents(history []domain.ConversationTurn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		if turn.Text == "" {
			continue
		}
		role := "user"
		if turn.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}
	return append(contents, &genai.Content{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	})
}
