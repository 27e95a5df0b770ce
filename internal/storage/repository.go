package storage

import (
	"context"
	"time"

	"mikabot/internal/domain"
)

// PreviewCache stores successfully extracted link metadata keyed by source URL.
// This allows us to swap cache implementations without changing the extractor.
type PreviewCache interface {
	// SavePreview stores metadata for meta.SourceURL. A ttl of zero keeps it until deleted.
	SavePreview(ctx context.Context, meta domain.LinkMetadata, ttl time.Duration) error

	// GetPreview returns the cached metadata for url. found is false on a miss or expiry.
	GetPreview(ctx context.Context, url string) (meta domain.LinkMetadata, found bool, err error)

	// DeletePreview removes a cached entry. Deleting a missing entry is not an error.
	DeletePreview(ctx context.Context, url string) error

	// Close gracefully shuts down the cache.
	Close() error
}

// HistoryRepository is the conversation history store used by the dialogue orchestrator.
type HistoryRepository interface {
	// Turns returns a copy of the channel's turns, oldest first.
	Turns(channelID string) []domain.ConversationTurn

	// Append records a user/assistant exchange and schedules a save.
	Append(channelID, userText, assistantText string)
}
